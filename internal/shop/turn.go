package shop

import "time"

// Author identifies who produced a turn.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// ListKind names one of the two independently paged result lists.
type ListKind string

const (
	ListExact       ListKind = "exact"
	ListSuggestions ListKind = "suggestions"
)

// ValidListKind reports whether k names a known result list.
func ValidListKind(k ListKind) bool {
	return k == ListExact || k == ListSuggestions
}

// ReplyRef records the turn a user message replied to, with the product
// snapshot that was attached to it at the time.
type ReplyRef struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Product   *Snapshot `json:"product,omitempty"`
}

// Turn is one message in the conversation. Turns are immutable once
// appended to the timeline.
type Turn struct {
	// ID is a ULID assigned at append time
	ID string `json:"id"`

	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`

	// ExactMatches and Suggestions are the two paged result lists carried
	// by searching assistant turns
	ExactMatches []Snapshot `json:"exact_matches,omitempty"`
	Suggestions  []Snapshot `json:"suggestions,omitempty"`

	// Orders is populated on order-inquiry assistant turns
	Orders []Order `json:"orders,omitempty"`

	// SuggestedFollowUps are backend-proposed next questions
	SuggestedFollowUps []string `json:"suggested_follow_ups,omitempty"`

	// FocusedProduct is the context snapshot the assistant turn was
	// answered against, when the backend maintained one
	FocusedProduct *Snapshot `json:"focused_product,omitempty"`

	// RepliedTo links a user turn to the message it quoted
	RepliedTo *ReplyRef `json:"replied_to,omitempty"`

	// LoadMore marks an assistant turn produced by a pagination request
	// rather than a fresh message
	LoadMore bool `json:"load_more,omitempty"`
}

// ContextState is the focused-product pair owned by the context tracker.
// Snapshot is present only when FocusedProductID is present, and then
// Snapshot.ExternalID equals FocusedProductID.
type ContextState struct {
	FocusedProductID string    `json:"focused_product_id,omitempty"`
	Snapshot         *Snapshot `json:"snapshot,omitempty"`
}

// Empty reports whether no product is focused.
func (c ContextState) Empty() bool {
	return c.FocusedProductID == "" && c.Snapshot == nil
}

// Identity is the session identity pair, created once per install and
// rotated only by an explicit conversation reset.
type Identity struct {
	SessionToken string `json:"session_token"`
	Email        string `json:"email,omitempty"`
	UserID       int64  `json:"user_id,omitempty"`
}

// Cursor is the pagination state for one result-list kind.
type Cursor struct {
	LastQuery string `json:"last_query"`
	Page      int    `json:"page"`
}

// ZeroCursor is the cursor value after a reset or a fresh search.
func ZeroCursor() Cursor {
	return Cursor{LastQuery: "", Page: 1}
}

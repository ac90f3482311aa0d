package backend

import "shopchat/internal/shop"

// Intent strings returned by the dialogue backend.
const (
	IntentProductSearch = "PRODUCT_SEARCH"
	IntentOrderInquiry  = "ORDER_INQUIRY"
	IntentGeneralChat   = "GENERAL_CHAT"
	IntentHelp          = "HELP"
)

// HistoryEntry is one prior turn sent along with a dialogue request, in the
// shape the backend keeps its own rolling window.
type HistoryEntry struct {
	Role      string `json:"role"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// TurnRequest is the body of POST /chat.
type TurnRequest struct {
	Message             string         `json:"message"`
	Email               string         `json:"email,omitempty"`
	SessionID           string         `json:"session_id,omitempty"`
	SelectedProductID   string         `json:"selected_product_id,omitempty"`
	ConversationHistory []HistoryEntry `json:"conversation_history"`
	MaxResults          int            `json:"max_results,omitempty"`
	Filters             map[string]any `json:"filters,omitempty"`
	PageNumber          int            `json:"page_number,omitempty"`
}

// TurnResponse is the body of a successful POST /chat. Optional fields
// decode to zero values so a thin payload degrades to a plain text reply.
type TurnResponse struct {
	Response   string  `json:"response"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`

	ExactMatches []shop.Snapshot `json:"exact_matches"`
	Suggestions  []shop.Snapshot `json:"suggestions"`
	Orders       []shop.Order    `json:"orders"`

	// ContextProduct is the backend's own focus decision; when present it
	// overrides whatever the local classifier chose.
	ContextProduct *shop.Snapshot `json:"context_product"`

	ShowExactSlider       bool     `json:"show_exact_slider"`
	ShowSuggestionsSlider bool     `json:"show_suggestions_slider"`
	SuggestedQuestions    []string `json:"suggested_questions"`

	TotalExactMatches  int            `json:"total_exact_matches"`
	TotalSuggestions   int            `json:"total_suggestions"`
	CurrentPage        int            `json:"current_page"`
	HasMoreExact       bool           `json:"has_more_exact"`
	HasMoreSuggestions bool           `json:"has_more_suggestions"`
	AppliedFilters     map[string]any `json:"applied_filters"`
	SearchMetadata     map[string]any `json:"search_metadata"`
}

// HasResults reports whether the response carried either result list.
func (r *TurnResponse) HasResults() bool {
	return len(r.ExactMatches) > 0 || len(r.Suggestions) > 0
}

// IdentifyRequest is the body of POST /auth/identify.
type IdentifyRequest struct {
	Email      string         `json:"email"`
	NewSession bool           `json:"new_session,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// IdentifyResponse is the body of a successful POST /auth/identify.
type IdentifyResponse struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
	Reused    bool   `json:"reused"`
}

// HistoryExtra is the structured payload the backend attaches to persisted
// assistant messages; the hydrator mines it for result lists and context.
type HistoryExtra struct {
	ExactMatches       []shop.Snapshot `json:"exact_matches,omitempty"`
	Suggestions        []shop.Snapshot `json:"suggestions,omitempty"`
	Orders             []shop.Order    `json:"orders,omitempty"`
	SuggestedQuestions []string        `json:"suggested_questions,omitempty"`
	ContextProduct     *shop.Snapshot  `json:"context_product,omitempty"`
	ContextMaintained  bool            `json:"context_maintained,omitempty"`
}

// HistoryMessage is one transcript entry from GET /chat/history.
type HistoryMessage struct {
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	CreatedAt string        `json:"created_at"`
	Extra     *HistoryExtra `json:"extra,omitempty"`
}

// HistoryResponse is the body of GET /chat/history.
type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
}

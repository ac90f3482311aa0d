package chat

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"shopchat/internal/backend"
	"shopchat/internal/cache"
	"shopchat/internal/classify"
	"shopchat/internal/config"
	"shopchat/internal/errors"
	"shopchat/internal/session"
	"shopchat/internal/shop"
)

const (
	welcomeText = "Hi! I'm your shopping assistant. Ask me about products, orders, or anything in the store."
	apologyText = "Sorry, I couldn't process that right now. Please try again in a moment."
)

// defaultFollowUps seed the welcome turn so an empty conversation still
// offers somewhere to start.
var defaultFollowUps = []string{
	"Show me new arrivals",
	"What's on sale right now?",
	"Where is my order?",
	"Help me find a gift",
}

// Engine drives the conversation: it classifies outgoing messages, calls the
// dialogue backend, reconciles the backend's context decision, and appends
// the resulting turns.
//
// State mutations are serialized by a mutex, but the mutex is released for
// the duration of each network call. Every request takes a sequence number;
// a response that resolves after a newer request (or a reset) has been issued
// is discarded without touching any state.
type Engine struct {
	client   *backend.Client
	sessions *session.Manager
	repo     cache.Repository
	log      zerolog.Logger

	historyWindow int
	maxResults    int

	mu       sync.Mutex
	seq      uint64
	tracker  *Tracker
	timeline *Timeline
	pager    *Pager
}

// SendOptions carries the optional knobs a front end can set on a message.
type SendOptions struct {
	MaxResults int
	Filters    map[string]any
	ReplyTo    *shop.ReplyRef
}

// NewEngine wires an engine over the given repository, restoring tracker,
// timeline, and cursor state from it.
func NewEngine(client *backend.Client, sessions *session.Manager, repo cache.Repository, cfg *config.Config, log zerolog.Logger) *Engine {
	elog := log.With().Str("component", "engine").Logger()
	return &Engine{
		client:        client,
		sessions:      sessions,
		repo:          repo,
		log:           elog,
		historyWindow: cfg.HistoryWindow,
		maxResults:    cfg.DefaultMaxResults,
		tracker:       NewTracker(repo, log),
		timeline:      NewTimeline(repo, log),
		pager:         NewPager(repo, log),
	}
}

// Sessions exposes the engine's identity manager to front ends.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Turns returns a copy of the current timeline.
func (e *Engine) Turns() []shop.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeline.All()
}

// Focus returns a copy of the current context state.
func (e *Engine) Focus() shop.ContextState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Current()
}

// Cursor returns the pagination cursor for the given list.
func (e *Engine) Cursor(kind shop.ListKind) shop.Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pager.Cursor(kind)
}

// SetFocus explicitly focuses a product, as when the user selects a card.
func (e *Engine) SetFocus(id string, snap *shop.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.SetFocus(id, snap)
}

// EnsureWelcome seeds the welcome turn into an empty timeline.
func (e *Engine) EnsureWelcome() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timeline.Len() > 0 {
		return
	}
	e.timeline.Append(e.welcomeTurn())
}

// Send pushes one user message through the full turn cycle and returns the
// assistant turn. An empty message after trimming is a silent no-op. On
// backend failure the user turn plus a synthetic apology turn are appended
// and the typed error is returned for the caller's banner.
func (e *Engine) Send(ctx context.Context, text string, opts SendOptions) (*shop.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	e.mu.Lock()
	reqSeq := e.nextSeq()
	decision := classify.Classify(text, e.tracker.Current().Snapshot)
	if decision.ShouldClear {
		e.tracker.Clear("classifier: " + strings.Join(decision.Matched, ","))
	}
	// Any ordinary message invalidates the previous search; only a response
	// that carries results re-arms pagination below.
	e.pager.Reset()
	req := backend.TurnRequest{
		Message:             text,
		SelectedProductID:   e.tracker.Current().FocusedProductID,
		ConversationHistory: e.historyWindowEntries(),
		MaxResults:          e.maxResults,
		Filters:             opts.Filters,
	}
	if opts.MaxResults > 0 {
		req.MaxResults = opts.MaxResults
	}
	ident := e.sessions.Current()
	req.Email = ident.Email
	req.SessionID = ident.SessionToken
	e.mu.Unlock()

	resp, err := e.client.Send(ctx, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stale(reqSeq) {
		e.log.Debug().Uint64("seq", reqSeq).Msg("discarding stale send response")
		return nil, nil
	}

	userTurn := shop.Turn{
		ID:        newTurnID(),
		Author:    shop.AuthorUser,
		Text:      text,
		CreatedAt: time.Now().UTC(),
		RepliedTo: opts.ReplyTo,
	}
	e.timeline.Append(userTurn)

	if err != nil {
		apology := shop.Turn{
			ID:        newTurnID(),
			Author:    shop.AuthorAssistant,
			Text:      apologyText,
			CreatedAt: time.Now().UTC(),
		}
		e.timeline.Append(apology)
		return nil, err
	}

	e.tracker.AdoptFromBackend(resp)
	if resp.HasResults() {
		e.pager.Remember(text)
	}
	assistant := e.turnFromResponse(resp, false)
	e.timeline.Append(assistant)
	return &assistant, nil
}

// LoadMore reissues the last remembered query at the next page for the given
// list and appends a continuation assistant turn. Classification is skipped.
// On failure the cursor is rolled back so a retry targets the same page.
func (e *Engine) LoadMore(ctx context.Context, kind shop.ListKind) (*shop.Turn, error) {
	if !shop.ValidListKind(kind) {
		return nil, errors.NewInvalidRequest("unknown result list " + string(kind))
	}

	e.mu.Lock()
	cur, err := e.pager.Advance(kind)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	reqSeq := e.nextSeq()
	ident := e.sessions.Current()
	req := backend.TurnRequest{
		Message:             cur.LastQuery,
		Email:               ident.Email,
		SessionID:           ident.SessionToken,
		SelectedProductID:   e.tracker.Current().FocusedProductID,
		ConversationHistory: e.historyWindowEntries(),
		MaxResults:          e.maxResults,
		PageNumber:          cur.Page,
	}
	e.mu.Unlock()

	resp, err := e.client.Send(ctx, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.pager.Rollback(kind)
		return nil, err
	}
	if e.stale(reqSeq) {
		e.log.Debug().Uint64("seq", reqSeq).Str("kind", string(kind)).Msg("discarding stale load-more response")
		e.pager.Rollback(kind)
		return nil, nil
	}

	assistant := e.turnFromResponse(resp, true)
	e.timeline.Append(assistant)
	return &assistant, nil
}

// ResetConversation clears everything back to the welcome state: timeline,
// focused product, and cursors. The backend context is cleared best-effort
// and the session token is rotated; this is the only token rotation.
func (e *Engine) ResetConversation(ctx context.Context) error {
	e.mu.Lock()
	e.nextSeq() // invalidate any in-flight responses
	token := e.sessions.Current().SessionToken
	e.mu.Unlock()

	if err := e.client.ClearContext(ctx, token); err != nil {
		e.log.Warn().Err(err).Msg("backend clear-context failed")
	}
	if err := e.sessions.Rotate(ctx); err != nil {
		e.log.Warn().Err(err).Msg("session rotation failed")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Wipe the cached conversation in one transaction, then let the
	// component resets re-seed the welcome state.
	if err := e.repo.ClearConversation(); err != nil {
		e.log.Warn().Err(err).Msg("conversation cache wipe failed")
	}
	e.tracker.Clear("conversation reset")
	e.pager.Reset()
	e.timeline.Reset(e.welcomeTurn())
	return nil
}

// History fetches the remote transcript for the identified session.
func (e *Engine) History(ctx context.Context) (*backend.HistoryResponse, error) {
	ident, err := e.sessions.Require()
	if err != nil {
		return nil, err
	}
	return e.client.History(ctx, ident.Email, ident.SessionToken)
}

func (e *Engine) welcomeTurn() shop.Turn {
	return shop.Turn{
		ID:                 newTurnID(),
		Author:             shop.AuthorAssistant,
		Text:               welcomeText,
		CreatedAt:          time.Now().UTC(),
		SuggestedFollowUps: append([]string(nil), defaultFollowUps...),
	}
}

// historyWindowEntries renders the most recent turns in the shape the
// backend keeps its own rolling window. Caller holds the lock.
func (e *Engine) historyWindowEntries() []backend.HistoryEntry {
	turns := e.timeline.All()
	if len(turns) > e.historyWindow {
		turns = turns[len(turns)-e.historyWindow:]
	}
	entries := make([]backend.HistoryEntry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, backend.HistoryEntry{
			Role:      string(t.Author),
			Message:   t.Text,
			Timestamp: t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return entries
}

// turnFromResponse builds the assistant turn for a backend response. The
// focused snapshot recorded on the turn reflects the tracker state after
// reconciliation. Caller holds the lock.
func (e *Engine) turnFromResponse(resp *backend.TurnResponse, loadMore bool) shop.Turn {
	t := shop.Turn{
		ID:                 newTurnID(),
		Author:             shop.AuthorAssistant,
		Text:               resp.Response,
		CreatedAt:          time.Now().UTC(),
		ExactMatches:       resp.ExactMatches,
		Suggestions:        resp.Suggestions,
		Orders:             resp.Orders,
		SuggestedFollowUps: resp.SuggestedQuestions,
		LoadMore:           loadMore,
	}
	if state := e.tracker.Current(); state.Snapshot != nil {
		t.FocusedProduct = state.Snapshot
	}
	return t
}

// nextSeq issues a new request sequence number. Caller holds the lock.
func (e *Engine) nextSeq() uint64 {
	e.seq++
	return e.seq
}

// stale reports whether a newer request was issued after seq. Caller holds
// the lock.
func (e *Engine) stale(seq uint64) bool {
	return seq != e.seq
}

func newTurnID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

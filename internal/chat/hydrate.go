package chat

import (
	"context"
	"time"

	"shopchat/internal/backend"
	"shopchat/internal/shop"
)

// Hydrate rebuilds the timeline from the remote transcript. It runs only
// when an identified session exists and no locally cached timeline does: a
// cached timeline wins so an in-progress conversation is never clobbered.
// Fetch failures are logged and ignored; the normal empty-state path seeds a
// welcome turn later.
func (e *Engine) Hydrate(ctx context.Context) {
	if !e.sessions.Identified() {
		return
	}
	e.mu.Lock()
	cached := e.timeline.Len()
	e.mu.Unlock()
	if cached > 0 {
		return
	}

	ident := e.sessions.Current()
	hist, err := e.client.History(ctx, ident.Email, ident.SessionToken)
	if err != nil {
		e.log.Warn().Err(err).Msg("history hydration failed")
		return
	}
	if len(hist.Messages) == 0 {
		return
	}

	turns := make([]shop.Turn, 0, len(hist.Messages))
	var lastAssistant *backend.HistoryMessage
	for i := range hist.Messages {
		msg := hist.Messages[i]
		turns = append(turns, turnFromHistory(msg))
		if msg.Role == string(shop.AuthorAssistant) {
			lastAssistant = &hist.Messages[i]
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timeline.Len() > 0 {
		return
	}
	e.timeline.Reset(turns...)

	if lastAssistant != nil && lastAssistant.Extra != nil {
		extra := lastAssistant.Extra
		if extra.ContextMaintained && extra.ContextProduct != nil {
			if err := e.tracker.SetFocus(extra.ContextProduct.ExternalID, extra.ContextProduct); err != nil {
				e.log.Warn().Err(err).Msg("could not seed context from history")
			}
		}
	}
	e.log.Debug().Int("turns", len(turns)).Msg("timeline hydrated from history")
}

func turnFromHistory(msg backend.HistoryMessage) shop.Turn {
	t := shop.Turn{
		ID:        newTurnID(),
		Author:    shop.Author(msg.Role),
		Text:      msg.Content,
		CreatedAt: parseHistoryTime(msg.CreatedAt),
	}
	if msg.Extra != nil {
		t.ExactMatches = msg.Extra.ExactMatches
		t.Suggestions = msg.Extra.Suggestions
		t.Orders = msg.Extra.Orders
		t.SuggestedFollowUps = msg.Extra.SuggestedQuestions
		t.FocusedProduct = msg.Extra.ContextProduct
	}
	return t
}

// parseHistoryTime accepts the backend's timestamp formats; transcripts use
// RFC 3339 but older sessions carry bare ISO timestamps without a zone.
func parseHistoryTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Now().UTC()
}

// Package chat orchestrates conversation state: the focused-product tracker,
// the append-only timeline, pagination cursors, and the engine that ties them
// to the remote dialogue backend.
package chat

import (
	"github.com/rs/zerolog"

	"shopchat/internal/backend"
	"shopchat/internal/cache"
	"shopchat/internal/errors"
	"shopchat/internal/shop"
)

// Tracker owns the focused-product context state. Every mutation mirrors to
// the cache; write failures are logged and swallowed so in-memory state stays
// authoritative.
type Tracker struct {
	repo  cache.Repository
	log   zerolog.Logger
	state shop.ContextState
}

// NewTracker restores any persisted context state from the repository.
func NewTracker(repo cache.Repository, log zerolog.Logger) *Tracker {
	t := &Tracker{repo: repo, log: log.With().Str("component", "tracker").Logger()}
	state, err := repo.LoadContext()
	if err != nil {
		t.log.Warn().Err(err).Msg("failed to load cached context")
		return t
	}
	t.state = state
	return t
}

// SetFocus makes the given product the conversation focus. The snapshot is
// copied by value; its external id must match id.
func (t *Tracker) SetFocus(id string, snap *shop.Snapshot) error {
	if id == "" || snap == nil {
		return errors.NewInvalidRequest("focus requires a product id and snapshot")
	}
	if snap.ExternalID != id {
		return errors.NewInvalidRequest("snapshot id does not match focused product id")
	}
	cp := *snap
	t.state = shop.ContextState{FocusedProductID: id, Snapshot: &cp}
	t.persist()
	return nil
}

// Clear drops the focused product. Calling it with nothing focused is a no-op.
func (t *Tracker) Clear(reason string) {
	if t.state.Empty() {
		return
	}
	t.log.Debug().Str("reason", reason).Str("product_id", t.state.FocusedProductID).Msg("clearing context")
	t.state = shop.ContextState{}
	t.persist()
}

// AdoptFromBackend reconciles the backend's own context decision into local
// state. A context_product in the response replaces local state outright; an
// order-inquiry or general-chat intent clears it; anything else leaves the
// local decision standing.
func (t *Tracker) AdoptFromBackend(resp *backend.TurnResponse) {
	if resp == nil {
		return
	}
	if resp.ContextProduct != nil && resp.ContextProduct.ExternalID != "" {
		cp := *resp.ContextProduct
		t.state = shop.ContextState{FocusedProductID: cp.ExternalID, Snapshot: &cp}
		t.persist()
		return
	}
	if resp.ContextProduct != nil {
		// A context product without an id cannot satisfy the focus
		// invariant; treat it as absent.
		t.log.Warn().Str("title", resp.ContextProduct.Title).Msg("ignoring context product without an id")
	}
	if resp.Intent == backend.IntentOrderInquiry || resp.Intent == backend.IntentGeneralChat {
		t.Clear("backend intent " + resp.Intent)
	}
}

// Current returns a copy of the context state.
func (t *Tracker) Current() shop.ContextState {
	out := t.state
	if t.state.Snapshot != nil {
		cp := *t.state.Snapshot
		out.Snapshot = &cp
	}
	return out
}

func (t *Tracker) persist() {
	if err := t.repo.SaveContext(t.state); err != nil {
		t.log.Warn().Err(err).Msg("failed to persist context state")
	}
}

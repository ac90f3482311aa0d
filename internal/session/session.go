// Package session owns the session identity pair: a stable token plus the
// user's email. The token is minted locally on first use and replaced by
// the backend's session id once the user identifies; it is never rotated
// after that except by an explicit conversation reset.
package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shopchat/internal/backend"
	"shopchat/internal/cache"
	"shopchat/internal/errors"
	"shopchat/internal/shop"
)

// Manager is the session identity manager. Construct one per engine; it is
// not an ambient singleton so tests can run isolated instances.
type Manager struct {
	repo   cache.Repository
	client *backend.Client
	log    zerolog.Logger

	current *shop.Identity
}

// NewManager loads any persisted identity from the repository. A missing or
// unreadable cache starts anonymous; read failures are non-fatal.
func NewManager(repo cache.Repository, client *backend.Client, log zerolog.Logger) *Manager {
	m := &Manager{
		repo:   repo,
		client: client,
		log:    log.With().Str("component", "session").Logger(),
	}
	ident, err := repo.LoadIdentity()
	if err != nil {
		m.log.Warn().Err(err).Msg("could not load cached identity")
	}
	m.current = ident
	return m
}

// Current returns the active identity, minting a local anonymous token on
// first use so caching works before the user identifies.
func (m *Manager) Current() *shop.Identity {
	if m.current == nil {
		m.current = &shop.Identity{SessionToken: uuid.NewString()}
		m.persist()
	}
	cp := *m.current
	return &cp
}

// Identified reports whether the user has been identified by email.
func (m *Manager) Identified() bool {
	return m.current != nil && m.current.Email != ""
}

// Identify establishes (or reuses) a backend session for the email and
// persists the resulting identity. With newSession true the backend is
// forced to mint a fresh session id even if one exists for this user.
func (m *Manager) Identify(ctx context.Context, email string, newSession bool) (*shop.Identity, bool, error) {
	resp, err := m.client.Identify(ctx, backend.IdentifyRequest{
		Email:      email,
		NewSession: newSession,
		Metadata:   map[string]any{"client": "shopchat", "local_token": m.Current().SessionToken},
	})
	if err != nil {
		return nil, false, err
	}

	m.current = &shop.Identity{
		SessionToken: resp.SessionID,
		Email:        resp.Email,
		UserID:       resp.UserID,
	}
	m.persist()

	m.log.Info().Str("session_id", resp.SessionID).Bool("reused", resp.Reused).Msg("identified")
	cp := *m.current
	return &cp, resp.Reused, nil
}

// Rotate mints a fresh backend session for the current email. This is the
// only token rotation and only an explicit conversation reset calls it.
// Without an email it falls back to a fresh local token.
func (m *Manager) Rotate(ctx context.Context) error {
	if m.current == nil || m.current.Email == "" {
		m.current = &shop.Identity{SessionToken: uuid.NewString()}
		m.persist()
		return nil
	}
	_, _, err := m.Identify(ctx, m.current.Email, true)
	return err
}

// Forget drops the stored identity and reverts to an anonymous session.
// The replacement token stays unpersisted until something writes again.
func (m *Manager) Forget() {
	if err := m.repo.DeleteIdentity(); err != nil {
		m.log.Warn().Err(err).Msg("identity cache delete failed")
	}
	m.current = &shop.Identity{SessionToken: uuid.NewString()}
	m.log.Info().Msg("identity forgotten")
}

// Require returns the identity or a NOT_IDENTIFIED error for operations
// that need an email-backed session (history fetch, order lookups).
func (m *Manager) Require() (*shop.Identity, error) {
	if !m.Identified() {
		return nil, errors.NewNotIdentified()
	}
	cp := *m.current
	return &cp, nil
}

// persist mirrors the identity to the cache; failures are swallowed since
// in-memory state stays authoritative for the page life.
func (m *Manager) persist() {
	if err := m.repo.SaveIdentity(m.current); err != nil {
		m.log.Warn().Err(err).Msg("identity cache write failed")
	}
}

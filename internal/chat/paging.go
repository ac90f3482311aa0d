package chat

import (
	"github.com/rs/zerolog"

	"shopchat/internal/cache"
	"shopchat/internal/errors"
	"shopchat/internal/shop"
)

// Pager owns the per-list pagination cursors. Each cursor is the last query
// text plus the page index most recently requested for that list.
type Pager struct {
	repo    cache.Repository
	log     zerolog.Logger
	cursors map[shop.ListKind]shop.Cursor
}

// NewPager restores persisted cursors, defaulting each list to page 1 with no
// remembered query.
func NewPager(repo cache.Repository, log zerolog.Logger) *Pager {
	p := &Pager{
		repo: repo,
		log:  log.With().Str("component", "pager").Logger(),
		cursors: map[shop.ListKind]shop.Cursor{
			shop.ListExact:       shop.ZeroCursor(),
			shop.ListSuggestions: shop.ZeroCursor(),
		},
	}
	saved, err := repo.LoadCursors()
	if err != nil {
		p.log.Warn().Err(err).Msg("failed to load cached cursors")
		return p
	}
	for kind, c := range saved {
		if shop.ValidListKind(kind) {
			p.cursors[kind] = c
		}
	}
	return p
}

// Remember records query as the active search for both lists and rewinds
// them to page 1. Called on any searching turn that is not a load-more.
func (p *Pager) Remember(query string) {
	for _, kind := range []shop.ListKind{shop.ListExact, shop.ListSuggestions} {
		p.cursors[kind] = shop.Cursor{LastQuery: query, Page: 1}
		p.persist(kind)
	}
}

// Cursor returns the current cursor for kind.
func (p *Pager) Cursor(kind shop.ListKind) shop.Cursor {
	return p.cursors[kind]
}

// Advance moves kind to the next page and returns the advanced cursor. It
// fails without side effects when no prior search exists for the list.
func (p *Pager) Advance(kind shop.ListKind) (shop.Cursor, error) {
	cur := p.cursors[kind]
	if cur.LastQuery == "" {
		return shop.Cursor{}, errors.NewNoPreviousSearch(string(kind))
	}
	cur.Page++
	p.cursors[kind] = cur
	p.persist(kind)
	return cur, nil
}

// Rollback restores the page advanced past by the last failed Advance so a
// retry targets the same page.
func (p *Pager) Rollback(kind shop.ListKind) {
	cur := p.cursors[kind]
	if cur.Page <= 1 {
		return
	}
	cur.Page--
	p.cursors[kind] = cur
	p.persist(kind)
}

// Reset rewinds both lists to an empty cursor at page 1.
func (p *Pager) Reset() {
	for _, kind := range []shop.ListKind{shop.ListExact, shop.ListSuggestions} {
		p.cursors[kind] = shop.ZeroCursor()
		p.persist(kind)
	}
}

func (p *Pager) persist(kind shop.ListKind) {
	if err := p.repo.SaveCursor(kind, p.cursors[kind]); err != nil {
		p.log.Warn().Err(err).Str("kind", string(kind)).Msg("failed to persist cursor")
	}
}

package chat

import (
	"testing"

	"github.com/rs/zerolog"

	"shopchat/internal/cache"
	"shopchat/internal/errors"
	"shopchat/internal/shop"
)

func TestPager_AdvanceWithoutSearch(t *testing.T) {
	p := NewPager(cache.NewMemory(), zerolog.Nop())
	if _, err := p.Advance(shop.ListExact); !errors.Is(err, errors.ErrNoPreviousSearch) {
		t.Errorf("Advance() err = %v, want NO_PREVIOUS_SEARCH", err)
	}
	if got := p.Cursor(shop.ListExact); got != shop.ZeroCursor() {
		t.Errorf("cursor mutated by failed advance: %+v", got)
	}
}

func TestPager_AdvanceProgression(t *testing.T) {
	p := NewPager(cache.NewMemory(), zerolog.Nop())
	p.Remember("black sneakers")

	// Two successful load-mores walk the page 1 -> 2 -> 3, reusing the
	// remembered query each time.
	for _, want := range []int{2, 3} {
		cur, err := p.Advance(shop.ListSuggestions)
		if err != nil {
			t.Fatalf("Advance() error = %v", err)
		}
		if cur.Page != want || cur.LastQuery != "black sneakers" {
			t.Errorf("Advance() = %+v, want page %d query preserved", cur, want)
		}
	}
	// The other list is untouched.
	if got := p.Cursor(shop.ListExact); got.Page != 1 {
		t.Errorf("exact page = %d, want 1", got.Page)
	}
}

func TestPager_RememberRewindsBothLists(t *testing.T) {
	p := NewPager(cache.NewMemory(), zerolog.Nop())
	p.Remember("dresses")
	if _, err := p.Advance(shop.ListExact); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	p.Remember("sneakers")
	for _, kind := range []shop.ListKind{shop.ListExact, shop.ListSuggestions} {
		got := p.Cursor(kind)
		if got.Page != 1 || got.LastQuery != "sneakers" {
			t.Errorf("%s cursor = %+v, want page 1 with new query", kind, got)
		}
	}
}

func TestPager_Rollback(t *testing.T) {
	p := NewPager(cache.NewMemory(), zerolog.Nop())
	p.Remember("dresses")
	if _, err := p.Advance(shop.ListExact); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	p.Rollback(shop.ListExact)
	if got := p.Cursor(shop.ListExact); got.Page != 1 {
		t.Errorf("page after rollback = %d, want 1", got.Page)
	}
	// Rollback never goes below page 1.
	p.Rollback(shop.ListExact)
	if got := p.Cursor(shop.ListExact); got.Page != 1 {
		t.Errorf("page after extra rollback = %d, want 1", got.Page)
	}
}

func TestPager_ResetAndRestore(t *testing.T) {
	repo := cache.NewMemory()
	p := NewPager(repo, zerolog.Nop())
	p.Remember("dresses")
	if _, err := p.Advance(shop.ListSuggestions); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	// A second pager over the same repo restores the cursors.
	restored := NewPager(repo, zerolog.Nop())
	if got := restored.Cursor(shop.ListSuggestions); got.Page != 2 || got.LastQuery != "dresses" {
		t.Errorf("restored cursor = %+v", got)
	}

	p.Reset()
	for _, kind := range []shop.ListKind{shop.ListExact, shop.ListSuggestions} {
		if got := p.Cursor(kind); got != shop.ZeroCursor() {
			t.Errorf("%s cursor after reset = %+v", kind, got)
		}
	}
}

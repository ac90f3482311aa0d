package chat

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"shopchat/internal/cache"
	"shopchat/internal/shop"
)

func userTurn(text string) shop.Turn {
	return shop.Turn{ID: newTurnID(), Author: shop.AuthorUser, Text: text, CreatedAt: time.Now().UTC()}
}

func TestTimeline_AppendOrder(t *testing.T) {
	repo := cache.NewMemory()
	tl := NewTimeline(repo, zerolog.Nop())

	tl.Append(userTurn("first"))
	tl.Append(userTurn("second"))

	got := tl.All()
	if len(got) != 2 || got[0].Text != "first" || got[1].Text != "second" {
		t.Fatalf("All() = %+v", got)
	}
	if len(repo.Turns) != 2 {
		t.Errorf("persisted %d turns, want 2", len(repo.Turns))
	}
}

func TestTimeline_AllReturnsCopy(t *testing.T) {
	tl := NewTimeline(cache.NewMemory(), zerolog.Nop())
	tl.Append(userTurn("original"))

	got := tl.All()
	got[0].Text = "mutated"
	if tl.All()[0].Text != "original" {
		t.Error("caller mutation leaked into the timeline")
	}
}

func TestTimeline_Reset(t *testing.T) {
	repo := cache.NewMemory()
	tl := NewTimeline(repo, zerolog.Nop())
	tl.Append(userTurn("old"))

	tl.Reset(userTurn("seed"))
	if got := tl.All(); len(got) != 1 || got[0].Text != "seed" {
		t.Fatalf("All() after Reset = %+v", got)
	}

	tl.Reset()
	if tl.Len() != 0 {
		t.Errorf("Len() after empty Reset = %d, want 0", tl.Len())
	}
	if len(repo.Turns) != 0 {
		t.Errorf("persisted %d turns after empty Reset", len(repo.Turns))
	}
}

func TestTimeline_RestoresCachedTurns(t *testing.T) {
	repo := cache.NewMemory()
	first := NewTimeline(repo, zerolog.Nop())
	first.Append(userTurn("hello"))

	second := NewTimeline(repo, zerolog.Nop())
	if got := second.All(); len(got) != 1 || got[0].Text != "hello" {
		t.Errorf("restored All() = %+v", got)
	}
}

func TestTimeline_StorageFailureSwallowed(t *testing.T) {
	repo := cache.NewMemory()
	repo.FailWrites = true
	tl := NewTimeline(repo, zerolog.Nop())

	tl.Append(userTurn("kept in memory"))
	if tl.Len() != 1 {
		t.Error("in-memory timeline lost after failed write")
	}
}

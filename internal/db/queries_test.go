package db

import (
	"testing"
	"time"

	"shopchat/internal/shop"
)

func TestIdentity_RoundTrip(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer database.Close()

	// Empty cache returns nil identity
	loaded, err := LoadIdentity(database)
	if err != nil {
		t.Fatalf("LoadIdentity() error = %v", err)
	}
	if loaded != nil {
		t.Fatalf("LoadIdentity() = %+v, want nil on empty cache", loaded)
	}

	id := &shop.Identity{SessionToken: "sess-1", Email: "ada@example.com", UserID: 7}
	if err := SaveIdentity(database, id); err != nil {
		t.Fatalf("SaveIdentity() error = %v", err)
	}

	loaded, err = LoadIdentity(database)
	if err != nil {
		t.Fatalf("LoadIdentity() error = %v", err)
	}
	if loaded == nil || loaded.SessionToken != "sess-1" || loaded.Email != "ada@example.com" || loaded.UserID != 7 {
		t.Errorf("LoadIdentity() = %+v, want saved identity", loaded)
	}

	// Upsert replaces rather than duplicating
	id.SessionToken = "sess-2"
	if err := SaveIdentity(database, id); err != nil {
		t.Fatalf("SaveIdentity() second error = %v", err)
	}
	loaded, _ = LoadIdentity(database)
	if loaded.SessionToken != "sess-2" {
		t.Errorf("SessionToken = %q, want %q", loaded.SessionToken, "sess-2")
	}

	if err := DeleteIdentity(database); err != nil {
		t.Fatalf("DeleteIdentity() error = %v", err)
	}
	loaded, _ = LoadIdentity(database)
	if loaded != nil {
		t.Errorf("LoadIdentity() after delete = %+v, want nil", loaded)
	}
}

func TestTurns_ReplaceAndLoad(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer database.Close()

	now := time.Now().Truncate(time.Second)
	turns := []shop.Turn{
		{ID: "t1", Author: shop.AuthorUser, Text: "show me dresses", CreatedAt: now},
		{
			ID: "t2", Author: shop.AuthorAssistant, Text: "Here are some dresses.", CreatedAt: now,
			ExactMatches: []shop.Snapshot{{ExternalID: "P1", Title: "Red Summer Dress"}},
			FocusedProduct: &shop.Snapshot{ExternalID: "P1", Title: "Red Summer Dress"},
		},
	}

	if err := ReplaceTurns(database, turns); err != nil {
		t.Fatalf("ReplaceTurns() error = %v", err)
	}

	loaded, err := LoadTurns(database)
	if err != nil {
		t.Fatalf("LoadTurns() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("len(loaded) = %d, want 2", len(loaded))
	}
	if loaded[0].ID != "t1" || loaded[1].ID != "t2" {
		t.Errorf("order = [%s %s], want [t1 t2]", loaded[0].ID, loaded[1].ID)
	}
	if len(loaded[1].ExactMatches) != 1 || loaded[1].ExactMatches[0].ExternalID != "P1" {
		t.Errorf("ExactMatches = %+v, want P1 snapshot", loaded[1].ExactMatches)
	}
	if loaded[1].FocusedProduct == nil || loaded[1].FocusedProduct.Title != "Red Summer Dress" {
		t.Errorf("FocusedProduct = %+v", loaded[1].FocusedProduct)
	}

	// Replace with a shorter sequence shrinks the cache
	if err := ReplaceTurns(database, turns[:1]); err != nil {
		t.Fatalf("ReplaceTurns() shrink error = %v", err)
	}
	loaded, _ = LoadTurns(database)
	if len(loaded) != 1 {
		t.Errorf("len(loaded) after shrink = %d, want 1", len(loaded))
	}
}

func TestContext_RoundTrip(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer database.Close()

	state, err := LoadContext(database)
	if err != nil {
		t.Fatalf("LoadContext() error = %v", err)
	}
	if !state.Empty() {
		t.Fatalf("LoadContext() on empty cache = %+v, want empty", state)
	}

	snap := &shop.Snapshot{ExternalID: "P1", Title: "Red Summer Dress", Price: "49.99"}
	if err := SaveContext(database, shop.ContextState{FocusedProductID: "P1", Snapshot: snap}); err != nil {
		t.Fatalf("SaveContext() error = %v", err)
	}

	state, err = LoadContext(database)
	if err != nil {
		t.Fatalf("LoadContext() error = %v", err)
	}
	if state.FocusedProductID != "P1" {
		t.Errorf("FocusedProductID = %q, want P1", state.FocusedProductID)
	}
	if state.Snapshot == nil || state.Snapshot.Price != "49.99" {
		t.Errorf("Snapshot = %+v", state.Snapshot)
	}

	// Clearing writes an empty state
	if err := SaveContext(database, shop.ContextState{}); err != nil {
		t.Fatalf("SaveContext() clear error = %v", err)
	}
	state, _ = LoadContext(database)
	if !state.Empty() {
		t.Errorf("state after clear = %+v, want empty", state)
	}
}

func TestCursors_RoundTrip(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer database.Close()

	if err := SaveCursor(database, shop.ListExact, shop.Cursor{LastQuery: "black dresses", Page: 2}); err != nil {
		t.Fatalf("SaveCursor() error = %v", err)
	}
	if err := SaveCursor(database, shop.ListSuggestions, shop.Cursor{LastQuery: "black dresses", Page: 1}); err != nil {
		t.Fatalf("SaveCursor() error = %v", err)
	}

	cursors, err := LoadCursors(database)
	if err != nil {
		t.Fatalf("LoadCursors() error = %v", err)
	}
	if cursors[shop.ListExact].Page != 2 {
		t.Errorf("exact page = %d, want 2", cursors[shop.ListExact].Page)
	}
	if cursors[shop.ListSuggestions].LastQuery != "black dresses" {
		t.Errorf("suggestions query = %q", cursors[shop.ListSuggestions].LastQuery)
	}
}

func TestClearConversation_KeepsIdentity(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer database.Close()

	if err := SaveIdentity(database, &shop.Identity{SessionToken: "sess-1"}); err != nil {
		t.Fatalf("SaveIdentity() error = %v", err)
	}
	if err := ReplaceTurns(database, []shop.Turn{{ID: "t1", Author: shop.AuthorUser, Text: "hi", CreatedAt: time.Now()}}); err != nil {
		t.Fatalf("ReplaceTurns() error = %v", err)
	}
	if err := SaveContext(database, shop.ContextState{FocusedProductID: "P1"}); err != nil {
		t.Fatalf("SaveContext() error = %v", err)
	}
	if err := SaveCursor(database, shop.ListExact, shop.Cursor{LastQuery: "hi", Page: 3}); err != nil {
		t.Fatalf("SaveCursor() error = %v", err)
	}

	if err := ClearConversation(database); err != nil {
		t.Fatalf("ClearConversation() error = %v", err)
	}

	turns, _ := LoadTurns(database)
	if len(turns) != 0 {
		t.Errorf("turns after clear = %d, want 0", len(turns))
	}
	state, _ := LoadContext(database)
	if !state.Empty() {
		t.Errorf("context after clear = %+v, want empty", state)
	}
	cursors, _ := LoadCursors(database)
	if len(cursors) != 0 {
		t.Errorf("cursors after clear = %d, want 0", len(cursors))
	}
	ident, _ := LoadIdentity(database)
	if ident == nil || ident.SessionToken != "sess-1" {
		t.Errorf("identity after clear = %+v, want preserved", ident)
	}
}

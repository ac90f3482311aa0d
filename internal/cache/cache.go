// Package cache is the best-effort durable store behind the context engine.
// Callers treat every write as advisory: a failed save is logged and
// swallowed, and in-memory state stays authoritative for the page life.
// Reads are only trusted at startup (hydration); afterwards the cache trails
// the in-memory state, never the other way around.
package cache

import (
	"database/sql"

	"shopchat/internal/db"
	"shopchat/internal/shop"
)

// Repository persists the durable local keys: identity, timeline, focused
// product, and pagination cursors.
type Repository interface {
	LoadIdentity() (*shop.Identity, error)
	SaveIdentity(id *shop.Identity) error
	DeleteIdentity() error

	LoadTurns() ([]shop.Turn, error)
	SaveTurns(turns []shop.Turn) error

	LoadContext() (shop.ContextState, error)
	SaveContext(state shop.ContextState) error

	LoadCursors() (map[shop.ListKind]shop.Cursor, error)
	SaveCursor(kind shop.ListKind, c shop.Cursor) error

	// ClearConversation wipes turns, context, and cursors; identity stays.
	ClearConversation() error
}

// sqliteRepo backs the Repository with the local SQLite cache.
type sqliteRepo struct {
	db *sql.DB
}

// NewSQLite returns a Repository over an initialized shopchat database.
func NewSQLite(database *sql.DB) Repository {
	return &sqliteRepo{db: database}
}

func (r *sqliteRepo) LoadIdentity() (*shop.Identity, error)  { return db.LoadIdentity(r.db) }
func (r *sqliteRepo) SaveIdentity(id *shop.Identity) error   { return db.SaveIdentity(r.db, id) }
func (r *sqliteRepo) DeleteIdentity() error                  { return db.DeleteIdentity(r.db) }
func (r *sqliteRepo) LoadTurns() ([]shop.Turn, error)        { return db.LoadTurns(r.db) }
func (r *sqliteRepo) SaveTurns(turns []shop.Turn) error      { return db.ReplaceTurns(r.db, turns) }
func (r *sqliteRepo) LoadContext() (shop.ContextState, error) { return db.LoadContext(r.db) }
func (r *sqliteRepo) SaveContext(state shop.ContextState) error {
	return db.SaveContext(r.db, state)
}
func (r *sqliteRepo) LoadCursors() (map[shop.ListKind]shop.Cursor, error) {
	return db.LoadCursors(r.db)
}
func (r *sqliteRepo) SaveCursor(kind shop.ListKind, c shop.Cursor) error {
	return db.SaveCursor(r.db, kind, c)
}
func (r *sqliteRepo) ClearConversation() error { return db.ClearConversation(r.db) }

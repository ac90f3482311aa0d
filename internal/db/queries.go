package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"shopchat/internal/errors"
	"shopchat/internal/shop"
)

// SaveIdentity upserts the single identity row.
func SaveIdentity(db *sql.DB, id *shop.Identity) error {
	now := time.Now().Unix()
	query := `
		INSERT INTO identity (id, session_token, email, user_id, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_token = excluded.session_token,
			email = excluded.email,
			user_id = excluded.user_id,
			updated_at = excluded.updated_at
	`
	_, err := db.Exec(query, id.SessionToken, nullIfEmpty(id.Email), id.UserID, now, now)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// LoadIdentity returns the stored identity, or nil if none exists.
func LoadIdentity(db *sql.DB) (*shop.Identity, error) {
	query := `SELECT session_token, email, user_id FROM identity WHERE id = 1`

	var id shop.Identity
	var email sql.NullString
	var userID sql.NullInt64
	err := db.QueryRow(query).Scan(&id.SessionToken, &email, &userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	id.Email = email.String
	id.UserID = userID.Int64
	return &id, nil
}

// DeleteIdentity removes the identity row.
func DeleteIdentity(db *sql.DB) error {
	if _, err := db.Exec(`DELETE FROM identity WHERE id = 1`); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ReplaceTurns mirrors the full timeline into the cache in one transaction.
// The timeline is small (a conversation), so replacing beats diffing.
func ReplaceTurns(db *sql.DB, turns []shop.Turn) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM turns`); err != nil {
		return errors.NewInternal(err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO turns (id, author, text, created_at, payload_json)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for i := range turns {
		payload, err := json.Marshal(&turns[i])
		if err != nil {
			return errors.NewInternal(err)
		}
		t := &turns[i]
		if _, err := stmt.Exec(t.ID, string(t.Author), t.Text, t.CreatedAt.Unix(), string(payload)); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// LoadTurns returns the cached timeline in append order.
func LoadTurns(db *sql.DB) ([]shop.Turn, error) {
	rows, err := db.Query(`SELECT payload_json FROM turns ORDER BY seq ASC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var turns []shop.Turn
	for rows.Next() {
		var payload sql.NullString
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.NewInternal(err)
		}
		var t shop.Turn
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), &t); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return turns, nil
}

// SaveContext upserts the single focused-product row. A nil snapshot with an
// empty id clears the row's columns rather than deleting it.
func SaveContext(db *sql.DB, state shop.ContextState) error {
	var snapshotJSON sql.NullString
	if state.Snapshot != nil {
		data, err := json.Marshal(state.Snapshot)
		if err != nil {
			return errors.NewInternal(err)
		}
		snapshotJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO context_state (id, focused_product_id, snapshot_json, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			focused_product_id = excluded.focused_product_id,
			snapshot_json = excluded.snapshot_json,
			updated_at = excluded.updated_at
	`
	_, err := db.Exec(query, nullIfEmpty(state.FocusedProductID), snapshotJSON, time.Now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// LoadContext returns the cached focused-product state (zero value if none).
func LoadContext(db *sql.DB) (shop.ContextState, error) {
	var state shop.ContextState
	var id, snapshotJSON sql.NullString

	err := db.QueryRow(`SELECT focused_product_id, snapshot_json FROM context_state WHERE id = 1`).
		Scan(&id, &snapshotJSON)
	if err == sql.ErrNoRows {
		return state, nil
	}
	if err != nil {
		return state, errors.NewInternal(err)
	}

	state.FocusedProductID = id.String
	if snapshotJSON.Valid {
		var snap shop.Snapshot
		if err := json.Unmarshal([]byte(snapshotJSON.String), &snap); err != nil {
			return shop.ContextState{}, errors.NewInternal(err)
		}
		state.Snapshot = &snap
	}
	return state, nil
}

// SaveCursor upserts the pagination cursor for one list kind.
func SaveCursor(db *sql.DB, kind shop.ListKind, c shop.Cursor) error {
	query := `
		INSERT INTO cursors (kind, last_query, page)
		VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET
			last_query = excluded.last_query,
			page = excluded.page
	`
	_, err := db.Exec(query, string(kind), c.LastQuery, c.Page)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// LoadCursors returns the stored cursors keyed by list kind. Kinds with no
// row are absent from the map.
func LoadCursors(db *sql.DB) (map[shop.ListKind]shop.Cursor, error) {
	rows, err := db.Query(`SELECT kind, last_query, page FROM cursors`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	cursors := make(map[shop.ListKind]shop.Cursor)
	for rows.Next() {
		var kind string
		var c shop.Cursor
		if err := rows.Scan(&kind, &c.LastQuery, &c.Page); err != nil {
			return nil, errors.NewInternal(err)
		}
		cursors[shop.ListKind(kind)] = c
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return cursors, nil
}

// ClearConversation wipes turns, context, and cursors but keeps identity.
// Identity rotation is handled separately by the session manager.
func ClearConversation(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM turns`,
		`DELETE FROM context_state`,
		`DELETE FROM cursors`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

package cache

import "shopchat/internal/shop"

// Memory is an in-memory Repository for tests and for running without a
// writable base directory. FailWrites makes every save return an error so
// swallow-on-failure paths can be exercised.
type Memory struct {
	Identity *shop.Identity
	Turns    []shop.Turn
	Context  shop.ContextState
	Cursors  map[shop.ListKind]shop.Cursor

	FailWrites bool

	// SaveCount tracks write attempts, including failed ones.
	SaveCount int

	// ClearCount tracks ClearConversation calls.
	ClearCount int
}

// NewMemory returns an empty in-memory Repository.
func NewMemory() *Memory {
	return &Memory{Cursors: make(map[shop.ListKind]shop.Cursor)}
}

type writeFailure struct{}

func (writeFailure) Error() string { return "cache write failed" }

func (m *Memory) write(apply func()) error {
	m.SaveCount++
	if m.FailWrites {
		return writeFailure{}
	}
	apply()
	return nil
}

func (m *Memory) LoadIdentity() (*shop.Identity, error) {
	if m.Identity == nil {
		return nil, nil
	}
	cp := *m.Identity
	return &cp, nil
}

func (m *Memory) SaveIdentity(id *shop.Identity) error {
	return m.write(func() {
		cp := *id
		m.Identity = &cp
	})
}

func (m *Memory) DeleteIdentity() error {
	return m.write(func() { m.Identity = nil })
}

func (m *Memory) LoadTurns() ([]shop.Turn, error) {
	out := make([]shop.Turn, len(m.Turns))
	copy(out, m.Turns)
	return out, nil
}

func (m *Memory) SaveTurns(turns []shop.Turn) error {
	return m.write(func() {
		m.Turns = make([]shop.Turn, len(turns))
		copy(m.Turns, turns)
	})
}

func (m *Memory) LoadContext() (shop.ContextState, error) {
	return m.Context, nil
}

func (m *Memory) SaveContext(state shop.ContextState) error {
	return m.write(func() { m.Context = state })
}

func (m *Memory) LoadCursors() (map[shop.ListKind]shop.Cursor, error) {
	out := make(map[shop.ListKind]shop.Cursor, len(m.Cursors))
	for k, v := range m.Cursors {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SaveCursor(kind shop.ListKind, c shop.Cursor) error {
	return m.write(func() { m.Cursors[kind] = c })
}

func (m *Memory) ClearConversation() error {
	m.ClearCount++
	return m.write(func() {
		m.Turns = nil
		m.Context = shop.ContextState{}
		m.Cursors = make(map[shop.ListKind]shop.Cursor)
	})
}

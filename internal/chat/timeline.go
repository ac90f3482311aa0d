package chat

import (
	"github.com/rs/zerolog"

	"shopchat/internal/cache"
	"shopchat/internal/shop"
)

// Timeline is the append-only turn sequence. Turns are never reordered or
// mutated after append; Reset is the only way to shrink it. The full sequence
// is mirrored to the repository best-effort on every change.
type Timeline struct {
	repo  cache.Repository
	log   zerolog.Logger
	turns []shop.Turn
}

// NewTimeline restores any cached turns from the repository.
func NewTimeline(repo cache.Repository, log zerolog.Logger) *Timeline {
	tl := &Timeline{repo: repo, log: log.With().Str("component", "timeline").Logger()}
	turns, err := repo.LoadTurns()
	if err != nil {
		tl.log.Warn().Err(err).Msg("failed to load cached timeline")
		return tl
	}
	tl.turns = turns
	return tl
}

// Append adds a turn to the end of the sequence.
func (tl *Timeline) Append(t shop.Turn) {
	tl.turns = append(tl.turns, t)
	tl.persist()
}

// Reset replaces the whole sequence with the given seed turns.
func (tl *Timeline) Reset(seed ...shop.Turn) {
	tl.turns = append([]shop.Turn(nil), seed...)
	tl.persist()
}

// All returns a copy of the turn sequence in append order.
func (tl *Timeline) All() []shop.Turn {
	out := make([]shop.Turn, len(tl.turns))
	copy(out, tl.turns)
	return out
}

// Len reports the number of turns.
func (tl *Timeline) Len() int {
	return len(tl.turns)
}

func (tl *Timeline) persist() {
	if err := tl.repo.SaveTurns(tl.turns); err != nil {
		tl.log.Warn().Err(err).Msg("failed to persist timeline")
	}
}

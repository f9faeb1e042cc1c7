// Package play answers move questions from a solved outcome database and
// drives interactive games against it.
package play

import (
	"errors"
	"fmt"

	"github.com/pmerle/squadro/internal/board"
	"github.com/pmerle/squadro/internal/solve"
	"github.com/pmerle/squadro/internal/store"
)

// ErrUnknownState marks an id the database has no outcome for: out of
// range, or not reachable from the solved roots.
var ErrUnknownState = errors.New("state not in database")

// Oracle looks up perfect-play information for positions.
type Oracle struct {
	db *store.DB
}

func NewOracle(db *store.DB) *Oracle {
	return &Oracle{db: db}
}

// Validate decodes id and checks the database covers it.
func (o *Oracle) Validate(id uint64) (board.State, error) {
	s, err := board.FromID(id)
	if err != nil {
		return board.State{}, err
	}
	if !o.db.Contains(id) {
		return board.State{}, fmt.Errorf("%w: %d", ErrUnknownState, id)
	}
	return s, nil
}

// Outcome returns the classification of s for its side to move.
func (o *Oracle) Outcome(s board.State) solve.Outcome {
	return o.db.Outcome(s.ID())
}

// Winner returns the winning player of s under optimal play; ok is false
// for draws.
func (o *Oracle) Winner(s board.State) (player int, ok bool) {
	if s.Ended() {
		return 1 - s.Player(), true
	}
	switch o.Outcome(s) {
	case solve.Win:
		return s.Player(), true
	case solve.Loss:
		return 1 - s.Player(), true
	}
	return 0, false
}

// ChooseMove picks a move for the side to move: a winning move when one
// exists, otherwise a drawing move, otherwise the first legal move. The
// second return is false when s has no moves.
func (o *Oracle) ChooseMove(s board.State) (board.Move, bool) {
	moves := s.Moves()
	if len(moves) == 0 {
		return board.Move{}, false
	}
	drawing := -1
	for i, m := range moves {
		// A successor lost for the opponent is a win for us.
		switch o.Outcome(m.Next) {
		case solve.Loss:
			return m, true
		case solve.Draw:
			if drawing < 0 {
				drawing = i
			}
		}
	}
	if drawing >= 0 {
		return moves[drawing], true
	}
	return moves[0], true
}

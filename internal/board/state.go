// Package board implements the Squadro game: positions encoded as dense
// mixed-radix ids, forward move generation, and predecessor generation by
// local inversion of the move rule.
package board

import (
	"errors"
	"fmt"
)

// Players. Top moves down/up the columns, Left moves right/left along the rows.
const (
	PlayerTop  = 0
	PlayerLeft = 1
)

// Track geometry: each piece runs 0 -> 6 (turn-around) -> 12 (finished).
const (
	TrackEnd   = 12
	TurnAround = 6
	NumPieces  = 5
)

// regularMoves holds the step size for [player][piece][position].
// Zero entries at positions 1 and 7 mark cells the piece can never occupy
// (its step sizes skip them); zero at 12 marks the finished cell.
var regularMoves = [2][NumPieces][13]int{
	{
		{1, 1, 1, 1, 1, 1, 3, 0, 3, 3, 2, 1, 0},
		{3, 0, 3, 3, 2, 1, 1, 1, 1, 1, 1, 1, 0},
		{2, 0, 2, 2, 2, 1, 2, 0, 2, 2, 2, 1, 0},
		{3, 0, 3, 3, 2, 1, 1, 1, 1, 1, 1, 1, 0},
		{1, 1, 1, 1, 1, 1, 3, 0, 3, 3, 2, 1, 0},
	},
	{
		{3, 0, 3, 3, 2, 1, 1, 1, 1, 1, 1, 1, 0},
		{1, 1, 1, 1, 1, 1, 3, 0, 3, 3, 2, 1, 0},
		{2, 0, 2, 2, 2, 1, 2, 0, 2, 2, 2, 1, 0},
		{1, 1, 1, 1, 1, 1, 3, 0, 3, 3, 2, 1, 0},
		{3, 0, 3, 3, 2, 1, 1, 1, 1, 1, 1, 1, 0},
	},
}

// firstMoves is the initial step size for [player][piece]; it determines
// which track cells are unreachable for that piece.
var firstMoves = [2][NumPieces]int{{1, 3, 2, 3, 1}, {3, 1, 2, 1, 3}}

// The id is a mixed-radix number: one digit per piece (alternating players,
// storing only reachable positions), with the side to move as the last digit.
var (
	partSize   = [11]uint64{12, 12, 12, 12, 11, 11, 12, 12, 12, 12, 2}
	partFactor = [11]uint64{8671297536, 722608128, 60217344, 5018112, 456192, 41472, 3456, 288, 24, 2, 1}
)

// IDSpace is the total number of representable ids. Reachable states are a
// strict subset (46,199,129,613 of them); the rest decode to well-formed
// positions that no legal game produces.
const IDSpace uint64 = 104055570432

// CodecVersion identifies the id layout. Persisted files record it so that
// stored outcomes are never read back through an incompatible codec.
const CodecVersion = 1

var (
	// ErrInvalidState marks an attempt to build a state from malformed
	// components (bad player, or a track position the piece cannot occupy).
	ErrInvalidState = errors.New("invalid state")
	// ErrBadID marks an id outside the representable space.
	ErrBadID = errors.New("id out of range")
)

// State is a full Squadro position: all piece positions plus the side to
// move. It is an immutable value; moves return new States.
type State struct {
	id uint64
}

// New returns the initial position with the given first player.
func New(firstPlayer int) State {
	return State{id: uint64(firstPlayer & 1)}
}

// FromID decodes a raw id. Fails with ErrBadID for ids outside [0, IDSpace).
func FromID(id uint64) (State, error) {
	if id >= IDSpace {
		return State{}, fmt.Errorf("%w: %d", ErrBadID, id)
	}
	return State{id: id}, nil
}

// FromPositions builds a state from explicit piece positions. Fails with
// ErrInvalidState if any position is outside its piece's track or on a cell
// the piece's step sizes can never land on.
func FromPositions(nextPlayer int, positions [2][NumPieces]int) (State, error) {
	if nextPlayer != PlayerTop && nextPlayer != PlayerLeft {
		return State{}, fmt.Errorf("%w: player %d", ErrInvalidState, nextPlayer)
	}
	s := State{id: uint64(nextPlayer)}
	for player := 0; player < 2; player++ {
		for piece := 0; piece < NumPieces; piece++ {
			pos := positions[player][piece]
			if !ValidPosition(player, piece, pos) {
				return State{}, fmt.Errorf("%w: player %d piece %d position %d",
					ErrInvalidState, player, piece, pos)
			}
			s = s.withPiecePosition(player, piece, pos)
		}
	}
	return s, nil
}

// ID returns the raw id of this state.
func (s State) ID() uint64 {
	return s.id
}

// Player returns the side to move.
func (s State) Player() int {
	return int(s.id & 1)
}

// ValidPosition reports whether pos is a cell the given piece can occupy.
func ValidPosition(player, piece, pos int) bool {
	if player < 0 || player > 1 || piece < 0 || piece >= NumPieces {
		return false
	}
	if pos < 0 || pos > TrackEnd {
		return false
	}
	first := firstMoves[player][piece]
	if pos == 1 && first != 1 {
		return false
	}
	if pos == 7 && first != 3 {
		return false
	}
	return true
}

func (s State) idPart(index int) uint64 {
	return (s.id / partFactor[index]) % partSize[index]
}

func (s State) withIDPart(index int, value uint64) State {
	f := partFactor[index]
	return State{id: s.id - f*s.idPart(index) + f*value}
}

func (s State) withPlayer(player int) State {
	return State{id: (s.id &^ 1) | uint64(player&1)}
}

func (s State) switchPlayer() State {
	return State{id: s.id ^ 1}
}

// PiecePosition returns the track position of the given piece. The stored
// digit skips cells the piece cannot occupy, so unreachable cells are added
// back when converting to a real position.
func (s State) PiecePosition(player, piece int) int {
	pos := int(s.idPart(piece*2 + player))
	if pos > 0 {
		first := firstMoves[player][piece]
		if first != 1 {
			pos++
		}
		if pos > 6 && first != 3 {
			pos++
		}
	}
	return pos
}

// withPiecePosition places a piece; the caller must pass a valid position.
func (s State) withPiecePosition(player, piece, pos int) State {
	if pos > 1 {
		first := firstMoves[player][piece]
		if pos > 7 && first != 3 {
			pos--
		}
		if first != 1 {
			pos--
		}
	}
	return s.withIDPart(piece*2+player, uint64(pos))
}

// Ended reports whether the game is over: the player who just moved has at
// most one unfinished piece (finishing the fourth piece wins).
func (s State) Ended() bool {
	lastPlayer := 1 - s.Player()
	movable := 0
	for piece := 0; piece < NumPieces; piece++ {
		if s.PiecePosition(lastPlayer, piece) < TrackEnd {
			movable++
			if movable > 1 {
				return false
			}
		}
	}
	return true
}

// fixCollision handles the mover's piece entering cell pos: if a crossing
// opponent piece occupies that cell, it is bounced back to the start of its
// leg (0 on the way out, 6 on the way back). Returns the updated state and
// whether a bounce happened.
func (s State) fixCollision(player, piece, pos int) (State, bool) {
	if pos%TurnAround == 0 {
		// No crossing at the turn-around, start, or finish cells.
		return s, false
	}
	other := 1 - player
	var otherPiece int
	if pos < TurnAround {
		otherPiece = pos - 1
	} else {
		otherPiece = 11 - pos
	}
	otherPos := s.PiecePosition(other, otherPiece)
	if otherPos%TurnAround == 0 {
		return s, false
	}
	if otherPos < TurnAround {
		if piece == otherPos-1 {
			return s.withPiecePosition(other, otherPiece, 0), true
		}
	} else {
		if piece == 11-otherPos {
			return s.withPiecePosition(other, otherPiece, TurnAround), true
		}
	}
	return s, false
}

// Apply moves the given piece of the side to move and returns the resulting
// state. The second return is false when the piece cannot move (finished,
// out of range, or the game is over).
func (s State) Apply(piece int) (State, bool) {
	if piece < 0 || piece >= NumPieces || s.Ended() {
		return State{}, false
	}
	player := s.Player()
	pos := s.PiecePosition(player, piece)
	if pos >= TrackEnd {
		return State{}, false
	}

	next := s.switchPlayer()
	target := pos + regularMoves[player][piece][pos]

	// Advance cell by cell; a bounce stops the mover one cell past the
	// collision, which can itself trigger another bounce.
	for pos != target {
		pos++
		var bounced bool
		next, bounced = next.fixCollision(player, piece, pos)
		if bounced {
			target = pos + 1
		}
	}
	return next.withPiecePosition(player, piece, pos), true
}

// Move is a legal forward move: the piece index and the resulting state.
type Move struct {
	Piece int
	Next  State
}

// Moves returns all legal forward moves for the side to move, in piece
// order. Terminal states have none.
func (s State) Moves() []Move {
	if s.Ended() {
		return nil
	}
	moves := make([]Move, 0, NumPieces)
	for piece := 0; piece < NumPieces; piece++ {
		if next, ok := s.Apply(piece); ok {
			moves = append(moves, Move{Piece: piece, Next: next})
		}
	}
	return moves
}

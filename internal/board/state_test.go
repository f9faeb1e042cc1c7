package board_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/pmerle/squadro/internal/board"
)

func mustState(t *testing.T, next int, positions [2][board.NumPieces]int) board.State {
	t.Helper()
	s, err := board.FromPositions(next, positions)
	if err != nil {
		t.Fatalf("FromPositions(%d, %v): %v", next, positions, err)
	}
	return s
}

func TestInitialBoard(t *testing.T) {
	for player := 0; player <= 1; player++ {
		s := board.New(player)
		if s.Player() != player {
			t.Fatalf("New(%d).Player() = %d", player, s.Player())
		}
		if s.ID() != uint64(player) {
			t.Fatalf("New(%d).ID() = %d", player, s.ID())
		}
		for piece := 0; piece < board.NumPieces; piece++ {
			if p := s.PiecePosition(0, piece); p != 0 {
				t.Fatalf("top piece %d at %d, want 0", piece, p)
			}
			if p := s.PiecePosition(1, piece); p != 0 {
				t.Fatalf("left piece %d at %d, want 0", piece, p)
			}
		}
	}
}

// TestIDArithmetic pins the mixed-radix layout with hand-computed ids.
func TestIDArithmetic(t *testing.T) {
	cases := []struct {
		next      int
		positions [2][board.NumPieces]int
		id        uint64
	}{
		{1, [2][board.NumPieces]int{}, 1},
		{1, [2][board.NumPieces]int{{0, 0, 3, 0, 0}, {}}, 1 + 912384},
		{1, [2][board.NumPieces]int{{}, {0, 0, 6, 0, 0}}, 1 + 207360},
		{0, [2][board.NumPieces]int{{0, 0, 0, 0, 5}, {0, 0, 6, 0, 8}}, 207360 + 120 + 14},
		{0, [2][board.NumPieces]int{{0, 0, 0, 4, 5}, {0, 0, 6, 0, 8}}, 207360 + 120 + 14 + 10368},
	}
	for i, tc := range cases {
		s := mustState(t, tc.next, tc.positions)
		if s.ID() != tc.id {
			t.Fatalf("case %d: id = %d, want %d", i, s.ID(), tc.id)
		}
	}
}

func TestPiecePositionRoundTrip(t *testing.T) {
	positions := [2][board.NumPieces]int{{0, 6, 12, 9, 9}, {8, 2, 12, 2, 6}}
	s := mustState(t, 0, positions)
	for player := 0; player <= 1; player++ {
		for piece := 0; piece < board.NumPieces; piece++ {
			if got := s.PiecePosition(player, piece); got != positions[player][piece] {
				t.Fatalf("player %d piece %d: got %d, want %d",
					player, piece, got, positions[player][piece])
			}
		}
	}
}

func TestFromPositionsRejectsSkippedCells(t *testing.T) {
	// Top piece 1 starts with a step of 3, so it can never stand on cell 1.
	_, err := board.FromPositions(0, [2][board.NumPieces]int{{0, 1, 0, 0, 0}, {}})
	if !errors.Is(err, board.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	// Top piece 0 turns around with a step of 3, so cell 7 is unreachable...
	_, err = board.FromPositions(0, [2][board.NumPieces]int{{7, 0, 0, 0, 0}, {}})
	if err != nil {
		t.Fatalf("position 7 should be valid for top piece 0: %v", err)
	}
	// ...but not for top piece 2, whose return step is 2.
	_, err = board.FromPositions(0, [2][board.NumPieces]int{{0, 0, 7, 0, 0}, {}})
	if !errors.Is(err, board.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	_, err = board.FromPositions(2, [2][board.NumPieces]int{})
	if !errors.Is(err, board.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for bad player, got %v", err)
	}
	_, err = board.FromPositions(0, [2][board.NumPieces]int{{13, 0, 0, 0, 0}, {}})
	if !errors.Is(err, board.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for out-of-track, got %v", err)
	}
}

func TestFromIDRange(t *testing.T) {
	for _, id := range []uint64{0, 1, 4995120, 104055570117} {
		s, err := board.FromID(id)
		if err != nil {
			t.Fatalf("FromID(%d): %v", id, err)
		}
		if s.ID() != id {
			t.Fatalf("FromID(%d).ID() = %d", id, s.ID())
		}
	}
	if _, err := board.FromID(board.IDSpace); !errors.Is(err, board.ErrBadID) {
		t.Fatalf("expected ErrBadID at IDSpace, got %v", err)
	}
}

func TestEnded(t *testing.T) {
	s := board.New(0)
	if s.Ended() {
		t.Fatal("initial position should not be ended")
	}

	// Last player is 1 (left). The game ends once left has four finished pieces.
	positions := [2][board.NumPieces]int{{12, 12, 12, 0, 0}, {12, 12, 12, 0, 0}}
	if mustState(t, 0, positions).Ended() {
		t.Fatal("three finished pieces should not end the game")
	}
	positions[1][3] = 12
	if !mustState(t, 0, positions).Ended() {
		t.Fatal("four finished left pieces with top to move should end the game")
	}
	if mustState(t, 1, positions).Ended() {
		t.Fatal("last player top has only three finished pieces")
	}
	positions[0][3] = 12
	if !mustState(t, 1, positions).Ended() {
		t.Fatal("four finished top pieces with left to move should end the game")
	}
}

// TestApply pins forward-move semantics, including bounce chains, on a
// position exercising both players.
func TestApply(t *testing.T) {
	positions := [2][board.NumPieces]int{{1, 2, 2, 7, 11}, {2, 12, 3, 3, 7}}
	s := mustState(t, 1, positions)

	if got := len(s.Moves()); got != 4 {
		t.Fatalf("left has %d moves, want 4 (piece 1 is finished)", got)
	}

	// Left piece 0 steps onto top piece 4's return cell and bounces it to 6,
	// stopping one past the collision on the turn-around cell.
	next, ok := s.Apply(0)
	if !ok {
		t.Fatal("left piece 0 should be movable")
	}
	if p := next.PiecePosition(1, 0); p != 6 {
		t.Fatalf("left piece 0 at %d, want 6", p)
	}
	if p := next.PiecePosition(0, 4); p != 6 {
		t.Fatalf("bounced top piece 4 at %d, want 6", p)
	}
	if next.Player() != 0 {
		t.Fatalf("player after move = %d, want 0", next.Player())
	}

	if _, ok := s.Apply(1); ok {
		t.Fatal("finished piece 1 should not be movable")
	}

	for _, tc := range []struct{ piece, to int }{{2, 5}, {3, 4}} {
		next, ok := s.Apply(tc.piece)
		if !ok {
			t.Fatalf("left piece %d should be movable", tc.piece)
		}
		if p := next.PiecePosition(1, tc.piece); p != tc.to {
			t.Fatalf("left piece %d at %d, want %d", tc.piece, p, tc.to)
		}
	}

	// Left piece 4 bounces top piece 3 back to the turn-around.
	next, ok = s.Apply(4)
	if !ok {
		t.Fatal("left piece 4 should be movable")
	}
	if p := next.PiecePosition(1, 4); p != 9 {
		t.Fatalf("left piece 4 at %d, want 9", p)
	}
	if p := next.PiecePosition(0, 3); p != 6 {
		t.Fatalf("bounced top piece 3 at %d, want 6", p)
	}

	for piece := board.NumPieces; piece < 100; piece++ {
		if _, ok := s.Apply(piece); ok {
			t.Fatalf("piece %d should not be movable", piece)
		}
	}

	// Same position with top to move: all five pieces can go.
	s = mustState(t, 0, positions)
	if got := len(s.Moves()); got != 5 {
		t.Fatalf("top has %d moves, want 5", got)
	}

	// Top piece 2 sweeps two left pieces (both on cell 3) back to start.
	next, ok = s.Apply(2)
	if !ok {
		t.Fatal("top piece 2 should be movable")
	}
	if p := next.PiecePosition(0, 2); p != 5 {
		t.Fatalf("top piece 2 at %d, want 5", p)
	}
	for _, piece := range []int{2, 3} {
		if p := next.PiecePosition(1, piece); p != 0 {
			t.Fatalf("swept left piece %d at %d, want 0", piece, p)
		}
	}

	for _, tc := range []struct{ piece, to int }{{0, 2}, {1, 5}, {3, 8}, {4, 12}} {
		next, ok := s.Apply(tc.piece)
		if !ok {
			t.Fatalf("top piece %d should be movable", tc.piece)
		}
		if p := next.PiecePosition(0, tc.piece); p != tc.to {
			t.Fatalf("top piece %d at %d, want %d", tc.piece, p, tc.to)
		}
	}
}

func TestMovesDeterministic(t *testing.T) {
	s := board.New(1)
	a, b := s.Moves(), s.Moves()
	if len(a) != len(b) {
		t.Fatalf("move counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Piece != b[i].Piece || a[i].Next.ID() != b[i].Next.ID() {
			t.Fatalf("move %d differs between calls", i)
		}
	}
}

// TestEncodeDecodeRoundTrip rebuilds states from their decoded components
// along random playouts and checks the ids match.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for game := 0; game < 20; game++ {
		s := board.New(game % 2)
		for step := 0; step < 200 && !s.Ended(); step++ {
			var positions [2][board.NumPieces]int
			for player := 0; player <= 1; player++ {
				for piece := 0; piece < board.NumPieces; piece++ {
					positions[player][piece] = s.PiecePosition(player, piece)
				}
			}
			rebuilt := mustState(t, s.Player(), positions)
			if rebuilt.ID() != s.ID() {
				t.Fatalf("rebuilt id %d != %d", rebuilt.ID(), s.ID())
			}
			decoded, err := board.FromID(s.ID())
			if err != nil {
				t.Fatalf("FromID(%d): %v", s.ID(), err)
			}
			if decoded.ID() != s.ID() {
				t.Fatalf("decode round-trip changed id")
			}
			moves := s.Moves()
			s = moves[rng.Intn(len(moves))].Next
		}
	}
}

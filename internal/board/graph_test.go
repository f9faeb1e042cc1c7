package board_test

import (
	"testing"

	"github.com/pmerle/squadro/internal/board"
)

func TestGraph(t *testing.T) {
	g := board.FullGame()
	if g.IndexSpace() != board.IDSpace {
		t.Fatalf("IndexSpace() = %d", g.IndexSpace())
	}
	roots := g.Roots()
	if len(roots) != 2 || roots[0] != 0 || roots[1] != 1 {
		t.Fatalf("FullGame roots = %v", roots)
	}

	if g.Mover(0) != board.PlayerTop || g.Mover(1) != board.PlayerLeft {
		t.Fatal("Mover must be the low id bit")
	}

	term, err := g.Terminal(0)
	if err != nil || term {
		t.Fatalf("Terminal(0) = %v, %v", term, err)
	}
	moves, err := g.Moves(0)
	if err != nil || len(moves) != board.NumPieces {
		t.Fatalf("Moves(0) = %v, %v", moves, err)
	}
	preds, err := g.Predecessors(0)
	if err != nil || len(preds) != 0 {
		t.Fatalf("Predecessors(0) = %v, %v", preds, err)
	}

	for _, id := range moves {
		back, err := g.Predecessors(id)
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, p := range back {
			if p == 0 {
				found = true
			}
		}
		if !found {
			t.Fatalf("root missing from Predecessors(%d)", id)
		}
	}

	if _, err := g.Terminal(board.IDSpace); err == nil {
		t.Fatal("Terminal out of range should fail")
	}
	if _, err := g.Moves(board.IDSpace); err == nil {
		t.Fatal("Moves out of range should fail")
	}
	if _, err := g.Predecessors(board.IDSpace); err == nil {
		t.Fatal("Predecessors out of range should fail")
	}
}

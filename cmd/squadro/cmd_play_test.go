package main

import (
	"testing"

	"github.com/pmerle/squadro/internal/board"
)

func TestFirstPlayer(t *testing.T) {
	if firstPlayer(board.PlayerTop) != board.PlayerTop {
		t.Fatal("explicit top must be kept")
	}
	if firstPlayer(board.PlayerLeft) != board.PlayerLeft {
		t.Fatal("explicit left must be kept")
	}

	var seen [2]bool
	for i := 0; i < 200; i++ {
		p := firstPlayer(-1)
		if p != board.PlayerTop && p != board.PlayerLeft {
			t.Fatalf("firstPlayer(-1) = %d", p)
		}
		seen[p] = true
	}
	if !seen[board.PlayerTop] || !seen[board.PlayerLeft] {
		t.Fatal("random first player never picked one of the sides")
	}
}

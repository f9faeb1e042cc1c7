package board

import (
	"fmt"
	"strings"
)

// String renders the position as a 7x7 text grid. Top pieces travel down
// their column and back up (v then ^), left pieces travel right along
// their row and back (> then <). Finished pieces sit on the border.
func (s State) String() string {
	var grid [7][7]byte
	for r := range grid {
		for c := range grid[r] {
			grid[r][c] = '.'
		}
	}

	place := func(r, c int, mark byte) {
		if grid[r][c] != '.' {
			grid[r][c] = '*'
			return
		}
		grid[r][c] = mark
	}

	for piece := 0; piece < NumPieces; piece++ {
		pos := s.PiecePosition(PlayerTop, piece)
		if pos <= TurnAround {
			place(pos, piece+1, 'v')
		} else {
			place(TrackEnd-pos, piece+1, '^')
		}
	}
	for piece := 0; piece < NumPieces; piece++ {
		pos := s.PiecePosition(PlayerLeft, piece)
		if pos <= TurnAround {
			place(piece+1, pos, '>')
		} else {
			place(piece+1, TrackEnd-pos, '<')
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "    0 1 2 3 4\n")
	for r := range grid {
		if r >= 1 && r <= NumPieces {
			fmt.Fprintf(&b, "%d ", r-1)
		} else {
			b.WriteString("  ")
		}
		for c := range grid[r] {
			b.WriteByte(grid[r][c])
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	if s.Ended() {
		fmt.Fprintf(&b, "game over, player %d wins (id %d)", 1-s.Player(), s.id)
	} else {
		fmt.Fprintf(&b, "player %d to move (id %d)", s.Player(), s.id)
	}
	return b.String()
}

package play

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pmerle/squadro/internal/board"
)

// Session plays out one game, with zero or one human side reading piece
// choices from In and everything rendered to Out.
type Session struct {
	Oracle *Oracle
	In     io.Reader
	Out    io.Writer
	// MaxMoves aborts games that run too long, such as computer self-play
	// inside a drawn region. Zero means no limit.
	MaxMoves int
	// ShowEval prints the oracle's evaluation of each position the
	// computer moves from.
	ShowEval bool
}

// Run plays from s until the game ends. human is the player controlled via
// In; pass -1 for computer self-play. Returns every position of the game in
// order, starting with s, and the winner.
func (sess *Session) Run(s board.State, human int) ([]board.State, int, error) {
	states := []board.State{s}
	scanner := bufio.NewScanner(sess.In)
	for !s.Ended() {
		if sess.MaxMoves > 0 && len(states) > sess.MaxMoves {
			return states, 0, fmt.Errorf("game exceeded %d moves", sess.MaxMoves)
		}
		fmt.Fprintf(sess.Out, "%s\n\n", s)

		if s.Player() == human {
			piece, err := sess.readPiece(scanner, s)
			if err != nil {
				return states, 0, err
			}
			s, _ = s.Apply(piece)
		} else {
			m, _ := sess.Oracle.ChooseMove(s)
			if sess.ShowEval {
				fmt.Fprintf(sess.Out, "evaluation: %s for player %d\n", sess.Oracle.Outcome(s), s.Player())
			}
			fmt.Fprintf(sess.Out, "player %d moves piece %d\n\n", s.Player(), m.Piece)
			s = m.Next
		}
		states = append(states, s)
	}

	winner := 1 - s.Player()
	fmt.Fprintf(sess.Out, "%s\n", s)
	return states, winner, nil
}

// readPiece prompts until the human names a movable piece.
func (sess *Session) readPiece(scanner *bufio.Scanner, s board.State) (int, error) {
	for {
		fmt.Fprintf(sess.Out, "player %d, piece to move: ", s.Player())
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, io.ErrUnexpectedEOF
		}
		piece, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			fmt.Fprintln(sess.Out, "enter a piece number 0-4")
			continue
		}
		if _, ok := s.Apply(piece); !ok {
			fmt.Fprintf(sess.Out, "piece %d cannot move\n", piece)
			continue
		}
		return piece, nil
	}
}

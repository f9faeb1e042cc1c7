package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/pmerle/squadro/internal/board"
	"github.com/pmerle/squadro/internal/play"
	"github.com/pmerle/squadro/internal/store"
)

var (
	playID    uint64
	playFirst int
	playHuman int
	playEval  bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a game against the solved database",
	Long: `Plays a game from a position in the outcome database. The computer always
plays a winning move when one exists and a drawing move otherwise. Use
--human -1 to watch computer self-play.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().Uint64Var(&playID, "id", board.IDSpace,
		"starting position id (default: the initial position)")
	playCmd.Flags().IntVar(&playFirst, "first", -1,
		"first player of the default starting position (0 = top, 1 = left, -1 = random)")
	playCmd.Flags().IntVar(&playHuman, "human", board.PlayerTop,
		"which player the human controls, or -1 for computer self-play")
	playCmd.Flags().BoolVar(&playEval, "eval", false,
		"print the evaluation of each position the computer moves from")
}

// firstPlayer resolves the --first flag; anything but an explicit side is a
// coin toss for who starts.
func firstPlayer(flag int) int {
	if flag == board.PlayerTop || flag == board.PlayerLeft {
		return flag
	}
	return rand.Intn(2)
}

func runPlay(cmd *cobra.Command, args []string) error {
	if playHuman < -1 || playHuman > 1 {
		return fmt.Errorf("--human must be 0, 1, or -1")
	}
	db, err := store.OpenDatabase(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open database (run solve first?): %w", err)
	}
	oracle := play.NewOracle(db)

	id := playID
	if id == board.IDSpace {
		id = board.New(firstPlayer(playFirst)).ID()
	}
	state, err := oracle.Validate(id)
	if err != nil {
		return err
	}

	sess := &play.Session{
		Oracle:   oracle,
		In:       os.Stdin,
		Out:      os.Stdout,
		MaxMoves: cfg.Play.MaxMoves,
		ShowEval: playEval,
	}
	_, winner, err := sess.Run(state, playHuman)
	if err != nil {
		return err
	}
	switch {
	case playHuman < 0:
		fmt.Printf("\nplayer %d wins\n", winner)
	case winner == playHuman:
		fmt.Println("\nhuman wins!")
	default:
		fmt.Println("\ncomputer wins!")
	}
	return nil
}

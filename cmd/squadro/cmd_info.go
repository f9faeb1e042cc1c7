package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmerle/squadro/internal/board"
	"github.com/pmerle/squadro/internal/store"
)

var infoID uint64

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show outcome database totals, or the outcome of one position",
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().Uint64Var(&infoID, "id", board.IDSpace, "show the outcome of this position id")
}

func runInfo(cmd *cobra.Command, args []string) error {
	db, err := store.OpenDatabase(cfg.DatabasePath())
	if err != nil {
		return err
	}
	stats := db.Stats()
	fmt.Printf("index space: %d\n", db.IndexSpace())
	fmt.Printf("reachable:   %d\n", stats.Reachable)
	fmt.Printf("wins top:    %d\n", stats.Wins[board.PlayerTop])
	fmt.Printf("wins left:   %d\n", stats.Wins[board.PlayerLeft])
	fmt.Printf("draws:       %d\n", stats.Draws)
	fmt.Printf("terminals:   %d\n", stats.Terminals)

	if infoID != board.IDSpace {
		s, err := board.FromID(infoID)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s\n", s)
		if !db.Contains(infoID) {
			return fmt.Errorf("position %d is not reachable", infoID)
		}
		fmt.Printf("outcome for side to move: %s\n", db.Outcome(infoID))
	}
	return nil
}

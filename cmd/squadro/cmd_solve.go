package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pmerle/squadro/internal/board"
	"github.com/pmerle/squadro/internal/solve"
	"github.com/pmerle/squadro/internal/store"
)

var (
	solveRoots  []string
	solveResume bool
	solveForce  bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Classify every reachable position and write the outcome database",
	Long: `Enumerates all positions reachable from the roots, classifies each one as a
win, loss, or draw for the side to move, and writes the outcome database.
SIGINT or SIGTERM triggers a final checkpoint; rerun with --resume to
continue an interrupted solve.`,
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringSliceVar(&solveRoots, "root", nil,
		"root position ids (default: both initial positions)")
	solveCmd.Flags().BoolVar(&solveResume, "resume", false,
		"resume from the checkpoint in the data directory")
	solveCmd.Flags().BoolVar(&solveForce, "force", false,
		"overwrite an existing outcome database")
}

func solveGraph() (*board.Graph, error) {
	if len(solveRoots) == 0 {
		return board.FullGame(), nil
	}
	roots := make([]board.State, 0, len(solveRoots))
	for _, arg := range solveRoots {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("root %q: %w", arg, err)
		}
		s, err := board.FromID(id)
		if err != nil {
			return nil, err
		}
		roots = append(roots, s)
	}
	return board.NewGraph(roots...), nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	dbPath := cfg.DatabasePath()
	ckptPath := cfg.CheckpointPath()

	if !solveForce {
		if _, err := os.Stat(dbPath); err == nil {
			return fmt.Errorf("%s already exists; use --force to overwrite", dbPath)
		}
	}

	graph, err := solveGraph()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scfg := solve.Config{
		Workers:         cfg.Solve.Workers,
		Logger:          logger,
		Compress:        cfg.Solve.Compress,
		CheckpointEvery: cfg.Solve.CheckpointEvery,
		Checkpoint: func(snap solve.Snapshot) error {
			return store.WriteCheckpoint(ckptPath, snap)
		},
	}
	if solveResume {
		snap, err := store.ReadCheckpoint(ckptPath, graph.IndexSpace())
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		scfg.Resume = &snap
		logger.Info().Str("checkpoint", ckptPath).Msg("resuming solve")
	}

	res, err := solve.Solve(ctx, graph, scfg)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Str("checkpoint", ckptPath).
				Msg("solve interrupted; rerun with --resume to continue")
		}
		return err
	}

	if err := store.WriteDatabase(dbPath, res); err != nil {
		return err
	}
	// The checkpoint is superseded by the finished database.
	os.Remove(ckptPath)

	logger.Info().
		Str("database", dbPath).
		Uint64("reachable", res.Stats.Reachable).
		Uint64("wins_top", res.Stats.Wins[board.PlayerTop]).
		Uint64("wins_left", res.Stats.Wins[board.PlayerLeft]).
		Uint64("draws", res.Stats.Draws).
		Uint64("terminals", res.Stats.Terminals).
		Dur("elapsed", res.Stats.Elapsed).
		Msg("database written")
	return nil
}

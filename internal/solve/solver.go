// Package solve classifies every reachable state of a two-player game as a
// win, loss, or draw for the side to move, by retrograde analysis: terminal
// states seed as losses and outcomes propagate backwards over predecessor
// edges until a fixpoint; states never resolved are draws.
package solve

import (
	"context"
	"fmt"
	"math/bits"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Game is the solver's view of a game: an implicit graph over a dense id
// space. Implementations must be safe for concurrent use. Unreachable ids
// may decode to nonsense positions; the solver only queries ids discovered
// from the roots. Games with forced passes must surface the pass as the
// single forward move of the state.
type Game interface {
	// IndexSpace is the size of the id space; all ids are < IndexSpace.
	IndexSpace() uint64
	// Roots are the starting states for reachability.
	Roots() []uint64
	// Mover is the side to move at id.
	Mover(id uint64) int
	// Terminal reports whether id is a finished game. The mover of a
	// terminal state has lost.
	Terminal(id uint64) (bool, error)
	// Moves returns the successor ids of a non-terminal state.
	Moves(id uint64) ([]uint64, error)
	// Predecessors returns every id with a move into id. It may include
	// unreachable states; the solver filters them out.
	Predecessors(id uint64) ([]uint64, error)
}

// Snapshot is the resumable core of a solve: the classification table and
// the reachability bitmap. Successor counters and queues are not persisted;
// Solve rebuilds them on resume.
type Snapshot struct {
	Table *Table
	Reach *Bitmap
}

// Config controls a solve run.
type Config struct {
	// Workers is the number of shards and worker goroutines. Defaults to
	// GOMAXPROCS.
	Workers int
	Logger  zerolog.Logger
	// Checkpoint, when set together with CheckpointEvery, is called
	// periodically with all workers paused between work items. The same
	// callback runs once more on context cancellation so an interrupted
	// solve can resume.
	Checkpoint      func(snap Snapshot) error
	CheckpointEvery time.Duration
	// Compress stores the classification table and successor counters
	// densely by reachability rank instead of flat over the raw id space,
	// trading a rank lookup per access for a several-fold smaller
	// footprint. Ignored on resume, where the snapshot fixes the layout.
	Compress bool
	// Resume continues a previous run from its snapshot instead of
	// enumerating from scratch.
	Resume *Snapshot
}

// Stats summarizes a completed solve.
type Stats struct {
	Reachable uint64
	Terminals uint64
	// Wins counts reachable states won by each player under optimal play.
	Wins     [2]uint64
	Draws    uint64
	Expanded uint64
	Elapsed  time.Duration
}

// Result is the output of a completed solve.
type Result struct {
	Table *Table
	Reach *Bitmap
	Stats Stats
}

// Outcome returns the final classification of id: Unresolved for
// unreachable ids, and Draw for reachable states the propagation never
// resolved.
func (r *Result) Outcome(id uint64) Outcome {
	if !r.Reach.Get(id) {
		return Unresolved
	}
	if o := r.Table.Get(id); o != Unresolved {
		return o
	}
	return Draw
}

// batchSize is how many queue items a worker takes per lock acquisition,
// and the granularity at which checkpoints can pause a worker.
const batchSize = 256

type solver struct {
	game Game
	cfg  Config
	log  zerolog.Logger

	table    *Table
	reach    *Bitmap
	counters counterStore

	shards   []*shardQueue
	shardLen uint64

	// outstanding counts queued-but-unfinished items; zero means the
	// fixpoint is reached. Every push increments it before the item is
	// visible; the owning worker decrements after full processing.
	outstanding int64
	done        chan struct{}
	doneOnce    sync.Once

	// gate is read-held by workers around each batch; checkpoints take the
	// write side to pause the world.
	gate sync.RWMutex

	expanded  int64
	notified  int64
	terminals uint64
}

// Solve runs retrograde analysis over the game until every reachable state
// is classified or the context is cancelled.
func Solve(ctx context.Context, game Game, cfg Config) (*Result, error) {
	start := time.Now()
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	space := game.IndexSpace()
	if space == 0 {
		return nil, fmt.Errorf("empty index space")
	}

	s := &solver{
		game:     game,
		cfg:      cfg,
		log:      cfg.Logger,
		shards:   make([]*shardQueue, cfg.Workers),
		shardLen: (space + uint64(cfg.Workers) - 1) / uint64(cfg.Workers),
		done:     make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = newShardQueue()
	}

	switch {
	case cfg.Resume != nil:
		if cfg.Resume.Table.Size() != space || cfg.Resume.Reach.Size() != space {
			return nil, fmt.Errorf("snapshot covers %d ids, game has %d",
				cfg.Resume.Table.Size(), space)
		}
		s.table = cfg.Resume.Table
		s.reach = cfg.Resume.Reach
		if s.table.Dense() {
			s.counters = newPackedCounters(s.table.idx)
		} else {
			s.counters = make(flatCounters, space)
		}
		if err := s.scan(ctx); err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
	case cfg.Compress:
		// Mark reachability first; the dense layouts need the final bitmap.
		s.reach = NewBitmap(space)
		if err := s.enumerate(ctx, false); err != nil {
			return nil, fmt.Errorf("enumerate: %w", err)
		}
		idx := newRankIndex(s.reach)
		s.table = newDenseTable(space, idx)
		s.counters = newPackedCounters(idx)
		if err := s.scan(ctx); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	default:
		s.table = NewTable(space)
		s.reach = NewBitmap(space)
		s.counters = make(flatCounters, space)
		if err := s.enumerate(ctx, true); err != nil {
			return nil, fmt.Errorf("enumerate: %w", err)
		}
	}

	reachable := s.reach.Count()
	s.log.Info().
		Uint64("reachable", reachable).
		Uint64("terminals", s.terminals).
		Int64("queued", atomic.LoadInt64(&s.outstanding)).
		Dur("elapsed", time.Since(start)).
		Msg("enumeration complete, propagating")

	// A game with no terminal states is all draws; nothing to propagate.
	if atomic.LoadInt64(&s.outstanding) == 0 {
		s.doneOnce.Do(func() { close(s.done) })
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range s.shards {
		shard := i
		g.Go(func() error { return s.runWorker(gctx, shard) })
	}
	g.Go(func() error { return s.runCheckpoints(gctx) })
	g.Go(func() error { return s.runProgress(gctx) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats, err := s.tally(ctx)
	if err != nil {
		return nil, err
	}
	stats.Reachable = reachable
	stats.Terminals = s.terminals
	stats.Expanded = uint64(atomic.LoadInt64(&s.expanded))
	stats.Elapsed = time.Since(start)

	s.log.Info().
		Uint64("reachable", stats.Reachable).
		Uint64("wins_0", stats.Wins[0]).
		Uint64("wins_1", stats.Wins[1]).
		Uint64("draws", stats.Draws).
		Dur("elapsed", stats.Elapsed).
		Msg("solve complete")

	return &Result{Table: s.table, Reach: s.reach, Stats: stats}, nil
}

func (s *solver) shardOf(id uint64) int {
	return int(id / s.shardLen)
}

// send makes an item visible to its owning shard. The outstanding increment
// must happen before the push so the counter can never touch zero while
// work remains.
func (s *solver) send(it item) {
	atomic.AddInt64(&s.outstanding, 1)
	s.shards[s.shardOf(it.id)].push(it)
}

func (s *solver) finish(n int64) {
	if atomic.AddInt64(&s.outstanding, -n) == 0 {
		s.doneOnce.Do(func() { close(s.done) })
	}
}

// enumerate walks the graph breadth-first from the roots, marking
// reachability. With seed set it also records each non-terminal state's
// out-degree and seeds every terminal state as a loss for its mover;
// without it those happen later in scan, once the bitmap is frozen and the
// dense layouts can be addressed.
func (s *solver) enumerate(ctx context.Context, seed bool) error {
	frontier := make([]uint64, 0, len(s.game.Roots()))
	for _, r := range s.game.Roots() {
		if r >= s.reach.Size() {
			return fmt.Errorf("root %d out of range", r)
		}
		if s.reach.Set(r) {
			frontier = append(frontier, r)
		}
	}

	var seeded uint64
	for depth := 0; len(frontier) > 0; depth++ {
		chunks := splitChunks(frontier, s.cfg.Workers)
		next := make([][]uint64, len(chunks))
		terms := make([][]uint64, len(chunks))

		g, gctx := errgroup.WithContext(ctx)
		for ci, chunk := range chunks {
			ci, chunk := ci, chunk
			g.Go(func() error {
				for _, id := range chunk {
					if err := gctx.Err(); err != nil {
						return err
					}
					term, err := s.game.Terminal(id)
					if err != nil {
						return err
					}
					if term {
						if seed {
							terms[ci] = append(terms[ci], id)
						}
						continue
					}
					succs, err := s.game.Moves(id)
					if err != nil {
						return err
					}
					if len(succs) == 0 {
						return fmt.Errorf("%w: id %d", ErrNoMoves, id)
					}
					if seed {
						if len(succs) > int(s.counters.limit()) {
							return fmt.Errorf("%w: id %d has %d moves", ErrCounterOverflow, id, len(succs))
						}
						s.counters.set(id, uint8(len(succs)))
					}
					for _, nxt := range succs {
						if s.reach.Set(nxt) {
							next[ci] = append(next[ci], nxt)
						}
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		frontier = frontier[:0]
		for ci := range chunks {
			frontier = append(frontier, next[ci]...)
			for _, t := range terms[ci] {
				s.table.TryClassify(t, Loss)
				s.send(item{id: t, out: Loss})
				seeded++
			}
		}
		s.log.Debug().
			Int("depth", depth).
			Int("frontier", len(frontier)).
			Uint64("terminals", seeded).
			Msg("enumeration level")
	}
	s.terminals = seeded
	return nil
}

// scan makes a parallel pass over the frozen reachability bitmap to seed
// propagation. Terminal states still unresolved are classified as losses
// and queued (a fresh compressed run); other unresolved states get their
// successor counters set to the full out-degree; already classified states
// (a resumed snapshot) are re-expanded so each of their predecessor edges
// is delivered exactly once in this run.
func (s *solver) scan(ctx context.Context) error {
	space := s.reach.Size()
	chunk := (space + uint64(s.cfg.Workers) - 1) / uint64(s.cfg.Workers)
	terms := make([]uint64, s.cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.cfg.Workers; w++ {
		w := w
		lo := uint64(w) * chunk
		hi := lo + chunk
		if hi > space {
			hi = space
		}
		g.Go(func() error {
			for id := lo; id < hi; id++ {
				if id%(1<<20) == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if !s.reach.Get(id) {
					continue
				}
				switch out := s.table.Get(id); out {
				case Unresolved:
					term, err := s.game.Terminal(id)
					if err != nil {
						return err
					}
					if term {
						s.table.TryClassify(id, Loss)
						s.send(item{id: id, out: Loss})
						terms[w]++
						continue
					}
					succs, err := s.game.Moves(id)
					if err != nil {
						return err
					}
					if len(succs) == 0 {
						return fmt.Errorf("%w: id %d", ErrNoMoves, id)
					}
					if len(succs) > int(s.counters.limit()) {
						return fmt.Errorf("%w: id %d has %d moves", ErrCounterOverflow, id, len(succs))
					}
					s.counters.set(id, uint8(len(succs)))
				case Win, Loss:
					if out == Loss {
						term, err := s.game.Terminal(id)
						if err != nil {
							return err
						}
						if term {
							terms[w]++
						}
					}
					s.send(item{id: id, out: out})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, n := range terms {
		s.terminals += n
	}
	return nil
}

// runWorker owns one shard: its queue, and the successor counters of every
// id in the shard. Counter updates therefore need no atomics.
func (s *solver) runWorker(ctx context.Context, shard int) error {
	q := s.shards[shard]
	buf := make([]item, 0, batchSize)
	for {
		buf = q.pop(buf[:0], batchSize)
		if len(buf) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.done:
				return nil
			case <-q.wake:
				continue
			}
		}
		s.gate.RLock()
		for _, it := range buf {
			if err := s.process(shard, it); err != nil {
				s.gate.RUnlock()
				return err
			}
		}
		s.gate.RUnlock()
		s.finish(int64(len(buf)))
	}
}

func (s *solver) process(shard int, it item) error {
	if it.notify {
		s.applyNotify(it.id, it.out)
		return nil
	}
	// Expand: deliver this state's resolution to every reachable
	// predecessor, in-shard directly, cross-shard via the owner's queue.
	preds, err := s.game.Predecessors(it.id)
	if err != nil {
		return err
	}
	for _, p := range preds {
		if !s.reach.Get(p) {
			continue
		}
		if s.shardOf(p) == shard {
			s.applyNotify(p, it.out)
		} else {
			s.send(item{id: p, out: it.out, notify: true})
		}
	}
	atomic.AddInt64(&s.expanded, 1)
	return nil
}

// applyNotify applies one resolved successor edge to state id. Must run on
// the worker owning id's shard.
func (s *solver) applyNotify(id uint64, succOut Outcome) {
	atomic.AddInt64(&s.notified, 1)
	switch succOut {
	case Loss:
		// A losing successor makes this state a win for its mover.
		if s.table.TryClassify(id, Win) {
			s.send(item{id: id, out: Win})
		}
	case Win:
		if s.table.Get(id) != Unresolved {
			return
		}
		if s.counters.decrement(id) == 0 {
			// Every move leads to a winning opponent state.
			if s.table.TryClassify(id, Loss) {
				s.send(item{id: id, out: Loss})
			}
		}
	}
}

func (s *solver) runCheckpoints(ctx context.Context) error {
	if s.cfg.Checkpoint == nil || s.cfg.CheckpointEvery <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.cfg.CheckpointEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			// One final snapshot so the interrupted solve can resume.
			return s.checkpoint()
		case <-ticker.C:
			if err := s.checkpoint(); err != nil {
				return err
			}
		}
	}
}

// checkpoint pauses all workers between batches and hands the callback a
// consistent snapshot. First-write-wins classification keeps any paused
// table sound, so a snapshot taken mid-propagation is always resumable.
func (s *solver) checkpoint() error {
	s.gate.Lock()
	defer s.gate.Unlock()
	start := time.Now()
	if err := s.cfg.Checkpoint(Snapshot{Table: s.table, Reach: s.reach}); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	s.log.Info().
		Int64("expanded", atomic.LoadInt64(&s.expanded)).
		Dur("took", time.Since(start)).
		Msg("checkpoint written")
	return nil
}

func (s *solver) runProgress(ctx context.Context) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			var queued int
			for _, q := range s.shards {
				queued += q.len()
			}
			s.log.Info().
				Int64("expanded", atomic.LoadInt64(&s.expanded)).
				Int64("notified", atomic.LoadInt64(&s.notified)).
				Int64("outstanding", atomic.LoadInt64(&s.outstanding)).
				Int("queued", queued).
				Msg("propagation progress")
		}
	}
}

// tally scans the reachability bitmap and counts final outcomes per winner.
func (s *solver) tally(ctx context.Context) (Stats, error) {
	words := s.reach.Words()
	chunk := (len(words) + s.cfg.Workers - 1) / s.cfg.Workers
	wins := make([][2]uint64, s.cfg.Workers)
	draws := make([]uint64, s.cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.cfg.Workers; w++ {
		w := w
		lo := w * chunk
		hi := lo + chunk
		if hi > len(words) {
			hi = len(words)
		}
		g.Go(func() error {
			for wi := lo; wi < hi; wi++ {
				if wi%(1<<16) == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				word := words[wi]
				for word != 0 {
					bit := uint64(bits.TrailingZeros64(word))
					word &= word - 1
					id := uint64(wi)*64 + bit
					mover := s.game.Mover(id)
					switch s.table.Get(id) {
					case Win:
						wins[w][mover]++
					case Loss:
						wins[w][1-mover]++
					default:
						draws[w]++
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	var stats Stats
	for w := 0; w < s.cfg.Workers; w++ {
		stats.Wins[0] += wins[w][0]
		stats.Wins[1] += wins[w][1]
		stats.Draws += draws[w]
	}
	return stats, nil
}

func splitChunks(ids []uint64, n int) [][]uint64 {
	if len(ids) == 0 {
		return nil
	}
	size := (len(ids) + n - 1) / n
	chunks := make([][]uint64, 0, n)
	for lo := 0; lo < len(ids); lo += size {
		hi := lo + size
		if hi > len(ids) {
			hi = len(ids)
		}
		chunks = append(chunks, ids[lo:hi])
	}
	return chunks
}

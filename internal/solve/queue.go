package solve

import "sync"

// item is one unit of propagation work, always owned by the shard of its id.
// An expand item is a freshly classified state whose predecessors must be
// notified; a notify item tells a state that one of its successors resolved
// with the given outcome.
type item struct {
	id     uint64
	out    Outcome
	notify bool
}

// shardQueue is an unbounded FIFO with a one-slot wake channel. Pushes never
// block, which keeps cross-shard handoff deadlock-free; an idle worker parks
// on the wake channel.
type shardQueue struct {
	mu    sync.Mutex
	items []item
	wake  chan struct{}
}

func newShardQueue() *shardQueue {
	return &shardQueue{wake: make(chan struct{}, 1)}
}

func (q *shardQueue) push(it item) {
	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop takes up to max items in one lock acquisition.
func (q *shardQueue) pop(buf []item, max int) []item {
	q.mu.Lock()
	n := len(q.items)
	if n > max {
		n = max
	}
	buf = append(buf, q.items[:n]...)
	rest := copy(q.items, q.items[n:])
	q.items = q.items[:rest]
	q.mu.Unlock()
	return buf
}

func (q *shardQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

package conversation

import "sync"

// eventQueue is an unbounded FIFO of closures drained by the loop goroutine.
// push never blocks, so collaborator callbacks and timers can post from anywhere.
type eventQueue struct {
	mu     sync.Mutex
	items  []func()
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) push(f func()) {
	q.mu.Lock()
	q.items = append(q.items, f)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	f := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return f, true
}

// reset drops every queued closure.
func (q *eventQueue) reset() {
	q.mu.Lock()
	clear(q.items)
	q.items = nil
	q.mu.Unlock()
}

package backup

import "github.com/txstate-etc/mgnl-backup/internal/nodes"

// Queue is the bounded channel of export work. The coordinator is the sole
// producer; workers are the sole consumers. A full queue blocks the
// producer, which is the backpressure against a slow worker pool.
type Queue struct {
	ch chan nodes.PathInfo
}

// NewQueue creates a queue with the given capacity, normally the worker
// count.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan nodes.PathInfo, size)}
}

func (q *Queue) enqueue(p nodes.PathInfo) {
	q.ch <- p
}

// dequeue blocks until a record is available. ok is false once the queue is
// closed and drained.
func (q *Queue) dequeue() (nodes.PathInfo, bool) {
	p, ok := <-q.ch
	return p, ok
}

func (q *Queue) close() {
	close(q.ch)
}

func (q *Queue) empty() bool {
	return len(q.ch) == 0
}

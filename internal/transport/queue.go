//go:build !race

package transport

import "code.hybscloud.com/lfq"

// queue is the lock-free SPSC ring behind one direction of a pair. Both
// operations return iox.ErrWouldBlock when the ring is full or empty.
type queue struct {
	q lfq.SPSC[[]byte]
}

func (q *queue) init(capacity int) { q.q.Init(capacity) }
func (q *queue) enqueue(payload *[]byte) error { return q.q.Enqueue(payload) }
func (q *queue) dequeue() ([]byte, error) { return q.q.Dequeue() }

//go:build race

package transport

import (
	"sync"

	"code.hybscloud.com/iox"
)

// queue is a mutex-guarded ring with the same contract as the lfq SPSC ring.
// The race detector cannot follow SPSC's cross-variable memory ordering, so
// race builds use this one and keep every caller under the detector.
type queue struct {
	mu   sync.Mutex
	buf  [][]byte
	head int
	n    int
}

func (q *queue) init(capacity int) { q.buf = make([][]byte, capacity) }

func (q *queue) enqueue(payload *[]byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == len(q.buf) {
		return iox.ErrWouldBlock
	}
	q.buf[(q.head+q.n)%len(q.buf)] = *payload
	q.n++
	return nil
}

func (q *queue) dequeue() ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return nil, iox.ErrWouldBlock
	}
	p := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return p, nil
}

// Implements the IntakeQueue, which carries clients from the arrival generators
// to the servers. Enqueue never blocks; Dequeue blocks until a client is available,
// the queue is closed and drained, or the context is done.

package sim

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Enqueue after close and by Dequeue once the
// closed queue has been drained (end of stream).
var ErrQueueClosed = errors.New("intake queue closed")

// IntakeQueue is an unbounded multi-producer, multi-consumer FIFO.
//
// The queue closes when the last registered writer calls CloseWriter, so that
// no producer can truncate a write still in flight on another producer.
type IntakeQueue struct {
	mu      sync.Mutex
	items   []Client
	writers int
	closed  bool

	ready chan struct{} // capacity 1; signalled when items are appended
	done  chan struct{} // closed when the queue closes
}

// NewIntakeQueue creates a queue with the given number of writers.
// A queue with no writers is closed from the start.
func NewIntakeQueue(writers int) *IntakeQueue {
	q := &IntakeQueue{
		writers: writers,
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if writers <= 0 {
		q.closed = true
		close(q.done)
	}
	return q
}

// Enqueue appends a client to the back of the queue. It never blocks and fails
// only with ErrQueueClosed, which cannot happen while the caller holds a writer.
func (q *IntakeQueue) Enqueue(c Client) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, c)
	q.mu.Unlock()
	q.signal()
	return nil
}

// Dequeue removes the client at the front of the queue, waiting if it is empty.
// Returns ErrQueueClosed once the queue is closed and empty, or ctx.Err() if ctx
// is done first. No client is ever returned to more than one caller.
func (q *IntakeQueue) Dequeue(ctx context.Context) (Client, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Client{}, err
		}
		q.mu.Lock()
		if len(q.items) > 0 {
			c := q.items[0]
			q.items[0] = Client{}
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				// hand the wake-up on to the next idle consumer
				q.signal()
			}
			return c, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Client{}, ErrQueueClosed
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return Client{}, ctx.Err()
		}
	}
}

// CloseWriter releases one writer. The queue closes when no writers remain;
// buffered clients stay available to Dequeue.
func (q *IntakeQueue) CloseWriter() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.writers--
	if q.writers <= 0 {
		q.closed = true
		close(q.done)
	}
}

// Closed reports whether the last writer has gone.
func (q *IntakeQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of buffered clients.
func (q *IntakeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *IntakeQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Package queue defines the contract for the milestone pipeline between
// ingestion and the notification workers.
//
// Ingestion must never block on a slow notification path: Enqueue is
// non-blocking and reports backpressure to the caller, which drops the
// milestone and counts it.
package queue

import (
	"context"
	"sync"

	"github.com/openlabel/demand/internal/domain/model"
	"github.com/openlabel/demand/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
)

// Milestone is the payload type flowing through the queue.
type Milestone = model.Milestone

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a milestone to the queue.
	// Returns false if the queue is full and the milestone was dropped.
	Enqueue(ctx context.Context, m Milestone) bool

	// Dequeue returns a channel that receives milestones as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Milestone

	// Len returns the current number of queued milestones.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue. After closing, no new
	// milestones can be enqueued and the dequeue channel is closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	milestones chan Milestone
	capacity   int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory milestone queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.milestones = make(chan Milestone, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)
	return q
}

// Enqueue adds a milestone to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m Milestone) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}

	select {
	case q.milestones <- m:
		metrics.RecordQueueEnqueue()
		q.publishGauges()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
		// Queue full; the caller decides whether dropping matters.
		metrics.RecordQueueEnqueueError()
		return false
	}
}

// Dequeue returns a channel that receives milestones.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Milestone {
	out := make(chan Milestone)
	go func() {
		defer close(out)
		for m := range q.milestones {
			select {
			case out <- m:
				metrics.RecordQueueDequeue()
				q.publishGauges()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued milestones.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.milestones)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.milestones)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) publishGauges() {
	size := len(q.milestones)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

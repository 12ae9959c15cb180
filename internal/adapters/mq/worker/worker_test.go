package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	eventqueue "github.com/openlabel/demand/internal/adapters/mq/queue"
	"github.com/openlabel/demand/internal/domain/model"
	"github.com/openlabel/demand/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type captureNotifier struct {
	mu    sync.Mutex
	seen  []Milestone
	fail  bool
	calls int
}

func (n *captureNotifier) Notify(_ context.Context, m Milestone) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.fail {
		return errors.New("downstream unavailable")
	}
	n.seen = append(n.seen, m)
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.seen)
}

func TestWorkerProcessesMilestones(t *testing.T) {
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(10))
	n := &captureNotifier{}
	w := NewWorker(q, n, WithName("test-worker"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.Enqueue(ctx, Milestone{Barcode: "0001", Kind: model.MilestoneFunded, Score: 500})
	q.Enqueue(ctx, Milestone{Barcode: "0002", Kind: model.MilestoneTrending, Velocity: 30})

	deadline := time.After(2 * time.Second)
	for n.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out; notified %d of 2", n.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := w.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestWorkerSurvivesNotifierErrors(t *testing.T) {
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(10))
	n := &captureNotifier{fail: true}
	w := NewWorker(q, n)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.Enqueue(ctx, Milestone{Barcode: "0001", Kind: model.MilestoneFunded})
	q.Enqueue(ctx, Milestone{Barcode: "0002", Kind: model.MilestoneFunded})

	deadline := time.After(2 * time.Second)
	for {
		n.mu.Lock()
		calls := n.calls
		n.mu.Unlock()
		if calls >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker stopped after a notifier error")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPoolDrainsQueueOnShutdown(t *testing.T) {
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(100))
	n := &captureNotifier{}
	p := NewPool(4, q, n)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	for i := 0; i < 20; i++ {
		q.Enqueue(ctx, Milestone{Barcode: "0001", Kind: model.MilestoneTrending, Velocity: i})
	}

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("pool shutdown failed: %v", err)
	}
	if n.count() != 20 {
		t.Errorf("expected all 20 milestones drained, got %d", n.count())
	}
}

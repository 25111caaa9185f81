// Package mailqueue persists outbound email batches and drains them at a
// bounded rate.
package mailqueue

import (
	"context"
	"fmt"

	"townhall/internal/domain"
	"townhall/internal/metrics"
)

// Queue implements domain.EmailQueue. Every successful Enqueue wakes the
// worker; wakeups coalesce while the worker is busy.
type Queue struct {
	repo domain.EmailQueueRepository
	wake chan struct{}
}

// NewQueue returns a Queue storing batches through repo.
func NewQueue(repo domain.EmailQueueRepository) *Queue {
	return &Queue{repo: repo, wake: make(chan struct{}, 1)}
}

var _ domain.EmailQueue = (*Queue)(nil)

// Enqueue stores emails as one batch at the back of the queue, or at the front
// for PriorityHigh.
func (q *Queue) Enqueue(ctx context.Context, emails []*domain.Email, priority domain.Priority) (*domain.EmailBatch, error) {
	if len(emails) == 0 {
		return nil, domain.NewValidationError("emails", "a batch needs at least one email")
	}
	batch, err := q.repo.CreateBatch(ctx, emails, priority)
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	metrics.EmailsEnqueued.Add(float64(len(emails)))
	q.Wake()
	return batch, nil
}

// Wake signals the worker without blocking.
func (q *Queue) Wake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Wakeups is the channel the worker listens on.
func (q *Queue) Wakeups() <-chan struct{} {
	return q.wake
}

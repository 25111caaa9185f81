package mailqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"townhall/internal/domain"
	"townhall/internal/metrics"
)

const recordSentAttempts = 3

// WorkerConfig tunes the sender.
type WorkerConfig struct {
	// RateLimit is the maximum number of emails sent per second.
	RateLimit    int
	Tick         time.Duration
	SendTimeout  time.Duration
	RetryBackoff time.Duration
}

func (c *WorkerConfig) setDefaults() {
	if c.RateLimit <= 0 {
		c.RateLimit = 10
	}
	if c.Tick <= 0 {
		c.Tick = time.Minute
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
}

// Worker drains the queue one email at a time. All state lives in the
// database, so a restarted worker resumes where the last one stopped.
type Worker struct {
	repo      domain.EmailQueueRepository
	mailer    domain.Mailer
	finalizer domain.EmailFinalizer
	publisher domain.EventPublisher
	wake      <-chan struct{}
	cfg       WorkerConfig
	logger    *slog.Logger
}

// NewWorker creates a Worker woken by queue. finalizer may be nil.
func NewWorker(
	queue *Queue,
	repo domain.EmailQueueRepository,
	mailer domain.Mailer,
	finalizer domain.EmailFinalizer,
	publisher domain.EventPublisher,
	cfg WorkerConfig,
	logger *slog.Logger,
) *Worker {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		repo:      repo,
		mailer:    mailer,
		finalizer: finalizer,
		publisher: publisher,
		wake:      queue.Wakeups(),
		cfg:       cfg,
		logger:    logger,
	}
}

// Run drains the queue, then waits for a wakeup or the next tick. It returns
// when ctx is done, after finishing the send in progress.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Tick)
	defer ticker.Stop()

	w.logger.Info("email worker started", "ratelimit", w.cfg.RateLimit)
	for {
		if err := w.Drain(ctx); err != nil {
			w.logger.Error("email worker", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.cfg.RetryBackoff):
			}
			continue
		}
		select {
		case <-ctx.Done():
			w.logger.Info("email worker stopped")
			return
		case <-w.wake:
		case <-ticker.C:
		}
	}
}

// Drain sends pending emails until the queue is empty or ctx is done.
func (w *Worker) Drain(ctx context.Context) error {
	delay := time.Second / time.Duration(w.cfg.RateLimit)
	next := time.Now()
	for {
		if ctx.Err() != nil {
			return nil
		}
		email, err := w.repo.Next(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("next email: %w", err)
		}

		if wait := time.Until(next); wait > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
		}
		next = time.Now().Add(delay)

		if err := w.deliver(ctx, email); err != nil {
			return err
		}
	}
}

// deliver sends one email and records the outcome. It is detached from ctx
// cancellation so shutdown never abandons a send halfway.
func (w *Worker) deliver(parent context.Context, email *domain.Email) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.cfg.SendTimeout)
	defer cancel()

	var sendErr error
	if w.finalizer != nil {
		sendErr = w.finalizer.Finalize(email)
	}
	if sendErr == nil {
		sendErr = w.mailer.Send(ctx, email.Address, email.Subject, email.HTMLBody, email.TextBody)
	}

	var batch *domain.EmailBatch
	var err error
	if sendErr != nil {
		w.logger.WarnContext(ctx, "email send failed", "email_id", email.ID, "kind", email.Kind, "err", sendErr)
		metrics.EmailsProcessed.WithLabelValues("errored").Inc()
		batch, err = w.repo.MarkErrored(ctx, email, sendErr.Error())
	} else {
		w.logger.DebugContext(ctx, "email sent", "email_id", email.ID, "kind", email.Kind)
		metrics.EmailsProcessed.WithLabelValues("sent").Inc()
		batch, err = w.recordSent(parent, email)
	}
	if err != nil {
		return fmt.Errorf("record email %d: %w", email.ID, err)
	}
	if batch != nil && w.publisher != nil {
		if err := w.publisher.Publish(ctx, domain.SubjectEmailBatchUpdated, batch); err != nil {
			w.logger.WarnContext(ctx, "publish batch progress", "batch_id", batch.ID, "err", err)
		}
	}
	return nil
}

// recordSent retries MarkSent so a delivered email is not delivered again.
// Delivery is at-least-once: if every attempt fails the email stays queued and
// the next drain resends it.
func (w *Worker) recordSent(parent context.Context, email *domain.Email) (*domain.EmailBatch, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.cfg.SendTimeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		batch, err := w.repo.MarkSent(ctx, email)
		if err == nil {
			return batch, nil
		}
		if attempt == recordSentAttempts {
			w.logger.ErrorContext(ctx, "email sent but not recorded, it will be sent again",
				"email_id", email.ID, "attempts", attempt, "err", err)
			return nil, err
		}
		w.logger.WarnContext(ctx, "record sent email", "email_id", email.ID, "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			w.logger.ErrorContext(ctx, "email sent but not recorded, it will be sent again",
				"email_id", email.ID, "attempts", attempt, "err", err)
			return nil, err
		case <-time.After(w.cfg.RetryBackoff):
		}
	}
}

package mailqueue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"townhall/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memQueue orders batches like the SQL queue: high priority batches go in
// front of everything already waiting.
type memQueue struct {
	mu       sync.Mutex
	seq      int64
	front    int64
	back     int64
	position map[int64]int64
	batches  map[int64]*domain.EmailBatch
	emails   []*domain.Email
	nextErr  error
	// markSentErrs fails that many MarkSent calls.
	markSentErrs int
}

func newMemQueue() *memQueue {
	return &memQueue{position: map[int64]int64{}, batches: map[int64]*domain.EmailBatch{}}
}

func (q *memQueue) CreateBatch(_ context.Context, emails []*domain.Email, priority domain.Priority) (*domain.EmailBatch, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	b := &domain.EmailBatch{ID: q.seq, Size: len(emails), CreatedAt: time.Now()}
	q.batches[b.ID] = b
	if priority == domain.PriorityHigh {
		q.front--
		q.position[b.ID] = q.front
	} else {
		q.back++
		q.position[b.ID] = q.back
	}
	for _, e := range emails {
		q.seq++
		e.ID = q.seq
		e.BatchID = b.ID
		q.emails = append(q.emails, e)
	}
	cp := *b
	return &cp, nil
}

func (q *memQueue) Next(context.Context) (*domain.Email, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.nextErr != nil {
		err := q.nextErr
		q.nextErr = nil
		return nil, err
	}
	var pending []*domain.Email
	for _, e := range q.emails {
		if e.SentAt == nil && e.ErroredAt == nil {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.SliceStable(pending, func(i, j int) bool {
		pi, pj := q.position[pending[i].BatchID], q.position[pending[j].BatchID]
		if pi != pj {
			return pi < pj
		}
		return pending[i].ID < pending[j].ID
	})
	cp := *pending[0]
	return &cp, nil
}

func (q *memQueue) find(id int64) *domain.Email {
	for _, e := range q.emails {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (q *memQueue) mark(email *domain.Email, reason string) (*domain.EmailBatch, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.find(email.ID)
	if e == nil {
		return nil, domain.ErrNotFound
	}
	if e.SentAt != nil || e.ErroredAt != nil {
		return nil, nil
	}
	now := time.Now()
	b := q.batches[e.BatchID]
	if reason == "" {
		e.SentAt = &now
		b.Sent++
	} else {
		e.ErroredAt = &now
		e.Error = reason
		b.Errored++
	}
	e.HTMLBody, e.TextBody = email.HTMLBody, email.TextBody
	cp := *b
	return &cp, nil
}

func (q *memQueue) MarkSent(_ context.Context, email *domain.Email) (*domain.EmailBatch, error) {
	q.mu.Lock()
	if q.markSentErrs > 0 {
		q.markSentErrs--
		q.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	q.mu.Unlock()
	return q.mark(email, "")
}

func (q *memQueue) MarkErrored(_ context.Context, email *domain.Email, reason string) (*domain.EmailBatch, error) {
	return q.mark(email, reason)
}

func (q *memQueue) ListBatches(context.Context, domain.PaginationParams) ([]*domain.EmailBatch, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*domain.EmailBatch, 0, len(q.batches))
	for _, b := range q.batches {
		cp := *b
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (q *memQueue) email(id int64) domain.Email {
	q.mu.Lock()
	defer q.mu.Unlock()
	return *q.find(id)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	fail map[string]error
}

func (m *recordingMailer) Send(_ context.Context, to, _, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[to]; err != nil {
		return err
	}
	m.sent = append(m.sent, to)
	return nil
}

func (m *recordingMailer) addresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type stampFinalizer struct{}

func (stampFinalizer) Finalize(email *domain.Email) error {
	if email.Address == "broken@x.org" {
		return errors.New("cannot sign")
	}
	email.HTMLBody += "<footer>"
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	batches []domain.EmailBatch
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := data.(*domain.EmailBatch); ok && subject == domain.SubjectEmailBatchUpdated {
		p.batches = append(p.batches, *b)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func emailsTo(addresses ...string) []*domain.Email {
	out := make([]*domain.Email, len(addresses))
	for i, a := range addresses {
		out[i] = &domain.Email{Kind: domain.EmailPost, Address: a, Subject: "hi", HTMLBody: "<p>hi</p>", TextBody: "hi"}
	}
	return out
}

package postgres

import (
	"context"
	"database/sql"

	"townhall/internal/domain"
)

type emailQueueRepository struct {
	DB *sql.DB
}

// NewEmailQueueRepository returns the Postgres-backed email queue. Batches are
// ordered by position; front inserts take MIN(position)-1, back inserts MAX(position)+1.
func NewEmailQueueRepository(db *sql.DB) domain.EmailQueueRepository {
	return &emailQueueRepository{DB: db}
}

const batchColumns = `id, size, sent, errored, created_at, updated_at`

func (r *emailQueueRepository) CreateBatch(ctx context.Context, emails []*domain.Email, priority domain.Priority) (*domain.EmailBatch, error) {
	batch := &domain.EmailBatch{}
	err := withinTx(ctx, r.DB, func(ctx context.Context) error {
		q := conn(ctx, r.DB)
		err := q.QueryRowContext(ctx, `INSERT INTO email_batches (size) VALUES ($1) RETURNING `+batchColumns, len(emails)).
			Scan(&batch.ID, &batch.Size, &batch.Sent, &batch.Errored, &batch.CreatedAt, &batch.UpdatedAt)
		if err != nil {
			return err
		}
		for _, e := range emails {
			e.BatchID = batch.ID
			err := q.QueryRowContext(ctx, `
				INSERT INTO emails (kind, user_id, address, post_id, list_id, event_id, notification_id,
					subject, body_html, body_text, batch_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				RETURNING id, created_at
			`, string(e.Kind), nullInt64(e.UserID), e.Address, nullInt64(e.PostID), nullInt64(e.ListID),
				nullInt64(e.EventID), nullInt64(e.NotificationID), e.Subject, e.HTMLBody, e.TextBody, e.BatchID,
			).Scan(&e.ID, &e.CreatedAt)
			if err != nil {
				return err
			}
		}
		query := `INSERT INTO email_queue (batch_id, position) SELECT $1, COALESCE(MAX(position) + 1, 0) FROM email_queue`
		if priority == domain.PriorityHigh {
			query = `INSERT INTO email_queue (batch_id, position) SELECT $1, COALESCE(MIN(position) - 1, 0) FROM email_queue`
		}
		_, err = q.ExecContext(ctx, query, batch.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *emailQueueRepository) Next(ctx context.Context) (*domain.Email, error) {
	query := `SELECT ` + emailColumns + `
		FROM email_queue q
		JOIN emails e ON e.batch_id = q.batch_id
		WHERE e.sent_at IS NULL AND e.errored_at IS NULL
		ORDER BY q.position, e.id
		LIMIT 1`
	return scanEmail(conn(ctx, r.DB).QueryRowContext(ctx, query))
}

func (r *emailQueueRepository) MarkSent(ctx context.Context, email *domain.Email) (*domain.EmailBatch, error) {
	return r.finish(ctx, email,
		`UPDATE emails SET sent_at = NOW() WHERE id = $1 AND sent_at IS NULL AND errored_at IS NULL`,
		[]any{email.ID},
		`UPDATE email_batches SET sent = sent + 1, updated_at = NOW() WHERE id = $1 RETURNING `+batchColumns)
}

func (r *emailQueueRepository) MarkErrored(ctx context.Context, email *domain.Email, reason string) (*domain.EmailBatch, error) {
	return r.finish(ctx, email,
		`UPDATE emails SET errored_at = NOW(), error = $2 WHERE id = $1 AND sent_at IS NULL AND errored_at IS NULL`,
		[]any{email.ID, reason},
		`UPDATE email_batches SET errored = errored + 1, updated_at = NOW() WHERE id = $1 RETURNING `+batchColumns)
}

// finish marks one email attempted, bumps the matching batch counter and dequeues
// the batch once every email was attempted. A repeated call returns a nil batch.
func (r *emailQueueRepository) finish(ctx context.Context, email *domain.Email, markQuery string, markArgs []any, bumpQuery string) (*domain.EmailBatch, error) {
	var batch *domain.EmailBatch
	err := withinTx(ctx, r.DB, func(ctx context.Context) error {
		q := conn(ctx, r.DB)
		res, err := q.ExecContext(ctx, markQuery, markArgs...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		b := &domain.EmailBatch{}
		if err := q.QueryRowContext(ctx, bumpQuery, email.BatchID).
			Scan(&b.ID, &b.Size, &b.Sent, &b.Errored, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return err
		}
		if b.Done() {
			if _, err := q.ExecContext(ctx, `DELETE FROM email_queue WHERE batch_id = $1`, b.ID); err != nil {
				return err
			}
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *emailQueueRepository) ListBatches(ctx context.Context, params domain.PaginationParams) ([]*domain.EmailBatch, int, error) {
	q := conn(ctx, r.DB)
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_batches`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.QueryContext(ctx, `SELECT `+batchColumns+` FROM email_batches ORDER BY id DESC LIMIT $1 OFFSET $2`,
		params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	batches := make([]*domain.EmailBatch, 0)
	for rows.Next() {
		b := &domain.EmailBatch{}
		if err := rows.Scan(&b.ID, &b.Size, &b.Sent, &b.Errored, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		batches = append(batches, b)
	}
	return batches, total, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"townhall/internal/domain"
)

type rsvpSessionRepository struct {
	DB *sql.DB
}

func NewRsvpSessionRepository(db *sql.DB) domain.RsvpSessionRepository {
	return &rsvpSessionRepository{DB: db}
}

const rsvpSessionColumns = `id, event_id, token, status, first_name, last_name, email, user_id,
	payment_client_secret, payment_intent_id, created_at, updated_at`

func (r *rsvpSessionRepository) Create(ctx context.Context, s *domain.RsvpSession) error {
	query := `
		INSERT INTO rsvp_sessions (event_id, token, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	if s.Status == "" {
		s.Status = domain.RsvpPending
	}
	return conn(ctx, r.DB).QueryRowContext(ctx, query, s.EventID, s.Token, string(s.Status)).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *rsvpSessionRepository) GetByToken(ctx context.Context, token string) (*domain.RsvpSession, error) {
	query := `SELECT ` + rsvpSessionColumns + ` FROM rsvp_sessions WHERE token = $1`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, token)
	if err != nil {
		return nil, err
	}
	return firstSession(rows)
}

func (r *rsvpSessionRepository) GetByID(ctx context.Context, id int64) (*domain.RsvpSession, error) {
	query := `SELECT ` + rsvpSessionColumns + ` FROM rsvp_sessions WHERE id = $1`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	return firstSession(rows)
}

func (r *rsvpSessionRepository) FindOthersByEmail(ctx context.Context, eventID int64, email string, excludeID int64) ([]*domain.RsvpSession, error) {
	query := `SELECT ` + rsvpSessionColumns + `
		FROM rsvp_sessions
		WHERE event_id = $1 AND lower(email) = lower($2) AND id <> $3
		ORDER BY id`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, eventID, email, excludeID)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

func (r *rsvpSessionRepository) SetContact(ctx context.Context, s *domain.RsvpSession) error {
	query := `
		UPDATE rsvp_sessions
		SET first_name = $1, last_name = $2, email = $3, user_id = $4, updated_at = NOW()
		WHERE id = $5 AND status = 'pending'
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, s.FirstName, s.LastName, s.Email, nullInt64(s.UserID), s.ID)
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return &domain.ConflictError{Code: domain.CodeCurrentlyRsvping, Email: s.Email}
		}
		return err
	}
	return expectOneRow(res, domain.ErrSessionPaid)
}

func (r *rsvpSessionRepository) SetClientSecret(ctx context.Context, id int64, clientSecret string) error {
	query := `
		UPDATE rsvp_sessions
		SET payment_client_secret = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, clientSecret, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, domain.ErrSessionPaid)
}

func (r *rsvpSessionRepository) Touch(ctx context.Context, id int64) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx, `UPDATE rsvp_sessions SET updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *rsvpSessionRepository) MarkPaid(ctx context.Context, id int64, paymentIntentID string) (bool, error) {
	changed := false
	err := withinTx(ctx, r.DB, func(ctx context.Context) error {
		q := conn(ctx, r.DB)
		// Same lock as the RSVP steps, so a payment never lands between a
		// supersede's read and its delete.
		var eventID int64
		err := q.QueryRowContext(ctx, `
			SELECT e.id FROM events e
			JOIN rsvp_sessions s ON s.event_id = e.id
			WHERE s.id = $1
			FOR UPDATE OF e
		`, id).Scan(&eventID)
		if err != nil {
			if errNoRows(err) {
				return nil
			}
			return err
		}
		res, err := q.ExecContext(ctx, `
			UPDATE rsvp_sessions
			SET status = 'paid', payment_intent_id = $1, updated_at = NOW()
			WHERE id = $2 AND status = 'pending'
		`, nullString(paymentIntentID), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := q.ExecContext(ctx, `UPDATE rsvps SET status = 'paid' WHERE session_id = $1`, id); err != nil {
			if pqErr, ok := isUniqueViolation(err); ok {
				return &domain.ConflictError{Code: domain.CodeAlreadyRsvped, Email: pqErr.Detail}
			}
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// DeletePending removes a pending session; its Rsvps go with it through the
// foreign key cascade. A paid session is never touched.
func (r *rsvpSessionRepository) DeletePending(ctx context.Context, id int64) (bool, error) {
	res, err := conn(ctx, r.DB).ExecContext(ctx,
		`DELETE FROM rsvp_sessions WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *rsvpSessionRepository) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := conn(ctx, r.DB).ExecContext(ctx,
		`DELETE FROM rsvp_sessions WHERE status = 'pending' AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func firstSession(rows *sql.Rows) (*domain.RsvpSession, error) {
	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return sessions[0], nil
}

func scanSessions(rows *sql.Rows) ([]*domain.RsvpSession, error) {
	defer rows.Close()
	sessions := make([]*domain.RsvpSession, 0)
	for rows.Next() {
		s := &domain.RsvpSession{}
		var status string
		var first, last, email, secret, intent sql.NullString
		var userID sql.NullInt64
		if err := rows.Scan(&s.ID, &s.EventID, &s.Token, &status, &first, &last, &email, &userID,
			&secret, &intent, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Status = domain.RsvpStatus(status)
		s.FirstName = first.String
		s.LastName = last.String
		s.Email = email.String
		s.UserID = int64Ptr(userID)
		s.PaymentClientSecret = secret.String
		s.PaymentIntentID = intent.String
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func expectOneRow(res sql.Result, zeroErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return zeroErr
	}
	return nil
}

// errNoRows reports whether err is the database/sql no rows sentinel.
func errNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

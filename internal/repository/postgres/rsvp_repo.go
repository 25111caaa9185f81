package postgres

import (
	"context"
	"database/sql"

	"townhall/internal/domain"
)

type rsvpRepository struct {
	DB *sql.DB
}

// NewRsvpRepository returns a domain.RsvpRepository implemented with Postgres.
func NewRsvpRepository(db *sql.DB) domain.RsvpRepository {
	return &rsvpRepository{DB: db}
}

const rsvpColumns = `id, event_id, spot_id, session_id, contribution, status, first_name, last_name, email,
	user_id, checkin_at, created_at`

// ListByEventID returns every held seat of the event, pending and paid.
func (r *rsvpRepository) ListByEventID(ctx context.Context, eventID int64) ([]*domain.Rsvp, error) {
	query := `SELECT ` + rsvpColumns + ` FROM rsvps WHERE event_id = $1 ORDER BY id`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	return scanRsvps(rows)
}

func (r *rsvpRepository) ListBySessionID(ctx context.Context, sessionID int64) ([]*domain.Rsvp, error) {
	query := `SELECT ` + rsvpColumns + ` FROM rsvps WHERE session_id = $1 ORDER BY id`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	return scanRsvps(rows)
}

func (r *rsvpRepository) FindHeldByEmail(ctx context.Context, eventID int64, email string, excludeSessionID int64) (*domain.Rsvp, error) {
	query := `SELECT ` + rsvpColumns + `
		FROM rsvps
		WHERE event_id = $1 AND lower(email) = lower($2) AND session_id <> $3
		ORDER BY (status = 'paid') DESC, id
		LIMIT 1`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, eventID, email, excludeSessionID)
	if err != nil {
		return nil, err
	}
	rsvps, err := scanRsvps(rows)
	if err != nil {
		return nil, err
	}
	if len(rsvps) == 0 {
		return nil, domain.ErrNotFound
	}
	return rsvps[0], nil
}

func (r *rsvpRepository) Create(ctx context.Context, rsvp *domain.Rsvp) error {
	query := `
		INSERT INTO rsvps (event_id, spot_id, session_id, contribution, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if rsvp.Status == "" {
		rsvp.Status = domain.RsvpPending
	}
	return conn(ctx, r.DB).QueryRowContext(ctx, query,
		rsvp.EventID, rsvp.SpotID, rsvp.SessionID, rsvp.Contribution, string(rsvp.Status),
	).Scan(&rsvp.ID, &rsvp.CreatedAt)
}

func (r *rsvpRepository) SetAttendee(ctx context.Context, rsvp *domain.Rsvp) error {
	query := `
		UPDATE rsvps
		SET first_name = $1, last_name = $2, email = $3, user_id = $4
		WHERE id = $5 AND status = 'pending'
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query,
		rsvp.FirstName, rsvp.LastName, rsvp.Email, nullInt64(rsvp.UserID), rsvp.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, domain.ErrNotFound)
}

// DeletePendingBySessionID is idempotent; paid rows are never touched.
func (r *rsvpRepository) DeletePendingBySessionID(ctx context.Context, sessionID int64) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx,
		`DELETE FROM rsvps WHERE session_id = $1 AND status = 'pending'`, sessionID)
	return err
}

func scanRsvps(rows *sql.Rows) ([]*domain.Rsvp, error) {
	defer rows.Close()
	rsvps := make([]*domain.Rsvp, 0)
	for rows.Next() {
		rsvp := &domain.Rsvp{}
		var status string
		var first, last, email sql.NullString
		var userID sql.NullInt64
		var checkin sql.NullTime
		if err := rows.Scan(&rsvp.ID, &rsvp.EventID, &rsvp.SpotID, &rsvp.SessionID, &rsvp.Contribution, &status,
			&first, &last, &email, &userID, &checkin, &rsvp.CreatedAt); err != nil {
			return nil, err
		}
		rsvp.Status = domain.RsvpStatus(status)
		rsvp.FirstName = first.String
		rsvp.LastName = last.String
		rsvp.Email = email.String
		rsvp.UserID = int64Ptr(userID)
		rsvp.CheckinAt = timePtr(checkin)
		rsvps = append(rsvps, rsvp)
	}
	return rsvps, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"

	"townhall/internal/domain"
)

type emailRepository struct {
	DB *sql.DB
}

func NewEmailRepository(db *sql.DB) domain.EmailRepository {
	return &emailRepository{DB: db}
}

const emailColumns = `e.id, e.kind, e.user_id, e.address, e.post_id, e.list_id, e.event_id, e.notification_id,
	e.subject, e.body_html, e.body_text, e.sent_at, e.errored_at, e.error, e.opened_at, e.batch_id, e.created_at`

func (r *emailRepository) GetByID(ctx context.Context, id int64) (*domain.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails e WHERE e.id = $1`
	return scanEmail(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
}

func (r *emailRepository) ExistsForPost(ctx context.Context, address string, postID, listID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM emails
			WHERE lower(address) = lower($1) AND post_id = $2 AND list_id = $3
		)
	`
	var ok bool
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, address, postID, listID).Scan(&ok)
	return ok, err
}

// MarkOpened records the first open only.
func (r *emailRepository) MarkOpened(ctx context.Context, id int64) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx,
		`UPDATE emails SET opened_at = NOW() WHERE id = $1 AND opened_at IS NULL`, id)
	return err
}

func scanEmail(row *sql.Row) (*domain.Email, error) {
	e := &domain.Email{}
	var kind string
	var userID, postID, listID, eventID, notificationID sql.NullInt64
	var sentAt, erroredAt, openedAt sql.NullTime
	var errMsg sql.NullString
	err := row.Scan(&e.ID, &kind, &userID, &e.Address, &postID, &listID, &eventID, &notificationID,
		&e.Subject, &e.HTMLBody, &e.TextBody, &sentAt, &erroredAt, &errMsg, &openedAt, &e.BatchID, &e.CreatedAt)
	if err != nil {
		if errNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	e.Kind = domain.EmailKind(kind)
	e.UserID = int64Ptr(userID)
	e.PostID = int64Ptr(postID)
	e.ListID = int64Ptr(listID)
	e.EventID = int64Ptr(eventID)
	e.NotificationID = int64Ptr(notificationID)
	e.SentAt = timePtr(sentAt)
	e.ErroredAt = timePtr(erroredAt)
	e.OpenedAt = timePtr(openedAt)
	e.Error = errMsg.String
	return e, nil
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"townhall/internal/domain"
)

type listRepository struct {
	DB *sql.DB
}

func NewListRepository(db *sql.DB) domain.ListRepository {
	return &listRepository{DB: db}
}

func (r *listRepository) Create(ctx context.Context, l *domain.List) error {
	query := `
		INSERT INTO lists (name, description)
		VALUES ($1, $2)
		RETURNING id
	`
	return conn(ctx, r.DB).QueryRowContext(ctx, query, l.Name, l.Description).Scan(&l.ID)
}

func (r *listRepository) GetByID(ctx context.Context, id int64) (*domain.List, error) {
	l := &domain.List{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, `SELECT id, name, description FROM lists WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Description)
	if err != nil {
		if errNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *listRepository) IsMember(ctx context.Context, listID int64, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM list_members WHERE list_id = $1 AND lower(email) = lower($2)
		)
	`
	var ok bool
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, listID, email).Scan(&ok)
	return ok, err
}

func (r *listRepository) ListMembers(ctx context.Context, listID int64) ([]*domain.ListMember, error) {
	query := `
		SELECT list_id, email, user_id
		FROM list_members
		WHERE list_id = $1
		ORDER BY lower(email)
	`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]*domain.ListMember, 0)
	for rows.Next() {
		m := &domain.ListMember{}
		var userID sql.NullInt64
		if err := rows.Scan(&m.ListID, &m.Email, &userID); err != nil {
			return nil, err
		}
		m.UserID = int64Ptr(userID)
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMembers links each address to an existing user when there is one. Addresses
// already on the list are skipped.
func (r *listRepository) AddMembers(ctx context.Context, listID int64, emails []string) error {
	if len(emails) == 0 {
		return nil
	}
	query := `
		INSERT INTO list_members (list_id, email, user_id)
		SELECT $1, e.email, u.id
		FROM unnest($2::text[]) AS e(email)
		LEFT JOIN users u ON lower(u.email) = lower(e.email)
		ON CONFLICT DO NOTHING
	`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, listID, pq.Array(emails))
	return err
}

func (r *listRepository) RemoveMember(ctx context.Context, listID int64, email string) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx,
		`DELETE FROM list_members WHERE list_id = $1 AND lower(email) = lower($2)`, listID, email)
	return err
}

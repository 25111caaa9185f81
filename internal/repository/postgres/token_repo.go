package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"townhall/internal/domain"
)

type loginTokenRepository struct {
	DB *sql.DB
}

// NewLoginTokenRepository returns a domain.LoginTokenRepository implemented with Postgres.
func NewLoginTokenRepository(db *sql.DB) domain.LoginTokenRepository {
	return &loginTokenRepository{DB: db}
}

func (r *loginTokenRepository) Create(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO login_tokens (email, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, email, tokenHash, expiresAt)
	return err
}

func (r *loginTokenRepository) Peek(ctx context.Context, tokenHash string) (*domain.LoginToken, error) {
	query := `
		SELECT id, email, token_hash, expires_at, used_at
		FROM login_tokens
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > NOW()
	`
	return scanLoginToken(conn(ctx, r.DB).QueryRowContext(ctx, query, tokenHash))
}

// Consume marks the token used in a single statement so two concurrent
// exchanges cannot both succeed.
func (r *loginTokenRepository) Consume(ctx context.Context, tokenHash string) (*domain.LoginToken, error) {
	query := `
		UPDATE login_tokens
		SET used_at = NOW()
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > NOW()
		RETURNING id, email, token_hash, expires_at, used_at
	`
	return scanLoginToken(conn(ctx, r.DB).QueryRowContext(ctx, query, tokenHash))
}

func scanLoginToken(row *sql.Row) (*domain.LoginToken, error) {
	t := &domain.LoginToken{}
	var used sql.NullTime
	if err := row.Scan(&t.ID, &t.Email, &t.TokenHash, &t.ExpiresAt, &used); err != nil {
		if errNoRows(err) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	t.UsedAt = timePtr(used)
	return t, nil
}

type sessionTokenRepository struct {
	DB *sql.DB
}

// NewSessionTokenRepository returns a domain.SessionTokenRepository implemented with Postgres.
func NewSessionTokenRepository(db *sql.DB) domain.SessionTokenRepository {
	return &sessionTokenRepository{DB: db}
}

func (r *sessionTokenRepository) Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO session_tokens (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, tokenHash, userID, expiresAt)
	return err
}

func (r *sessionTokenRepository) GetUser(ctx context.Context, tokenHash string) (*domain.User, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, u.phone, u.version, u.created_at, u.updated_at,
			COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
		FROM session_tokens st
		JOIN users u ON u.id = st.user_id
		LEFT JOIN user_roles r ON r.user_id = u.id
		WHERE st.token_hash = $1 AND st.expires_at > NOW()
		GROUP BY u.id
	`
	u, err := scanUser(conn(ctx, r.DB).QueryRowContext(ctx, query, tokenHash))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidToken
	}
	return u, err
}

func (r *sessionTokenRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx, `DELETE FROM session_tokens WHERE token_hash = $1`, tokenHash)
	return err
}

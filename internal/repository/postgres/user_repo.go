package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"townhall/internal/domain"
)

const foreignKeyViolation = "23503"

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

const userSelect = `
	SELECT u.id, u.email, u.first_name, u.last_name, u.phone, u.version, u.created_at, u.updated_at,
		COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_roles r ON r.user_id = u.id`

// Create inserts the user and its first history row.
func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	return withinTx(ctx, r.DB, func(ctx context.Context) error {
		q := conn(ctx, r.DB)
		u.Version = 1
		err := q.QueryRowContext(ctx, `
			INSERT INTO users (email, first_name, last_name, phone, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, u.Email, u.FirstName, u.LastName, u.Phone, u.Version, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
		if err != nil {
			if _, ok := isUniqueViolation(err); ok {
				return domain.ErrDuplicateEmail
			}
			return err
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO user_history (user_id, version, email, first_name, last_name, phone)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, u.ID, u.Version, u.Email, u.FirstName, u.LastName, u.Phone)
		return err
	})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := userSelect + `
	WHERE lower(u.email) = lower($1)
	GROUP BY u.id`
	return scanUser(conn(ctx, r.DB).QueryRowContext(ctx, query, email))
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := userSelect + `
	WHERE u.id = $1
	GROUP BY u.id`
	return scanUser(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
}

// Update appends the new state to user_history, then rewrites the users row with
// the new version.
func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	return withinTx(ctx, r.DB, func(ctx context.Context) error {
		q := conn(ctx, r.DB)
		var version int
		err := q.QueryRowContext(ctx, `
			INSERT INTO user_history (user_id, version, email, first_name, last_name, phone)
			SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3, $4, $5
			FROM user_history
			WHERE user_id = $1
			RETURNING version
		`, u.ID, u.Email, u.FirstName, u.LastName, u.Phone).Scan(&version)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
				return domain.ErrUserNotFound
			}
			return err
		}
		res, err := q.ExecContext(ctx, `
			UPDATE users
			SET email = $1, first_name = $2, last_name = $3, phone = $4, version = $5, updated_at = $6
			WHERE id = $7
		`, u.Email, u.FirstName, u.LastName, u.Phone, version, u.UpdatedAt, u.ID)
		if err != nil {
			if _, ok := isUniqueViolation(err); ok {
				return domain.ErrDuplicateEmail
			}
			return err
		}
		if err := expectOneRow(res, domain.ErrUserNotFound); err != nil {
			return err
		}
		u.Version = version
		return nil
	})
}

func (r *userRepository) AssignRole(ctx context.Context, userID int64, role string) error {
	query := `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING
	`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, userID, role)
	return err
}

func (r *userRepository) ListRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := make([]string, 0)
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func scanUser(row *sql.Row) (*domain.User, error) {
	u := &domain.User{}
	var roles pq.StringArray
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Version,
		&u.CreatedAt, &u.UpdatedAt, &roles)
	if err != nil {
		if errNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	u.Roles = []string(roles)
	return u, nil
}

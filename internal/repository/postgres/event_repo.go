package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"townhall/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, slug, title, description, starts_at, ends_at, capacity, unlisted, guest_list_id`

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (slug, title, description, starts_at, ends_at, capacity, unlisted, guest_list_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return conn(ctx, r.DB).QueryRowContext(ctx, query,
		strings.ToLower(strings.TrimSpace(e.Slug)), e.Title, e.Description, e.StartsAt, e.EndsAt,
		e.Capacity, e.Unlisted, nullInt64(e.GuestListID),
	).Scan(&e.ID)
}

func (r *eventRepository) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slug = $1`
	return scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(slug))))
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
}

func (r *eventRepository) LockByID(ctx context.Context, id int64) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
}

func scanEvent(row *sql.Row) (*domain.Event, error) {
	e := &domain.Event{}
	var guestList sql.NullInt64
	err := row.Scan(&e.ID, &e.Slug, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt,
		&e.Capacity, &e.Unlisted, &guestList)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	e.GuestListID = int64Ptr(guestList)
	return e, nil
}

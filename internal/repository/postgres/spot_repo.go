package postgres

import (
	"context"
	"database/sql"

	"townhall/internal/domain"
)

type spotRepository struct {
	DB *sql.DB
}

func NewSpotRepository(db *sql.DB) domain.SpotRepository {
	return &spotRepository{DB: db}
}

func (r *spotRepository) Create(ctx context.Context, s *domain.Spot) error {
	query := `
		INSERT INTO spots (name, description, qty_total, qty_per_person, kind,
			required_contribution, min_contribution, max_contribution, suggested_contribution, required_notice_hours)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	var notice sql.NullInt32
	if s.RequiredNoticeHours != nil {
		notice = sql.NullInt32{Int32: int32(*s.RequiredNoticeHours), Valid: true}
	}
	return conn(ctx, r.DB).QueryRowContext(ctx, query,
		s.Name, s.Description, s.QtyTotal, s.QtyPerPerson, string(s.Kind),
		nullInt64(s.RequiredContribution), nullInt64(s.MinContribution), nullInt64(s.MaxContribution),
		nullInt64(s.SuggestedContribution), notice,
	).Scan(&s.ID)
}

func (r *spotRepository) ListByEventID(ctx context.Context, eventID int64) ([]*domain.Spot, error) {
	query := `
		SELECT s.id, s.name, s.description, s.qty_total, s.qty_per_person, s.kind,
			s.required_contribution, s.min_contribution, s.max_contribution, s.suggested_contribution,
			s.required_notice_hours
		FROM spots s
		JOIN event_spots es ON es.spot_id = s.id
		WHERE es.event_id = $1
		ORDER BY s.id
	`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	spots := make([]*domain.Spot, 0)
	for rows.Next() {
		s := &domain.Spot{}
		var kind string
		var required, min, max, suggested sql.NullInt64
		var notice sql.NullInt32
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.QtyTotal, &s.QtyPerPerson, &kind,
			&required, &min, &max, &suggested, &notice); err != nil {
			return nil, err
		}
		s.Kind = domain.SpotKind(kind)
		s.RequiredContribution = int64Ptr(required)
		s.MinContribution = int64Ptr(min)
		s.MaxContribution = int64Ptr(max)
		s.SuggestedContribution = int64Ptr(suggested)
		if notice.Valid {
			h := int(notice.Int32)
			s.RequiredNoticeHours = &h
		}
		spots = append(spots, s)
	}
	return spots, rows.Err()
}

func (r *spotRepository) Attach(ctx context.Context, eventID, spotID int64) error {
	query := `
		INSERT INTO event_spots (event_id, spot_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, eventID, spotID)
	return err
}

// Detach removes the association only; the spot row is kept.
func (r *spotRepository) Detach(ctx context.Context, eventID, spotID int64) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx, `DELETE FROM event_spots WHERE event_id = $1 AND spot_id = $2`, eventID, spotID)
	return err
}

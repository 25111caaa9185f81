package domain

import (
	"context"
	"time"
)

// Event is a time-bounded happening with a finite capacity.
// swagger:model Event
type Event struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
	Unlisted    bool      `json:"unlisted"`
	GuestListID *int64    `json:"guest_list_id,omitempty"`
}

// SpotKind classifies how a spot is paid for.
type SpotKind string

const (
	SpotFree     SpotKind = "free"
	SpotFixed    SpotKind = "fixed"
	SpotVariable SpotKind = "variable"
	SpotWork     SpotKind = "work"
)

// Spot is a bookable class within one or more events.
// swagger:model Spot
type Spot struct {
	ID                    int64    `json:"id"`
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	QtyTotal              int      `json:"qty_total"`
	QtyPerPerson          int      `json:"qty_per_person"`
	Kind                  SpotKind `json:"kind"`
	RequiredContribution  *int64   `json:"required_contribution,omitempty"`
	MinContribution       *int64   `json:"min_contribution,omitempty"`
	MaxContribution       *int64   `json:"max_contribution,omitempty"`
	SuggestedContribution *int64   `json:"suggested_contribution,omitempty"`
	RequiredNoticeHours   *int     `json:"required_notice_hours,omitempty"`
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetBySlug(ctx context.Context, slug string) (*Event, error)
	GetByID(ctx context.Context, id int64) (*Event, error)
	// LockByID reloads the event with a row lock held until the transaction ends.
	LockByID(ctx context.Context, id int64) (*Event, error)
}

// SpotRepository defines the interface for spots and their event association.
type SpotRepository interface {
	Create(ctx context.Context, spot *Spot) error
	ListByEventID(ctx context.Context, eventID int64) ([]*Spot, error)
	Attach(ctx context.Context, eventID, spotID int64) error
	Detach(ctx context.Context, eventID, spotID int64) error
}

// EventView is the public event page model.
type EventView struct {
	Event *Event      `json:"event"`
	Spots []*Spot     `json:"spots"`
	Stats *EventStats `json:"stats"`
}

// EventService exposes the public event page.
type EventService interface {
	GetBySlug(ctx context.Context, slug string) (*EventView, error)
}

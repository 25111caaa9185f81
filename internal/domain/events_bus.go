package domain

import (
	"context"
	"time"
)

// Subjects published on the event bus.
const (
	SubjectRsvpPaid          = "rsvp.paid"
	SubjectEmailBatchUpdated = "email.batch.updated"
)

// EventPublisher publishes domain events to other services.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

// RsvpPaidEvent is published once per session when it becomes paid.
type RsvpPaidEvent struct {
	SessionID int64     `json:"session_id"`
	EventID   int64     `json:"event_id"`
	Email     string    `json:"email"`
	Seats     int       `json:"seats"`
	Total     int64     `json:"total"`
	PaidAt    time.Time `json:"paid_at"`
}

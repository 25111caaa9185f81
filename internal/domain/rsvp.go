package domain

import (
	"context"
	"time"
)

// RsvpStatus is shared by sessions and the Rsvps they own.
type RsvpStatus string

const (
	RsvpPending RsvpStatus = "pending"
	RsvpPaid    RsvpStatus = "paid"
)

// RsvpStep names a page of the RSVP flow.
type RsvpStep string

const (
	StepSelection    RsvpStep = "selection"
	StepAttendees    RsvpStep = "attendees"
	StepContribution RsvpStep = "contribution"
	StepManage       RsvpStep = "manage"
)

// RsvpSession is the continuation record of one checkout attempt.
// swagger:model RsvpSession
type RsvpSession struct {
	ID                  int64      `json:"id"`
	EventID             int64      `json:"event_id"`
	Token               string     `json:"token"`
	Status              RsvpStatus `json:"status"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	Email               string     `json:"email"`
	UserID              *int64     `json:"user_id,omitempty"`
	PaymentClientSecret string     `json:"-"`
	PaymentIntentID     string     `json:"payment_intent_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasContact reports whether the attendees step has set the purchaser.
func (s *RsvpSession) HasContact() bool { return s.Email != "" }

// Paid reports whether the session reached its terminal state.
func (s *RsvpSession) Paid() bool { return s.Status == RsvpPaid }

// RendezvousKey is the name webhook handlers notify when the session is paid.
func (s *RsvpSession) RendezvousKey() string { return RsvpSessionRendezvousKey(s.ID) }

// Rsvp is one held seat.
// swagger:model Rsvp
type Rsvp struct {
	ID           int64      `json:"id"`
	EventID      int64      `json:"event_id"`
	SpotID       int64      `json:"spot_id"`
	SessionID    int64      `json:"session_id"`
	Contribution int64      `json:"contribution"`
	Status       RsvpStatus `json:"status"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Email        string     `json:"email,omitempty"`
	UserID       *int64     `json:"user_id,omitempty"`
	CheckinAt    *time.Time `json:"checkin_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// SpotStat is one labelled figure shown next to a variable spot.
type SpotStat struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// EventStats is availability as seen from one viewing session.
// swagger:model EventStats
type EventStats struct {
	RemainingCapacity int                  `json:"remaining_capacity"`
	RemainingSpots    map[int64]int        `json:"remaining_spots"`
	SpotStats         map[int64][]SpotStat `json:"spot_stats"`
}

// SelectionItem is one row of a posted selection.
type SelectionItem struct {
	SpotID       int64  `json:"spot_id" validate:"required"`
	Qty          int    `json:"qty"`
	Contribution *int64 `json:"contribution,omitempty"`
}

// AttendeeInput names the holder of one pending Rsvp.
type AttendeeInput struct {
	RsvpID    int64  `json:"rsvp_id" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,mailbox"`
	IsMe      bool   `json:"is_me"`
}

// SelectionView is the model of the selection page.
type SelectionView struct {
	Event   *Event      `json:"event"`
	Spots   []*Spot     `json:"spots"`
	Stats   *EventStats `json:"stats"`
	Current []*Rsvp     `json:"current"`
	Token   string      `json:"session"`
}

// AttendeesView is the model of the attendees page.
type AttendeesView struct {
	Event *Event           `json:"event"`
	Spots map[int64]string `json:"spots"`
	Rsvps []*Rsvp          `json:"rsvps"`
	Token string           `json:"session"`
}

// ContributionView is the model of the review and pay page.
type ContributionView struct {
	Event          *Event     `json:"event"`
	LineItems      []LineItem `json:"line_items"`
	Total          int64      `json:"total"`
	ClientSecret   string     `json:"client_secret,omitempty"`
	PublishableKey string     `json:"publishable_key,omitempty"`
	Token          string     `json:"session"`
}

// ManageLine is one seat on the manage page.
type ManageLine struct {
	Spot         string `json:"spot"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Contribution int64  `json:"contribution"`
}

// ManageView is the model of the manage page.
type ManageView struct {
	Event  *Event       `json:"event"`
	Status RsvpStatus   `json:"status"`
	Lines  []ManageLine `json:"lines"`
}

// GuestListView is the model of the guest list email prompt.
type GuestListView struct {
	Event *Event `json:"event"`
}

// RsvpSessionRepository stores checkout sessions.
type RsvpSessionRepository interface {
	Create(ctx context.Context, session *RsvpSession) error
	GetByToken(ctx context.Context, token string) (*RsvpSession, error)
	GetByID(ctx context.Context, id int64) (*RsvpSession, error)
	// FindOthersByEmail lists sessions of the event with the given contact email, excluding excludeID.
	FindOthersByEmail(ctx context.Context, eventID int64, email string, excludeID int64) ([]*RsvpSession, error)
	SetContact(ctx context.Context, session *RsvpSession) error
	SetClientSecret(ctx context.Context, id int64, clientSecret string) error
	Touch(ctx context.Context, id int64) error
	// MarkPaid moves a pending session and its Rsvps to paid. It reports false when
	// the session was already paid.
	MarkPaid(ctx context.Context, id int64, paymentIntentID string) (bool, error)
	// DeletePending removes the session only while it is pending. It reports
	// false when the session is gone or already paid.
	DeletePending(ctx context.Context, id int64) (bool, error)
	DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RsvpRepository stores Rsvp rows.
type RsvpRepository interface {
	ListByEventID(ctx context.Context, eventID int64) ([]*Rsvp, error)
	ListBySessionID(ctx context.Context, sessionID int64) ([]*Rsvp, error)
	// FindHeldByEmail returns an Rsvp of the event held for email by a session other than excludeSessionID.
	FindHeldByEmail(ctx context.Context, eventID int64, email string, excludeSessionID int64) (*Rsvp, error)
	Create(ctx context.Context, rsvp *Rsvp) error
	SetAttendee(ctx context.Context, rsvp *Rsvp) error
	DeletePendingBySessionID(ctx context.Context, sessionID int64) error
}

// ConflictResolver supersedes or rejects duplicate RSVPs for an email. It must run
// inside the caller's transaction.
type ConflictResolver interface {
	Resolve(ctx context.Context, eventID, sessionID int64, email string) error
}

// RsvpService drives the multi-step RSVP flow.
type RsvpService interface {
	Start(ctx context.Context, slug string, viewer *User) (*RsvpSession, error)
	GuestList(ctx context.Context, slug string) (*GuestListView, error)
	StartFromGuestList(ctx context.Context, slug, email string) (*RsvpSession, error)
	Selection(ctx context.Context, slug, token string) (*SelectionView, error)
	SubmitSelection(ctx context.Context, slug, token string, viewer *User, items []SelectionItem) (RsvpStep, error)
	Attendees(ctx context.Context, slug, token string) (*AttendeesView, error)
	SubmitAttendees(ctx context.Context, slug, token string, attendees []AttendeeInput) error
	Contribution(ctx context.Context, slug, token string) (*ContributionView, error)
	ConfirmFree(ctx context.Context, slug, token string) error
	Manage(ctx context.Context, slug, token string) (*ManageView, error)
	Status(ctx context.Context, slug, token string) (RsvpStatus, error)
}

package domain

import (
	"context"
	"time"
)

// EmailKind says why an email was sent.
type EmailKind string

const (
	EmailLogin   EmailKind = "login"
	EmailPost    EmailKind = "post"
	EmailReceipt EmailKind = "receipt"
)

// Email is the record of one outbound message. Content is rendered when the
// email is created so that a restarted worker can send it as is.
// swagger:model Email
type Email struct {
	ID             int64      `json:"id"`
	Kind           EmailKind  `json:"kind"`
	UserID         *int64     `json:"user_id,omitempty"`
	Address        string     `json:"address"`
	PostID         *int64     `json:"post_id,omitempty"`
	ListID         *int64     `json:"list_id,omitempty"`
	EventID        *int64     `json:"event_id,omitempty"`
	NotificationID *int64     `json:"notification_id,omitempty"`
	Subject        string     `json:"subject"`
	HTMLBody       string     `json:"-"`
	TextBody       string     `json:"-"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErroredAt      *time.Time `json:"errored_at,omitempty"`
	Error          string     `json:"error,omitempty"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	BatchID        int64      `json:"batch_id"`
	CreatedAt      time.Time  `json:"created_at"`
}

// EmailBatch groups emails that share accounting counters.
// swagger:model EmailBatch
type EmailBatch struct {
	ID        int64     `json:"id"`
	Size      int       `json:"size"`
	Sent      int       `json:"sent"`
	Errored   int       `json:"errored"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether every email of the batch was attempted.
func (b *EmailBatch) Done() bool { return b.Sent+b.Errored >= b.Size }

// Priority selects the end of the queue a batch joins.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// LoginEmailData holds data for the login or registration link email.
type LoginEmailData struct {
	Email            string
	Link             string
	Registering      bool
	ExpiresInMinutes int
}

// ReceiptEmailData holds data for the RSVP confirmation email.
type ReceiptEmailData struct {
	FirstName string
	Event     *Event
	StartsAt  string
	Lines     []ManageLine
	Total     int64
	ManageURL string
}

// PostEmailData holds data for a post broadcast.
type PostEmailData struct {
	Post           *Post
	List           *List
	PostURL        string
	PixelURL       string
	UnsubscribeURL string
}

// EmailRepository stores email records.
type EmailRepository interface {
	GetByID(ctx context.Context, id int64) (*Email, error)
	ExistsForPost(ctx context.Context, address string, postID, listID int64) (bool, error)
	MarkOpened(ctx context.Context, id int64) error
}

// EmailQueueRepository persists batches and their queue positions.
type EmailQueueRepository interface {
	// CreateBatch inserts the batch and its emails, then enqueues it.
	CreateBatch(ctx context.Context, emails []*Email, priority Priority) (*EmailBatch, error)
	// Next returns the pending email with the smallest (position, id), or ErrNotFound.
	Next(ctx context.Context) (*Email, error)
	// MarkSent and MarkErrored update the email, bump the batch counter and dequeue a
	// finished batch in one transaction. They are no-ops for an already attempted email.
	MarkSent(ctx context.Context, email *Email) (*EmailBatch, error)
	MarkErrored(ctx context.Context, email *Email, reason string) (*EmailBatch, error)
	ListBatches(ctx context.Context, params PaginationParams) ([]*EmailBatch, int, error)
}

// EmailQueue accepts new batches and wakes the sender.
type EmailQueue interface {
	Enqueue(ctx context.Context, emails []*Email, priority Priority) (*EmailBatch, error)
}

// EmailService composes the application's emails and queues them.
type EmailService interface {
	SendLoginLink(ctx context.Context, data *LoginEmailData, userID *int64) error
	SendReceipt(ctx context.Context, session *RsvpSession) error
	BroadcastPost(ctx context.Context, postID, listID int64) (*EmailBatch, error)
	ListBatches(ctx context.Context, params PaginationParams) ([]*EmailBatch, int, error)
	TrackOpen(ctx context.Context, emailID int64) error
	UnsubscribeInfo(ctx context.Context, emailID int64, token string) (*Email, error)
	Unsubscribe(ctx context.Context, emailID int64, token string) error
}

// EmailFinalizer fills in the parts of a stored email that depend on its id,
// such as tracking and unsubscribe links. The worker calls it before sending.
type EmailFinalizer interface {
	Finalize(email *Email) error
}

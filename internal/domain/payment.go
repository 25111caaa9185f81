package domain

import "context"

// LineItem is one priced row of a checkout. UnitPrice is in whole currency units.
type LineItem struct {
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// CheckoutRequest describes an embedded checkout for one RSVP session.
type CheckoutRequest struct {
	SessionID     int64
	CustomerEmail string
	LineItems     []LineItem
	ReturnURL     string
}

// CheckoutCompleted is the part of a checkout.session.completed payload we act on.
type CheckoutCompleted struct {
	ClientReferenceID string
	PaymentIntentID   string
	PaymentStatus     string
}

// WebhookEvent is a verified provider callback.
type WebhookEvent struct {
	ID                string
	Type              string
	CheckoutCompleted *CheckoutCompleted
}

// Webhook event types handled by the application.
const (
	WebhookCheckoutCompleted = "checkout.session.completed"
	PaymentStatusPaid        = "paid"
)

// PaymentGateway is the port to the external payment provider.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (clientSecret string, err error)
	// ParseWebhook verifies the signature header and decodes the event.
	// It returns ErrInvalidSignature when verification fails.
	ParseWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
	PublishableKey() string
}

// PaymentService reconciles provider callbacks with RSVP sessions.
type PaymentService interface {
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error
}

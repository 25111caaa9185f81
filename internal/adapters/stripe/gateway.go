// Package stripe adapts Stripe embedded checkout and webhooks to domain.PaymentGateway.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"townhall/internal/domain"
)

// Stripe refuses expires_at values less than 30 minutes out, so leave a margin.
const checkoutExpiry = 31 * time.Minute

// Config holds the Stripe keys.
type Config struct {
	SecretKey      string
	PublishableKey string
	WebhookKey     string
	// WebhookTolerance bounds the signed timestamp age. Zero disables the check.
	WebhookTolerance time.Duration
	// BackendURL overrides the API host, for tests.
	BackendURL string
	Timeout    time.Duration
}

// Gateway implements domain.PaymentGateway.
type Gateway struct {
	sessions *checkoutsession.Client
	cfg      Config
	now      func() time.Time
}

// NewGateway creates a Gateway with its own backend so that no package-level
// Stripe state is shared.
func NewGateway(cfg Config) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(1),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
		backendCfg.MaxNetworkRetries = stripe.Int64(0)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)
	return &Gateway{
		sessions: &checkoutsession.Client{B: backend, Key: cfg.SecretKey},
		cfg:      cfg,
		now:      time.Now,
	}
}

var _ domain.PaymentGateway = (*Gateway)(nil)

// PublishableKey returns the key the browser mounts checkout with.
func (g *Gateway) PublishableKey() string { return g.cfg.PublishableKey }

// CreateCheckout opens an embedded checkout session and returns its client secret.
func (g *Gateway) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	if len(req.LineItems) == 0 {
		return "", domain.NewValidationError(domain.CodeEmptySelection, "checkout needs at least one line item")
	}
	params := &stripe.CheckoutSessionParams{
		UIMode:             stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		Currency:           stripe.String(string(stripe.CurrencyUSD)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ExpiresAt:          stripe.Int64(g.now().Add(checkoutExpiry).Unix()),
		ClientReferenceID:  stripe.String(strconv.FormatInt(req.SessionID, 10)),
		ReturnURL:          stripe.String(req.ReturnURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(item.UnitPrice * 100),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}
	params.Context = ctx

	session, err := g.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	if session.ClientSecret == "" {
		return "", fmt.Errorf("checkout session %s has no client secret", session.ID)
	}
	return session.ClientSecret, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (g *Gateway) ParseWebhook(payload []byte, signatureHeader string) (*domain.WebhookEvent, error) {
	var err error
	if g.cfg.WebhookTolerance > 0 {
		err = webhook.ValidatePayloadWithTolerance(payload, signatureHeader, g.cfg.WebhookKey, g.cfg.WebhookTolerance)
	} else {
		err = webhook.ValidatePayloadIgnoringTolerance(payload, signatureHeader, g.cfg.WebhookKey)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.NewValidationError("payload", "malformed webhook payload")
	}
	out := &domain.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if out.Type != domain.WebhookCheckoutCompleted {
		return out, nil
	}
	if event.Data == nil {
		return nil, domain.NewValidationError("payload", "webhook event has no data")
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, domain.NewValidationError("payload", "malformed checkout session")
	}
	completed := &domain.CheckoutCompleted{
		ClientReferenceID: session.ClientReferenceID,
		PaymentStatus:     string(session.PaymentStatus),
	}
	if session.PaymentIntent != nil {
		completed.PaymentIntentID = session.PaymentIntent.ID
	}
	out.CheckoutCompleted = completed
	return out, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"townhall/internal/domain"
	"townhall/internal/metrics"
)

// Settler moves a session to paid and runs the follow-ups: the receipt email,
// the rendezvous notification and the rsvp.paid event. Follow-up failures are
// logged and never undo the payment.
type Settler struct {
	sessions   domain.RsvpSessionRepository
	rsvps      domain.RsvpRepository
	emails     domain.EmailService
	rendezvous domain.Rendezvous
	publisher  domain.EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewSettler creates a Settler.
func NewSettler(
	sessions domain.RsvpSessionRepository,
	rsvps domain.RsvpRepository,
	emails domain.EmailService,
	rendezvous domain.Rendezvous,
	publisher domain.EventPublisher,
	logger *slog.Logger,
) *Settler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Settler{
		sessions:   sessions,
		rsvps:      rsvps,
		emails:     emails,
		rendezvous: rendezvous,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// Settle is idempotent: a session that is already paid only wakes waiters.
func (s *Settler) Settle(ctx context.Context, sessionID int64, paymentIntentID string) error {
	changed, err := s.sessions.MarkPaid(ctx, sessionID, paymentIntentID)
	if err != nil {
		return fmt.Errorf("mark session paid: %w", err)
	}
	defer s.rendezvous.Notify(domain.RsvpSessionRendezvousKey(sessionID))
	if !changed {
		s.logger.InfoContext(ctx, "rsvp session already paid", "session_id", sessionID)
		return nil
	}
	metrics.RsvpPaid.Inc()
	metrics.RsvpTransitions.WithLabelValues(string(domain.StepManage)).Inc()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		s.logger.ErrorContext(ctx, "reload paid session", "session_id", sessionID, "err", err)
		return nil
	}
	if err := s.emails.SendReceipt(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "queue receipt", "session_id", sessionID, "err", err)
	}

	rsvps, err := s.rsvps.ListBySessionID(ctx, sessionID)
	if err != nil {
		s.logger.ErrorContext(ctx, "list paid rsvps", "session_id", sessionID, "err", err)
		return nil
	}
	evt := domain.RsvpPaidEvent{
		SessionID: session.ID,
		EventID:   session.EventID,
		Email:     session.Email,
		Seats:     len(rsvps),
		PaidAt:    s.now().UTC(),
	}
	for _, r := range rsvps {
		evt.Total += r.Contribution
	}
	if err := s.publisher.Publish(ctx, domain.SubjectRsvpPaid, evt); err != nil {
		s.logger.WarnContext(ctx, "publish rsvp.paid", "session_id", sessionID, "err", err)
	}
	return nil
}

type paymentService struct {
	gateway  domain.PaymentGateway
	sessions domain.RsvpSessionRepository
	settler  *Settler
	logger   *slog.Logger
}

// NewPaymentService creates the webhook handler service.
func NewPaymentService(gateway domain.PaymentGateway, sessions domain.RsvpSessionRepository, settler *Settler, logger *slog.Logger) domain.PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &paymentService{gateway: gateway, sessions: sessions, settler: settler, logger: logger}
}

// HandleWebhook verifies and applies a provider callback. Events other than a
// paid checkout completion are acknowledged without effect. A callback for an
// unknown session returns ErrNotFound.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	evt, err := s.gateway.ParseWebhook(payload, signatureHeader)
	if err != nil {
		return err
	}
	metrics.WebhookEvents.WithLabelValues(evt.Type).Inc()

	if evt.Type != domain.WebhookCheckoutCompleted || evt.CheckoutCompleted == nil {
		s.logger.DebugContext(ctx, "ignoring webhook event", "event_id", evt.ID, "type", evt.Type)
		return nil
	}
	completed := evt.CheckoutCompleted
	if completed.PaymentStatus != domain.PaymentStatusPaid {
		s.logger.InfoContext(ctx, "checkout completed without payment",
			"event_id", evt.ID, "payment_status", completed.PaymentStatus)
		return nil
	}

	sessionID, err := strconv.ParseInt(completed.ClientReferenceID, 10, 64)
	if err != nil {
		return domain.NewValidationError("client_reference_id", "client_reference_id is not a session id")
	}
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("session %d: %w", sessionID, domain.ErrNotFound)
		}
		return fmt.Errorf("get rsvp session: %w", err)
	}
	return s.settler.Settle(ctx, sessionID, completed.PaymentIntentID)
}

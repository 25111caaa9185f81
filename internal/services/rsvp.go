package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"townhall/internal/domain"
	"townhall/internal/metrics"
	"townhall/internal/validation"
)

// RsvpDeps groups the collaborators of the RSVP service.
type RsvpDeps struct {
	Tx         domain.TxManager
	Events     domain.EventRepository
	Spots      domain.SpotRepository
	Sessions   domain.RsvpSessionRepository
	Rsvps      domain.RsvpRepository
	Users      domain.UserRepository
	Lists      domain.ListRepository
	Conflicts  domain.ConflictResolver
	Gateway    domain.PaymentGateway
	Tokens     domain.TokenGenerator
	Rendezvous domain.Rendezvous
	Settler    *Settler
	Logger     *slog.Logger
}

// RsvpConfig holds the tunables of the RSVP flow.
type RsvpConfig struct {
	AppURL     string
	ManageWait time.Duration
}

type rsvpService struct {
	RsvpDeps
	cfg RsvpConfig
}

// NewRsvpService creates the RSVP session machine.
func NewRsvpService(deps RsvpDeps, cfg RsvpConfig) domain.RsvpService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &rsvpService{RsvpDeps: deps, cfg: cfg}
}

func (s *rsvpService) Start(ctx context.Context, slug string, viewer *domain.User) (*domain.RsvpSession, error) {
	event, err := s.Events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.GuestListID != nil {
		if viewer == nil {
			return nil, domain.ErrGuestListRequired
		}
		ok, err := s.Lists.IsMember(ctx, *event.GuestListID, viewer.Email)
		if err != nil {
			return nil, fmt.Errorf("check guest list: %w", err)
		}
		if !ok {
			return nil, domain.ErrGated
		}
	}
	return s.createSession(ctx, event)
}

func (s *rsvpService) GuestList(ctx context.Context, slug string) (*domain.GuestListView, error) {
	event, err := s.Events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &domain.GuestListView{Event: event}, nil
}

func (s *rsvpService) StartFromGuestList(ctx context.Context, slug, email string) (*domain.RsvpSession, error) {
	event, err := s.Events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.GuestListID == nil {
		return s.createSession(ctx, event)
	}
	email = domain.NormalizeEmail(email)
	if !validation.Email(email) {
		return nil, domain.NewValidationError(domain.CodeAttendees, "a valid email is required")
	}
	ok, err := s.Lists.IsMember(ctx, *event.GuestListID, email)
	if err != nil {
		return nil, fmt.Errorf("check guest list: %w", err)
	}
	if !ok {
		return nil, domain.ErrGated
	}
	return s.createSession(ctx, event)
}

func (s *rsvpService) createSession(ctx context.Context, event *domain.Event) (*domain.RsvpSession, error) {
	token, err := s.Tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	session := &domain.RsvpSession{
		EventID: event.ID,
		Token:   token,
		Status:  domain.RsvpPending,
	}
	if err := s.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create rsvp session: %w", err)
	}
	metrics.RsvpTransitions.WithLabelValues(string(domain.StepSelection)).Inc()
	return session, nil
}

// load resolves the event and the session for a step. A token that is empty,
// unknown or bound to another event yields ErrSessionNotFound.
func (s *rsvpService) load(ctx context.Context, slug, token string) (*domain.Event, *domain.RsvpSession, error) {
	event, err := s.Events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, fmt.Errorf("get event: %w", err)
	}
	if token == "" {
		return event, nil, domain.ErrSessionNotFound
	}
	session, err := s.Sessions.GetByToken(ctx, token)
	if err != nil {
		return event, nil, fmt.Errorf("get rsvp session: %w", err)
	}
	if session.EventID != event.ID {
		return event, nil, domain.ErrSessionNotFound
	}
	return event, session, nil
}

// loadPending is load for steps that mutate the session.
func (s *rsvpService) loadPending(ctx context.Context, slug, token string) (*domain.Event, *domain.RsvpSession, error) {
	event, session, err := s.load(ctx, slug, token)
	if err != nil {
		return nil, nil, err
	}
	if session.Paid() {
		return nil, nil, domain.ErrSessionPaid
	}
	return event, session, nil
}

// lockSession takes the event lock and re-reads the session under it, so a
// concurrent supersede or payment is observed.
func (s *rsvpService) lockSession(ctx context.Context, eventID, sessionID int64) (*domain.Event, *domain.RsvpSession, error) {
	event, err := s.Events.LockByID(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock event: %w", err)
	}
	session, err := s.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get rsvp session: %w", err)
	}
	if session.Paid() {
		return nil, nil, domain.ErrSessionPaid
	}
	return event, session, nil
}

func (s *rsvpService) Selection(ctx context.Context, slug, token string) (*domain.SelectionView, error) {
	event, session, err := s.loadPending(ctx, slug, token)
	if err != nil {
		return nil, err
	}
	spots, err := s.Spots.ListByEventID(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("list spots: %w", err)
	}
	reservations, err := s.Rsvps.ListByEventID(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	var current []*domain.Rsvp
	for _, r := range reservations {
		if r.SessionID == session.ID {
			current = append(current, r)
		}
	}
	return &domain.SelectionView{
		Event:   event,
		Spots:   spots,
		Stats:   ComputeStats(event, spots, reservations, session.ID),
		Current: current,
		Token:   session.Token,
	}, nil
}

func (s *rsvpService) SubmitSelection(ctx context.Context, slug, token string, viewer *domain.User, items []domain.SelectionItem) (domain.RsvpStep, error) {
	event, session, err := s.loadPending(ctx, slug, token)
	if err != nil {
		return "", err
	}

	next := domain.StepAttendees
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		event, session, err = s.lockSession(ctx, event.ID, session.ID)
		if err != nil {
			return err
		}
		spots, err := s.Spots.ListByEventID(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("list spots: %w", err)
		}
		reservations, err := s.Rsvps.ListByEventID(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("list rsvps: %w", err)
		}
		rows, err := buildSelection(spots, ComputeStats(event, spots, reservations, session.ID), items)
		if err != nil {
			return err
		}

		if err := s.Rsvps.DeletePendingBySessionID(ctx, session.ID); err != nil {
			return fmt.Errorf("clear pending rsvps: %w", err)
		}
		for _, r := range rows {
			r.EventID = event.ID
			r.SessionID = session.ID
			r.Status = domain.RsvpPending
			if err := s.Rsvps.Create(ctx, r); err != nil {
				return fmt.Errorf("create rsvp: %w", err)
			}
		}
		// Any earlier checkout was priced for the old selection.
		if err := s.Sessions.SetClientSecret(ctx, session.ID, ""); err != nil {
			return fmt.Errorf("reset checkout: %w", err)
		}
		if err := s.Sessions.Touch(ctx, session.ID); err != nil {
			return fmt.Errorf("touch rsvp session: %w", err)
		}

		if viewer == nil || len(rows) != 1 {
			return nil
		}
		email := domain.NormalizeEmail(viewer.Email)
		if err := s.Conflicts.Resolve(ctx, event.ID, session.ID, email); err != nil {
			return err
		}
		userID := viewer.ID
		session.FirstName = viewer.FirstName
		session.LastName = viewer.LastName
		session.Email = email
		session.UserID = &userID
		if err := s.Sessions.SetContact(ctx, session); err != nil {
			return fmt.Errorf("set contact: %w", err)
		}
		seat := rows[0]
		seat.FirstName = viewer.FirstName
		seat.LastName = viewer.LastName
		seat.Email = email
		seat.UserID = &userID
		if err := s.Rsvps.SetAttendee(ctx, seat); err != nil {
			return fmt.Errorf("set attendee: %w", err)
		}
		next = domain.StepContribution
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return "", err
	}

	if next == domain.StepContribution {
		s.prepareCheckout(ctx, event, session)
	}
	metrics.RsvpTransitions.WithLabelValues(string(next)).Inc()
	return next, nil
}

// buildSelection validates items against the locked inventory and expands them
// into one unsaved Rsvp per seat.
func buildSelection(spots []*domain.Spot, stats *domain.EventStats, items []domain.SelectionItem) ([]*domain.Rsvp, error) {
	if len(items) == 0 {
		return nil, domain.NewValidationError(domain.CodeEmptySelection, "select at least one spot")
	}
	byID := make(map[int64]*domain.Spot, len(spots))
	for _, sp := range spots {
		byID[sp.ID] = sp
	}

	perSpot := make(map[int64]int)
	total := 0
	var rows []*domain.Rsvp
	for _, item := range items {
		spot, ok := byID[item.SpotID]
		if !ok {
			return nil, domain.NewValidationError(domain.CodeUnknownSpot, fmt.Sprintf("spot %d is not offered for this event", item.SpotID))
		}
		if item.Qty < 0 {
			return nil, domain.NewValidationError(domain.CodeInvalidQuantity, "quantity cannot be negative")
		}
		if item.Qty == 0 {
			continue
		}
		contribution, err := contributionFor(spot, item.Contribution)
		if err != nil {
			return nil, err
		}
		perSpot[spot.ID] += item.Qty
		if perSpot[spot.ID] > stats.RemainingSpots[spot.ID] {
			return nil, domain.NewValidationError(domain.CodeSpotCapacity,
				fmt.Sprintf("only %d %q spots are available", stats.RemainingSpots[spot.ID], spot.Name))
		}
		total += item.Qty
		for range item.Qty {
			rows = append(rows, &domain.Rsvp{SpotID: spot.ID, Contribution: contribution})
		}
	}
	if total == 0 {
		return nil, domain.NewValidationError(domain.CodeEmptySelection, "select at least one spot")
	}
	if total > stats.RemainingCapacity {
		return nil, domain.NewValidationError(domain.CodeEventCapacity,
			fmt.Sprintf("only %d seats are left for this event", stats.RemainingCapacity))
	}
	return rows, nil
}

func contributionFor(spot *domain.Spot, requested *int64) (int64, error) {
	switch spot.Kind {
	case domain.SpotFixed:
		if spot.RequiredContribution == nil {
			return 0, nil
		}
		return *spot.RequiredContribution, nil
	case domain.SpotVariable:
		if requested == nil {
			return 0, domain.NewValidationError(domain.CodeContributionRange,
				fmt.Sprintf("a contribution is required for %q", spot.Name))
		}
		c := *requested
		if c < 0 || (spot.MinContribution != nil && c < *spot.MinContribution) ||
			(spot.MaxContribution != nil && c > *spot.MaxContribution) {
			return 0, domain.NewValidationError(domain.CodeContributionRange,
				fmt.Sprintf("contribution for %q is out of range", spot.Name))
		}
		return c, nil
	default:
		return 0, nil
	}
}

func (s *rsvpService) Attendees(ctx context.Context, slug, token string) (*domain.AttendeesView, error) {
	event, session, err := s.loadPending(ctx, slug, token)
	if err != nil {
		return nil, err
	}
	rsvps, err := s.Rsvps.ListBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list session rsvps: %w", err)
	}
	if len(rsvps) == 0 {
		return nil, domain.ErrNeedsSelection
	}
	names, err := s.spotNames(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	return &domain.AttendeesView{Event: event, Spots: names, Rsvps: rsvps, Token: session.Token}, nil
}

func (s *rsvpService) SubmitAttendees(ctx context.Context, slug, token string, attendees []domain.AttendeeInput) error {
	event, session, err := s.loadPending(ctx, slug, token)
	if err != nil {
		return err
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		event, session, err = s.lockSession(ctx, event.ID, session.ID)
		if err != nil {
			return err
		}
		rsvps, err := s.Rsvps.ListBySessionID(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("list session rsvps: %w", err)
		}
		if len(rsvps) == 0 {
			return domain.ErrNeedsSelection
		}
		me, err := validateAttendees(rsvps, attendees)
		if err != nil {
			return err
		}

		// The purchaser first, then everyone else.
		if err := s.Conflicts.Resolve(ctx, event.ID, session.ID, me.Email); err != nil {
			return err
		}
		for _, a := range attendees {
			if a.IsMe {
				continue
			}
			if err := s.Conflicts.Resolve(ctx, event.ID, session.ID, a.Email); err != nil {
				return err
			}
		}

		session.FirstName = me.FirstName
		session.LastName = me.LastName
		session.Email = me.Email
		session.UserID, err = s.lookupUserID(ctx, me.Email)
		if err != nil {
			return err
		}
		if err := s.Sessions.SetContact(ctx, session); err != nil {
			return fmt.Errorf("set contact: %w", err)
		}

		byID := make(map[int64]*domain.Rsvp, len(rsvps))
		for _, r := range rsvps {
			byID[r.ID] = r
		}
		for _, a := range attendees {
			r := byID[a.RsvpID]
			r.FirstName = a.FirstName
			r.LastName = a.LastName
			r.Email = a.Email
			if r.UserID, err = s.lookupUserID(ctx, a.Email); err != nil {
				return err
			}
			if err := s.Rsvps.SetAttendee(ctx, r); err != nil {
				return fmt.Errorf("set attendee: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return err
	}

	s.prepareCheckout(ctx, event, session)
	metrics.RsvpTransitions.WithLabelValues(string(domain.StepContribution)).Inc()
	return nil
}

// validateAttendees checks the posted attendees map one-to-one onto rsvps and
// normalizes them in place. It returns the purchaser.
func validateAttendees(rsvps []*domain.Rsvp, attendees []domain.AttendeeInput) (*domain.AttendeeInput, error) {
	fail := func(msg string) (*domain.AttendeeInput, error) {
		return nil, domain.NewValidationError(domain.CodeAttendees, msg)
	}
	if len(attendees) != len(rsvps) {
		return fail(fmt.Sprintf("expected %d attendees, got %d", len(rsvps), len(attendees)))
	}
	pending := make(map[int64]bool, len(rsvps))
	for _, r := range rsvps {
		pending[r.ID] = true
	}

	var me *domain.AttendeeInput
	seenRsvp := make(map[int64]bool, len(attendees))
	seenEmail := make(map[string]bool, len(attendees))
	for i := range attendees {
		a := &attendees[i]
		if !pending[a.RsvpID] {
			return fail(fmt.Sprintf("unknown rsvp %d", a.RsvpID))
		}
		if seenRsvp[a.RsvpID] {
			return fail(fmt.Sprintf("rsvp %d is listed twice", a.RsvpID))
		}
		seenRsvp[a.RsvpID] = true

		a.FirstName = strings.TrimSpace(a.FirstName)
		a.LastName = strings.TrimSpace(a.LastName)
		a.Email = domain.NormalizeEmail(a.Email)
		if a.FirstName == "" || a.LastName == "" {
			return fail("every attendee needs a first and last name")
		}
		if !validation.Email(a.Email) {
			return fail(fmt.Sprintf("%q is not a valid email", a.Email))
		}
		if seenEmail[a.Email] {
			return fail(fmt.Sprintf("%s is listed more than once", a.Email))
		}
		seenEmail[a.Email] = true

		if a.IsMe {
			if me != nil {
				return fail("only one attendee can be you")
			}
			me = a
		}
	}
	if me == nil {
		return fail("one attendee must be you")
	}
	return me, nil
}

func (s *rsvpService) lookupUserID(ctx context.Context, email string) (*int64, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	id := u.ID
	return &id, nil
}

func (s *rsvpService) Contribution(ctx context.Context, slug, token string) (*domain.ContributionView, error) {
	event, session, err := s.loadPending(ctx, slug, token)
	if err != nil {
		return nil, err
	}
	items, total, err := s.checkoutLines(ctx, event, session)
	if err != nil {
		return nil, err
	}
	view := &domain.ContributionView{
		Event:     event,
		LineItems: items,
		Total:     total,
		Token:     session.Token,
	}
	if total == 0 {
		return view, nil
	}
	secret := session.PaymentClientSecret
	if secret == "" {
		if secret, err = s.createCheckout(ctx, event, session, items); err != nil {
			return nil, err
		}
	}
	view.ClientSecret = secret
	view.PublishableKey = s.Gateway.PublishableKey()
	return view, nil
}

func (s *rsvpService) ConfirmFree(ctx context.Context, slug, token string) error {
	event, session, err := s.loadPending(ctx, slug, token)
	if err != nil {
		return err
	}
	_, total, err := s.checkoutLines(ctx, event, session)
	if err != nil {
		return err
	}
	if total > 0 {
		return domain.NewValidationError(domain.CodePaymentRequired, "this selection requires payment")
	}
	return s.Settler.Settle(ctx, session.ID, "")
}

// checkoutLines loads the session's seats and prices them. It enforces the
// prerequisites of the contribution step.
func (s *rsvpService) checkoutLines(ctx context.Context, event *domain.Event, session *domain.RsvpSession) ([]domain.LineItem, int64, error) {
	rsvps, err := s.Rsvps.ListBySessionID(ctx, session.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("list session rsvps: %w", err)
	}
	if len(rsvps) == 0 {
		return nil, 0, domain.ErrNeedsSelection
	}
	if !session.HasContact() {
		return nil, 0, domain.ErrNeedsAttendees
	}
	for _, r := range rsvps {
		if r.Email == "" {
			return nil, 0, domain.ErrNeedsAttendees
		}
	}
	names, err := s.spotNames(ctx, event.ID)
	if err != nil {
		return nil, 0, err
	}
	items, total := GroupLineItems(rsvps, names)
	return items, total, nil
}

// GroupLineItems folds seats into one line per (spot, contribution) in first-seen order.
func GroupLineItems(rsvps []*domain.Rsvp, spotNames map[int64]string) ([]domain.LineItem, int64) {
	type key struct {
		spot         int64
		contribution int64
	}
	index := make(map[key]int)
	var items []domain.LineItem
	var total int64
	for _, r := range rsvps {
		k := key{r.SpotID, r.Contribution}
		i, ok := index[k]
		if !ok {
			i = len(items)
			index[k] = i
			items = append(items, domain.LineItem{Name: spotNames[r.SpotID], UnitPrice: r.Contribution})
		}
		items[i].Quantity++
		total += r.Contribution
	}
	return items, total
}

// prepareCheckout creates the checkout after a step commits. A failure is
// logged only: the contribution page retries.
func (s *rsvpService) prepareCheckout(ctx context.Context, event *domain.Event, session *domain.RsvpSession) {
	items, total, err := s.checkoutLines(ctx, event, session)
	if err == nil && total > 0 {
		_, err = s.createCheckout(ctx, event, session, items)
	}
	if err != nil {
		s.Logger.WarnContext(ctx, "create checkout failed", "session_id", session.ID, "err", err)
	}
}

func (s *rsvpService) createCheckout(ctx context.Context, event *domain.Event, session *domain.RsvpSession, items []domain.LineItem) (string, error) {
	secret, err := s.Gateway.CreateCheckout(ctx, domain.CheckoutRequest{
		SessionID:     session.ID,
		CustomerEmail: session.Email,
		LineItems:     items,
		ReturnURL:     s.manageURL(event, session),
	})
	if err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}
	if err := s.Sessions.SetClientSecret(ctx, session.ID, secret); err != nil {
		return "", fmt.Errorf("save client secret: %w", err)
	}
	session.PaymentClientSecret = secret
	return secret, nil
}

func (s *rsvpService) manageURL(event *domain.Event, session *domain.RsvpSession) string {
	return ManageURL(s.cfg.AppURL, event.Slug, session.Token)
}

// ManageURL is the absolute link to a session's manage page.
func ManageURL(appURL, slug, token string) string {
	return fmt.Sprintf("%s/e/%s/rsvp/manage?session=%s", strings.TrimRight(appURL, "/"), slug, token)
}

func (s *rsvpService) Manage(ctx context.Context, slug, token string) (*domain.ManageView, error) {
	event, session, err := s.load(ctx, slug, token)
	if err != nil {
		return nil, err
	}
	if !session.Paid() && session.PaymentClientSecret != "" && s.cfg.ManageWait > 0 {
		outcome := "timeout"
		if s.Rendezvous.Wait(ctx, session.RendezvousKey(), s.cfg.ManageWait) {
			outcome = "notified"
		}
		metrics.RendezvousWaits.WithLabelValues(outcome).Inc()
		// Re-read either way: the notification may have fired before we parked.
		if session, err = s.Sessions.GetByID(ctx, session.ID); err != nil {
			return nil, fmt.Errorf("reload rsvp session: %w", err)
		}
	}

	rsvps, err := s.Rsvps.ListBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list session rsvps: %w", err)
	}
	names, err := s.spotNames(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	return &domain.ManageView{
		Event:  event,
		Status: session.Status,
		Lines:  ManageLines(rsvps, names),
	}, nil
}

// ManageLines renders one line per seat.
func ManageLines(rsvps []*domain.Rsvp, spotNames map[int64]string) []domain.ManageLine {
	lines := make([]domain.ManageLine, 0, len(rsvps))
	for _, r := range rsvps {
		lines = append(lines, domain.ManageLine{
			Spot:         spotNames[r.SpotID],
			Name:         strings.TrimSpace(r.FirstName + " " + r.LastName),
			Email:        r.Email,
			Contribution: r.Contribution,
		})
	}
	return lines
}

func (s *rsvpService) Status(ctx context.Context, slug, token string) (domain.RsvpStatus, error) {
	_, session, err := s.load(ctx, slug, token)
	if err != nil {
		return "", err
	}
	return session.Status, nil
}

func (s *rsvpService) spotNames(ctx context.Context, eventID int64) (map[int64]string, error) {
	spots, err := s.Spots.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list spots: %w", err)
	}
	names := make(map[int64]string, len(spots))
	for _, sp := range spots {
		names[sp.ID] = sp.Name
	}
	return names, nil
}

func (s *rsvpService) countConflict(err error) {
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		metrics.RsvpConflicts.WithLabelValues(ce.Code).Inc()
	}
}

package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"townhall/internal/domain"
	"townhall/internal/rendezvous"

	"github.com/stretchr/testify/require"
)

type harness struct {
	store     *memStore
	tx        *fakeTx
	events    *fakeEventRepo
	spots     *fakeSpotRepo
	sessions  *fakeSessionRepo
	rsvps     *fakeRsvpRepo
	users     *fakeUserRepo
	lists     *fakeListRepo
	posts     *fakePostRepo
	emailRepo *fakeEmailRepo
	queue     *fakeQueue
	renderer  *fakeRenderer
	gateway   *fakeGateway
	publisher *recordingPublisher
	rdv       *rendezvous.Local
	emails    *EmailService
	settler   *Settler
	svc       domain.RsvpService
	event     *domain.Event
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, capacity int) *harness {
	t.Helper()
	store := newMemStore()
	h := &harness{
		store:     store,
		tx:        &fakeTx{store: store},
		events:    &fakeEventRepo{memStore: store},
		spots:     &fakeSpotRepo{store},
		sessions:  &fakeSessionRepo{store},
		rsvps:     &fakeRsvpRepo{store},
		users:     &fakeUserRepo{memStore: store},
		lists:     &fakeListRepo{store},
		posts:     &fakePostRepo{store},
		emailRepo: &fakeEmailRepo{store},
		queue:     &fakeQueue{memStore: store},
		renderer:  &fakeRenderer{},
		gateway:   &fakeGateway{secret: "cs_test_secret"},
		publisher: &recordingPublisher{},
		rdv:       rendezvous.NewLocal(),
	}
	h.emails = NewEmailService(EmailDeps{
		Queue:    h.queue,
		Batches:  h.queue,
		Emails:   h.emailRepo,
		Renderer: h.renderer,
		Signer:   fakeSigner{},
		Posts:    h.posts,
		Lists:    h.lists,
		Events:   h.events,
		Spots:    h.spots,
		Rsvps:    h.rsvps,
		Logger:   discardLogger(),
		AppURL:   "https://town.test",
	})
	h.settler = NewSettler(h.sessions, h.rsvps, h.emails, h.rdv, h.publisher, discardLogger())
	h.svc = h.newService(2 * time.Second)

	h.event = &domain.Event{Slug: "e1", Title: "Picnic", Capacity: capacity, StartsAt: time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)}
	require.NoError(t, h.events.Create(context.Background(), h.event))
	return h
}

func (h *harness) newService(manageWait time.Duration) domain.RsvpService {
	return NewRsvpService(RsvpDeps{
		Tx:         h.tx,
		Events:     h.events,
		Spots:      h.spots,
		Sessions:   h.sessions,
		Rsvps:      h.rsvps,
		Users:      h.users,
		Lists:      h.lists,
		Conflicts:  NewConflictResolver(h.sessions, h.rsvps),
		Gateway:    h.gateway,
		Tokens:     &fakeTokens{},
		Rendezvous: h.rdv,
		Settler:    h.settler,
		Logger:     discardLogger(),
	}, RsvpConfig{AppURL: "https://town.test/", ManageWait: manageWait})
}

func (h *harness) addSpot(t *testing.T, spot *domain.Spot) *domain.Spot {
	t.Helper()
	ctx := context.Background()
	if spot.QtyPerPerson == 0 {
		spot.QtyPerPerson = spot.QtyTotal
	}
	require.NoError(t, h.spots.Create(ctx, spot))
	require.NoError(t, h.spots.Attach(ctx, h.event.ID, spot.ID))
	return spot
}

// seed stores a session holding one seat per contribution. email is the
// contact and the first seat; later seats get their own guest addresses.
func (h *harness) seed(t *testing.T, status domain.RsvpStatus, email string, spotID int64, contributions ...int64) *domain.RsvpSession {
	t.Helper()
	ctx := context.Background()
	s := &domain.RsvpSession{
		EventID:   h.event.ID,
		Token:     "seed-" + email + "-" + string(status),
		Status:    status,
		FirstName: "Seed",
		LastName:  "User",
		Email:     email,
	}
	require.NoError(t, h.sessions.Create(ctx, s))
	for i, c := range contributions {
		seatEmail := email
		if i > 0 {
			seatEmail = fmt.Sprintf("guest%d.%s", i, email)
		}
		require.NoError(t, h.rsvps.Create(ctx, &domain.Rsvp{
			EventID:      h.event.ID,
			SpotID:       spotID,
			SessionID:    s.ID,
			Contribution: c,
			Status:       status,
			FirstName:    "Seed",
			LastName:     "User",
			Email:        seatEmail,
		}))
	}
	return s
}

func (h *harness) seatsOf(t *testing.T, sessionID int64) []*domain.Rsvp {
	t.Helper()
	rsvps, err := h.rsvps.ListBySessionID(context.Background(), sessionID)
	require.NoError(t, err)
	return rsvps
}

// attendeesFor names every seat of the session, the first one as the purchaser.
func attendeesFor(rsvps []*domain.Rsvp, emails ...string) []domain.AttendeeInput {
	out := make([]domain.AttendeeInput, len(rsvps))
	for i, r := range rsvps {
		out[i] = domain.AttendeeInput{
			RsvpID:    r.ID,
			FirstName: "First",
			LastName:  "Last",
			Email:     emails[i],
			IsMe:      i == 0,
		}
	}
	return out
}

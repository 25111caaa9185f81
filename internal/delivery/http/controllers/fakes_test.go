package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"townhall/internal/delivery/http/helpers"
	"townhall/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// withParams attaches chi URL parameters given as key, value pairs.
func withParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// decodeEnvelope reads the standard response envelope, decoding data into dest when given.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) *helpers.APIError {
	t.Helper()
	var raw struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	if dest != nil {
		require.NoError(t, json.Unmarshal(raw.Data, dest))
	}
	return raw.Error
}

type fakeAuthService struct {
	requestErr   error
	lastEmail    string
	loginToken   string
	loginErr     error
	registerErr  error
	regEmail     string
	lastRegister []string
	logoutErr    error
	loggedOut    []string
}

func (f *fakeAuthService) RequestLogin(_ context.Context, email string) error {
	f.lastEmail = email
	return f.requestErr
}

func (f *fakeAuthService) Login(_ context.Context, token string) (string, *domain.User, error) {
	if f.loginErr != nil {
		return "", nil, f.loginErr
	}
	return f.loginToken, &domain.User{ID: 1}, nil
}

func (f *fakeAuthService) RegistrationEmail(_ context.Context, token string) (string, error) {
	if f.registerErr != nil {
		return "", f.registerErr
	}
	return f.regEmail, nil
}

func (f *fakeAuthService) Register(_ context.Context, token, first, last string) (string, *domain.User, error) {
	f.lastRegister = []string{token, first, last}
	if f.registerErr != nil {
		return "", nil, f.registerErr
	}
	return f.loginToken, &domain.User{ID: 2, FirstName: first, LastName: last}, nil
}

func (f *fakeAuthService) Authenticate(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUnauthorized
}

func (f *fakeAuthService) Logout(_ context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return f.logoutErr
}

type fakeCaptcha struct{ err error }

func (f fakeCaptcha) Verify(context.Context, string, string) error { return f.err }

// fakeRsvpService returns the configured error from every call.
type fakeRsvpService struct {
	err        error
	session    *domain.RsvpSession
	next       domain.RsvpStep
	status     domain.RsvpStatus
	lastViewer *domain.User
	lastItems  []domain.SelectionItem
	lastPeople []domain.AttendeeInput
	lastEmail  string
}

func (f *fakeRsvpService) Start(_ context.Context, _ string, viewer *domain.User) (*domain.RsvpSession, error) {
	f.lastViewer = viewer
	return f.session, f.err
}

func (f *fakeRsvpService) GuestList(_ context.Context, slug string) (*domain.GuestListView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.GuestListView{Event: &domain.Event{Slug: slug}}, nil
}

func (f *fakeRsvpService) StartFromGuestList(_ context.Context, _, email string) (*domain.RsvpSession, error) {
	f.lastEmail = email
	return f.session, f.err
}

func (f *fakeRsvpService) Selection(_ context.Context, _, token string) (*domain.SelectionView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SelectionView{Token: token}, nil
}

func (f *fakeRsvpService) SubmitSelection(_ context.Context, _, _ string, viewer *domain.User, items []domain.SelectionItem) (domain.RsvpStep, error) {
	f.lastViewer, f.lastItems = viewer, items
	return f.next, f.err
}

func (f *fakeRsvpService) Attendees(_ context.Context, _, token string) (*domain.AttendeesView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AttendeesView{Token: token}, nil
}

func (f *fakeRsvpService) SubmitAttendees(_ context.Context, _, _ string, attendees []domain.AttendeeInput) error {
	f.lastPeople = attendees
	return f.err
}

func (f *fakeRsvpService) Contribution(_ context.Context, _, token string) (*domain.ContributionView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ContributionView{Token: token, Total: 25}, nil
}

func (f *fakeRsvpService) ConfirmFree(context.Context, string, string) error { return f.err }

func (f *fakeRsvpService) Manage(context.Context, string, string) (*domain.ManageView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ManageView{Status: domain.RsvpPaid}, nil
}

func (f *fakeRsvpService) Status(context.Context, string, string) (domain.RsvpStatus, error) {
	return f.status, f.err
}

type fakePaymentService struct {
	err         error
	lastPayload []byte
	lastSig     string
}

func (f *fakePaymentService) HandleWebhook(_ context.Context, payload []byte, sig string) error {
	f.lastPayload, f.lastSig = payload, sig
	return f.err
}

type fakeEmailService struct {
	trackErr    error
	tracked     []int64
	email       *domain.Email
	unsubErr    error
	unsubscribe []int64
	batch       *domain.EmailBatch
	batchErr    error
	lastPost    [2]int64
	batches     []*domain.EmailBatch
	total       int
	lastParams  domain.PaginationParams
}

func (f *fakeEmailService) SendLoginLink(context.Context, *domain.LoginEmailData, *int64) error {
	return nil
}

func (f *fakeEmailService) SendReceipt(context.Context, *domain.RsvpSession) error { return nil }

func (f *fakeEmailService) BroadcastPost(_ context.Context, postID, listID int64) (*domain.EmailBatch, error) {
	f.lastPost = [2]int64{postID, listID}
	return f.batch, f.batchErr
}

func (f *fakeEmailService) ListBatches(_ context.Context, params domain.PaginationParams) ([]*domain.EmailBatch, int, error) {
	f.lastParams = params
	return f.batches, f.total, f.batchErr
}

func (f *fakeEmailService) TrackOpen(_ context.Context, id int64) error {
	f.tracked = append(f.tracked, id)
	return f.trackErr
}

func (f *fakeEmailService) UnsubscribeInfo(context.Context, int64, string) (*domain.Email, error) {
	if f.unsubErr != nil {
		return nil, f.unsubErr
	}
	return f.email, nil
}

func (f *fakeEmailService) Unsubscribe(_ context.Context, id int64, _ string) error {
	f.unsubscribe = append(f.unsubscribe, id)
	return f.unsubErr
}

type fakeEventService struct {
	view *domain.EventView
	err  error
}

func (f *fakeEventService) GetBySlug(context.Context, string) (*domain.EventView, error) {
	return f.view, f.err
}

type fakeUserService struct {
	user       *domain.User
	getErr     error
	updateErr  error
	lastUpdate *domain.User
}

func (f *fakeUserService) GetByID(context.Context, int64) (*domain.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u := *f.user
	return &u, nil
}

func (f *fakeUserService) Update(_ context.Context, user *domain.User) error {
	f.lastUpdate = user
	return f.updateErr
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fakeCachePinger struct{ err error }

func (f fakeCachePinger) Ping(context.Context) error { return f.err }

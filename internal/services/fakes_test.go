package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"townhall/internal/domain"
)

// memStore is an in-memory database shared by the fake repositories. fakeTx
// snapshots it so a failed transaction leaves no trace.
type memStore struct {
	mu sync.Mutex
	// txMu serializes transactions and payments, standing in for the event row lock.
	txMu       sync.Mutex
	nextID     int64
	events     map[int64]domain.Event
	spots      map[int64]domain.Spot
	eventSpots map[int64][]int64
	sessions   map[int64]domain.RsvpSession
	rsvps      map[int64]domain.Rsvp
	users      map[int64]domain.User
	lists      map[int64]domain.List
	members    map[int64][]string
	posts      map[int64]domain.Post
	emails     map[int64]domain.Email
	loginToks  map[string]domain.LoginToken
	sessToks   map[string]int64
}

func newMemStore() *memStore {
	return &memStore{
		events:     make(map[int64]domain.Event),
		spots:      make(map[int64]domain.Spot),
		eventSpots: make(map[int64][]int64),
		sessions:   make(map[int64]domain.RsvpSession),
		rsvps:      make(map[int64]domain.Rsvp),
		users:      make(map[int64]domain.User),
		lists:      make(map[int64]domain.List),
		members:    make(map[int64][]string),
		posts:      make(map[int64]domain.Post),
		emails:     make(map[int64]domain.Email),
		loginToks:  make(map[string]domain.LoginToken),
		sessToks:   make(map[string]int64),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStore) snapshot() *memStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	es := make(map[int64][]int64, len(m.eventSpots))
	for k, v := range m.eventSpots {
		es[k] = append([]int64(nil), v...)
	}
	mem := make(map[int64][]string, len(m.members))
	for k, v := range m.members {
		mem[k] = append([]string(nil), v...)
	}
	return &memStore{
		nextID:     m.nextID,
		events:     cloneMap(m.events),
		spots:      cloneMap(m.spots),
		eventSpots: es,
		sessions:   cloneMap(m.sessions),
		rsvps:      cloneMap(m.rsvps),
		users:      cloneMap(m.users),
		lists:      cloneMap(m.lists),
		members:    mem,
		posts:      cloneMap(m.posts),
		emails:     cloneMap(m.emails),
		loginToks:  cloneMap(m.loginToks),
		sessToks:   cloneMap(m.sessToks),
	}
}

func (m *memStore) restore(s *memStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = s.nextID
	m.events, m.spots, m.eventSpots = s.events, s.spots, s.eventSpots
	m.sessions, m.rsvps, m.users = s.sessions, s.rsvps, s.users
	m.lists, m.members, m.posts, m.emails = s.lists, s.members, s.posts, s.emails
	m.loginToks, m.sessToks = s.loginToks, s.sessToks
}

type inTxKey struct{}

func inTx(ctx context.Context) bool { return ctx.Value(inTxKey{}) != nil }

// fakeTx implements domain.TxManager with snapshot rollback. Transactions run
// one at a time; nested calls join the outer one.
type fakeTx struct {
	store *memStore
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	f.store.txMu.Lock()
	defer f.store.txMu.Unlock()
	f.calls++
	snap := f.store.snapshot()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

// fakeEventRepo implements domain.EventRepository.
type fakeEventRepo struct {
	*memStore
	locks int
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = f.id()
	e.Slug = strings.ToLower(e.Slug)
	f.events[e.ID] = *e
	return nil
}

func (f *fakeEventRepo) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Slug == strings.ToLower(slug) {
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.events[id]; ok {
		return &e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) LockByID(ctx context.Context, id int64) (*domain.Event, error) {
	f.locks++
	return f.GetByID(ctx, id)
}

// fakeSpotRepo implements domain.SpotRepository.
type fakeSpotRepo struct{ *memStore }

func (f *fakeSpotRepo) Create(ctx context.Context, s *domain.Spot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.id()
	f.spots[s.ID] = *s
	return nil
}

func (f *fakeSpotRepo) ListByEventID(ctx context.Context, eventID int64) ([]*domain.Spot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Spot
	for _, id := range f.eventSpots[eventID] {
		s := f.spots[id]
		out = append(out, &s)
	}
	return out, nil
}

func (f *fakeSpotRepo) Attach(ctx context.Context, eventID, spotID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventSpots[eventID] = append(f.eventSpots[eventID], spotID)
	return nil
}

func (f *fakeSpotRepo) Detach(ctx context.Context, eventID, spotID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.eventSpots[eventID][:0]
	for _, id := range f.eventSpots[eventID] {
		if id != spotID {
			ids = append(ids, id)
		}
	}
	f.eventSpots[eventID] = ids
	return nil
}

// fakeSessionRepo implements domain.RsvpSessionRepository.
type fakeSessionRepo struct{ *memStore }

func (f *fakeSessionRepo) Create(ctx context.Context, s *domain.RsvpSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.id()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeSessionRepo) GetByToken(ctx context.Context, token string) (*domain.RsvpSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Token == token {
			return &s, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id int64) (*domain.RsvpSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return &s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (f *fakeSessionRepo) FindOthersByEmail(ctx context.Context, eventID int64, email string, excludeID int64) ([]*domain.RsvpSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.RsvpSession
	for _, s := range f.sessions {
		if s.EventID == eventID && s.ID != excludeID && strings.EqualFold(s.Email, email) {
			out = append(out, &s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) SetContact(ctx context.Context, s *domain.RsvpSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.sessions[s.ID]
	if !ok || cur.Status != domain.RsvpPending {
		return domain.ErrSessionPaid
	}
	cur.FirstName, cur.LastName, cur.Email, cur.UserID = s.FirstName, s.LastName, s.Email, s.UserID
	f.sessions[s.ID] = cur
	return nil
}

func (f *fakeSessionRepo) SetClientSecret(ctx context.Context, id int64, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.sessions[id]
	cur.PaymentClientSecret = secret
	f.sessions[id] = cur
	return nil
}

func (f *fakeSessionRepo) Touch(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.sessions[id]
	cur.UpdatedAt = time.Now()
	f.sessions[id] = cur
	return nil
}

func (f *fakeSessionRepo) MarkPaid(ctx context.Context, id int64, intent string) (bool, error) {
	if !inTx(ctx) {
		f.txMu.Lock()
		defer f.txMu.Unlock()
	}
	return f.markPaid(id, intent)
}

// markPaid commits a payment without taking the transaction lock.
func (f *fakeSessionRepo) markPaid(id int64, intent string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.sessions[id]
	if !ok || cur.Status != domain.RsvpPending {
		return false, nil
	}
	for rid, r := range f.rsvps {
		if r.SessionID != id {
			continue
		}
		for _, other := range f.rsvps {
			if other.Status == domain.RsvpPaid && other.EventID == r.EventID && strings.EqualFold(other.Email, r.Email) {
				return false, &domain.ConflictError{Code: domain.CodeAlreadyRsvped, Email: r.Email}
			}
		}
		r.Status = domain.RsvpPaid
		f.rsvps[rid] = r
	}
	cur.Status = domain.RsvpPaid
	cur.PaymentIntentID = intent
	f.sessions[id] = cur
	return true, nil
}

func (f *fakeSessionRepo) DeletePending(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.sessions[id]
	if !ok || cur.Status != domain.RsvpPending {
		return false, nil
	}
	f.deleteSession(id)
	return true, nil
}

func (m *memStore) deleteSession(id int64) {
	delete(m.sessions, id)
	for rid, r := range m.rsvps {
		if r.SessionID == id {
			delete(m.rsvps, rid)
		}
	}
}

func (f *fakeSessionRepo) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.Status == domain.RsvpPending && s.UpdatedAt.Before(cutoff) {
			f.deleteSession(id)
			n++
		}
	}
	return n, nil
}

// fakeRsvpRepo implements domain.RsvpRepository.
type fakeRsvpRepo struct{ *memStore }

func (f *fakeRsvpRepo) sorted(keep func(domain.Rsvp) bool) []*domain.Rsvp {
	var out []*domain.Rsvp
	for _, r := range f.rsvps {
		if keep(r) {
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeRsvpRepo) ListByEventID(ctx context.Context, eventID int64) ([]*domain.Rsvp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(r domain.Rsvp) bool { return r.EventID == eventID }), nil
}

func (f *fakeRsvpRepo) ListBySessionID(ctx context.Context, sessionID int64) ([]*domain.Rsvp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(r domain.Rsvp) bool { return r.SessionID == sessionID }), nil
}

func (f *fakeRsvpRepo) FindHeldByEmail(ctx context.Context, eventID int64, email string, excludeSessionID int64) (*domain.Rsvp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	held := f.sorted(func(r domain.Rsvp) bool {
		return r.EventID == eventID && r.SessionID != excludeSessionID && strings.EqualFold(r.Email, email)
	})
	if len(held) == 0 {
		return nil, domain.ErrNotFound
	}
	for _, r := range held {
		if r.Status == domain.RsvpPaid {
			return r, nil
		}
	}
	return held[0], nil
}

func (f *fakeRsvpRepo) Create(ctx context.Context, r *domain.Rsvp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.id()
	r.CreatedAt = time.Now()
	f.rsvps[r.ID] = *r
	return nil
}

func (f *fakeRsvpRepo) SetAttendee(ctx context.Context, r *domain.Rsvp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rsvps[r.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.FirstName, cur.LastName, cur.Email, cur.UserID = r.FirstName, r.LastName, r.Email, r.UserID
	f.rsvps[r.ID] = cur
	return nil
}

func (f *fakeRsvpRepo) DeletePendingBySessionID(ctx context.Context, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.rsvps {
		if r.SessionID == sessionID && r.Status == domain.RsvpPending {
			delete(f.rsvps, id)
		}
	}
	return nil
}

// fakeUserRepo implements domain.UserRepository.
type fakeUserRepo struct {
	*memStore
	updateErr error
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	u.ID = f.id()
	u.Version = 1
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, u *domain.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Version = cur.Version + 1
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUserRepo) AssignRole(ctx context.Context, userID int64, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[userID]
	u.Roles = append(u.Roles, role)
	f.users[userID] = u
	return nil
}

func (f *fakeUserRepo) ListRoles(ctx context.Context, userID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[userID].Roles, nil
}

// fakeListRepo implements domain.ListRepository.
type fakeListRepo struct{ *memStore }

func (f *fakeListRepo) Create(ctx context.Context, l *domain.List) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = f.id()
	f.lists[l.ID] = *l
	return nil
}

func (f *fakeListRepo) GetByID(ctx context.Context, id int64) (*domain.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.lists[id]; ok {
		return &l, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeListRepo) IsMember(ctx context.Context, listID int64, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members[listID] {
		if strings.EqualFold(m, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeListRepo) ListMembers(ctx context.Context, listID int64) ([]*domain.ListMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ListMember
	for _, m := range f.members[listID] {
		out = append(out, &domain.ListMember{ListID: listID, Email: m})
	}
	return out, nil
}

func (f *fakeListRepo) AddMembers(ctx context.Context, listID int64, emails []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[listID] = append(f.members[listID], emails...)
	return nil
}

func (f *fakeListRepo) RemoveMember(ctx context.Context, listID int64, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.members[listID][:0]
	for _, m := range f.members[listID] {
		if !strings.EqualFold(m, email) {
			kept = append(kept, m)
		}
	}
	f.members[listID] = kept
	return nil
}

// fakePostRepo implements domain.PostRepository.
type fakePostRepo struct{ *memStore }

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.posts[id]; ok {
		return &p, nil
	}
	return nil, domain.ErrNotFound
}

// fakeEmailRepo implements domain.EmailRepository over the emails the fake queue stored.
type fakeEmailRepo struct{ *memStore }

func (f *fakeEmailRepo) GetByID(ctx context.Context, id int64) (*domain.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.emails[id]; ok {
		return &e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEmailRepo) ExistsForPost(ctx context.Context, address string, postID, listID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.emails {
		if e.Address == address && e.PostID != nil && *e.PostID == postID && e.ListID != nil && *e.ListID == listID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEmailRepo) MarkOpened(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.emails[id]
	if ok && e.OpenedAt == nil {
		now := time.Now()
		e.OpenedAt = &now
		f.emails[id] = e
	}
	return nil
}

// fakeQueue implements domain.EmailQueue and domain.EmailQueueRepository.ListBatches.
type fakeQueue struct {
	*memStore
	batches    []*domain.EmailBatch
	priorities []domain.Priority
	err        error
}

func (f *fakeQueue) Enqueue(ctx context.Context, emails []*domain.Email, p domain.Priority) (*domain.EmailBatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &domain.EmailBatch{ID: f.id(), Size: len(emails)}
	for _, e := range emails {
		e.ID = f.id()
		e.BatchID = b.ID
		f.emails[e.ID] = *e
	}
	f.batches = append(f.batches, b)
	f.priorities = append(f.priorities, p)
	return b, nil
}

func (f *fakeQueue) sent(kind domain.EmailKind) []domain.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Email
	for _, e := range f.emails {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeQueue) CreateBatch(ctx context.Context, emails []*domain.Email, p domain.Priority) (*domain.EmailBatch, error) {
	return f.Enqueue(ctx, emails, p)
}

func (f *fakeQueue) Next(ctx context.Context) (*domain.Email, error) { return nil, domain.ErrNotFound }

func (f *fakeQueue) MarkSent(ctx context.Context, e *domain.Email) (*domain.EmailBatch, error) {
	return nil, nil
}

func (f *fakeQueue) MarkErrored(ctx context.Context, e *domain.Email, reason string) (*domain.EmailBatch, error) {
	return nil, nil
}

func (f *fakeQueue) ListBatches(ctx context.Context, p domain.PaginationParams) ([]*domain.EmailBatch, int, error) {
	return f.batches, len(f.batches), nil
}

// fakeRenderer echoes the template name and data.
type fakeRenderer struct {
	err  error
	data map[string]any
}

func (f *fakeRenderer) Render(name string, data any) (string, string, string, error) {
	if f.err != nil {
		return "", "", "", f.err
	}
	if f.data == nil {
		f.data = make(map[string]any)
	}
	f.data[name] = data
	body := name
	if d, ok := data.(*domain.PostEmailData); ok {
		body = fmt.Sprintf("%s <img src=%q> <a href=%q>", d.Post.Title, d.PixelURL, d.UnsubscribeURL)
	}
	return "subject:" + name, "<p>" + body + "</p>", body, nil
}

// fakeTokens returns predictable tokens.
type fakeTokens struct {
	n int
}

func (f *fakeTokens) Generate() (string, error) {
	f.n++
	return fmt.Sprintf("%032x", f.n), nil
}

func (f *fakeTokens) Hash(token string) string { return "sha:" + token }

// fakeSigner signs email ids as "sig-<id>".
type fakeSigner struct{}

func (fakeSigner) Sign(id int64) (string, error) { return fmt.Sprintf("sig-%d", id), nil }

func (fakeSigner) Verify(token string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(token, "sig-%d", &id); err != nil {
		return 0, domain.ErrInvalidToken
	}
	return id, nil
}

// fakeGateway records checkout requests.
type fakeGateway struct {
	secret   string
	err      error
	requests []domain.CheckoutRequest
	event    *domain.WebhookEvent
	parseErr error
}

func (f *fakeGateway) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.secret, nil
}

func (f *fakeGateway) ParseWebhook(payload []byte, header string) (*domain.WebhookEvent, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.event, nil
}

func (f *fakeGateway) PublishableKey() string { return "pk_test" }

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, data)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// fakeLoginTokens implements domain.LoginTokenRepository.
type fakeLoginTokens struct{ *memStore }

func (f *fakeLoginTokens) Create(ctx context.Context, email, hash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginToks[hash] = domain.LoginToken{ID: f.id(), Email: email, TokenHash: hash, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeLoginTokens) Peek(ctx context.Context, hash string) (*domain.LoginToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lt, ok := f.loginToks[hash]
	if !ok || lt.UsedAt != nil || time.Now().After(lt.ExpiresAt) {
		return nil, domain.ErrInvalidToken
	}
	return &lt, nil
}

func (f *fakeLoginTokens) Consume(ctx context.Context, hash string) (*domain.LoginToken, error) {
	lt, err := f.Peek(ctx, hash)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	lt.UsedAt = &now
	f.loginToks[hash] = *lt
	return lt, nil
}

// fakeSessionTokens implements domain.SessionTokenRepository.
type fakeSessionTokens struct{ *memStore }

func (f *fakeSessionTokens) Create(ctx context.Context, userID int64, hash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessToks[hash] = userID
	return nil
}

func (f *fakeSessionTokens) GetUser(ctx context.Context, hash string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.sessToks[hash]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	u := f.users[id]
	return &u, nil
}

func (f *fakeSessionTokens) Delete(ctx context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessToks, hash)
	return nil
}

var errBoom = errors.New("boom")

func int64p(v int64) *int64 { return &v }

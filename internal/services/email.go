package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"townhall/internal/domain"
)

// Placeholders rendered into post emails and replaced by Finalize once the
// email has an id.
const (
	pixelURLPlaceholder       = "__TOWNHALL_PIXEL_URL__"
	unsubscribeURLPlaceholder = "__TOWNHALL_UNSUBSCRIBE_URL__"
)

// Template names.
const (
	templateLogin   = "login"
	templateReceipt = "receipt"
	templatePost    = "post"
)

// EmailDeps groups the collaborators of the email service.
type EmailDeps struct {
	Queue    domain.EmailQueue
	Batches  domain.EmailQueueRepository
	Emails   domain.EmailRepository
	Renderer domain.EmailTemplateRenderer
	Signer   domain.UnsubscribeSigner
	Posts    domain.PostRepository
	Lists    domain.ListRepository
	Events   domain.EventRepository
	Spots    domain.SpotRepository
	Rsvps    domain.RsvpRepository
	Logger   *slog.Logger
	AppURL   string
	// Location formats event times in receipts. Nil means UTC.
	Location *time.Location
}

// EmailService composes and queues the application's emails. It also implements
// domain.EmailFinalizer for the worker.
type EmailService struct {
	EmailDeps
	appURL string
}

// NewEmailService creates an EmailService.
func NewEmailService(deps EmailDeps) *EmailService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &EmailService{EmailDeps: deps, appURL: strings.TrimRight(deps.AppURL, "/")}
}

var (
	_ domain.EmailService   = (*EmailService)(nil)
	_ domain.EmailFinalizer = (*EmailService)(nil)
)

func (s *EmailService) SendLoginLink(ctx context.Context, data *domain.LoginEmailData, userID *int64) error {
	subject, html, text, err := s.Renderer.Render(templateLogin, data)
	if err != nil {
		return fmt.Errorf("render login email: %w", err)
	}
	email := &domain.Email{
		Kind:     domain.EmailLogin,
		UserID:   userID,
		Address:  data.Email,
		Subject:  subject,
		HTMLBody: html,
		TextBody: text,
	}
	if _, err := s.Queue.Enqueue(ctx, []*domain.Email{email}, domain.PriorityHigh); err != nil {
		return fmt.Errorf("enqueue login email: %w", err)
	}
	return nil
}

func (s *EmailService) SendReceipt(ctx context.Context, session *domain.RsvpSession) error {
	event, err := s.Events.GetByID(ctx, session.EventID)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	rsvps, err := s.Rsvps.ListBySessionID(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("list session rsvps: %w", err)
	}
	spots, err := s.Spots.ListByEventID(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("list spots: %w", err)
	}
	names := make(map[int64]string, len(spots))
	for _, sp := range spots {
		names[sp.ID] = sp.Name
	}

	data := &domain.ReceiptEmailData{
		FirstName: session.FirstName,
		Event:     event,
		StartsAt:  event.StartsAt.In(s.Location).Format("Monday, January 2 2006 at 3:04 PM MST"),
		Lines:     ManageLines(rsvps, names),
		ManageURL: ManageURL(s.appURL, event.Slug, session.Token),
	}
	for _, r := range rsvps {
		data.Total += r.Contribution
	}
	subject, html, text, err := s.Renderer.Render(templateReceipt, data)
	if err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	eventID := event.ID
	email := &domain.Email{
		Kind:     domain.EmailReceipt,
		UserID:   session.UserID,
		Address:  session.Email,
		EventID:  &eventID,
		Subject:  subject,
		HTMLBody: html,
		TextBody: text,
	}
	if _, err := s.Queue.Enqueue(ctx, []*domain.Email{email}, domain.PriorityHigh); err != nil {
		return fmt.Errorf("enqueue receipt: %w", err)
	}
	return nil
}

// BroadcastPost queues the post for every member of the list that has not
// already been sent it. It returns a nil batch when nobody is left to mail.
func (s *EmailService) BroadcastPost(ctx context.Context, postID, listID int64) (*domain.EmailBatch, error) {
	post, err := s.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	list, err := s.Lists.GetByID(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	members, err := s.Lists.ListMembers(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	subject, html, text, err := s.Renderer.Render(templatePost, &domain.PostEmailData{
		Post:           post,
		List:           list,
		PostURL:        fmt.Sprintf("%s/posts/%s", s.appURL, post.Slug),
		PixelURL:       pixelURLPlaceholder,
		UnsubscribeURL: unsubscribeURLPlaceholder,
	})
	if err != nil {
		return nil, fmt.Errorf("render post email: %w", err)
	}

	var emails []*domain.Email
	for _, m := range members {
		sent, err := s.Emails.ExistsForPost(ctx, m.Email, postID, listID)
		if err != nil {
			return nil, fmt.Errorf("check previous send: %w", err)
		}
		if sent {
			continue
		}
		pid, lid := postID, listID
		emails = append(emails, &domain.Email{
			Kind:     domain.EmailPost,
			UserID:   m.UserID,
			Address:  m.Email,
			PostID:   &pid,
			ListID:   &lid,
			Subject:  subject,
			HTMLBody: html,
			TextBody: text,
		})
	}
	if len(emails) == 0 {
		s.Logger.InfoContext(ctx, "post already sent to every member", "post_id", postID, "list_id", listID)
		return nil, nil
	}
	batch, err := s.Queue.Enqueue(ctx, emails, domain.PriorityNormal)
	if err != nil {
		return nil, fmt.Errorf("enqueue post: %w", err)
	}
	s.Logger.InfoContext(ctx, "post queued", "post_id", postID, "list_id", listID, "batch_id", batch.ID, "size", batch.Size)
	return batch, nil
}

// Finalize replaces the link placeholders of a post email.
func (s *EmailService) Finalize(email *domain.Email) error {
	if email.Kind != domain.EmailPost {
		return nil
	}
	token, err := s.Signer.Sign(email.ID)
	if err != nil {
		return fmt.Errorf("sign unsubscribe token: %w", err)
	}
	r := strings.NewReplacer(
		pixelURLPlaceholder, fmt.Sprintf("%s/emails/%d/footer.gif", s.appURL, email.ID),
		unsubscribeURLPlaceholder, fmt.Sprintf("%s/emails/%d/unsubscribe?token=%s", s.appURL, email.ID, token),
	)
	email.HTMLBody = r.Replace(email.HTMLBody)
	email.TextBody = r.Replace(email.TextBody)
	return nil
}

func (s *EmailService) ListBatches(ctx context.Context, params domain.PaginationParams) ([]*domain.EmailBatch, int, error) {
	batches, total, err := s.Batches.ListBatches(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	return batches, total, nil
}

func (s *EmailService) TrackOpen(ctx context.Context, emailID int64) error {
	if err := s.Emails.MarkOpened(ctx, emailID); err != nil {
		return fmt.Errorf("mark opened: %w", err)
	}
	return nil
}

func (s *EmailService) UnsubscribeInfo(ctx context.Context, emailID int64, token string) (*domain.Email, error) {
	signed, err := s.Signer.Verify(token)
	if err != nil || signed != emailID {
		return nil, domain.ErrInvalidToken
	}
	email, err := s.Emails.GetByID(ctx, emailID)
	if err != nil {
		return nil, fmt.Errorf("get email: %w", err)
	}
	return email, nil
}

func (s *EmailService) Unsubscribe(ctx context.Context, emailID int64, token string) error {
	email, err := s.UnsubscribeInfo(ctx, emailID, token)
	if err != nil {
		return err
	}
	if email.ListID == nil {
		return fmt.Errorf("email %d has no list: %w", emailID, domain.ErrNotFound)
	}
	if err := s.Lists.RemoveMember(ctx, *email.ListID, email.Address); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("remove list member: %w", err)
	}
	s.Logger.InfoContext(ctx, "unsubscribed", "email_id", emailID, "list_id", *email.ListID)
	return nil
}

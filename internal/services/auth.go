package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"townhall/internal/domain"
	"townhall/internal/validation"
)

// AuthConfig holds login and session lifetimes.
type AuthConfig struct {
	AppURL        string
	LoginTokenTTL time.Duration
	SessionTTL    time.Duration
}

type authService struct {
	tx            domain.TxManager
	userRepo      domain.UserRepository
	loginTokens   domain.LoginTokenRepository
	sessionTokens domain.SessionTokenRepository
	tokens        domain.TokenGenerator
	emailService  domain.EmailService
	cfg           AuthConfig
	now           func() time.Time
}

// NewAuthService creates the passwordless AuthService.
func NewAuthService(
	tx domain.TxManager,
	userRepo domain.UserRepository,
	loginTokens domain.LoginTokenRepository,
	sessionTokens domain.SessionTokenRepository,
	tokens domain.TokenGenerator,
	emailService domain.EmailService,
	cfg AuthConfig,
) domain.AuthService {
	return &authService{
		tx:            tx,
		userRepo:      userRepo,
		loginTokens:   loginTokens,
		sessionTokens: sessionTokens,
		tokens:        tokens,
		emailService:  emailService,
		cfg:           cfg,
		now:           time.Now,
	}
}

func (s *authService) RequestLogin(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if !validation.Email(email) {
		return domain.NewValidationError("email", "invalid email format")
	}
	token, err := s.tokens.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate login token: %w", err)
	}
	expiresAt := s.now().Add(s.cfg.LoginTokenTTL)
	if err := s.loginTokens.Create(ctx, email, s.tokens.Hash(token), expiresAt); err != nil {
		return fmt.Errorf("failed to store login token: %w", err)
	}

	var userID *int64
	path := "/register"
	user, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		id := user.ID
		userID = &id
		path = "/login"
	case !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("failed to get user: %w", err)
	}

	data := &domain.LoginEmailData{
		Email:            email,
		Link:             fmt.Sprintf("%s%s?token=%s", strings.TrimRight(s.cfg.AppURL, "/"), path, url.QueryEscape(token)),
		Registering:      userID == nil,
		ExpiresInMinutes: int(s.cfg.LoginTokenTTL / time.Minute),
	}
	if err := s.emailService.SendLoginLink(ctx, data, userID); err != nil {
		return fmt.Errorf("failed to send login email: %w", err)
	}
	return nil
}

// Login consumes token only when its address belongs to a user, so the same
// link can continue into registration.
func (s *authService) Login(ctx context.Context, token string) (string, *domain.User, error) {
	hash := s.tokens.Hash(strings.TrimSpace(token))
	lt, err := s.loginTokens.Peek(ctx, hash)
	if err != nil {
		return "", nil, err
	}
	user, err := s.userRepo.GetByEmail(ctx, lt.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrUserNotFound
		}
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}
	var session string
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.loginTokens.Consume(ctx, hash); err != nil {
			return err
		}
		session, err = s.issueSession(ctx, user)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return session, user, nil
}

func (s *authService) RegistrationEmail(ctx context.Context, token string) (string, error) {
	lt, err := s.loginTokens.Peek(ctx, s.tokens.Hash(strings.TrimSpace(token)))
	if err != nil {
		return "", err
	}
	return lt.Email, nil
}

func (s *authService) Register(ctx context.Context, token, firstName, lastName string) (string, *domain.User, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return "", nil, domain.NewValidationError("name", "first and last name are required")
	}
	hash := s.tokens.Hash(strings.TrimSpace(token))

	var session string
	var user *domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lt, err := s.loginTokens.Consume(ctx, hash)
		if err != nil {
			return err
		}
		user, err = s.userRepo.GetByEmail(ctx, lt.Email)
		if errors.Is(err, domain.ErrUserNotFound) {
			user = domain.NewUser(lt.Email, firstName, lastName)
			err = s.userRepo.Create(ctx, user)
		}
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		session, err = s.issueSession(ctx, user)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return session, user, nil
}

func (s *authService) issueSession(ctx context.Context, user *domain.User) (string, error) {
	token, err := s.tokens.Generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	if err := s.sessionTokens.Create(ctx, user.ID, s.tokens.Hash(token), s.now().Add(s.cfg.SessionTTL)); err != nil {
		return "", fmt.Errorf("failed to store session token: %w", err)
	}
	return token, nil
}

func (s *authService) Authenticate(ctx context.Context, sessionToken string) (*domain.User, error) {
	if sessionToken == "" {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.sessionTokens.GetUser(ctx, s.tokens.Hash(sessionToken))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	return user, nil
}

func (s *authService) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	if err := s.sessionTokens.Delete(ctx, s.tokens.Hash(sessionToken)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

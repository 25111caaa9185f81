package domain

import (
	"context"
	"strings"
	"time"
)

// Role names recognised by the application.
const (
	RoleAdmin  = "admin"
	RoleWriter = "writer"
)

// User represents a registered member.
// swagger:model User
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone,omitempty"`
	Version   int       `json:"version"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser returns a new User with the given fields. ID is set by the repository on create.
func NewUser(email, firstName, lastName string) *User {
	now := time.Now()
	return &User{
		Email:     NormalizeEmail(email),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// FullName joins the first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LoginToken is a single-use credential mailed to an address.
type LoginToken struct {
	ID        int64
	Email     string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// TokenGenerator creates opaque tokens and the hashes they are stored under.
type TokenGenerator interface {
	// Generate returns a random hex token with at least 64 bits of entropy.
	Generate() (string, error)
	Hash(token string) string
}

// UnsubscribeSigner signs and verifies per-email unsubscribe tokens.
type UnsubscribeSigner interface {
	Sign(emailID int64) (string, error)
	Verify(token string) (emailID int64, err error)
}

// UserRepository defines the interface for user storage.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	// Update appends a user_history row and then updates the users row.
	Update(ctx context.Context, user *User) error
	AssignRole(ctx context.Context, userID int64, role string) error
	ListRoles(ctx context.Context, userID int64) ([]string, error)
}

// LoginTokenRepository stores one-time login tokens.
type LoginTokenRepository interface {
	Create(ctx context.Context, email, tokenHash string, expiresAt time.Time) error
	// Peek returns an unused, unexpired token without consuming it.
	Peek(ctx context.Context, tokenHash string) (*LoginToken, error)
	// Consume marks the token used and returns it. ErrInvalidToken when unusable.
	Consume(ctx context.Context, tokenHash string) (*LoginToken, error)
}

// SessionTokenRepository stores long-lived browser sessions.
type SessionTokenRepository interface {
	Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	GetUser(ctx context.Context, tokenHash string) (*User, error)
	Delete(ctx context.Context, tokenHash string) error
}

// AuthService drives passwordless login and registration.
type AuthService interface {
	RequestLogin(ctx context.Context, email string) error
	// Login exchanges a login token for a session token. ErrUserNotFound means the
	// caller should continue with registration.
	Login(ctx context.Context, token string) (sessionToken string, user *User, err error)
	RegistrationEmail(ctx context.Context, token string) (string, error)
	Register(ctx context.Context, token, firstName, lastName string) (sessionToken string, user *User, err error)
	Authenticate(ctx context.Context, sessionToken string) (*User, error)
	Logout(ctx context.Context, sessionToken string) error
}

// UserService exposes profile reads and updates.
type UserService interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	Update(ctx context.Context, user *User) error
}

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"townhall/internal/domain"
)

const unsubscribeAudience = "unsubscribe"

type jwtSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewUnsubscribeSigner returns an UnsubscribeSigner issuing HS256 JWTs whose
// subject is the email id. A zero ttl means one year.
func NewUnsubscribeSigner(secret string, ttl time.Duration) domain.UnsubscribeSigner {
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}
	return &jwtSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *jwtSigner) Sign(emailID int64) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(emailID, 10),
		Audience:  jwt.ClaimStrings{unsubscribeAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the email id carried by token, or domain.ErrInvalidToken.
func (s *jwtSigner) Verify(token string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(unsubscribeAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return 0, errors.Join(domain.ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidToken
	}
	return id, nil
}

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"townhall/internal/domain"
)

type randomTokens struct {
	size int
}

// NewTokenGenerator returns a TokenGenerator producing hex tokens of 16 random
// bytes. Tokens are stored as the hex SHA256 of their text.
func NewTokenGenerator() domain.TokenGenerator {
	return &randomTokens{size: 16}
}

func (g *randomTokens) Generate() (string, error) {
	b := make([]byte, g.size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (g *randomTokens) Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

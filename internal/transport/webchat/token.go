package webchat

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "alertbot-webchat"

// Signer issues and checks the tokens that let a browser resume its
// conversation. Chat ids are only ever taken from a valid token.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner creates a signer for key. An empty key is replaced by a random
// one, so tokens only survive as long as the process.
func NewSigner(key string, ttl time.Duration) (*Signer, error) {
	k := []byte(key)
	if len(k) == 0 {
		k = make([]byte, 32)
		if _, err := rand.Read(k); err != nil {
			return nil, fmt.Errorf("generate web chat token key: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{key: k, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token naming chatID.
func (s *Signer) Issue(chatID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   chatID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign web chat token: %w", err)
	}
	return signed, nil
}

// Verify returns the chat id carried by token.
func (s *Signer) Verify(token string) (string, error) {
	if token == "" {
		return "", errors.New("empty token")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("parse web chat token: %w", err)
	}
	if !chatIDPattern.MatchString(claims.Subject) {
		return "", fmt.Errorf("invalid chat id in token: %q", claims.Subject)
	}
	return claims.Subject, nil
}

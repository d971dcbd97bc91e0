package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret accepted.
const MinSecretLength = 32

// HS256 signs and verifies admin session tokens with a shared secret. There
// is a single issuer and verifier (this service), so no key distribution is
// needed.
type HS256 struct {
	secret   []byte
	issuer   string
	audience []string
	now      func() time.Time
}

// NewHS256 validates the secret length and returns a signer/verifier pair.
func NewHS256(secret []byte, issuer string, audience []string) (*HS256, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &HS256{secret: secret, issuer: issuer, audience: audience, now: time.Now}, nil
}

func (h *HS256) Sign(c Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	s, err := t.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return s, nil
}

func (h *HS256) Verify(raw string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(h.now),
	)

	var c Claims
	token, err := parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return h.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Claims{}, ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return Claims{}, ErrNotYetValid
	case err != nil:
		return Claims{}, fmt.Errorf("jwtx: parse or verify: %w", err)
	case !token.Valid:
		return Claims{}, ErrInvalidClaim
	}

	if err := c.ValidateIssuer(h.issuer); err != nil {
		return Claims{}, err
	}
	if err := c.ValidateAudience(h.audience); err != nil {
		return Claims{}, err
	}
	if err := c.ValidateExpiry(h.now()); err != nil {
		return Claims{}, err
	}
	return c, nil
}

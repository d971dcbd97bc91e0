package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/alimatrix/pkg/cryptox"
	"github.com/aussiebroadwan/alimatrix/pkg/jwtx"
)

// Admin scopes carried in session tokens.
const (
	ScopeAuditRead         = "audit:read"
	ScopeSubmissionsRead   = "submissions:read"
	ScopeSubmissionsDelete = "submissions:delete"
)

// AdminScopes are granted to every admin session.
var AdminScopes = []string{ScopeAuditRead, ScopeSubmissionsRead, ScopeSubmissionsDelete}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTOTPCode    = errors.New("invalid TOTP code")
	ErrAdminDisabled      = errors.New("admin login is not configured")
)

// AdminSession is what a successful login returns.
type AdminSession struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	Scopes      []string `json:"scopes"`
}

// AdminAuthService authenticates the single configured administrator with a
// password and, when a TOTP secret is set, a one time code.
type AdminAuthService struct {
	Username     string
	PasswordHash string // argon2id PHC string
	TOTPSecret   string // base32, optional

	Hasher cryptox.PasswordHasher
	Signer jwtx.Signer

	Issuer   string
	Audience []string
	TTL      time.Duration

	Now func() time.Time
}

func (s *AdminAuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login verifies the credentials and returns a signed session token. Every
// credential failure is reported as ErrInvalidCredentials or
// ErrInvalidTOTPCode without saying which part was wrong.
func (s *AdminAuthService) Login(ctx context.Context, username, password, code string) (AdminSession, error) {
	if s.Username == "" || s.PasswordHash == "" || s.Signer == nil {
		return AdminSession{}, ErrAdminDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.Username)) == 1
	// The hash is checked even when the username is wrong.
	pwErr := s.Hasher.Verify(password, s.PasswordHash)
	if !userOK || pwErr != nil {
		if pwErr != nil && !errors.Is(pwErr, cryptox.ErrPasswordMismatch) {
			return AdminSession{}, fmt.Errorf("verify password: %w", pwErr)
		}
		return AdminSession{}, ErrInvalidCredentials
	}

	now := s.now()
	amr := []string{"pwd"}
	if s.TOTPSecret != "" {
		ok, err := totp.ValidateCustom(code, s.TOTPSecret, now.UTC(), totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil || !ok {
			return AdminSession{}, ErrInvalidTOTPCode
		}
		amr = append(amr, "otp")
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}
	claims := jwtx.NewSessionClaims(s.Username, s.Issuer, s.Audience, AdminScopes, amr, ttl, now)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return AdminSession{}, fmt.Errorf("sign session: %w", err)
	}

	return AdminSession{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
		Scopes:      append([]string(nil), AdminScopes...),
	}, nil
}

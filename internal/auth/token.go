package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
)

// ExpiryMode selects how a token's exp claim is computed.
type ExpiryMode string

const (
	// ExpiryPerToken sets exp to issue time + TTL.
	ExpiryPerToken ExpiryMode = "per-token"
	// ExpiryFixed computes one absolute expiry when the service starts; every
	// token issued afterwards shares it.
	ExpiryFixed ExpiryMode = "fixed"
)

func ParseExpiryMode(s string) (ExpiryMode, error) {
	switch ExpiryMode(s) {
	case "", ExpiryPerToken:
		return ExpiryPerToken, nil
	case ExpiryFixed:
		return ExpiryFixed, nil
	}
	return "", &apperr.InvalidEnumValueError{Field: "token_expiry_mode", Value: s}
}

// TokenService issues and verifies HS256 session tokens bound to a username.
// It holds no per-token state and is safe for concurrent use.
type TokenService struct {
	secret      []byte
	issuer      string
	ttl         time.Duration
	mode        ExpiryMode
	fixedExpiry time.Time
	now         func() time.Time
}

type Option func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

func WithExpiryMode(m ExpiryMode) Option {
	return func(s *TokenService) { s.mode = m }
}

func NewTokenService(secret, issuer string, ttl time.Duration, opts ...Option) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if issuer == "" {
		return nil, errors.New("token issuer is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl, mode: ExpiryPerToken, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.mode == ExpiryFixed {
		s.fixedExpiry = s.now().Add(ttl)
	}
	return s, nil
}

// TTL is the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token whose subject is the account's username.
func (s *TokenService) Issue(a *entity.Account) (string, time.Time, error) {
	if a == nil || a.Username == "" {
		return "", time.Time{}, errors.New("issue token: account without username")
	}
	now := s.now()
	exp := now.Add(s.ttl)
	if s.mode == ExpiryFixed {
		exp = s.fixedExpiry
	}
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   a.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks signature, issuer and expiry and returns the embedded username.
// Every failure is an *apperr.InvalidTokenError.
func (s *TokenService) Verify(token string) (string, error) {
	if token == "" {
		return "", apperr.InvalidToken("empty token")
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", apperr.InvalidToken(reason(err))
	}
	if !parsed.Valid {
		return "", apperr.InvalidToken("not valid")
	}
	if claims.Subject == "" {
		return "", apperr.InvalidToken("missing subject")
	}
	return claims.Subject, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature invalid"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "issuer mismatch"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing expiry"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	default:
		return err.Error()
	}
}

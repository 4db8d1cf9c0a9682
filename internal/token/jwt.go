// Package token issues and validates the API's bearer and refresh tokens.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/config"
)

// Private claim names.
const (
	ClaimEmail = "email"
	ClaimName  = "name"
	ClaimRoles = "roles"
)

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Subject is the identity encoded in an access token.
type Subject struct {
	UserID string
	Email  string
	Name   string
	Roles  []string
}

// Claims is a validated access token.
type Claims struct {
	Subject
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal converts the claims into the request principal.
func (c Claims) Principal() common.Principal {
	return common.Principal{UserID: c.UserID, Email: c.Email, Name: c.Name, Roles: c.Roles}
}

// AccessToken is a signed bearer token.
type AccessToken struct {
	Token     string    `json:"accessToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Config configures the JwtService.
type Config struct {
	Key       string
	Issuer    string
	Audience  string
	AccessTTL time.Duration
	ClockSkew time.Duration
}

// ConfigFrom maps the JWT settings onto Config.
func ConfigFrom(s config.JWTSettings) Config {
	return Config{
		Key:       s.Key,
		Issuer:    s.Issuer,
		Audience:  s.Audience,
		AccessTTL: s.AccessTTL,
		ClockSkew: s.ClockSkew,
	}
}

// JwtService signs and parses HS256 access tokens.
type JwtService struct {
	key       []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	validator Validator
	now       func() time.Time
}

// NewJwtService validates cfg and builds the service.
func NewJwtService(cfg Config) (*JwtService, error) {
	if utf8.RuneCountInString(cfg.Key) < config.MinJWTKeyLength {
		return nil, config.ErrJWTKeyTooShort
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, config.ErrMissingJWTIssuer
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, config.ErrMissingJWTAudience
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	skew := cfg.ClockSkew
	if skew < 0 {
		skew = 0
	}
	return &JwtService{
		key:       []byte(cfg.Key),
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		accessTTL: ttl,
		validator: Validator{
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			ClockSkew: skew,
			Algorithm: jwa.HS256,
		},
		now: time.Now,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *JwtService) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GenerateToken signs an access token for sub.
func (s *JwtService) GenerateToken(sub Subject) (AccessToken, error) {
	if sub.UserID == "" {
		return AccessToken{}, errors.New("token: subject is required")
	}
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	roles := sub.Roles
	if roles == nil {
		roles = []string{}
	}
	tok, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Subject(sub.UserID).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expiresAt).
		Claim(ClaimEmail, sub.Email).
		Claim(ClaimName, sub.Name).
		Claim(ClaimRoles, roles).
		Build()
	if err != nil {
		return AccessToken{}, fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.key))
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign token: %w", err)
	}
	return AccessToken{Token: string(signed), ExpiresAt: expiresAt}, nil
}

// Parse verifies signature, algorithm, issuer, audience and lifetime.
func (s *JwtService) Parse(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrInvalidToken
	}
	alg, err := headerAlgorithm(raw)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if alg != s.validator.Algorithm {
		return Claims{}, fmt.Errorf("%w: unexpected algorithm %s", ErrInvalidToken, alg)
	}
	tok, err := jwt.ParseString(raw, jwt.WithKey(alg, s.key), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := s.validator.Validate(tok, alg, s.now()); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tok.Subject() == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	claims := tok.PrivateClaims()
	return Claims{
		Subject: Subject{
			UserID: tok.Subject(),
			Email:  stringClaim(claims[ClaimEmail]),
			Name:   stringClaim(claims[ClaimName]),
			Roles:  stringsClaim(claims[ClaimRoles]),
		},
		ID:        tok.JwtID(),
		IssuedAt:  tok.IssuedAt(),
		ExpiresAt: tok.Expiration(),
	}, nil
}

func stringClaim(v any) string {
	s, _ := v.(string)
	return s
}

func stringsClaim(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{vals}
	}
	return nil
}

package token

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/config"
	"github.com/noah-isme/backend-electronic/internal/db/dbtest"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T, now time.Time) *JwtService {
	t.Helper()
	svc, err := NewJwtService(Config{
		Key:       testKey,
		Issuer:    "store-api",
		Audience:  "store-clients",
		AccessTTL: time.Minute,
		ClockSkew: 5 * time.Second,
	})
	require.NoError(t, err)
	svc.WithNow(func() time.Time { return now })
	return svc
}

func TestNewJwtServiceRejectsWeakConfig(t *testing.T) {
	_, err := NewJwtService(Config{Key: "short", Issuer: "i", Audience: "a"})
	require.ErrorIs(t, err, config.ErrJWTKeyTooShort)
	_, err = NewJwtService(Config{Key: testKey, Audience: "a"})
	require.ErrorIs(t, err, config.ErrMissingJWTIssuer)
	_, err = NewJwtService(Config{Key: testKey, Issuer: "i"})
	require.ErrorIs(t, err, config.ErrMissingJWTAudience)
}

func TestNewJwtServiceCountsKeyCharacters(t *testing.T) {
	_, err := NewJwtService(Config{Key: strings.Repeat("ключ", 7), Issuer: "i", Audience: "a"})
	require.ErrorIs(t, err, config.ErrJWTKeyTooShort)
	_, err = NewJwtService(Config{Key: strings.Repeat("ключ", 8), Issuer: "i", Audience: "a"})
	require.NoError(t, err)
}

func TestGenerateAndParseRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)

	access, err := svc.GenerateToken(Subject{UserID: "u-1", Email: "a@example.com", Name: "Ada", Roles: []string{"Admin", "Customer"}})
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Minute), access.ExpiresAt)

	claims, err := svc.Parse(access.Token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, "a@example.com", claims.Email)
	require.Equal(t, "Ada", claims.Name)
	require.Equal(t, []string{"Admin", "Customer"}, claims.Roles)
	require.NotEmpty(t, claims.ID)
	require.True(t, claims.Principal().HasRole("Admin"))
}

func TestParseHonoursClockSkew(t *testing.T) {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	access, err := newTestService(t, issued).GenerateToken(Subject{UserID: "u-1"})
	require.NoError(t, err)

	withinSkew := newTestService(t, issued.Add(time.Minute+4*time.Second))
	_, err = withinSkew.Parse(access.Token)
	require.NoError(t, err)

	expired := newTestService(t, issued.Add(time.Minute+6*time.Second))
	_, err = expired.Parse(access.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	early := newTestService(t, issued.Add(-10*time.Second))
	_, err = early.Parse(access.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)

	build := func(issuer, audience string) jwt.Token {
		tok, err := jwt.NewBuilder().
			Subject("u-1").
			Issuer(issuer).
			Audience([]string{audience}).
			IssuedAt(now).
			Expiration(now.Add(time.Minute)).
			Build()
		require.NoError(t, err)
		return tok
	}
	sign := func(tok jwt.Token, alg jwa.SignatureAlgorithm, key []byte) string {
		signed, err := jwt.Sign(tok, jwt.WithKey(alg, key))
		require.NoError(t, err)
		return string(signed)
	}

	cases := map[string]string{
		"wrong issuer":    sign(build("other", "store-clients"), jwa.HS256, []byte(testKey)),
		"wrong audience":  sign(build("store-api", "other"), jwa.HS256, []byte(testKey)),
		"wrong key":       sign(build("store-api", "store-clients"), jwa.HS256, []byte(strings.Repeat("x", 32))),
		"wrong algorithm": sign(build("store-api", "store-clients"), jwa.HS384, []byte(testKey)),
		"garbage":         "not.a.jwt",
		"empty":           "",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Parse(raw)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	good := sign(build("store-api", "store-clients"), jwa.HS256, []byte(testKey))
	_, err := svc.Parse(good)
	require.NoError(t, err)
}

func TestParseRejectsUnsignedToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	// {"alg":"none","typ":"JWT"} . {"sub":"u-1","iss":"store-api","aud":"store-clients"} .
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." +
		"eyJzdWIiOiJ1LTEiLCJpc3MiOiJzdG9yZS1hcGkiLCJhdWQiOiJzdG9yZS1jbGllbnRzIn0."
	_, err := svc.Parse(unsigned)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokensRotateAndReuse(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := RefreshTokens{Q: dbtest.New(), TTL: time.Hour, Now: func() time.Time { return now }}
	userID := uuid.NewString()

	first, err := store.Issue(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), first.ExpiresAt)

	owner, second, err := store.Rotate(ctx, first.Token)
	require.NoError(t, err)
	require.Equal(t, userID, owner)
	require.NotEqual(t, first.Token, second.Token)

	_, _, err = store.Rotate(ctx, first.Token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, _, err = store.Rotate(ctx, second.Token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken, "reuse revokes the whole family")
}

func TestRefreshTokensExpiryAndRevoke(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := RefreshTokens{Q: dbtest.New(), TTL: time.Hour, Now: clock}
	userID := uuid.NewString()

	tok, err := store.Issue(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, store.Revoke(ctx, tok.Token))
	require.NoError(t, store.Revoke(ctx, "unknown"))
	_, _, err = store.Rotate(ctx, tok.Token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	tok, err = store.Issue(ctx, userID)
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	_, _, err = store.Rotate(ctx, tok.Token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, _, err = store.Rotate(ctx, "")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

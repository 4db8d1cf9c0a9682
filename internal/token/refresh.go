package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/db"
)

// ErrInvalidRefreshToken is returned for unknown, expired, or revoked refresh tokens.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// RefreshQuerier is the subset of db.Querier used for refresh tokens.
type RefreshQuerier interface {
	CreateRefreshToken(ctx context.Context, arg db.CreateRefreshTokenParams) (db.RefreshToken, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (db.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) (int64, error)
	RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

// RefreshToken is an opaque token handed to the client. Only its hash is stored.
type RefreshToken struct {
	Token     string    `json:"refreshToken"`
	ExpiresAt time.Time `json:"refreshExpiresAt"`
}

// RefreshTokens issues, rotates and revokes refresh tokens.
type RefreshTokens struct {
	Q   RefreshQuerier
	TTL time.Duration
	Now func() time.Time
}

func (r RefreshTokens) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func generate(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Issue creates a refresh token for userID.
func (r RefreshTokens) Issue(ctx context.Context, userID string) (RefreshToken, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return RefreshToken{}, fmt.Errorf("refresh token: %w", err)
	}
	plain, err := generate(48)
	if err != nil {
		return RefreshToken{}, fmt.Errorf("generate refresh token: %w", err)
	}
	ttl := r.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	expiresAt := r.now().Add(ttl)
	if _, err := r.Q.CreateRefreshToken(ctx, db.CreateRefreshTokenParams{
		UserID:    uid,
		TokenHash: common.Sha256Hex(plain),
		ExpiresAt: expiresAt,
	}); err != nil {
		return RefreshToken{}, fmt.Errorf("store refresh token: %w", err)
	}
	return RefreshToken{Token: plain, ExpiresAt: expiresAt}, nil
}

// Rotate revokes plain and issues a replacement, returning the owner id.
// Presenting an already revoked token revokes every token of its owner.
func (r RefreshTokens) Rotate(ctx context.Context, plain string) (string, RefreshToken, error) {
	stored, err := r.lookup(ctx, plain)
	if err != nil {
		return "", RefreshToken{}, err
	}
	n, err := r.Q.RevokeRefreshToken(ctx, stored.ID)
	if err != nil {
		return "", RefreshToken{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	if n == 0 {
		_ = r.Q.RevokeUserRefreshTokens(ctx, stored.UserID)
		return "", RefreshToken{}, ErrInvalidRefreshToken
	}
	userID := stored.UserID.String()
	next, err := r.Issue(ctx, userID)
	if err != nil {
		return "", RefreshToken{}, err
	}
	return userID, next, nil
}

func (r RefreshTokens) lookup(ctx context.Context, plain string) (db.RefreshToken, error) {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return db.RefreshToken{}, ErrInvalidRefreshToken
	}
	stored, err := r.Q.GetRefreshTokenByHash(ctx, common.Sha256Hex(plain))
	if db.IsNotFound(err) {
		return db.RefreshToken{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return db.RefreshToken{}, err
	}
	if stored.RevokedAt.Valid {
		_ = r.Q.RevokeUserRefreshTokens(ctx, stored.UserID)
		return db.RefreshToken{}, ErrInvalidRefreshToken
	}
	if !r.now().Before(stored.ExpiresAt) {
		return db.RefreshToken{}, ErrInvalidRefreshToken
	}
	return stored, nil
}

// Revoke invalidates plain. Unknown tokens are ignored.
func (r RefreshTokens) Revoke(ctx context.Context, plain string) error {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return nil
	}
	stored, err := r.Q.GetRefreshTokenByHash(ctx, common.Sha256Hex(plain))
	if db.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.Q.RevokeRefreshToken(ctx, stored.ID)
	return err
}

// RevokeAll invalidates every refresh token of userID.
func (r RefreshTokens) RevokeAll(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	return r.Q.RevokeUserRefreshTokens(ctx, uid)
}

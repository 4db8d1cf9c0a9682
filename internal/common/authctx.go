package common

import (
	"context"
	"slices"
	"sync"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Roles  []string
}

// HasRole reports whether the principal holds any of roles.
func (p Principal) HasRole(roles ...string) bool {
	for _, role := range roles {
		if slices.Contains(p.Roles, role) {
			return true
		}
	}
	return false
}

type ctxKey string

const (
	principalKey ctxKey = "auth/principal"
	holderKey    ctxKey = "auth/principal-holder"
)

// PrincipalHolder lets outer middleware observe the principal attached by
// an inner stage.
type PrincipalHolder struct {
	mu sync.Mutex
	p  *Principal
}

// Get returns the recorded principal, if any.
func (h *PrincipalHolder) Get() (Principal, bool) {
	if h == nil {
		return Principal{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.p == nil {
		return Principal{}, false
	}
	return *h.p, true
}

// WithPrincipalHolder installs an empty holder on ctx.
func WithPrincipalHolder(ctx context.Context) (context.Context, *PrincipalHolder) {
	h := &PrincipalHolder{}
	return context.WithValue(ctx, holderKey, h), h
}

// WithPrincipal stores the authenticated principal on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if h, ok := ctx.Value(holderKey).(*PrincipalHolder); ok {
		h.mu.Lock()
		h.p = &p
		h.mu.Unlock()
	}
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom extracts the authenticated principal from ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	p, ok := PrincipalFrom(ctx)
	if !ok || p.UserID == "" {
		return "", false
	}
	return p.UserID, true
}

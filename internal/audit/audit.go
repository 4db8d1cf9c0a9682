// Package audit records administrative changes to the structured log.
package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/obs"
)

// ActorKind tells who performed an audited action.
type ActorKind string

const (
	ActorUser      ActorKind = "user"
	ActorAnonymous ActorKind = "anonymous"
)

// Entry is one audited request.
type Entry struct {
	Actor      ActorKind
	UserID     string
	Method     string
	Route      string
	ResourceID string
	Status     int
	IP         string
	RequestID  string
}

// Recorder writes an entry for every state-changing request it wraps.
// Reads are not audited.
type Recorder struct {
	Logger zerolog.Logger
	// Sink, when set, receives each entry in addition to the log.
	Sink func(Entry)
}

// Middleware implements the chi middleware signature.
func (a Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !mutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		rec := obs.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)
		a.record(build(r, rec.Status()))
	})
}

func (a Recorder) record(e Entry) {
	evt := a.Logger.Info()
	if e.Status >= http.StatusBadRequest {
		evt = a.Logger.Warn()
	}
	evt.Str("audit_actor", string(e.Actor)).
		Str("user_id", e.UserID).
		Str("method", e.Method).
		Str("route", e.Route).
		Str("resource_id", e.ResourceID).
		Int("status", e.Status).
		Str("ip", e.IP).
		Str("request_id", e.RequestID).
		Msg("audit")
	if a.Sink != nil {
		a.Sink(e)
	}
}

func build(r *http.Request, status int) Entry {
	e := Entry{
		Actor:     ActorAnonymous,
		Method:    r.Method,
		Route:     r.URL.Path,
		Status:    status,
		IP:        common.ClientIP(r),
		RequestID: middleware.GetReqID(r.Context()),
	}
	if uid, ok := common.UserID(r.Context()); ok {
		e.Actor = ActorUser
		e.UserID = uid
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			e.Route = pattern
		}
		e.ResourceID = rctx.URLParam("id")
	}
	return e
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

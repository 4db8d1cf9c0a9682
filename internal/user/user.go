// Package user serves user administration and profile updates.
package user

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

// View is a user together with its roles.
type View struct {
	repo.User
	Roles []string `json:"roles"`
}

// Load returns the user with its roles.
func Load(ctx context.Context, s *app.Scope, id string) (View, error) {
	u, err := s.UserManager.FindByID(ctx, id)
	if err != nil {
		return View{}, err
	}
	roles, err := s.UserManager.Roles(ctx, u.ID)
	if err != nil {
		return View{}, err
	}
	if roles == nil {
		roles = []string{}
	}
	return View{User: u, Roles: roles}, nil
}

// Controller serves /api/users.
type Controller struct{}

type roleRequest struct {
	Role string `json:"role" validate:"required,max=64"`
}

type profileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// List handles GET /api/users.
func (c *Controller) List(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	page, limit := common.ParsePagination(r, 20)
	pg := common.Pagination{Page: page, Limit: limit}
	rows, total, err := s.Users.List(r.Context(), limit, pg.Offset())
	if err != nil {
		s.Fail(w, err, "user")
		return
	}
	views := make([]View, 0, len(rows))
	for _, u := range rows {
		roles, err := s.UserManager.Roles(r.Context(), u.ID)
		if err != nil {
			s.Fail(w, err, "user")
			return
		}
		if roles == nil {
			roles = []string{}
		}
		views = append(views, View{User: u, Roles: roles})
	}
	common.Paged(w, views, common.NewPagination(page, limit, total))
}

// Get handles GET /api/users/{id}.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	v, err := Load(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		s.Fail(w, err, "user")
		return
	}
	common.Data(w, http.StatusOK, v)
}

// Delete handles DELETE /api/users/{id}. Users with orders are kept.
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	id := chi.URLParam(r, "id")
	if err := s.Users.Delete(r.Context(), id); err != nil {
		s.Fail(w, err, "user")
		return
	}
	s.Logger.Info().Str("user_id", id).Msg("user deleted")
	w.WriteHeader(http.StatusNoContent)
}

// AddRole handles POST /api/users/{id}/roles.
func (c *Controller) AddRole(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	var req roleRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.UserManager.AddToRole(r.Context(), id, strings.TrimSpace(req.Role)); err != nil {
		s.Fail(w, err, "user")
		return
	}
	c.respond(w, r, s, id)
}

// RemoveRole handles DELETE /api/users/{id}/roles/{role}.
func (c *Controller) RemoveRole(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	id := chi.URLParam(r, "id")
	if err := s.UserManager.RemoveFromRole(r.Context(), id, chi.URLParam(r, "role")); err != nil {
		s.Fail(w, err, "role membership")
		return
	}
	c.respond(w, r, s, id)
}

// UpdateMe handles PUT /api/users/me.
func (c *Controller) UpdateMe(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.WriteError(w, common.Unauthorized("authentication required"))
		return
	}
	var req profileRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		common.WriteError(w, common.ValidationError([]common.FieldError{{Field: "name", Rule: "required"}}))
		return
	}
	if _, err := s.Users.UpdateProfile(r.Context(), userID, name); err != nil {
		s.Fail(w, err, "user")
		return
	}
	c.respond(w, r, s, userID)
}

func (c *Controller) respond(w http.ResponseWriter, r *http.Request, s *app.Scope, id string) {
	v, err := Load(r.Context(), s, id)
	if err != nil {
		s.Fail(w, err, "user")
		return
	}
	common.Data(w, http.StatusOK, v)
}

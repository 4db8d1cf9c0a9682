// Package account serves registration, login and token management under
// /api/auth.
package account

import (
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/identity"
	"github.com/noah-isme/backend-electronic/internal/obs"
	"github.com/noah-isme/backend-electronic/internal/token"
	"github.com/noah-isme/backend-electronic/internal/user"
)

// TokenType is reported with every issued access token.
const TokenType = "Bearer"

var (
	errInvalidCredentials = common.NewAppError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
	errInvalidRefresh     = common.NewAppError("INVALID_REFRESH_TOKEN", "refresh token is invalid or expired", http.StatusUnauthorized, nil)
)

// Result is returned by register, login and refresh.
type Result struct {
	token.AccessToken
	token.RefreshToken
	TokenType string    `json:"tokenType"`
	User      user.View `json:"user"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=256"`
	Name     string `json:"name" validate:"max=100"`
	Password string `json:"password" validate:"required,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,max=128"`
}

// Controller serves /api/auth.
type Controller struct{}

func attempt(r *http.Request, op, result string) {
	obs.RecordAuthAttempt(r.Context(), op, result)
}

// issue signs an access token for v and opens a refresh token.
func issue(r *http.Request, s *app.Scope, v user.View) (Result, error) {
	access, err := s.Tokens.GenerateToken(token.Subject{UserID: v.ID, Email: v.Email, Name: v.Name, Roles: v.Roles})
	if err != nil {
		return Result{}, err
	}
	refresh, err := s.Refresh.Issue(r.Context(), v.ID)
	if err != nil {
		return Result{}, err
	}
	return Result{AccessToken: access, RefreshToken: refresh, TokenType: TokenType, User: v}, nil
}

// Register handles POST /api/auth/register. New accounts are customers.
func (c Controller) Register(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	var req registerRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSpace(req.Email)
	}
	var v user.View
	err := s.Tx(r.Context(), func(tx *app.Scope) error {
		u, err := tx.UserManager.Create(r.Context(), req.Email, name, req.Password, identity.RoleCustomer)
		if err != nil {
			return err
		}
		v, err = user.Load(r.Context(), tx, u.ID)
		return err
	})
	if err != nil {
		attempt(r, "register", "rejected")
		s.Fail(w, err, "user")
		return
	}
	res, err := issue(r, s, v)
	if err != nil {
		attempt(r, "register", "error")
		s.Fail(w, err, "user")
		return
	}
	attempt(r, "register", "success")
	s.Logger.Info().Str("user_id", v.ID).Msg("user registered")
	w.Header().Set("Location", "/api/auth/me")
	common.Data(w, http.StatusCreated, res)
}

// Login handles POST /api/auth/login. Unknown e-mails and wrong passwords
// are indistinguishable.
func (c Controller) Login(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	u, err := s.UserManager.FindByEmail(r.Context(), req.Email)
	if err == nil && !s.UserManager.CheckPassword(u, req.Password) {
		err = errInvalidCredentials
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
		attempt(r, "login", "failure")
		s.Logger.Warn().Str("ip", common.ClientIP(r)).Msg("login failed")
		common.WriteError(w, errInvalidCredentials)
		return
	}
	if err != nil {
		attempt(r, "login", "error")
		s.Fail(w, err, "user")
		return
	}
	v, err := user.Load(r.Context(), s, u.ID)
	if err != nil {
		s.Fail(w, err, "user")
		return
	}
	res, err := issue(r, s, v)
	if err != nil {
		attempt(r, "login", "error")
		s.Fail(w, err, "user")
		return
	}
	attempt(r, "login", "success")
	common.Data(w, http.StatusOK, res)
}

// Refresh handles POST /api/auth/refresh. The presented token is consumed;
// replaying it revokes every session of its owner.
func (c Controller) Refresh(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	var req refreshRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	userID, next, err := s.Refresh.Rotate(r.Context(), req.RefreshToken)
	if errors.Is(err, token.ErrInvalidRefreshToken) {
		attempt(r, "refresh", "failure")
		common.WriteError(w, errInvalidRefresh)
		return
	}
	if err != nil {
		attempt(r, "refresh", "error")
		s.Fail(w, err, "refresh token")
		return
	}
	v, err := user.Load(r.Context(), s, userID)
	if err != nil {
		s.Fail(w, err, "user")
		return
	}
	access, err := s.Tokens.GenerateToken(token.Subject{UserID: v.ID, Email: v.Email, Name: v.Name, Roles: v.Roles})
	if err != nil {
		s.Fail(w, err, "user")
		return
	}
	attempt(r, "refresh", "success")
	common.Data(w, http.StatusOK, Result{AccessToken: access, RefreshToken: next, TokenType: TokenType, User: v})
}

// Logout handles POST /api/auth/logout. Unknown tokens are ignored.
func (c Controller) Logout(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	var req logoutRequest
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	if err := s.Refresh.Revoke(r.Context(), req.RefreshToken); err != nil {
		s.Fail(w, err, "refresh token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (c Controller) Me(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.WriteError(w, common.Unauthorized("authentication required"))
		return
	}
	v, err := user.Load(r.Context(), s, userID)
	if err != nil {
		s.Fail(w, err, "user")
		return
	}
	common.Data(w, http.StatusOK, v)
}

// ChangePassword handles POST /api/auth/change-password and signs out every
// other session.
func (c Controller) ChangePassword(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.WriteError(w, common.Unauthorized("authentication required"))
		return
	}
	var req changePasswordRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	err := s.Tx(r.Context(), func(tx *app.Scope) error {
		if err := tx.UserManager.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
			return err
		}
		return tx.Refresh.RevokeAll(r.Context(), userID)
	})
	if err != nil {
		s.Fail(w, err, "user")
		return
	}
	s.Logger.Info().Str("user_id", userID).Msg("password changed")
	w.WriteHeader(http.StatusNoContent)
}

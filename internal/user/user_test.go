package user_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/app/apptest"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/db/dbtest"
	"github.com/noah-isme/backend-electronic/internal/repo"
	"github.com/noah-isme/backend-electronic/internal/user"
)

func router(t *testing.T, fake *dbtest.Fake) http.Handler {
	t.Helper()
	c := &user.Controller{}
	f := apptest.Factory(t, fake)
	r := chi.NewRouter()
	r.Get("/api/users", f.Handle(c.List))
	r.Put("/api/users/me", f.Handle(c.UpdateMe))
	r.Get("/api/users/{id}", f.Handle(c.Get))
	r.Delete("/api/users/{id}", f.Handle(c.Delete))
	r.Post("/api/users/{id}/roles", f.Handle(c.AddRole))
	r.Delete("/api/users/{id}/roles/{role}", f.Handle(c.RemoveRole))
	return r
}

func send(h http.Handler, userID, method, target, body string) *httptest.ResponseRecorder {
	req := apptest.As(httptest.NewRequest(method, target, strings.NewReader(body)), userID, "Admin")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListAndGetIncludeRoles(t *testing.T) {
	fake := dbtest.New()
	h := router(t, fake)
	admin := apptest.User(t, fake, "admin@example.com", "Admin")
	for _, email := range []string{"a@example.com", "b@example.com"} {
		apptest.User(t, fake, email, "Customer")
	}

	rec := send(h, admin.ID, http.MethodGet, "/api/users?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data       []user.View       `json:"data"`
		Pagination common.Pagination `json:"pagination"`
	}
	require.NoError(t, jsonDecode(rec, &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, int64(3), body.Pagination.TotalItems)
	require.Equal(t, int64(2), body.Pagination.TotalPages)
	require.NotContains(t, rec.Body.String(), "passwordHash")

	rec = send(h, admin.ID, http.MethodGet, "/api/users/"+admin.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	v := apptest.Data[user.View](t, rec)
	require.Equal(t, "admin@example.com", v.Email)
	require.Equal(t, []string{"Admin"}, v.Roles)

	rec = send(h, admin.ID, http.MethodGet, "/api/users/not-a-uuid", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoleMembership(t *testing.T) {
	fake := dbtest.New()
	h := router(t, fake)
	admin := apptest.User(t, fake, "root@example.com", "Admin")
	u := apptest.User(t, fake, "staff@example.com", "Customer")
	target := "/api/users/" + u.ID + "/roles"

	rec := send(h, admin.ID, http.MethodPost, target, `{"role":"Admin"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.ElementsMatch(t, []string{"Admin", "Customer"}, apptest.Data[user.View](t, rec).Roles)

	rec = send(h, admin.ID, http.MethodPost, target, `{"role":"Wizard"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", apptest.ErrorCode(t, rec))

	rec = send(h, admin.ID, http.MethodDelete, target+"/Admin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"Customer"}, apptest.Data[user.View](t, rec).Roles)

	rec = send(h, admin.ID, http.MethodDelete, target+"/Admin", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteKeepsUsersWithOrders(t *testing.T) {
	fake := dbtest.New()
	h := router(t, fake)
	admin := apptest.User(t, fake, "ops@example.com", "Admin")
	buyer := apptest.User(t, fake, "buyer@example.com", "Customer")
	idle := apptest.User(t, fake, "idle@example.com", "Customer")
	_, err := repo.NewSet(fake).Orders.Create(context.Background(), repo.NewOrder{UserID: buyer.ID, Total: 100, ShippingAddress: "1 Road Street"})
	require.NoError(t, err)

	rec := send(h, admin.ID, http.MethodDelete, "/api/users/"+buyer.ID, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "RESOURCE_IN_USE", apptest.ErrorCode(t, rec))

	rec = send(h, admin.ID, http.MethodDelete, "/api/users/"+idle.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = send(h, admin.ID, http.MethodDelete, "/api/users/"+idle.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateMe(t *testing.T) {
	fake := dbtest.New()
	h := router(t, fake)
	u := apptest.User(t, fake, "me@example.com", "Customer")

	rec := send(h, u.ID, http.MethodPut, "/api/users/me", `{"name":"  Dana Park  "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Dana Park", apptest.Data[user.View](t, rec).Name)

	rec = send(h, u.ID, http.MethodPut, "/api/users/me", `{"name":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", apptest.ErrorCode(t, rec))
}

func jsonDecode(rec *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}

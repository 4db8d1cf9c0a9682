package cart_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/app/apptest"
	"github.com/noah-isme/backend-electronic/internal/cart"
	"github.com/noah-isme/backend-electronic/internal/db/dbtest"
)

func setup(t *testing.T) (*dbtest.Fake, http.Handler) {
	t.Helper()
	fake := dbtest.New()
	f := apptest.Factory(t, fake)
	var c cart.Controller
	r := chi.NewRouter()
	r.Get("/api/cart", f.Handle(c.Get))
	r.Delete("/api/cart", f.Handle(c.Clear))
	r.Post("/api/cart/items", f.Handle(c.AddItem))
	r.Put("/api/cart/items/{productId}", f.Handle(c.UpdateItem))
	r.Delete("/api/cart/items/{productId}", f.Handle(c.RemoveItem))
	return fake, r
}

func call(t *testing.T, h http.Handler, userID, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != "" {
		req = apptest.As(req, userID, "Customer")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCartLifecycle(t *testing.T) {
	fake, h := setup(t)
	user := apptest.User(t, fake, "ana@example.com", "Customer")
	phone := apptest.Product(t, fake, "Phone", 25000, 5)
	charger := apptest.Product(t, fake, "Charger", 1500, 10)

	rec := call(t, h, user.ID, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	empty := apptest.Data[cart.View](t, rec)
	require.NotEmpty(t, empty.ID)
	require.Empty(t, empty.Items)

	rec = call(t, h, user.ID, http.MethodPost, "/api/cart/items", `{"productId":"`+phone.ID+`","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = call(t, h, user.ID, http.MethodPost, "/api/cart/items", `{"productId":"`+phone.ID+`","quantity":1}`)
	rec = call(t, h, user.ID, http.MethodPost, "/api/cart/items", `{"productId":"`+charger.ID+`","quantity":4}`)
	v := apptest.Data[cart.View](t, rec)
	require.Equal(t, empty.ID, v.ID)
	require.Len(t, v.Items, 2)
	require.Equal(t, 3, v.Items[0].Quantity)
	require.Equal(t, int64(75000), v.Items[0].LineTotal)
	require.Equal(t, 7, v.ItemCount)
	require.Equal(t, int64(81000), v.Total)

	rec = call(t, h, user.ID, http.MethodPut, "/api/cart/items/"+charger.ID, `{"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(76500), apptest.Data[cart.View](t, rec).Total)

	rec = call(t, h, user.ID, http.MethodDelete, "/api/cart/items/"+phone.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, apptest.Data[cart.View](t, rec).Items, 1)

	rec = call(t, h, user.ID, http.MethodDelete, "/api/cart/items/"+phone.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, h, user.ID, http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, h, user.ID, http.MethodGet, "/api/cart", "")
	require.Zero(t, apptest.Data[cart.View](t, rec).ItemCount)
}

func TestCartStockAndValidation(t *testing.T) {
	fake, h := setup(t)
	user := apptest.User(t, fake, "ben@example.com", "Customer")
	tv := apptest.Product(t, fake, "TV", 90000, 2)

	rec := call(t, h, user.ID, http.MethodPost, "/api/cart/items", `{"productId":"`+tv.ID+`","quantity":3}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "INSUFFICIENT_STOCK", apptest.ErrorCode(t, rec))

	rec = call(t, h, user.ID, http.MethodPost, "/api/cart/items", `{"productId":"`+tv.ID+`","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, h, user.ID, http.MethodPost, "/api/cart/items", `{"productId":"`+tv.ID+`","quantity":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, h, user.ID, http.MethodGet, "/api/cart", "")
	require.Equal(t, 2, apptest.Data[cart.View](t, rec).ItemCount)

	rec = call(t, h, user.ID, http.MethodPut, "/api/cart/items/"+tv.ID, `{"quantity":5}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, h, user.ID, http.MethodPost, "/api/cart/items", `{"productId":"`+tv.ID+`","quantity":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", apptest.ErrorCode(t, rec))

	rec = call(t, h, user.ID, http.MethodPost, "/api/cart/items", `{"productId":"`+user.ID+`","quantity":1}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, h, "", http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

package order_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/app/apptest"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/db/dbtest"
	"github.com/noah-isme/backend-electronic/internal/events"
	"github.com/noah-isme/backend-electronic/internal/order"
	"github.com/noah-isme/backend-electronic/internal/queue"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

type recorder struct {
	mu     sync.Mutex
	topics []string
}

func (r *recorder) Notify(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, ev.Topic)
	return nil
}

type env struct {
	fake   *dbtest.Fake
	h      http.Handler
	outbox *common.InMemoryEmail
	seen   *recorder
}

func setup(t *testing.T) *env {
	t.Helper()
	fake := dbtest.New()
	outbox := &common.InMemoryEmail{}
	seen := &recorder{}
	bus := &events.Bus{Notifiers: []events.Notifier{
		seen,
		queue.OrderNotifier{Tasks: queue.Inline{Handler: queue.Handlers{Mail: outbox}.Mux()}},
	}}
	c := &order.Controller{Events: bus}
	f := apptest.Factory(t, fake)

	r := chi.NewRouter()
	r.Post("/api/orders", f.Handle(c.Checkout))
	r.Get("/api/orders", f.Handle(c.List))
	r.Get("/api/orders/{id}", f.Handle(c.Get))
	r.Get("/api/orders/{id}/items", f.Handle(c.Items))
	r.Post("/api/orders/{id}/cancel", f.Handle(c.Cancel))
	r.Get("/api/admin/orders", f.Handle(c.AdminList))
	r.Patch("/api/admin/orders/{id}/status", f.Handle(c.UpdateStatus))
	return &env{fake: fake, h: r, outbox: outbox, seen: seen}
}

func (e *env) call(t *testing.T, userID, role, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := apptest.As(httptest.NewRequest(method, target, strings.NewReader(body)), userID, role)
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func (e *env) fill(t *testing.T, userID string, lines map[string]int) {
	t.Helper()
	carts := repo.NewSet(e.fake).Carts
	c, err := carts.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	for productID, qty := range lines {
		_, err := carts.UpsertItem(context.Background(), c.ID, productID, qty)
		require.NoError(t, err)
	}
}

func (e *env) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := repo.NewSet(e.fake).Products.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func (e *env) place(t *testing.T, userID string, lines map[string]int) order.View {
	t.Helper()
	e.fill(t, userID, lines)
	rec := e.call(t, userID, "Customer", http.MethodPost, "/api/orders", `{"shippingAddress":"12 Market Street"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return apptest.Data[order.View](t, rec)
}

func TestCheckoutPlacesOrder(t *testing.T) {
	e := setup(t)
	user := apptest.User(t, e.fake, "cara@example.com", "Customer")
	laptop := apptest.Product(t, e.fake, "Laptop", 120000, 3)
	mouse := apptest.Product(t, e.fake, "Mouse", 2500, 10)

	v := e.place(t, user.ID, map[string]int{laptop.ID: 1, mouse.ID: 2})
	require.Equal(t, order.StatusPending, v.Status)
	require.Equal(t, int64(125000), v.Total)
	require.Equal(t, "12 Market Street", v.ShippingAddress)
	require.Len(t, v.Items, 2)

	require.Equal(t, 2, e.stock(t, laptop.ID))
	require.Equal(t, 8, e.stock(t, mouse.ID))

	rec := e.call(t, user.ID, "Customer", http.MethodPost, "/api/orders", `{"shippingAddress":"12 Market Street"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "CART_EMPTY", apptest.ErrorCode(t, rec))

	require.Len(t, e.outbox.Outbox, 1)
	require.Equal(t, "cara@example.com", e.outbox.Outbox[0].To)
	require.Contains(t, e.outbox.Outbox[0].HTML, "3 item(s)")
	require.Equal(t, []string{events.TopicOrderPlaced}, e.seen.topics)

	rec = e.call(t, user.ID, "Customer", http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, apptest.Data[[]repo.Order](t, rec), 1)
}

func TestCheckoutRollsBackOnInsufficientStock(t *testing.T) {
	e := setup(t)
	user := apptest.User(t, e.fake, "dan@example.com", "Customer")
	console := apptest.Product(t, e.fake, "Console", 50000, 5)
	controller := apptest.Product(t, e.fake, "Controller", 6000, 1)

	e.fill(t, user.ID, map[string]int{console.ID: 2, controller.ID: 1})
	_, err := repo.NewSet(e.fake).Products.AdjustStock(context.Background(), controller.ID, -1)
	require.NoError(t, err)

	rec := e.call(t, user.ID, "Customer", http.MethodPost, "/api/orders", `{"shippingAddress":"7 Harbour Road"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "INSUFFICIENT_STOCK", apptest.ErrorCode(t, rec))

	require.Equal(t, 5, e.stock(t, console.ID))
	rows, total, err := repo.NewSet(e.fake).Orders.ListByUser(context.Background(), user.ID, 10, 0)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, rows)
	require.Empty(t, e.outbox.Outbox)

	rec = e.call(t, user.ID, "Customer", http.MethodPost, "/api/orders", `{"shippingAddress":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", apptest.ErrorCode(t, rec))
}

func TestOrderVisibility(t *testing.T) {
	e := setup(t)
	owner := apptest.User(t, e.fake, "eve@example.com", "Customer")
	other := apptest.User(t, e.fake, "finn@example.com", "Customer")
	admin := apptest.User(t, e.fake, "admin@example.com", "Admin")
	tablet := apptest.Product(t, e.fake, "Tablet", 40000, 4)
	v := e.place(t, owner.ID, map[string]int{tablet.ID: 1})

	rec := e.call(t, owner.ID, "Customer", http.MethodGet, "/api/orders/"+v.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, apptest.Data[order.View](t, rec).Items, 1)

	rec = e.call(t, other.ID, "Customer", http.MethodGet, "/api/orders/"+v.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.call(t, admin.ID, "Admin", http.MethodGet, "/api/orders/"+v.ID+"/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := apptest.Data[[]repo.OrderItem](t, rec)
	require.Len(t, items, 1)
	require.Equal(t, "Tablet", items[0].ProductName)
	require.Equal(t, int64(40000), items[0].LineTotal)

	rec = e.call(t, other.ID, "Customer", http.MethodPost, "/api/orders/"+v.ID+"/cancel", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelRestoresStock(t *testing.T) {
	e := setup(t)
	user := apptest.User(t, e.fake, "gia@example.com", "Customer")
	watch := apptest.Product(t, e.fake, "Watch", 30000, 2)
	v := e.place(t, user.ID, map[string]int{watch.ID: 2})
	require.Zero(t, e.stock(t, watch.ID))

	rec := e.call(t, user.ID, "Customer", http.MethodPost, "/api/orders/"+v.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, order.StatusCancelled, apptest.Data[repo.Order](t, rec).Status)
	require.Equal(t, 2, e.stock(t, watch.ID))

	rec = e.call(t, user.ID, "Customer", http.MethodPost, "/api/orders/"+v.ID+"/cancel", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "INVALID_STATUS_TRANSITION", apptest.ErrorCode(t, rec))
	require.Equal(t, 2, e.stock(t, watch.ID))
	require.Contains(t, e.seen.topics, events.TopicOrderCancelled)
}

func TestAdminStatusTransitions(t *testing.T) {
	e := setup(t)
	user := apptest.User(t, e.fake, "hal@example.com", "Customer")
	admin := apptest.User(t, e.fake, "root@example.com", "Admin")
	tv := apptest.Product(t, e.fake, "TV", 99000, 5)
	v := e.place(t, user.ID, map[string]int{tv.ID: 1})
	target := "/api/admin/orders/" + v.ID + "/status"

	patch := func(status string) *httptest.ResponseRecorder {
		return e.call(t, admin.ID, "Admin", http.MethodPatch, target, `{"status":"`+status+`"}`)
	}

	rec := patch("Shipped")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "INVALID_STATUS_TRANSITION", apptest.ErrorCode(t, rec))

	rec = patch("Lost")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	for _, step := range []string{"Paid", "Shipped"} {
		rec = patch(step)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, step, apptest.Data[repo.Order](t, rec).Status)
	}
	require.Equal(t, http.StatusConflict, patch("Cancelled").Code)
	require.Equal(t, http.StatusOK, patch("Delivered").Code)
	require.Equal(t, http.StatusConflict, patch("Paid").Code)

	rec = e.call(t, admin.ID, "Admin", http.MethodGet, "/api/admin/orders?status=Delivered", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, apptest.Data[[]repo.Order](t, rec), 1)
	rec = e.call(t, admin.ID, "Admin", http.MethodGet, "/api/admin/orders?status=Pending", "")
	require.Empty(t, apptest.Data[[]repo.Order](t, rec))
	rec = e.call(t, admin.ID, "Admin", http.MethodGet, "/api/admin/orders?status=Unknown", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancellingPaidOrderRefunds(t *testing.T) {
	e := setup(t)
	user := apptest.User(t, e.fake, "ivy@example.com", "Customer")
	admin := apptest.User(t, e.fake, "ops@example.com", "Admin")
	cam := apptest.Product(t, e.fake, "Camera", 70000, 1)
	v := e.place(t, user.ID, map[string]int{cam.ID: 1})

	payments := repo.NewSet(e.fake).Payments
	p, err := payments.Create(context.Background(), repo.NewPayment{OrderID: v.ID, Amount: v.Total, Method: "card", Status: "Completed", Reference: "PAY-1"})
	require.NoError(t, err)
	_, err = repo.NewSet(e.fake).Orders.UpdateStatus(context.Background(), v.ID, order.StatusPaid)
	require.NoError(t, err)

	rec := e.call(t, admin.ID, "Admin", http.MethodPatch, "/api/admin/orders/"+v.ID+"/status", `{"status":"Cancelled"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	refunded, err := payments.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, "Refunded", refunded.Status)
	require.Equal(t, 1, e.stock(t, cam.ID))
	require.Contains(t, e.seen.topics, events.TopicOrderStatusChanged)
}

func TestCanTransition(t *testing.T) {
	require.True(t, order.CanTransition(order.StatusPending, order.StatusPaid))
	require.True(t, order.CanTransition(order.StatusPaid, order.StatusCancelled))
	require.False(t, order.CanTransition(order.StatusDelivered, order.StatusCancelled))
	require.False(t, order.CanTransition(order.StatusCancelled, order.StatusPending))
}

package payment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/app/apptest"
	"github.com/noah-isme/backend-electronic/internal/db/dbtest"
	"github.com/noah-isme/backend-electronic/internal/events"
	"github.com/noah-isme/backend-electronic/internal/lock"
	"github.com/noah-isme/backend-electronic/internal/order"
	"github.com/noah-isme/backend-electronic/internal/payment"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

type emitted struct{ topics []string }

func (e *emitted) Emit(_ context.Context, topic, aggregateID string, _ any) (events.Event, error) {
	e.topics = append(e.topics, topic)
	return events.Event{Topic: topic, AggregateID: aggregateID}, nil
}

type fixture struct {
	fake *dbtest.Fake
	h    http.Handler
	ev   *emitted
}

func newFixture(t *testing.T, c *payment.Controller) *fixture {
	t.Helper()
	fake := dbtest.New()
	ev := &emitted{}
	c.Events = ev
	f := apptest.Factory(t, fake)
	r := chi.NewRouter()
	r.Post("/api/orders/{id}/payments", f.Handle(c.Pay))
	r.Get("/api/orders/{id}/payments", f.Handle(c.ListByOrder))
	r.Get("/api/payments/{id}", f.Handle(c.Get))
	return &fixture{fake: fake, h: r, ev: ev}
}

func (fx *fixture) order(t *testing.T, userID string, total int64) repo.Order {
	t.Helper()
	o, err := repo.NewSet(fx.fake).Orders.Create(context.Background(), repo.NewOrder{UserID: userID, Total: total, ShippingAddress: "1 Test Lane"})
	require.NoError(t, err)
	return o
}

func (fx *fixture) do(t *testing.T, userID, role, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := apptest.As(httptest.NewRequest(method, target, strings.NewReader(body)), userID, role)
	rec := httptest.NewRecorder()
	fx.h.ServeHTTP(rec, req)
	return rec
}

func redisLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond, Wait: 30 * time.Millisecond}, mr
}

func TestPayCompletesPendingOrder(t *testing.T) {
	locker, mr := redisLocker(t)
	fx := newFixture(t, &payment.Controller{Lock: locker})
	user := apptest.User(t, fx.fake, "pay@example.com", "Customer")
	o := fx.order(t, user.ID, 45000)
	target := "/api/orders/" + o.ID + "/payments"

	rec := fx.do(t, user.ID, "Customer", http.MethodPost, target, `{"amount":45000,"method":"card"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := apptest.Data[repo.Payment](t, rec)
	require.Equal(t, "Completed", p.Status)
	require.Equal(t, int64(45000), p.Amount)
	require.True(t, strings.HasPrefix(p.Reference, "PAY-"))
	require.Equal(t, "/api/payments/"+p.ID, rec.Header().Get("Location"))
	require.False(t, mr.Exists(lock.OrderKey(o.ID)))

	paid, err := repo.NewSet(fx.fake).Orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPaid, paid.Status)
	require.Equal(t, []string{events.TopicPaymentCompleted}, fx.ev.topics)

	rec = fx.do(t, user.ID, "Customer", http.MethodPost, target, `{"amount":45000,"method":"card"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "ORDER_NOT_PAYABLE", apptest.ErrorCode(t, rec))

	rec = fx.do(t, user.ID, "Customer", http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, apptest.Data[[]repo.Payment](t, rec), 1)

	rec = fx.do(t, user.ID, "Customer", http.MethodGet, "/api/payments/"+p.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, p.ID, apptest.Data[repo.Payment](t, rec).ID)
}

func TestPayRejections(t *testing.T) {
	fx := newFixture(t, &payment.Controller{Lock: &lock.Local{}})
	owner := apptest.User(t, fx.fake, "owner@example.com", "Customer")
	other := apptest.User(t, fx.fake, "other@example.com", "Customer")
	o := fx.order(t, owner.ID, 1000)
	target := "/api/orders/" + o.ID + "/payments"

	cases := []struct {
		name   string
		userID string
		body   string
		status int
		code   string
	}{
		{"amount mismatch", owner.ID, `{"amount":999,"method":"card"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown method", owner.ID, `{"amount":1000,"method":"barter"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing amount", owner.ID, `{"method":"ewallet"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not the owner", other.ID, `{"amount":1000,"method":"card"}`, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := fx.do(t, tc.userID, "Customer", http.MethodPost, target, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			require.Equal(t, tc.code, apptest.ErrorCode(t, rec))
		})
	}

	rows, err := repo.NewSet(fx.fake).Payments.ListByOrder(context.Background(), o.ID)
	require.NoError(t, err)
	require.Empty(t, rows)
	require.Empty(t, fx.ev.topics)
}

func TestPayWhileLockedIsBusy(t *testing.T) {
	local := &lock.Local{}
	fx := newFixture(t, &payment.Controller{Lock: local})
	user := apptest.User(t, fx.fake, "busy@example.com", "Customer")
	o := fx.order(t, user.ID, 500)

	err := local.WithLock(context.Background(), lock.OrderKey(o.ID), time.Second, func(context.Context) error {
		rec := fx.do(t, user.ID, "Customer", http.MethodPost, "/api/orders/"+o.ID+"/payments", `{"amount":500,"method":"cash_on_delivery"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "PAYMENT_IN_PROGRESS", apptest.ErrorCode(t, rec))
		return nil
	})
	require.NoError(t, err)
}

func TestRedisLockHeldElsewhereIsBusy(t *testing.T) {
	locker, mr := redisLocker(t)
	fx := newFixture(t, &payment.Controller{Lock: locker})
	user := apptest.User(t, fx.fake, "held@example.com", "Customer")
	o := fx.order(t, user.ID, 700)
	require.NoError(t, mr.Set(lock.OrderKey(o.ID), "another-instance"))

	rec := fx.do(t, user.ID, "Customer", http.MethodPost, "/api/orders/"+o.ID+"/payments", `{"amount":700,"method":"bank_transfer"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "PAYMENT_IN_PROGRESS", apptest.ErrorCode(t, rec))
}

func TestDeclinedPaymentKeepsOrderPending(t *testing.T) {
	decline := payment.Simulated{Decline: func(c payment.Charge) bool { return c.Method == payment.MethodEWallet }}
	fx := newFixture(t, &payment.Controller{Processor: decline})
	user := apptest.User(t, fx.fake, "declined@example.com", "Customer")
	o := fx.order(t, user.ID, 2500)
	target := "/api/orders/" + o.ID + "/payments"

	rec := fx.do(t, user.ID, "Customer", http.MethodPost, target, `{"amount":2500,"method":"ewallet"}`)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Equal(t, "PAYMENT_DECLINED", apptest.ErrorCode(t, rec))

	still, err := repo.NewSet(fx.fake).Orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, still.Status)

	rec = fx.do(t, user.ID, "Customer", http.MethodPost, target, `{"amount":2500,"method":"card"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rows, err := repo.NewSet(fx.fake).Payments.ListByOrder(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestPaymentVisibility(t *testing.T) {
	fx := newFixture(t, &payment.Controller{})
	owner := apptest.User(t, fx.fake, "mine@example.com", "Customer")
	other := apptest.User(t, fx.fake, "yours@example.com", "Customer")
	admin := apptest.User(t, fx.fake, "boss@example.com", "Admin")
	o := fx.order(t, owner.ID, 300)

	rec := fx.do(t, owner.ID, "Customer", http.MethodPost, "/api/orders/"+o.ID+"/payments", `{"amount":300,"method":"card"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	p := apptest.Data[repo.Payment](t, rec)

	rec = fx.do(t, other.ID, "Customer", http.MethodGet, "/api/payments/"+p.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = fx.do(t, other.ID, "Customer", http.MethodGet, "/api/orders/"+o.ID+"/payments", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = fx.do(t, admin.ID, "Admin", http.MethodGet, "/api/payments/"+p.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, admin.ID, "Admin", http.MethodGet, "/api/payments/not-a-uuid", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewReferenceIsUnique(t *testing.T) {
	a, b := payment.NewReference(), payment.NewReference()
	require.Len(t, a, len("PAY-")+16)
	require.NotEqual(t, a, b)
}

package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/dashboard"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/idempotency"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/order"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/payment"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/refund"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/webhook"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/merchant"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/clock"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/metrics"
	httpapi "github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/queue"
)

var start = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	clk := clock.NewFake(start)
	counters := &metrics.Counters{}
	q := queue.NewMemoryQueue(logging.Nop{}, counters)
	t.Cleanup(func() { _ = q.Close() })

	orders := inmemory.NewOrderRepository()
	payments := inmemory.NewPaymentRepository()
	refunds := inmemory.NewRefundRepository()
	logs := inmemory.NewWebhookRepository()
	merchants := inmemory.NewMerchantRepository(merchant.TestMerchant(start))

	return httpapi.NewRouter(&httpapi.Handlers{
		Orders: &order.Service{Repo: orders, Clock: clk, Logger: logging.Nop{}},
		Payments: &payment.Service{
			Payments:    payments,
			Orders:      orders,
			Queue:       q,
			Idempotency: idempotency.NewCache(inmemory.NewIdempotencyRepository(), clk),
			Clock:       clk,
			Logger:      logging.Nop{},
		},
		Refunds:   &refund.Service{Refunds: refunds, Payments: payments, Queue: q, Clock: clk, Logger: logging.Nop{}},
		Webhooks:  &webhook.Service{Logs: logs, Queue: q, Clock: clk, Logger: logging.Nop{}},
		Dashboard: &dashboard.Service{Payments: payments, Merchants: merchants, Logger: logging.Nop{}},
		Merchants: merchants,
		Jobs:      q,
		Metrics:   counters,
		Logger:    logging.Nop{},
	})
}

type call struct {
	method  string
	path    string
	body    string
	headers map[string]string
	anon    bool
}

func do(t *testing.T, h http.Handler, c call) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(c.method, c.path, bytes.NewBufferString(c.body))
	req.Header.Set("Content-Type", "application/json")
	if !c.anon {
		req.Header.Set(httpapi.HeaderAPIKey, merchant.TestMerchantAPIKey)
		req.Header.Set(httpapi.HeaderAPISecret, merchant.TestMerchantAPISecret)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code, description string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode(t, rec)
	errBody := body["error"].(map[string]any)
	require.Equal(t, code, errBody["code"])
	if description != "" {
		require.Equal(t, description, errBody["description"])
	}
}

func createOrder(t *testing.T, h http.Handler, amount string) string {
	t.Helper()
	rec := do(t, h, call{method: http.MethodPost, path: "/api/v1/orders", body: `{"amount":` + amount + `}`})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["id"].(string)
}

func TestAuth(t *testing.T) {
	h := newRouter(t)

	rec := do(t, h, call{method: http.MethodGet, path: "/api/v1/orders/order_x", anon: true})
	requireError(t, rec, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "")

	rec = do(t, h, call{method: http.MethodGet, path: "/api/v1/orders/order_x", anon: true, headers: map[string]string{
		httpapi.HeaderAPIKey:    merchant.TestMerchantAPIKey,
		httpapi.HeaderAPISecret: "wrong",
	}})
	requireError(t, rec, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "")

	rec = do(t, h, call{method: http.MethodGet, path: "/api/v1/orders/order_x"})
	requireError(t, rec, http.StatusNotFound, "NOT_FOUND_ERROR", "Order not found")
}

func TestPublicRoutes(t *testing.T) {
	h := newRouter(t)

	rec := do(t, h, call{method: http.MethodGet, path: "/health", anon: true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", decode(t, rec)["status"])
	require.NotEmpty(t, rec.Header().Get(httpapi.HeaderRequestID))

	rec = do(t, h, call{method: http.MethodGet, path: "/api/v1/test/jobs/status", anon: true})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Contains(t, body, "jobs")
	require.Contains(t, body, "metrics")

	rec = do(t, h, call{method: http.MethodGet, path: "/api/v1/test/merchant", anon: true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, merchant.TestMerchantID, decode(t, rec)["id"])
}

func TestOrders(t *testing.T) {
	h := newRouter(t)

	for _, amount := range []string{"99", "100.5", `"500"`} {
		rec := do(t, h, call{method: http.MethodPost, path: "/api/v1/orders", body: `{"amount":` + amount + `}`})
		requireError(t, rec, http.StatusBadRequest, "BAD_REQUEST_ERROR", "amount must be at least 100")
	}

	rec := do(t, h, call{method: http.MethodPost, path: "/api/v1/orders", body: `{"amount":`})
	requireError(t, rec, http.StatusBadRequest, "BAD_REQUEST_ERROR", "Invalid JSON body")

	id := createOrder(t, h, "50000")
	rec = do(t, h, call{method: http.MethodGet, path: "/api/v1/orders/" + id})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "INR", body["currency"])
	require.Equal(t, "created", body["status"])
	require.Equal(t, map[string]any{}, body["notes"])
	require.Nil(t, body["receipt"])
}

func TestPayments_IdempotentReplayIsByteIdentical(t *testing.T) {
	h := newRouter(t)
	orderID := createOrder(t, h, "50000")

	c := call{
		method:  http.MethodPost,
		path:    "/api/v1/payments",
		body:    `{"order_id":"` + orderID + `","method":"upi","vpa":"user@okicici"}`,
		headers: map[string]string{"Idempotency-Key": "abc"},
	}
	first := do(t, h, c)
	second := do(t, h, c)

	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	id := decode(t, first)["id"].(string)
	rec := do(t, h, call{method: http.MethodGet, path: "/api/v1/payments/" + id})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "pending", decode(t, rec)["status"])

	rec = do(t, h, call{method: http.MethodPost, path: "/api/v1/payments/" + id + "/capture"})
	requireError(t, rec, http.StatusBadRequest, "BAD_REQUEST_ERROR", "Payment not in capturable state")

	rec = do(t, h, call{method: http.MethodPost, path: "/api/v1/payments/" + id + "/refunds", body: `{"amount":100}`})
	requireError(t, rec, http.StatusBadRequest, "BAD_REQUEST_ERROR", "")
}

func TestPayments_CardWithNumericExpiry(t *testing.T) {
	h := newRouter(t)
	orderID := createOrder(t, h, "50000")

	rec := do(t, h, call{
		method: http.MethodPost,
		path:   "/api/v1/payments",
		body: `{"order_id":"` + orderID + `","method":"card",` +
			`"card":{"number":"5555-5555-5555-4444","expiry_month":12,"expiry_year":2030}}`,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	require.Equal(t, "mastercard", body["card_network"])
	require.Equal(t, "4444", body["card_last4"])
}

func TestPayments_ValidationErrors(t *testing.T) {
	h := newRouter(t)
	orderID := createOrder(t, h, "50000")

	rec := do(t, h, call{
		method: http.MethodPost,
		path:   "/api/v1/payments",
		body:   `{"order_id":"` + orderID + `","method":"upi","vpa":"not-a-vpa"}`,
	})
	requireError(t, rec, http.StatusBadRequest, "INVALID_VPA", "Invalid VPA")

	rec = do(t, h, call{
		method: http.MethodPost,
		path:   "/api/v1/payments",
		body:   `{"order_id":"order_missing","method":"upi","vpa":"user@upi"}`,
	})
	requireError(t, rec, http.StatusNotFound, "NOT_FOUND_ERROR", "Order not found")

	rec = do(t, h, call{method: http.MethodGet, path: "/api/v1/refunds/rfnd_missing"})
	requireError(t, rec, http.StatusNotFound, "NOT_FOUND_ERROR", "Refund not found")
}

func TestWebhooks(t *testing.T) {
	h := newRouter(t)

	rec := do(t, h, call{method: http.MethodGet, path: "/api/v1/webhooks?limit=abc&offset=-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":[],"total":0,"limit":10,"offset":0}`, rec.Body.String())

	rec = do(t, h, call{method: http.MethodGet, path: "/api/v1/webhooks?limit=25&offset=5"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.EqualValues(t, 25, body["limit"])
	require.EqualValues(t, 5, body["offset"])

	rec = do(t, h, call{method: http.MethodPost, path: "/api/v1/webhooks/missing/retry"})
	requireError(t, rec, http.StatusNotFound, "NOT_FOUND_ERROR", "Webhook log not found")

	rec = do(t, h, call{method: http.MethodPost, path: "/api/v1/webhooks/test"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode(t, rec)["success"])
}

func TestDashboard(t *testing.T) {
	h := newRouter(t)

	rec := do(t, h, call{method: http.MethodGet, path: "/api/v1/dashboard/stats"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"total_transactions":0,"total_amount":0,"success_rate":0}`, rec.Body.String())

	rec = do(t, h, call{method: http.MethodGet, path: "/api/v1/dashboard/transactions"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"transactions":[]}`, rec.Body.String())

	rec = do(t, h, call{method: http.MethodPost, path: "/api/v1/dashboard/config", body: `{"webhook_url":"ftp://x"}`})
	requireError(t, rec, http.StatusBadRequest, "BAD_REQUEST_ERROR", "Invalid webhook URL")

	rec = do(t, h, call{method: http.MethodPost, path: "/api/v1/dashboard/config", body: `{"webhook_url":"https://merchant.test/hooks"}`})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, call{method: http.MethodPost, path: "/api/v1/dashboard/regenerate-secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	secret := decode(t, rec)["webhook_secret"].(string)
	require.Regexp(t, `^whsec_[0-9a-f]{32}$`, secret)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/v1/dashboard/config"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{
		"webhook_url":    "https://merchant.test/hooks",
		"webhook_secret": secret,
	}, decode(t, rec))
}

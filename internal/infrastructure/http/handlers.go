package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/apperr"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/dashboard"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/order"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/payment"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/refund"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/webhook"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/merchant"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/metrics"
)

// JobStats reports queue depth per job status.
type JobStats interface {
	Stats(ctx context.Context) (map[string]int, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	Orders    *order.Service
	Payments  *payment.Service
	Refunds   *refund.Service
	Webhooks  *webhook.Service
	Dashboard *dashboard.Service
	Merchants merchant.Repository
	Jobs      JobStats
	Metrics   *metrics.Counters
	DB        Pinger
	Logger    logging.Logger
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.CodeOf(err) == apperr.CodeInternal {
		h.Logger.Error("request error", map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		})
	}
	writeError(w, err)
}

// merchantID is only called behind Authenticate.
func merchantID(r *http.Request) string {
	m, _ := MerchantFrom(r.Context())
	return m.ID
}

type createOrderRequest struct {
	Amount   any            `json:"amount"`
	Currency string         `json:"currency"`
	Receipt  *string        `json:"receipt"`
	Notes    map[string]any `json:"notes"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	amount, ok := integer(req.Amount)
	if !ok {
		h.fail(w, r, apperr.BadRequest("amount must be at least 100"))
		return
	}

	o, err := h.Orders.Create(r.Context(), merchantID(r), order.CreateInput{
		Amount:   amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), merchantID(r), r.PathValue("orderId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type createPaymentRequest struct {
	OrderID string             `json:"order_id"`
	Method  string             `json:"method"`
	VPA     string             `json:"vpa"`
	Card    *payment.CardInput `json:"card"`
}

func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	body, err := h.Payments.Create(r.Context(), merchantID(r), payment.CreateInput{
		OrderID:        req.OrderID,
		Method:         req.Method,
		VPA:            req.VPA,
		Card:           req.Card,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeRaw(w, http.StatusCreated, body)
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Payments.Get(r.Context(), merchantID(r), r.PathValue("paymentId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) CapturePayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Payments.Capture(r.Context(), merchantID(r), r.PathValue("paymentId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type createRefundRequest struct {
	Amount any     `json:"amount"`
	Reason *string `json:"reason"`
}

func (h *Handlers) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req createRefundRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	amount, ok := integer(req.Amount)
	if !ok {
		h.fail(w, r, apperr.BadRequest("amount must be an integer"))
		return
	}

	rf, err := h.Refunds.Create(r.Context(), merchantID(r), r.PathValue("paymentId"), refund.CreateInput{
		Amount: amount,
		Reason: req.Reason,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rf)
}

func (h *Handlers) GetRefund(w http.ResponseWriter, r *http.Request) {
	rf, err := h.Refunds.Get(r.Context(), merchantID(r), r.PathValue("refundId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rf)
}

func (h *Handlers) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	page, err := h.Webhooks.List(r.Context(), merchantID(r), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) RetryWebhook(w http.ResponseWriter, r *http.Request) {
	res, err := h.Webhooks.Retry(r.Context(), merchantID(r), r.PathValue("webhookId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) SendTestWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.Webhooks.SendTest(r.Context(), merchantID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Test webhook scheduled"})
}

func (h *Handlers) DashboardStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Dashboard.Stats(r.Context(), merchantID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) DashboardTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Dashboard.Transactions(r.Context(), merchantID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Dashboard.Config(r.Context(), merchantID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type updateConfigRequest struct {
	WebhookURL string `json:"webhook_url"`
}

func (h *Handlers) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Dashboard.UpdateWebhookURL(r.Context(), merchantID(r), req.WebhookURL); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handlers) RegenerateSecret(w http.ResponseWriter, r *http.Request) {
	secret, err := h.Dashboard.RegenerateSecret(r.Context(), merchantID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhook_secret": secret})
}

func (h *Handlers) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Jobs.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":          jobs,
		"metrics":       h.Metrics.Snapshot(),
		"worker_status": "running",
	})
}

func (h *Handlers) TestMerchant(w http.ResponseWriter, r *http.Request) {
	m, err := h.Merchants.FindByID(r.Context(), merchant.TestMerchantID)
	if err != nil {
		h.fail(w, r, apperr.NotFound("Test merchant not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      m.ID,
		"email":   m.Email,
		"api_key": m.APIKey,
		"seeded":  true,
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	database := "connected"
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			database = "disconnected"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  database,
		"timestamp": time.Now().UTC(),
	})
}

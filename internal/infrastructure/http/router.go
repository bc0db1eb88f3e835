package httpapi

import "net/http"

func NewRouter(h *Handlers) http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("POST /api/v1/orders", h.CreateOrder)
	api.HandleFunc("GET /api/v1/orders/{orderId}", h.GetOrder)

	api.HandleFunc("POST /api/v1/payments", h.CreatePayment)
	api.HandleFunc("GET /api/v1/payments/{paymentId}", h.GetPayment)
	api.HandleFunc("POST /api/v1/payments/{paymentId}/capture", h.CapturePayment)
	api.HandleFunc("POST /api/v1/payments/{paymentId}/refunds", h.CreateRefund)

	api.HandleFunc("GET /api/v1/refunds/{refundId}", h.GetRefund)

	api.HandleFunc("GET /api/v1/webhooks", h.ListWebhooks)
	api.HandleFunc("POST /api/v1/webhooks/test", h.SendTestWebhook)
	api.HandleFunc("POST /api/v1/webhooks/{webhookId}/retry", h.RetryWebhook)

	api.HandleFunc("GET /api/v1/dashboard/stats", h.DashboardStats)
	api.HandleFunc("GET /api/v1/dashboard/transactions", h.DashboardTransactions)
	api.HandleFunc("GET /api/v1/dashboard/config", h.GetConfig)
	api.HandleFunc("POST /api/v1/dashboard/config", h.UpdateConfig)
	api.HandleFunc("POST /api/v1/dashboard/regenerate-secret", h.RegenerateSecret)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/v1/test/jobs/status", h.JobStatus)
	mux.HandleFunc("GET /api/v1/test/merchant", h.TestMerchant)
	mux.Handle("/api/v1/", Authenticate(h.Merchants, api))

	return LogRequests(h.Logger, mux)
}

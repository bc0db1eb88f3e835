package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/apperr"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/ids"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/merchant"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
)

const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderAPISecret = "X-Api-Secret"
	HeaderRequestID = "X-Request-Id"
)

type merchantKey struct{}

func withMerchant(ctx context.Context, m *merchant.Merchant) context.Context {
	return context.WithValue(ctx, merchantKey{}, m)
}

// MerchantFrom returns the authenticated merchant of the request.
func MerchantFrom(ctx context.Context) (*merchant.Merchant, bool) {
	m, ok := ctx.Value(merchantKey{}).(*merchant.Merchant)
	return m, ok
}

// Authenticate resolves the merchant from the API key and secret headers.
func Authenticate(merchants merchant.Repository, next http.Handler) http.Handler {
	unauthorized := apperr.New(apperr.CodeAuthentication, "Invalid API credentials")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, secret := r.Header.Get(HeaderAPIKey), r.Header.Get(HeaderAPISecret)
		if key == "" || secret == "" {
			writeError(w, unauthorized)
			return
		}

		m, err := merchants.FindByCredentials(r.Context(), key, secret)
		if errors.Is(err, merchant.ErrNotFound) {
			writeError(w, unauthorized)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withMerchant(r.Context(), m)))
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// LogRequests tags every request with an id and logs its outcome.
func LogRequests(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = ids.UUID()
		}
		w.Header().Set(HeaderRequestID, id)

		rec := &responseRecorder{ResponseWriter: w}
		began := time.Now()
		next.ServeHTTP(rec, r)

		fields := map[string]any{
			"request_id":  id,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"bytes":       rec.bytes,
			"duration_ms": time.Since(began).Milliseconds(),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.Error("request failed", fields)
			return
		}
		logger.Info("request", fields)
	})
}

// Package webhook delivers signed event notifications over HTTP.
package webhook

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"

	domain "github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
)

const DefaultTimeout = 5 * time.Second

// Sender POSTs webhook bodies with a fasthttp client.
type Sender struct {
	Client  *fasthttp.Client
	Timeout time.Duration
}

func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sender{
		Client: &fasthttp.Client{
			Name:                "payment-gateway-webhooks",
			MaxIdleConnDuration: 30 * time.Second,
		},
		Timeout: timeout,
	}
}

// Send never fails: a transport error comes back as status 0 with the error
// text as body.
func (s *Sender) Send(ctx context.Context, url string, body []byte, signature string) domain.Delivery {
	timeout := s.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if err := ctx.Err(); err != nil {
		return domain.Delivery{Body: err.Error()}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(domain.SignatureHeader, signature)
	req.SetBody(body)

	if err := s.Client.DoTimeout(req, resp, timeout); err != nil {
		return domain.Delivery{Body: err.Error()}
	}

	return domain.Delivery{
		StatusCode: resp.StatusCode(),
		Body:       string(resp.Body()),
	}
}

package worker

import (
	"math/rand/v2"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
)

// SettlementSimulator stands in for the payment network.
type SettlementSimulator interface {
	PaymentDelay(kind payment.MethodKind) time.Duration
	PaymentSucceeds(kind payment.MethodKind) bool
	RefundDelay() time.Duration
}

const (
	upiSuccessRate  = 0.90
	cardSuccessRate = 0.95
)

// RandomSettlement settles payments in 5 to 10 seconds and refunds in 3 to
// 5 seconds.
type RandomSettlement struct{}

func (RandomSettlement) PaymentDelay(payment.MethodKind) time.Duration {
	return 5*time.Second + rand.N(5*time.Second)
}

func (RandomSettlement) PaymentSucceeds(kind payment.MethodKind) bool {
	rate := cardSuccessRate
	if kind == payment.MethodUPI {
		rate = upiSuccessRate
	}
	return rand.Float64() < rate
}

func (RandomSettlement) RefundDelay() time.Duration {
	return 3*time.Second + rand.N(2*time.Second)
}

// FixedSettlement is the test mode simulator.
type FixedSettlement struct {
	Delay   time.Duration
	Success bool
}

func (f FixedSettlement) PaymentDelay(payment.MethodKind) time.Duration { return f.Delay }

func (f FixedSettlement) PaymentSucceeds(payment.MethodKind) bool { return f.Success }

func (f FixedSettlement) RefundDelay() time.Duration { return f.Delay }

package payment_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
)

func TestValidateAmount(t *testing.T) {
	require.ErrorIs(t, payment.ValidateAmount(99), payment.ErrInvalidAmount)
	require.ErrorIs(t, payment.ValidateAmount(0), payment.ErrInvalidAmount)
	require.ErrorIs(t, payment.ValidateAmount(-500), payment.ErrInvalidAmount)
	require.NoError(t, payment.ValidateAmount(100))
	require.NoError(t, payment.ValidateAmount(50000))
}

func TestValidateCardNumber(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
	}{
		{"4111111111111111", true},
		{"4111111111111112", false},
		{"4111 1111 1111 1111", true},
		{"4111-1111-1111-1111", true},
		{"5555555555554444", true},
		{"378282246310005", true},
		{"6011111111111117", true},
		{"411111111111", false},
		{"41111111111111111111", false},
		{"4111a11111111111", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			err := payment.ValidateCardNumber(tt.number)
			if tt.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, payment.ErrInvalidCard)
		})
	}
}

func TestDetectCardNetwork(t *testing.T) {
	tests := []struct {
		number string
		want   payment.Network
	}{
		{"4111111111111111", payment.NetworkVisa},
		{"5105105105105100", payment.NetworkMastercard},
		{"5555555555554444", payment.NetworkMastercard},
		{"2221000000000009", payment.NetworkMastercard},
		{"2720990000000000", payment.NetworkMastercard},
		{"2721000000000000", payment.NetworkUnknown},
		{"340000000000009", payment.NetworkAmex},
		{"378282246310005", payment.NetworkAmex},
		{"6011111111111117", payment.NetworkRupay},
		{"6521000000000000", payment.NetworkRupay},
		{"8100000000000000", payment.NetworkRupay},
		{"8200000000000000", payment.NetworkRupay},
		{"5081000000000000", payment.NetworkRupay},
		{"5000000000000000", payment.NetworkUnknown},
		{"3530111333300000", payment.NetworkUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			require.Equal(t, tt.want, payment.DetectCardNetwork(tt.number))
		})
	}
}

func TestValidateVPA(t *testing.T) {
	valid := []string{"user@upi", "john.doe@okaxis", "a_b-c@ybl", "merchant123@paytm", "x@OKSBI"}
	for _, vpa := range valid {
		require.NoError(t, payment.ValidateVPA(vpa), vpa)
	}

	invalid := []string{"", "user", "user@", "@upi", "user@gmail", "us er@upi", "user@upi@ybl", "user@upi1"}
	for _, vpa := range invalid {
		require.ErrorIs(t, payment.ValidateVPA(vpa), payment.ErrInvalidVPA, vpa)
	}
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		month int
		year  int
		err   error
	}{
		{"current_month", 10, 2026, nil},
		{"two_digit_year", 1, 27, nil},
		{"last_month", 9, 2026, payment.ErrExpiredCard},
		{"last_year_two_digit", 12, 25, payment.ErrExpiredCard},
		{"month_zero", 0, 2030, payment.ErrInvalidExpiry},
		{"month_thirteen", 13, 2030, payment.ErrInvalidExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := payment.ValidateExpiry(tt.month, tt.year, now)
			if tt.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLast4(t *testing.T) {
	require.Equal(t, "1111", payment.Last4("4111 1111 1111 1111"))
	require.Equal(t, "123", payment.Last4("123"))
}

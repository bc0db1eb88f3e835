package payment

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinAmount is the smallest accepted amount in minor currency units.
const MinAmount int64 = 100

var (
	ErrInvalidAmount = errors.New("amount must be at least 100")
	ErrInvalidVPA    = errors.New("invalid vpa")
	ErrInvalidCard   = errors.New("invalid card number")
	ErrInvalidExpiry = errors.New("invalid card expiry")
	ErrExpiredCard   = errors.New("card expired")
)

func ValidateAmount(amount int64) error {
	if amount < MinAmount {
		return ErrInvalidAmount
	}
	return nil
}

var vpaPattern = regexp.MustCompile(`^([A-Za-z0-9._-]+)@([A-Za-z]+)$`)

var vpaProviders = map[string]struct{}{
	"upi":        {},
	"okaxis":     {},
	"okhdfcbank": {},
	"okicici":    {},
	"oksbi":      {},
	"ybl":        {},
	"ibl":        {},
	"axl":        {},
	"paytm":      {},
	"apl":        {},
}

// ValidateVPA accepts handle@provider where provider is a known UPI alias.
func ValidateVPA(vpa string) error {
	m := vpaPattern.FindStringSubmatch(strings.TrimSpace(vpa))
	if m == nil {
		return ErrInvalidVPA
	}
	if _, ok := vpaProviders[strings.ToLower(m[2])]; !ok {
		return ErrInvalidVPA
	}
	return nil
}

// NormalizeCardNumber strips the separators customers usually type.
func NormalizeCardNumber(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(number)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ValidateCardNumber applies the Luhn checksum.
func ValidateCardNumber(number string) error {
	digits := NormalizeCardNumber(number)
	if !isDigits(digits) || len(digits) < 13 || len(digits) > 19 {
		return ErrInvalidCard
	}
	if !luhn(digits) {
		return ErrInvalidCard
	}
	return nil
}

func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func prefixIn(digits string, width, lo, hi int) bool {
	if len(digits) < width {
		return false
	}
	n, err := strconv.Atoi(digits[:width])
	if err != nil {
		return false
	}
	return n >= lo && n <= hi
}

func DetectCardNetwork(number string) Network {
	digits := NormalizeCardNumber(number)
	if !isDigits(digits) {
		return NetworkUnknown
	}

	switch {
	case strings.HasPrefix(digits, "4"):
		return NetworkVisa
	case prefixIn(digits, 2, 51, 55), prefixIn(digits, 4, 2221, 2720):
		return NetworkMastercard
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return NetworkAmex
	case strings.HasPrefix(digits, "60"), strings.HasPrefix(digits, "65"),
		strings.HasPrefix(digits, "81"), strings.HasPrefix(digits, "82"),
		strings.HasPrefix(digits, "508"):
		return NetworkRupay
	}
	return NetworkUnknown
}

// Last4 returns the last four digits of a card number.
func Last4(number string) string {
	digits := NormalizeCardNumber(number)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// ValidateExpiry fails with ErrExpiredCard when the expiry month is strictly
// before the month of now. Two-digit years are read as 20YY.
func ValidateExpiry(month, year int, now time.Time) error {
	if month < 1 || month > 12 || year < 0 {
		return ErrInvalidExpiry
	}
	if year < 100 {
		year += 2000
	}

	now = now.UTC()
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return ErrExpiredCard
	}
	return nil
}

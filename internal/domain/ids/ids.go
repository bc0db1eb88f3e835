// Package ids generates public identifiers.
package ids

import (
	"strings"

	"github.com/google/uuid"
)

const (
	PrefixOrder   = "order_"
	PrefixPayment = "pay_"
	PrefixRefund  = "rfnd_"
)

const suffixLen = 16

// New returns prefix followed by 16 alphanumeric characters.
func New(prefix string) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + s[:suffixLen]
}

// UUID returns a random UUID string.
func UUID() string {
	return uuid.NewString()
}

package payment

import "fmt"

type MethodKind string

const (
	MethodUPI  MethodKind = "upi"
	MethodCard MethodKind = "card"
)

type Network string

const (
	NetworkVisa       Network = "visa"
	NetworkMastercard Network = "mastercard"
	NetworkAmex       Network = "amex"
	NetworkRupay      Network = "rupay"
	NetworkUnknown    Network = "unknown"
)

// Method is the payment instrument. It is either UPI or Card.
type Method interface {
	Kind() MethodKind
	isMethod()
}

type UPI struct {
	VPA string
}

func (UPI) Kind() MethodKind { return MethodUPI }
func (UPI) isMethod()        {}

// Card keeps only what is safe to store: the network and the last four digits.
type Card struct {
	Network Network
	Last4   string
}

func (Card) Kind() MethodKind { return MethodCard }
func (Card) isMethod()        {}

// KindOf returns the kind of m, or "" for a nil method.
func KindOf(m Method) MethodKind {
	if m == nil {
		return ""
	}
	return m.Kind()
}

// MethodFromColumns rebuilds a Method from its flattened storage columns.
func MethodFromColumns(kind, vpa, network, last4 string) (Method, error) {
	switch MethodKind(kind) {
	case MethodUPI:
		return UPI{VPA: vpa}, nil
	case MethodCard:
		return Card{Network: Network(network), Last4: last4}, nil
	default:
		return nil, fmt.Errorf("unknown payment method %q", kind)
	}
}

// MethodColumns flattens m into (kind, vpa, network, last4).
func MethodColumns(m Method) (kind, vpa, network, last4 string) {
	switch v := m.(type) {
	case UPI:
		return string(MethodUPI), v.VPA, "", ""
	case Card:
		return string(MethodCard), "", string(v.Network), v.Last4
	}
	return "", "", "", ""
}

package domain

import "fmt"

// OrderStatus is the fulfillment state of an order. The set is closed: only
// the constants below are valid and Parse rejects anything else.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusAccepted   OrderStatus = "accepted"
	StatusProcessing OrderStatus = "processing"
	StatusDelivered  OrderStatus = "delivered"
)

// next is the only place transitions are defined.
var next = map[OrderStatus]OrderStatus{
	StatusPending:    StatusAccepted,
	StatusAccepted:   StatusProcessing,
	StatusProcessing: StatusDelivered,
}

var allStatuses = []OrderStatus{StatusPending, StatusAccepted, StatusProcessing, StatusDelivered}

// ParseOrderStatus validates a wire value.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Next returns the successor of s. Delivered has none.
func (s OrderStatus) Next() (OrderStatus, error) {
	n, ok := next[s]
	if !ok {
		if s.IsValid() {
			return "", &TerminalStateError{Status: s}
		}
		return "", fmt.Errorf("unknown order status %q", string(s))
	}
	return n, nil
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered
}

func (s OrderStatus) IsValid() bool {
	_, err := ParseOrderStatus(string(s))
	return err == nil
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s *OrderStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

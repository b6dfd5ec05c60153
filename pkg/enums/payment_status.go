package enums

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// PaymentStatus mirrors the payment_status Postgres enum.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

func (p PaymentStatus) String() string { return string(p) }

// Settled reports whether no further payment is expected.
func (p PaymentStatus) Settled() bool { return p == PaymentStatusPaid }

// ParsePaymentStatus accepts any casing and surrounding whitespace.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	switch status := PaymentStatus(strings.ToLower(strings.TrimSpace(value))); status {
	case PaymentStatusPending, PaymentStatusPaid:
		return status, nil
	default:
		return "", fmt.Errorf("payment status %q is not pending or paid", value)
	}
}

// Scan reads the column back from either driver representation.
func (p *PaymentStatus) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("payment status: unsupported column type %T", src)
	}
	status, err := ParsePaymentStatus(raw)
	if err != nil {
		return err
	}
	*p = status
	return nil
}

// Value leaves an unset status to the column default.
func (p PaymentStatus) Value() (driver.Value, error) {
	if p == "" {
		return nil, nil
	}
	if _, err := ParsePaymentStatus(string(p)); err != nil {
		return nil, err
	}
	return string(p), nil
}

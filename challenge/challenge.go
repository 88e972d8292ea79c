// Package challenge wraps the external phone-verification capability behind
// a stable interface. The broker holds no challenge state of its own: a code
// is created by SendCode and consumed or expired by CheckCode, with the
// provider owning the lifecycle in between.
package challenge

import (
	"context"
	"errors"
)

// Result is the provider's verdict on a submitted (phone, code) pair.
type Result string

const (
	ResultApproved Result = "approved"
	ResultDenied   Result = "denied"
	ResultExpired  Result = "expired"
)

var (
	// ErrDelivery is returned when the provider fails to send a code.
	ErrDelivery = errors.New("failed to send verification code")
	// ErrVerification is returned when the provider fails to check a code.
	// Note this is a provider fault, not a wrong code.
	ErrVerification = errors.New("failed to verify code")
)

// Broker issues one-time codes to phone numbers and verifies submissions.
type Broker interface {
	// SendCode asks the provider to deliver a one-time code to phone and
	// returns the provider's delivery status (e.g. "pending").
	SendCode(ctx context.Context, phone string) (string, error)
	// CheckCode submits a (phone, code) pair for verification.
	CheckCode(ctx context.Context, phone, code string) (Result, error)
}

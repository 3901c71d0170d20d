package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// AuthError is returned when an API key is unknown, expired or not entitled
// to the requested operation. Surfaced to the caller as-is, never retried.
type AuthError struct {
	Key string
}

func (e *AuthError) Error() string {
	return "unauthorized: invalid or expired API key"
}

// AdmissionError is the expected business rejection: the candidate entry is
// too close to a position the server still remembers as open. It must stay
// distinguishable from infrastructure failures by type, not message.
type AdmissionError struct {
	Entry     decimal.Decimal
	Distance  decimal.Decimal
	Threshold decimal.Decimal
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("entry %s too close to an open position (distance %s < threshold %s), signal skipped",
		e.Entry, e.Distance, e.Threshold)
}

// ValidationError covers malformed top-level request structure. Missing price
// fields on non-directional signals are deliberately not validation errors.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return "invalid request [" + e.Field + "]: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StorageError wraps a failure of the licensing store or feedback log. Always
// an infrastructure failure; retry policy belongs to the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsAuth checks whether err is an authorization failure.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsAdmission checks whether err is an admission-filter rejection.
func IsAdmission(err error) bool {
	var ce *AdmissionError
	return errors.As(err, &ce)
}

// IsValidation checks whether err is a request validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	// ErrNoBody is returned when a request carries no decodable JSON body.
	ErrNoBody = errors.New("no data received")

	// ErrUnknownSubscriber is returned when a key has no subscriber row.
	ErrUnknownSubscriber = errors.New("unknown subscriber")
)

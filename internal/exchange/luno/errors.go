package luno

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a request rejected before any I/O was issued.
// Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// TransportError reports a network-level failure (connection error,
// timeout) distinguishable from a venue rejection so callers can retry.
type TransportError struct {
	Operation  string
	Underlying error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error in %s: %v", e.Operation, e.Underlying)
}

func (e *TransportError) Unwrap() error {
	return e.Underlying
}

// NewTransportError creates a new TransportError.
func NewTransportError(operation string, err error) *TransportError {
	return &TransportError{Operation: operation, Underlying: err}
}

// RejectionKind is a stable classification of a venue business error.
type RejectionKind string

const (
	RejectionInsufficientFunds RejectionKind = "insufficient_funds"
	RejectionVolumeBelowMin    RejectionKind = "volume_below_minimum"
	RejectionPriceBelowMin     RejectionKind = "price_below_minimum"
	RejectionPriceAboveMax     RejectionKind = "price_above_maximum"
	RejectionUnknown           RejectionKind = "unknown"
)

// ExchangeRejection is a structured business error returned by the venue
// on a non-2xx response. Never retried automatically.
type ExchangeRejection struct {
	Kind       RejectionKind
	StatusCode int
	Message    string // user-facing, translated when the raw error is known
	Raw        string // verbatim venue error string
}

func (e *ExchangeRejection) Error() string {
	return e.Message
}

// Known venue error phrases mapped to stable kinds with user-facing
// messages. Matching is case-insensitive substring, as the venue wording
// varies slightly between endpoints.
var rejectionTable = []struct {
	phrase  string
	kind    RejectionKind
	message string
}{
	{"account has insufficient funds", RejectionInsufficientFunds, "Insufficient balance to place this order"},
	{"insufficient funds", RejectionInsufficientFunds, "Insufficient balance to place this order"},
	{"insufficientfunds", RejectionInsufficientFunds, "Insufficient balance to place this order"},
	{"volume is below the minimum", RejectionVolumeBelowMin, "Order volume is below the minimum allowed"},
	{"price is below the minimum", RejectionPriceBelowMin, "Order price is below the minimum allowed"},
	{"price is above the maximum", RejectionPriceAboveMax, "Order price is above the maximum allowed"},
}

// NewExchangeRejection classifies a raw venue error string. Unmatched
// errors are surfaced verbatim with RejectionUnknown.
func NewExchangeRejection(statusCode int, raw string) *ExchangeRejection {
	lowered := strings.ToLower(raw)
	for _, entry := range rejectionTable {
		if strings.Contains(lowered, entry.phrase) {
			return &ExchangeRejection{
				Kind:       entry.kind,
				StatusCode: statusCode,
				Message:    entry.message,
				Raw:        raw,
			}
		}
	}
	return &ExchangeRejection{
		Kind:       RejectionUnknown,
		StatusCode: statusCode,
		Message:    raw,
		Raw:        raw,
	}
}

// IsTransportError checks if the error is a retryable network failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsValidationError checks if the error was rejected before any I/O.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsExchangeRejection checks if the venue returned a business error.
func IsExchangeRejection(err error) bool {
	var re *ExchangeRejection
	return errors.As(err, &re)
}

// IsInsufficientFunds checks if the venue rejected the order for lack of
// balance.
func IsInsufficientFunds(err error) bool {
	var re *ExchangeRejection
	return errors.As(err, &re) && re.Kind == RejectionInsufficientFunds
}

package types

import (
	"errors"
	"fmt"
)

// X402Error is the error type returned by every engine component.
type X402Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Cause   error       `json:"-"`
}

func (e X402Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e X402Error) Unwrap() error {
	return e.Cause
}

// NewX402Error builds an X402Error with a formatted message.
func NewX402Error(code string, cause error, format string, args ...interface{}) *X402Error {
	return &X402Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// CodeOf returns the code of the first X402Error in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var xe *X402Error
	if errors.As(err, &xe) {
		return xe.Code
	}
	return ""
}

// Error codes
const (
	// Requirements parsing
	ErrMissingVersion      = "MISSING_VERSION"
	ErrUnsupportedVersion  = "UNSUPPORTED_VERSION"
	ErrInvalidRequirements = "INVALID_REQUIREMENTS"

	// Signing
	ErrPrepaidNotSupportedForSigning = "PREPAID_NOT_SUPPORTED_FOR_SIGNING"
	ErrNoPaymentOption               = "NO_PAYMENT_OPTION"
	ErrWalletNotConfigured           = "WALLET_NOT_CONFIGURED"
	ErrSigningFailed                 = "SIGNING_FAILED"

	// Authorization building
	ErrUnsupportedNetwork          = "UNSUPPORTED_NETWORK"
	ErrMismatchedVerifyingContract = "MISMATCHED_VERIFYING_CONTRACT"
	ErrMalformedAmount             = "MALFORMED_AMOUNT"
	ErrInvalidAddress              = "INVALID_ADDRESS"
	ErrInvalidNonce                = "INVALID_NONCE"
	ErrInvalidValidityWindow       = "INVALID_VALIDITY_WINDOW"

	// Rail selection
	ErrRailUnavailable = "RAIL_UNAVAILABLE"
	ErrPromptResolved  = "PROMPT_RESOLVED"
	ErrPromptNotReady  = "PROMPT_NOT_READY"

	ErrConfigError = "CONFIG_ERROR"
)

package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes have the form AA-<AREA>-<NNNN>; the last four digits start with the
// HTTP status the error maps to.
type DomainError struct {
	Code    string // Error code (e.g., "AA-RWA-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)

	// Number is the numeric code of the original on-chain contract error,
	// zero for errors the contract did not define.
	Number uint32
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
// Two domain errors match when their codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

func newContractError(number uint32, code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Number:  number,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ContractCode returns the numeric contract error code carried by err,
// or zero if err is not one of the registry errors.
func ContractCode(err error) uint32 {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Number
	}
	return 0
}

// ============================================================================
// Registry Errors (RWA)
// ============================================================================

var (
	// ErrNotInitialized indicates an operation ran before initialize.
	ErrNotInitialized = newContractError(1, "AA-RWA-4120", "registry not initialized")

	// ErrAlreadyInitialized indicates initialize ran on an initialized registry.
	ErrAlreadyInitialized = newContractError(2, "AA-RWA-4090", "registry already initialized")

	// ErrUnauthorized indicates the required principal did not approve the call.
	ErrUnauthorized = newContractError(3, "AA-AUTH-4030", "unauthorized")

	// ErrTokenNotFound indicates no record exists for the token id.
	ErrTokenNotFound = newContractError(4, "AA-RWA-4040", "token not found")

	// ErrTokenInactive indicates the token has been burned.
	ErrTokenInactive = newContractError(5, "AA-RWA-4091", "token inactive")

	// ErrInsufficientEscrow indicates the declared escrow is below the yield threshold.
	ErrInsufficientEscrow = newContractError(6, "AA-RWA-4220", "insufficient escrow")

	// ErrTransferFailed is reserved for a settlement-layer failure.
	// No registry path raises it.
	ErrTransferFailed = newContractError(7, "AA-RWA-5020", "transfer failed")

	// ErrCounterExhausted indicates the 64-bit token counter cannot advance.
	ErrCounterExhausted = NewDomainError("AA-RWA-5070", "token counter exhausted")
)

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrSignatureMissing indicates a signed call carried no signature.
	ErrSignatureMissing = NewDomainError("AA-AUTH-4010", "signature not provided")

	// ErrSignatureInvalid indicates a signature failed verification.
	ErrSignatureInvalid = NewDomainError("AA-AUTH-4011", "invalid signature")

	// ErrPrincipalInvalid indicates a principal could not be decoded as an account.
	ErrPrincipalInvalid = NewDomainError("AA-AUTH-4012", "invalid principal")

	// ErrTimestampSkew indicates the request timestamp is out of acceptable window.
	ErrTimestampSkew = NewDomainError("AA-AUTH-4014", "timestamp out of acceptable window")

	// ErrNonceReplay indicates a nonce replay attack was detected.
	ErrNonceReplay = NewDomainError("AA-AUTH-4015", "nonce replay detected")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("AA-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("AA-SYS-5001", "storage error")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("AA-SYS-5030", "service unavailable")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("AA-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("AA-SYS-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("AA-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("AA-ARG-1002", "missing required argument")
)

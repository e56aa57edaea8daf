package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a generic bad-input error with a caller-supplied message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ---- Wallet & Ledger (WLT) ----

func ErrInsufficientFunds() *AppError {
	return New("WLT_001", "Insufficient wallet balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("WLT_002", "Amount must be positive", http.StatusBadRequest)
}

// ErrLedgerMismatch reports a wallet whose stored balance no longer equals the
// sum of its ledger entries. This is a data corruption signal, never a
// user-facing condition.
func ErrLedgerMismatch(err error) *AppError {
	return Wrap("WLT_003", "Wallet ledger reconciliation failed", http.StatusInternalServerError, err)
}

// ---- Redemption (RDM) ----

func ErrNotEligible(reason string) *AppError {
	return New("RDM_001", reason, http.StatusBadRequest)
}

func ErrCapacityExhausted() *AppError {
	return New("RDM_002", "No remaining capacity", http.StatusConflict)
}

func ErrUserLimitReached() *AppError {
	return New("RDM_003", "Maximum uses per user reached", http.StatusConflict)
}

// ---- Catalog (CAT) ----

func ErrNotFound(entity string) *AppError {
	return New("CAT_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrSlugExists() *AppError {
	return New("CAT_002", "Slug already in use", http.StatusConflict)
}

func ErrNotOwner() *AppError {
	return New("CAT_003", "Resource belongs to another merchant", http.StatusForbidden)
}

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrEmailExists() *AppError {
	return New("AUTH_002", "Email already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_004", "Role does not grant this capability", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrConcurrencyConflict reports lock or serialization contention after the
// bounded retry budget is spent. No partial state was committed.
func ErrConcurrencyConflict(err error) *AppError {
	return Wrap("SYS_002", "Concurrent update conflict, please retry", http.StatusConflict, err)
}

package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string         `json:"error_code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Meta       map[string]any `json:"meta,omitempty"` // Safe diagnostics (remaining attempts, wait seconds)
	Err        error          `json:"-"`              // Wrapped internal error (not exposed to client)
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

// WithMeta attaches a safe diagnostic key/value and returns the error.
func (e *AppError) WithMeta(key string, value any) *AppError {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
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

// Validation returns a generic 400 validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidPinFormat() *AppError {
	return New("VAL_002", "PIN must be exactly 6 digits", http.StatusBadRequest)
}

func ErrInvalidOTPFormat() *AppError {
	return New("VAL_003", "OTP must be exactly 6 digits", http.StatusBadRequest)
}

func ErrNoteRequired() *AppError {
	return New("VAL_004", "A note explaining the rejection is required", http.StatusBadRequest)
}

// ---- Authorization (AUTH) ----

func ErrNoPinSet() *AppError {
	return New("AUTH_001", "No withdrawal PIN has been set for this account", http.StatusUnauthorized)
}

// ErrWrongPin reports a failed PIN comparison with the attempts left
// before lockout.
func ErrWrongPin(remaining int) *AppError {
	return New("AUTH_002", "Incorrect PIN", http.StatusUnauthorized).
		WithMeta("remaining_attempts", remaining)
}

func ErrNoValidCode() *AppError {
	return New("AUTH_003", "no valid code", http.StatusUnauthorized)
}

// ErrWrongOTP reports a failed OTP comparison with the attempts left on
// the current code.
func ErrWrongOTP(remaining int) *AppError {
	return New("AUTH_004", "Incorrect verification code", http.StatusUnauthorized).
		WithMeta("remaining_attempts", remaining)
}

func ErrOTPProofExpired() *AppError {
	return New("AUTH_005", "OTP verification has expired, request a new code", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_006", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrPermissionDenied() *AppError {
	return New("AUTH_007", "Insufficient permissions", http.StatusForbidden)
}

// ---- Conflict (CONFLICT) ----

func ErrPinAlreadySet() *AppError {
	return New("CONFLICT_001", "A PIN is already set, use change-pin or OTP recovery", http.StatusConflict)
}

// ---- Rate limiting (RATE) ----

// ErrAccountLocked reports the rolling lockout tripped by repeated
// verification failures.
func ErrAccountLocked() *AppError {
	return New("RATE_001", "Too many failed attempts, try again later", http.StatusTooManyRequests)
}

// ErrOTPCooldown reports the resend cooldown on OTP issuance.
func ErrOTPCooldown(waitSeconds int) *AppError {
	return New("RATE_002", "A code was sent recently, wait before requesting another", http.StatusTooManyRequests).
		WithMeta("wait_seconds", waitSeconds)
}

// ErrOTPBurned reports a code invalidated by too many wrong attempts.
func ErrOTPBurned() *AppError {
	return New("RATE_003", "Too many wrong attempts, the code is no longer valid", http.StatusTooManyRequests)
}

func ErrRateLimitExceeded() *AppError {
	return New("RATE_004", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Withdrawal business logic (PAY) ----

func ErrInsufficientBalance() *AppError {
	return New("PAY_001", "Amount exceeds available balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- State machine (STATE) ----

// ErrInvalidTransition reports a withdrawal status edge that does not
// exist in the lifecycle.
func ErrInvalidTransition(from, to string) *AppError {
	return New("STATE_001", fmt.Sprintf("cannot move withdrawal from %s to %s", from, to), http.StatusConflict)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_002", "Internal database error", http.StatusInternalServerError, err)
}

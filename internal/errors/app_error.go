package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the error services return to handlers. Code and Message become
// the JSON body, StatusCode the HTTP status; Err keeps the cause for logs only.
type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	RetryAfter int
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError; prefer the per-code constructors below.
func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetail adds a client-facing detail line, e.g. which product ran out of stock.
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

// WithRetryAfter sets the seconds a client should wait, sent as the Retry-After header.
func (e *AppError) WithRetryAfter(seconds int) *AppError {
	e.RetryAfter = seconds

	return e
}

// WithError attaches the underlying cause. It is logged, never sent to the client.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

// Codes sent in the "code" field of error responses.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeDuplicateEntry    = "DUPLICATE_ENTRY"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeInvalidProduct    = "INVALID_PRODUCT"
	ErrCodeTooManyRequests   = "TOO_MANY_REQUESTS" // login attempts over the limit
	ErrCodeThirdPartyError   = "THIRD_PARTY_ERROR" // a backing service such as Redis failed
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message, http.StatusInternalServerError)
}

func DuplicateEntryError(message string) *AppError {
	return NewAppError(ErrCodeDuplicateEntry, message, http.StatusConflict)
}

// InsufficientStockError rejects a cart change that asks for more than the tracked stock.
func InsufficientStockError(message string) *AppError {
	return NewAppError(ErrCodeInsufficientStock, message, http.StatusBadRequest)
}

// InvalidProductError rejects adding a product that cannot be sold, such as one without a price.
func InvalidProductError(message string) *AppError {
	return NewAppError(ErrCodeInvalidProduct, message, http.StatusBadRequest)
}

// TooManyRequestsError is returned while a login is rate limited; pair it with WithRetryAfter.
func TooManyRequestsError(message string) *AppError {
	return NewAppError(ErrCodeTooManyRequests, message, http.StatusTooManyRequests)
}

// ThirdPartyError reports a failing dependency other than Postgres.
func ThirdPartyError(message string) *AppError {
	return NewAppError(ErrCodeThirdPartyError, message, http.StatusInternalServerError)
}

// IsAppError finds an AppError anywhere in err's chain.
func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// AddValidationError reports a field that passed tag validation but was rejected
// by a service rule, e.g. a name that is empty once sanitized.
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}

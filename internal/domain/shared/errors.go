package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors built with NewDomainError match the sentinels below via errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Error codes
const (
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodePersistence        = "PERSISTENCE_ERROR"
	CodeEmptyCart          = "EMPTY_CART"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeRedemptionRejected = "REDEMPTION_REJECTED"
)

// Common domain errors
var (
	ErrNotFound           = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists      = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput       = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInsufficientStock  = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrPersistence        = NewDomainError(CodePersistence, "Backing store unreadable or unwritable")
	ErrEmptyCart          = NewDomainError(CodeEmptyCart, "Cart is empty")
	ErrInvalidCredentials = NewDomainError(CodeInvalidCredentials, "Invalid username or password")
	ErrRedemptionRejected = NewDomainError(CodeRedemptionRejected, "Insufficient loyalty points or total cost")
)

package orders

import "errors"

// Validation errors are detected before any mutation and carry enough context
// (wrapped product or company id) for the caller to correct and retry.
var (
	ErrForbidden         = errors.New("caller lacks required capability")
	ErrMissingBuyer      = errors.New("buyer reference missing or unknown")
	ErrEmptyOrder        = errors.New("order has no line items")
	ErrMissingProduct    = errors.New("product reference missing or unknown")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInsufficientStock = errors.New("insufficient stock")

	ErrOrderNotFound = errors.New("order not found")

	// ErrTransactionFailed wraps a failure of the atomic write. No partial
	// state is observable; the caller may retry the whole operation.
	ErrTransactionFailed = errors.New("order transaction failed")
)

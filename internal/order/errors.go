package order

import "errors"

var (
	ErrNotFound          = errors.New("order not found")
	ErrValidation        = errors.New("validation error")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrInsufficientStock = errors.New("insufficient stock")
)

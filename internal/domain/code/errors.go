package code

import "errors"

var (
	ErrCodeNotFound    = errors.New("device code not found")
	ErrCodeUnavailable = errors.New("device code is not available for sale")
	ErrCodeInvalid     = errors.New("device code is invalid or not sold")
	ErrDuplicateCode   = errors.New("device code already exists")
	ErrInvalidBatch    = errors.New("quantity must be positive and price non-negative")
)

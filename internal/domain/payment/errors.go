package payment

import "errors"

var (
	ErrInvalidSchedule    = errors.New("total amount must be positive and installment count at least 1")
	ErrScheduleExists     = errors.New("an open payment schedule already exists for this code")
	ErrPaymentNotFound    = errors.New("payment installment not found")
	ErrAlreadyCompleted   = errors.New("payment installment already completed")
	ErrInsufficientAmount = errors.New("amount paid is less than the installment amount")
)

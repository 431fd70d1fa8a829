package device

import "errors"

var (
	ErrDeviceNotFound          = errors.New("device not found")
	ErrDeviceAlreadyRegistered = errors.New("device already registered")
	ErrInvalidStatus           = errors.New("invalid device status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

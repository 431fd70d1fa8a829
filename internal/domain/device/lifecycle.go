package device

import "fmt"

// Devices start active and then cycle between locked and unlocked for their
// whole lifetime. No transition returns to active.
var validTransitions = map[Status][]Status{
	StatusActive: {
		StatusLocked,
		StatusUnlocked,
	},
	StatusLocked: {
		StatusLocked,
		StatusUnlocked,
	},
	StatusUnlocked: {
		StatusLocked,
		StatusUnlocked,
	},
}

// ValidateStatusTransition checks if status transition is allowed
func ValidateStatusTransition(current, next Status) error {
	allowed, exists := validTransitions[current]
	if !exists {
		return fmt.Errorf("%w: unknown current status %q", ErrInvalidStatus, current)
	}

	for _, s := range allowed {
		if s == next {
			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current, next)
}

// GetAllowedTransitions returns allowed next statuses
func GetAllowedTransitions(current Status) []Status {
	return validTransitions[current]
}

package checkin

import (
	"device-finance-backoffice/pkg/utils"
	"fmt"
	"time"
)

const maxClockSkew = 5 * time.Minute

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [%s]: %s", e.Field, e.Message)
}

// ValidateCheckIn rejects messages whose device id does not match the topic
// they arrived on or whose timestamp lies in the future.
func ValidateCheckIn(topic string, msg *CheckInMessage, now time.Time) error {
	if msg.DeviceID == "" {
		return &ValidationError{Field: "device_id", Message: "device_id is required"}
	}
	if !utils.IsValidIdentifier(msg.DeviceID) || len(msg.DeviceID) > 128 {
		return &ValidationError{Field: "device_id", Message: "device_id contains invalid characters"}
	}
	if fromTopic := DeviceIDFromTopic(topic); fromTopic != "" && fromTopic != msg.DeviceID {
		return &ValidationError{Field: "device_id", Message: "device_id does not match topic"}
	}

	if msg.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "timestamp is required"}
	}
	if msg.Timestamp.After(now.Add(maxClockSkew)) {
		return &ValidationError{Field: "timestamp", Message: "timestamp is in the future"}
	}

	return nil
}

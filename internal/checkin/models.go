package checkin

import (
	"encoding/json"
	"strings"
	"time"
)

// CheckInMessage is what a device publishes on devices/<deviceId>/checkin.
type CheckInMessage struct {
	DeviceID  string        `json:"device_id"`
	Timestamp time.Time     `json:"timestamp"`
	Posture   PostureReport `json:"posture"`

	receivedAt time.Time
}

type PostureReport struct {
	Root              bool `json:"root"`
	BootloaderLocked  bool `json:"bootloader_locked"`
	AttestationPassed bool `json:"attestation_passed"`
}

// Command actions sent to devices.
const (
	ActionLock   = "lock"
	ActionUnlock = "unlock"
	ActionStatus = "status"
)

// Command is published on devices/<deviceId>/command.
type Command struct {
	Action          string     `json:"action"`
	Status          string     `json:"status,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	NextPaymentDate *time.Time `json:"next_payment_date,omitempty"`
	IssuedAt        time.Time  `json:"issued_at"`
}

// ParseCheckIn decodes a check-in payload. A missing device_id is taken from the topic.
func ParseCheckIn(topic string, payload []byte, now time.Time) (*CheckInMessage, error) {
	var msg CheckInMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	if msg.DeviceID == "" {
		msg.DeviceID = DeviceIDFromTopic(topic)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	msg.receivedAt = now
	return &msg, nil
}

// DeviceIDFromTopic extracts the device segment of <prefix>/<deviceId>/<kind>.
func DeviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}

// CommandTopic builds the per-device command topic under prefix.
func CommandTopic(prefix, deviceID string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + deviceID + "/command"
}

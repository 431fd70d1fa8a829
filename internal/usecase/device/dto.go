package device

import (
	"time"

	domainDevice "device-finance-backoffice/internal/domain/device"

	"github.com/google/uuid"
)

type RegisterDeviceRequest struct {
	DeviceID     string `json:"device_id" validate:"required,min=3,max=128,deviceid"`
	Model        string `json:"model" validate:"omitempty,max=255"`
	Manufacturer string `json:"manufacturer" validate:"omitempty,max=255"`
	OSVersion    string `json:"os_version" validate:"omitempty,max=64"`
	IMEI         string `json:"imei" validate:"omitempty,imei"`
	IsRooted     bool   `json:"is_rooted"`
	Code         string `json:"code" validate:"required,max=32"`
}

type LockDeviceRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type DeviceFilterRequest struct {
	Status   *domainDevice.Status `form:"status" validate:"omitempty,oneof=active locked unlocked"`
	Search   string               `form:"search" validate:"omitempty,max=128"`
	Page     int                  `form:"page" validate:"omitempty,min=1"`
	PageSize int                  `form:"page_size" validate:"omitempty,min=1,max=100"`
}

type DeviceResponse struct {
	ID              uuid.UUID           `json:"id"`
	DeviceID        string              `json:"device_id"`
	Model           string              `json:"model"`
	Manufacturer    string              `json:"manufacturer"`
	OSVersion       string              `json:"os_version"`
	IMEI            string              `json:"imei,omitempty"`
	IsRooted        bool                `json:"is_rooted"`
	DeviceCodeID    uuid.UUID           `json:"device_code_id"`
	Status          domainDevice.Status `json:"status"`
	LockReason      *string             `json:"lock_reason,omitempty"`
	StatusChangedAt time.Time           `json:"status_changed_at"`
	LastSeenAt      *time.Time          `json:"last_seen_at"`
	IsOnline        bool                `json:"is_online"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type DeviceListResponse struct {
	Devices    []DeviceResponse `json:"devices"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// StatusResponse is what a device receives when it checks in.
type StatusResponse struct {
	DeviceID        string              `json:"device_id"`
	Status          domainDevice.Status `json:"status"`
	LockReason      *string             `json:"lock_reason,omitempty"`
	NextPaymentDate *time.Time          `json:"next_payment_date,omitempty"`
	LastSeenAt      *time.Time          `json:"last_seen_at,omitempty"`
	Online          bool                `json:"online"`
}

func ToDeviceResponse(d *domainDevice.Device, now time.Time, window time.Duration) *DeviceResponse {
	if d == nil {
		return nil
	}
	return &DeviceResponse{
		ID:              d.ID,
		DeviceID:        d.DeviceID,
		Model:           d.Model,
		Manufacturer:    d.Manufacturer,
		OSVersion:       d.OSVersion,
		IMEI:            d.IMEI,
		IsRooted:        d.IsRooted,
		DeviceCodeID:    d.DeviceCodeID,
		Status:          d.Status,
		LockReason:      d.LockReason,
		StatusChangedAt: d.StatusChangedAt,
		LastSeenAt:      d.LastSeenAt,
		IsOnline:        d.IsOnline(now, window),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

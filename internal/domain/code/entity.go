package code

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeviceCode is a redeemable activation code. Codes are never deleted.
type DeviceCode struct {
	ID          uuid.UUID
	Code        string
	Price       decimal.Decimal
	Status      Status
	SoldTo      *uuid.UUID
	SoldAt      *time.Time
	ActivatedAt *time.Time
	LockReason  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Status string

const (
	StatusAvailable Status = "available"
	StatusSold      Status = "sold"
	StatusActivated Status = "activated"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusSold, StatusActivated:
		return true
	}
	return false
}

func (c *DeviceCode) IsAvailable() bool {
	return c.Status == StatusAvailable
}

func (c *DeviceCode) IsSold() bool {
	return c.Status == StatusSold
}

// OwnedBy reports whether the code was sold to the given admin.
func (c *DeviceCode) OwnedBy(adminID uuid.UUID) bool {
	return c.SoldTo != nil && *c.SoldTo == adminID
}

const codeBytes = 8

// NewCodeValue returns 16 upper-case hex characters drawn from crypto/rand.
func NewCodeValue() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

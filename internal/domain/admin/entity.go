package admin

import (
	"time"

	"github.com/google/uuid"
)

// Admin is a back-office account. Super admins mint and sell codes; admins
// register devices and manage payment plans for the codes they bought.
type Admin struct {
	ID             uuid.UUID
	Email          string
	Name           string
	BankName       string
	Role           Role
	Status         Status
	PasswordHashed string
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

func (a *Admin) IsActive() bool {
	return a.Status == StatusActive
}

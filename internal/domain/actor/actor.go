// Package actor describes the caller on whose behalf an operation runs.
package actor

import "github.com/google/uuid"

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleDevice     Role = "device"
	RoleSystem     Role = "system"
)

// Actor is threaded explicitly through every use case for authorization and
// audit attribution.
type Actor struct {
	ID   string
	Role Role
}

func System() Actor {
	return Actor{ID: "system", Role: RoleSystem}
}

func Device(deviceID string) Actor {
	return Actor{ID: deviceID, Role: RoleDevice}
}

func (a Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// IsStaff reports whether the actor is a back-office account.
func (a Actor) IsStaff() bool {
	return a.Role == RoleSuperAdmin || a.Role == RoleAdmin
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

func (a Actor) String() string {
	return string(a.Role) + ":" + a.ID
}

// AdminID returns the account id of a staff actor.
func (a Actor) AdminID() (uuid.UUID, bool) {
	if !a.IsStaff() {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

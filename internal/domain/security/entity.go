package security

import (
	"time"

	"github.com/google/uuid"
)

// Category tags an evaluation. A category is added together with its checks.
type Category string

const CategorySecurity Category = "security"

// Posture is what a device reports about itself at check-in.
type Posture struct {
	Rooted            bool
	BootloaderLocked  bool
	AttestationPassed bool
}

// Evaluation is the outcome of comparing a posture with what is expected of the device.
type Evaluation struct {
	ID                uuid.UUID
	DeviceID          uuid.UUID
	Category          Category
	RootStatusMatches bool
	BootloaderLocked  bool
	AttestationPassed bool
	Passed            bool
	Reason            string
	EvaluatedAt       time.Time
}

const (
	ReasonRootStatusChanged  = "root status changed"
	ReasonBootloaderUnlocked = "bootloader unlocked"
	ReasonAttestationFailed  = "attestation failed"
)

type check struct {
	reason string
	passed func(e *Evaluation) bool
}

// checks run in this order and the first failure decides the reason.
var checks = []check{
	{reason: ReasonRootStatusChanged, passed: func(e *Evaluation) bool { return e.RootStatusMatches }},
	{reason: ReasonBootloaderUnlocked, passed: func(e *Evaluation) bool { return e.BootloaderLocked }},
	{reason: ReasonAttestationFailed, passed: func(e *Evaluation) bool { return e.AttestationPassed }},
}

// Evaluate compares the observed posture with the device's declared rooted flag.
func Evaluate(declaredRooted bool, p Posture) Evaluation {
	e := Evaluation{
		Category:          CategorySecurity,
		RootStatusMatches: p.Rooted == declaredRooted,
		BootloaderLocked:  p.BootloaderLocked,
		AttestationPassed: p.AttestationPassed,
		Passed:            true,
	}

	for _, c := range checks {
		if !c.passed(&e) {
			e.Passed = false
			e.Reason = c.reason
			break
		}
	}

	return e
}

// NewerThan reports whether the evaluation happened strictly after t.
func (e *Evaluation) NewerThan(t time.Time) bool {
	return e.EvaluatedAt.After(t)
}

package security

import (
	"time"

	domainSecurity "device-finance-backoffice/internal/domain/security"
)

// EvaluateRequest is the posture a device reports about itself.
type EvaluateRequest struct {
	Root              bool `json:"root"`
	BootloaderLocked  bool `json:"bootloader_locked"`
	AttestationPassed bool `json:"attestation_passed"`
}

func (r *EvaluateRequest) Posture() domainSecurity.Posture {
	return domainSecurity.Posture{
		Rooted:            r.Root,
		BootloaderLocked:  r.BootloaderLocked,
		AttestationPassed: r.AttestationPassed,
	}
}

type EvaluationResponse struct {
	DeviceID          string                  `json:"device_id"`
	Category          domainSecurity.Category `json:"category"`
	Passed            bool                    `json:"passed"`
	Reason            string                  `json:"reason,omitempty"`
	RootStatusMatches bool                    `json:"root_status_matches"`
	BootloaderLocked  bool                    `json:"bootloader_locked"`
	AttestationPassed bool                    `json:"attestation_passed"`
	EvaluatedAt       time.Time               `json:"evaluated_at"`
}

func ToEvaluationResponse(deviceID string, e *domainSecurity.Evaluation) *EvaluationResponse {
	return &EvaluationResponse{
		DeviceID:          deviceID,
		Category:          e.Category,
		Passed:            e.Passed,
		Reason:            e.Reason,
		RootStatusMatches: e.RootStatusMatches,
		BootloaderLocked:  e.BootloaderLocked,
		AttestationPassed: e.AttestationPassed,
		EvaluatedAt:       e.EvaluatedAt,
	}
}

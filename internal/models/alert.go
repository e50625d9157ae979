package models

import "time"

// AlertState 报警状态机状态
type AlertState string

const (
	AlertIdle                 AlertState = "idle"
	AlertTriggered            AlertState = "triggered"
	AlertAwaitingConfirmation AlertState = "awaiting_confirmation"
	AlertReporting            AlertState = "reporting"
	AlertEvidenceUploading    AlertState = "evidence_uploading"
	AlertDelivered            AlertState = "delivered"
	AlertAbandoned            AlertState = "abandoned"
	// AlertSuppressed marks a trigger that was disconfirmed by audio
	// analysis before a backend record was created. Terminal, journal-only.
	AlertSuppressed AlertState = "suppressed"
)

// Terminal reports whether the state ends the alert lifecycle.
func (s AlertState) Terminal() bool {
	switch s {
	case AlertDelivered, AlertAbandoned, AlertSuppressed:
		return true
	}
	return false
}

// AlertRecord is the device-local record of one alert. Mutated only by the
// orchestrator; at most one non-terminal record exists at any time.
type AlertRecord struct {
	LocalID         string
	RemoteID        *int64
	State           AlertState
	Source          TriggerSource
	Confidence      float64
	Priority        Priority
	StressScore     *float64
	Frame           VitalsFrame
	PendingEvidence []*EvidenceBundle
	CreatedAt       time.Time
	LastAttemptAt   time.Time
	AttemptCount    int
}

// ReleaseEvidence drops every pending buffer. Used on terminal transitions
// so no buffer outlives the record.
func (r *AlertRecord) ReleaseEvidence() {
	for _, b := range r.PendingEvidence {
		b.Release()
	}
	r.PendingEvidence = nil
}

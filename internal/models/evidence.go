package models

import "time"

// EvidenceKind 证据类型
type EvidenceKind string

const (
	EvidenceAudioSample EvidenceKind = "audio_sample"
	EvidenceAudio       EvidenceKind = "audio"
	EvidencePhoto       EvidenceKind = "photo"
)

// EvidenceBundle is one captured payload bound to one alert.
// Exactly one owner at a time: the capture pipeline until hand-off, then the
// orchestrator until upload completes or the alert is abandoned. Release
// must be called exactly once per bundle; calling it again is a no-op.
type EvidenceBundle struct {
	AlertID    string
	Kind       EvidenceKind
	Payload    []byte
	ByteLen    int
	FileName   string
	CapturedAt time.Time

	released bool
}

// Release drops the payload buffer. Safe to call more than once, but every
// exit path must call it at least once so the buffer does not outlive the
// hand-off.
func (b *EvidenceBundle) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	b.Payload = nil
}

// Released reports whether the buffer has been dropped.
func (b *EvidenceBundle) Released() bool {
	return b != nil && b.released
}

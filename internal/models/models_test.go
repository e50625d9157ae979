package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvidenceBundle_ReleaseIdempotent(t *testing.T) {
	b := &EvidenceBundle{
		Kind:    EvidenceAudio,
		Payload: []byte{1, 2, 3},
		ByteLen: 3,
	}
	assert.False(t, b.Released())

	b.Release()
	assert.True(t, b.Released())
	assert.Nil(t, b.Payload)

	b.Release() // no-op
	assert.True(t, b.Released())
}

func TestEvidenceBundle_NilSafe(t *testing.T) {
	var b *EvidenceBundle
	b.Release()
	assert.False(t, b.Released())
}

func TestAlertRecord_ReleaseEvidence(t *testing.T) {
	first := &EvidenceBundle{Kind: EvidenceAudio, Payload: []byte{1}}
	second := &EvidenceBundle{Kind: EvidencePhoto, Payload: []byte{2}}
	rec := &AlertRecord{PendingEvidence: []*EvidenceBundle{first, second}}

	rec.ReleaseEvidence()

	assert.True(t, first.Released())
	assert.True(t, second.Released())
	assert.Nil(t, rec.PendingEvidence)
}

func TestAlertState_Terminal(t *testing.T) {
	terminal := []AlertState{AlertDelivered, AlertAbandoned, AlertSuppressed}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "state %s", s)
	}

	open := []AlertState{AlertIdle, AlertTriggered, AlertAwaitingConfirmation, AlertReporting, AlertEvidenceUploading}
	for _, s := range open {
		assert.False(t, s.Terminal(), "state %s", s)
	}
}

func TestVitalsFrame_HasLocationAndVitals(t *testing.T) {
	var frame VitalsFrame
	assert.False(t, frame.HasLocation())
	assert.False(t, frame.HasVitals())

	lat, lon := 12.97, 77.59
	frame.Latitude = &lat
	frame.Longitude = &lon
	assert.True(t, frame.HasLocation())

	hr := 72.0
	frame.HeartRate = &hr
	frame.SampledAt = time.Now()
	assert.True(t, frame.HasVitals())
}

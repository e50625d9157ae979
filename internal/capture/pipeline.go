// Package capture acquires audio and photo evidence through the microphone
// and camera ports. Every operation is bounded in wall-clock time, fails
// soft when a port is absent, and hands the caller exclusive ownership of
// the returned buffer.
package capture

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"safeband-device/internal/config"
	"safeband-device/internal/models"
	"safeband-device/internal/ports"
)

// Pipeline 证据采集管线
type Pipeline struct {
	cfg    *config.Config
	mic    ports.MicrophonePort
	camera ports.CameraPort
	logger *zap.Logger

	now func() time.Time
}

// New 创建采集管线
func New(cfg *config.Config, mic ports.MicrophonePort, camera ports.CameraPort, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		mic:    mic,
		camera: camera,
		logger: logger,
		now:    time.Now,
	}
}

// CaptureAudioSample records the short window used for AI stress scoring.
// Partial captures are still usable.
func (p *Pipeline) CaptureAudioSample(alertID string) (*models.EvidenceBundle, error) {
	return p.captureAudio(alertID, models.EvidenceAudioSample, p.cfg.Audio.SampleDuration)
}

// CaptureEvidenceAudio records the longer evidence window.
func (p *Pipeline) CaptureEvidenceAudio(alertID string) (*models.EvidenceBundle, error) {
	return p.captureAudio(alertID, models.EvidenceAudio, p.cfg.Audio.EvidenceDuration)
}

func (p *Pipeline) captureAudio(alertID string, kind models.EvidenceKind, d time.Duration) (*models.EvidenceBundle, error) {
	if !p.mic.Available() {
		p.logger.Warn("microphone unavailable, skipping audio capture",
			zap.String("alert_id", alertID),
			zap.String("kind", string(kind)),
		)
		return nil, models.ErrSensorUnavailable
	}

	p.logger.Info("capturing audio",
		zap.String("alert_id", alertID),
		zap.String("kind", string(kind)),
		zap.Duration("duration", d),
	)

	buf, err := p.mic.Capture(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCaptureFailed, err)
	}
	if len(buf) == 0 {
		return nil, models.ErrCaptureFailed
	}

	// Cap at the sized window: rate × 2 bytes per 16-bit sample × seconds.
	maxBytes := int(float64(p.cfg.Audio.SampleRate) * d.Seconds() * 2)
	if len(buf) > maxBytes {
		buf = buf[:maxBytes]
	}

	now := p.now()
	bundle := &models.EvidenceBundle{
		AlertID:    alertID,
		Kind:       kind,
		Payload:    buf,
		ByteLen:    len(buf),
		FileName:   fmt.Sprintf("audio_%s_%d.wav", alertID, now.UnixMilli()),
		CapturedAt: now,
	}

	p.logger.Info("audio captured",
		zap.String("alert_id", alertID),
		zap.String("kind", string(kind)),
		zap.Int("bytes", bundle.ByteLen),
	)
	return bundle, nil
}

// CapturePhoto captures one still frame.
func (p *Pipeline) CapturePhoto(alertID string) (*models.EvidenceBundle, error) {
	if !p.camera.Available() {
		p.logger.Warn("camera unavailable, skipping photo capture",
			zap.String("alert_id", alertID),
		)
		return nil, models.ErrSensorUnavailable
	}

	frame, err := p.camera.CaptureFrame()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCaptureFailed, err)
	}
	if len(frame) == 0 {
		return nil, models.ErrCaptureFailed
	}

	now := p.now()
	bundle := &models.EvidenceBundle{
		AlertID:    alertID,
		Kind:       models.EvidencePhoto,
		Payload:    frame,
		ByteLen:    len(frame),
		FileName:   fmt.Sprintf("photo_%s_%d.jpg", alertID, now.UnixMilli()),
		CapturedAt: now,
	}

	p.logger.Info("photo captured",
		zap.String("alert_id", alertID),
		zap.Int("bytes", bundle.ByteLen),
	)
	return bundle, nil
}

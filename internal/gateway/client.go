// Package gateway wraps the backend wire protocol. It owns per-call
// timeouts and encoding; it performs no retries — business-level delivery
// guarantees live in the orchestrator.
package gateway

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"safeband-device/internal/config"
	"safeband-device/internal/models"
)

// Client 后端网关客户端
type Client struct {
	httpClient *resty.Client
	cfg        *config.Config
	logger     *zap.Logger
}

// NewClient 创建网关客户端
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.Backend.BaseURL).
		SetRetryCount(0). // retries belong to the orchestrator
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.Device.Token).
		SetHeader("X-Device-Token", cfg.Device.Token)

	return &Client{
		httpClient: client,
		cfg:        cfg,
		logger:     logger,
	}
}

// Heartbeat posts the periodic liveness signal with battery and, when a fix
// is present, location.
func (c *Client) Heartbeat(ctx context.Context, frame models.VitalsFrame) Outcome {
	req := heartbeatRequest{BatteryLevel: frame.BatteryPct}
	if frame.HasLocation() {
		req.Latitude = frame.Latitude
		req.Longitude = frame.Longitude
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Backend.ControlTimeout)
	defer cancel()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post("/devices/heartbeat")

	return c.outcome("heartbeat", resp, err, http.StatusOK)
}

// PushSensorData posts the current vitals frame.
func (c *Client) PushSensorData(ctx context.Context, frame models.VitalsFrame) Outcome {
	req := sensorDataRequest{BatteryLevel: frame.BatteryPct}
	req.HeartRate = intPtr(frame.HeartRate)
	req.Temperature = frame.BodyTempC
	if frame.HasLocation() {
		req.Latitude = frame.Latitude
		req.Longitude = frame.Longitude
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Backend.ControlTimeout)
	defer cancel()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post("/devices/sensor-data")

	return c.outcome("sensor-data", resp, err, http.StatusCreated)
}

// TriggerAlertParams 触发报警的业务参数
type TriggerAlertParams struct {
	Source      models.TriggerSource
	Priority    models.Priority
	StressScore *float64
	Confidence  *float64
	Frame       models.VitalsFrame
	AIAnalysis  map[string]any
}

// TriggerAlert creates the backend alert record and returns the assigned
// alert id on success.
func (c *Client) TriggerAlert(ctx context.Context, params TriggerAlertParams) (int64, Outcome) {
	req := triggerAlertRequest{
		AlertType:     wireAlertType(params.Source),
		TriggerSource: wireTriggerSource(params.Source, params.StressScore != nil),
		Priority:      string(params.Priority),
		StressScore:   params.StressScore,
		Confidence:    params.Confidence,
		HeartRate:     intPtr(params.Frame.HeartRate),
		Temperature:   params.Frame.BodyTempC,
		AIAnalysis:    params.AIAnalysis,
	}
	if params.Frame.HasLocation() {
		req.Latitude = params.Frame.Latitude
		req.Longitude = params.Frame.Longitude
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Backend.ControlTimeout)
	defer cancel()

	var result triggerAlertResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/alerts/trigger")

	outcome := c.outcome("trigger-alert", resp, err, http.StatusCreated)
	if !outcome.Success() {
		return 0, outcome
	}
	return result.AlertID, outcome
}

// AnalyzeAudioStress submits a captured audio window for AI scoring,
// enriched with the current vitals when present.
func (c *Client) AnalyzeAudioStress(ctx context.Context, audio []byte, heartRate *float64, temperature *float64) (AnalysisResult, Outcome) {
	req := analyzeAudioRequest{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		HeartRate:   intPtr(heartRate),
		Temperature: temperature,
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Backend.AnalyzeTimeout)
	defer cancel()

	var result AnalysisResult
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/stress-detection/analyze-audio")

	outcome := c.outcome("analyze-audio", resp, err, http.StatusOK)
	if !outcome.Success() {
		return AnalysisResult{}, outcome
	}
	return result, outcome
}

// UploadEvidence uploads one evidence bundle for a backend alert.
func (c *Client) UploadEvidence(ctx context.Context, remoteID int64, bundle *models.EvidenceBundle, latitude, longitude *float64) Outcome {
	req := uploadEvidenceRequest{
		AlertID:      remoteID,
		EvidenceType: evidenceType(bundle.Kind),
		FileName:     bundle.FileName,
		FileBase64:   base64.StdEncoding.EncodeToString(bundle.Payload),
		Latitude:     latitude,
		Longitude:    longitude,
		CapturedAt:   bundle.CapturedAt.UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Backend.UploadTimeout)
	defer cancel()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post("/evidence/upload")

	return c.outcome("upload-evidence", resp, err, http.StatusCreated)
}

// outcome maps a resty result onto the tri-state contract: transport error
// means unreachable, any non-success status means rejected.
func (c *Client) outcome(call string, resp *resty.Response, err error, wantCode int) Outcome {
	if err != nil {
		c.logger.Warn("backend unreachable",
			zap.String("call", call),
			zap.Error(err),
		)
		return Outcome{Status: CallUnreachable}
	}

	code := resp.StatusCode()
	if code != wantCode {
		c.logger.Warn("backend rejected call",
			zap.String("call", call),
			zap.Int("status_code", code),
		)
		return Outcome{Status: CallRejected, HTTPCode: code}
	}

	c.logger.Debug("backend call ok",
		zap.String("call", call),
		zap.Int("status_code", code),
	)
	return Outcome{Status: CallSuccess, HTTPCode: code}
}

// The backend accepts alert_type in {manual_trigger, ai_detected} and
// trigger_source in {button, audio, physiological, hybrid}.
func wireAlertType(s models.TriggerSource) string {
	if s == models.SourceManual {
		return "manual_trigger"
	}
	return "ai_detected"
}

func wireTriggerSource(s models.TriggerSource, scored bool) string {
	switch s {
	case models.SourceManual:
		return "button"
	case models.SourceAudioAI:
		return "audio"
	case models.SourceCombined:
		if scored {
			// biometric anomaly corroborated by an audio score
			return "hybrid"
		}
		return "physiological"
	default:
		return "physiological"
	}
}

func evidenceType(kind models.EvidenceKind) string {
	if kind == models.EvidencePhoto {
		return "photo"
	}
	return "audio"
}

func intPtr(f *float64) *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

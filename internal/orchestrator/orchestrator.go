// Package orchestrator drives the alert lifecycle: trigger confirmation,
// backend alert creation, evidence capture and upload, and terminal
// bookkeeping. At most one alert is non-terminal at any time; triggers that
// arrive while one is active are coalesced into it.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"safeband-device/internal/config"
	"safeband-device/internal/gateway"
	"safeband-device/internal/journal"
	"safeband-device/internal/models"
)

// Backend is the slice of the gateway the orchestrator needs.
type Backend interface {
	TriggerAlert(ctx context.Context, params gateway.TriggerAlertParams) (int64, gateway.Outcome)
	AnalyzeAudioStress(ctx context.Context, audio []byte, heartRate, temperature *float64) (gateway.AnalysisResult, gateway.Outcome)
	UploadEvidence(ctx context.Context, remoteID int64, bundle *models.EvidenceBundle, latitude, longitude *float64) gateway.Outcome
}

// EvidencePipeline 证据采集接口
type EvidencePipeline interface {
	CaptureAudioSample(alertID string) (*models.EvidenceBundle, error)
	CaptureEvidenceAudio(alertID string) (*models.EvidenceBundle, error)
	CapturePhoto(alertID string) (*models.EvidenceBundle, error)
}

// Recorder 本地日志接口
type Recorder interface {
	RecordCreated(ctx context.Context, rec *models.AlertRecord) error
	RecordStateChange(ctx context.Context, rec *models.AlertRecord) error
	RecordEvidence(ctx context.Context, localID string, bundle *models.EvidenceBundle, outcome string) error
}

// SnapshotFunc returns the current vitals frame.
type SnapshotFunc func() models.VitalsFrame

// Orchestrator 报警编排器
type Orchestrator struct {
	cfg      *config.Config
	backend  Backend
	pipeline EvidencePipeline
	journal  Recorder
	snapshot SnapshotFunc
	logger   *zap.Logger

	triggerRetry RetryPolicy
	uploadRetry  RetryPolicy

	// sleep is replaceable in tests
	sleep func(ctx context.Context, d time.Duration) bool

	runCh chan *models.AlertRecord

	mu        sync.Mutex
	active    *models.AlertRecord
	coalesced bool
}

// New 创建编排器
func New(
	cfg *config.Config,
	backend Backend,
	pipeline EvidencePipeline,
	rec Recorder,
	snapshot SnapshotFunc,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		backend:  backend,
		pipeline: pipeline,
		journal:  rec,
		snapshot: snapshot,
		logger:   logger,
		triggerRetry: RetryPolicy{
			MaxAttempts: cfg.Alert.MaxAttempts,
			BaseDelay:   cfg.Alert.RetryBaseDelay,
			MaxDelay:    cfg.Alert.RetryMaxDelay,
		},
		uploadRetry: RetryPolicy{
			MaxAttempts: cfg.Alert.UploadAttempts,
			BaseDelay:   cfg.Alert.RetryBaseDelay,
			MaxDelay:    cfg.Alert.RetryMaxDelay,
		},
		sleep: ctxSleep,
		runCh: make(chan *models.AlertRecord, 1),
	}
}

// Submit hands a trigger verdict to the orchestrator. It returns true when a
// new alert lifecycle was started. While an alert is active the trigger is
// coalesced: no second record is ever created, extra evidence is appended to
// the active one instead.
func (o *Orchestrator) Submit(v models.StressVerdict) bool {
	if !v.Triggered {
		return false
	}

	o.mu.Lock()
	if o.active != nil && !o.active.State.Terminal() {
		o.coalesced = true
		localID := o.active.LocalID
		o.mu.Unlock()
		o.logger.Info("trigger coalesced into active alert",
			zap.String("alert_id", localID),
			zap.String("source", string(v.Source)),
		)
		return false
	}

	rec := &models.AlertRecord{
		LocalID:    uuid.NewString(),
		State:      models.AlertTriggered,
		Source:     v.Source,
		Confidence: v.Confidence,
		Priority:   v.Priority,
		CreatedAt:  time.Now(),
	}
	if v.Source == models.SourceAudioAI {
		score := v.Confidence
		rec.StressScore = &score
	}
	o.active = rec
	o.coalesced = false
	o.mu.Unlock()

	select {
	case o.runCh <- rec:
		return true
	default:
		// worker gone or backed up; never leave a dangling active record
		o.clearActive()
		o.logger.Error("orchestrator worker not accepting alerts, trigger dropped",
			zap.String("alert_id", rec.LocalID),
		)
		return false
	}
}

// Active reports whether an alert lifecycle is currently in flight.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != nil && !o.active.State.Terminal()
}

// Run consumes submitted alerts until the context is canceled. Alert
// lifecycles execute one at a time on this goroutine so captures and
// uploads never run concurrently for two events.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-o.runCh:
			o.run(ctx, rec)
		}
	}
}

// run walks one alert through the state machine.
func (o *Orchestrator) run(ctx context.Context, rec *models.AlertRecord) {
	rec.Frame = o.snapshot()
	o.journalCreated(ctx, rec)

	o.logger.Info("alert triggered",
		zap.String("alert_id", rec.LocalID),
		zap.String("source", string(rec.Source)),
		zap.Float64("confidence", rec.Confidence),
	)

	if !o.confirmTrigger(ctx, rec) {
		o.finish(ctx, rec, models.AlertSuppressed)
		return
	}

	if !o.reportAlert(ctx, rec) {
		o.finish(ctx, rec, models.AlertAbandoned)
		return
	}

	o.gatherEvidence(ctx, rec)
	o.uploadEvidence(ctx, rec)
	o.finish(ctx, rec, models.AlertDelivered)
}

// confirmTrigger runs the Triggered phase: a short audio sample is captured
// and, when the trigger did not come from audio scoring in the first place,
// sent for AI confirmation. Returns false when the trigger was disconfirmed.
// Manual triggers are never suppressed; an unreachable or failed analysis
// is treated as no evidence either way and the alert proceeds.
func (o *Orchestrator) confirmTrigger(ctx context.Context, rec *models.AlertRecord) bool {
	needsConfirmation := rec.Source != models.SourceAudioAI && o.cfg.Alert.ConfirmWithAudio
	if !needsConfirmation {
		return true
	}

	sample, err := o.pipeline.CaptureAudioSample(rec.LocalID)
	if err != nil {
		if !errors.Is(err, models.ErrSensorUnavailable) {
			o.logger.Warn("confirmation sample capture failed",
				zap.String("alert_id", rec.LocalID),
				zap.Error(err),
			)
		}
		return true
	}
	defer sample.Release()

	result, outcome := o.backend.AnalyzeAudioStress(ctx, sample.Payload, rec.Frame.HeartRate, rec.Frame.BodyTempC)
	if !outcome.Success() || !result.Success {
		o.logger.Warn("audio analysis unavailable, proceeding unconfirmed",
			zap.String("alert_id", rec.LocalID),
		)
		return true
	}

	score := result.CombinedScore
	rec.StressScore = &score

	if result.StressDetected || score >= o.cfg.Thresholds.AIStress {
		o.logger.Info("trigger confirmed by audio analysis",
			zap.String("alert_id", rec.LocalID),
			zap.Float64("combined_score", score),
		)
		return true
	}

	if rec.Source == models.SourceManual {
		// never drop a user-initiated alarm on a low score
		return true
	}

	o.logger.Info("trigger disconfirmed by audio analysis, suppressing",
		zap.String("alert_id", rec.LocalID),
		zap.Float64("combined_score", score),
	)
	return false
}

// reportAlert runs AwaitingConfirmation: the backend alert record is
// created with bounded retries on transport failure. Rejection is final.
func (o *Orchestrator) reportAlert(ctx context.Context, rec *models.AlertRecord) bool {
	rec.State = models.AlertAwaitingConfirmation
	o.journalState(ctx, rec)

	params := gateway.TriggerAlertParams{
		Source:      rec.Source,
		Priority:    rec.Priority,
		StressScore: rec.StressScore,
		Frame:       rec.Frame,
	}
	if rec.Confidence > 0 {
		confidence := rec.Confidence
		params.Confidence = &confidence
	}
	if rec.StressScore != nil {
		params.AIAnalysis = map[string]any{"combined_score": *rec.StressScore}
	}

	for attempt := 1; attempt <= o.triggerRetry.MaxAttempts; attempt++ {
		if rec.RemoteID != nil {
			// a previous attempt already yielded an id; never create twice
			break
		}
		rec.AttemptCount = attempt
		rec.LastAttemptAt = time.Now()

		remoteID, outcome := o.backend.TriggerAlert(ctx, params)
		if outcome.Success() {
			rec.RemoteID = &remoteID
			o.logger.Info("alert created on backend",
				zap.String("alert_id", rec.LocalID),
				zap.Int64("remote_id", remoteID),
				zap.Int("attempt", attempt),
			)
			break
		}
		if outcome.Rejected() {
			o.logger.Error("alert rejected by backend",
				zap.String("alert_id", rec.LocalID),
				zap.Int("status_code", outcome.HTTPCode),
			)
			return false
		}
		if attempt < o.triggerRetry.MaxAttempts {
			if !o.sleep(ctx, o.triggerRetry.Delay(attempt)) {
				return false
			}
		}
	}

	if rec.RemoteID == nil {
		o.logger.Error("backend unreachable, alert attempts exhausted",
			zap.String("alert_id", rec.LocalID),
			zap.Int("attempts", rec.AttemptCount),
		)
		return false
	}

	rec.State = models.AlertReporting
	o.journalState(ctx, rec)
	return true
}

// gatherEvidence runs the Reporting phase: evidence audio, then a photo,
// then — when triggers were coalesced while this alert was active — one
// extra short sample. A failed capture skips that item only.
func (o *Orchestrator) gatherEvidence(ctx context.Context, rec *models.AlertRecord) {
	if audio, err := o.pipeline.CaptureEvidenceAudio(rec.LocalID); err == nil {
		rec.PendingEvidence = append(rec.PendingEvidence, audio)
	} else {
		o.logger.Warn("evidence audio skipped",
			zap.String("alert_id", rec.LocalID),
			zap.Error(err),
		)
	}

	if photo, err := o.pipeline.CapturePhoto(rec.LocalID); err == nil {
		rec.PendingEvidence = append(rec.PendingEvidence, photo)
	} else {
		o.logger.Warn("photo skipped",
			zap.String("alert_id", rec.LocalID),
			zap.Error(err),
		)
	}

	if o.takeCoalesced() {
		if extra, err := o.pipeline.CaptureAudioSample(rec.LocalID); err == nil {
			rec.PendingEvidence = append(rec.PendingEvidence, extra)
		}
	}

	rec.State = models.AlertEvidenceUploading
	o.journalState(ctx, rec)
}

// uploadEvidence uploads pending items in order. Transport failures retry
// with backoff; a rejected or exhausted item is dropped and logged without
// blocking its siblings. Partial delivery is acceptable; silent loss is not.
func (o *Orchestrator) uploadEvidence(ctx context.Context, rec *models.AlertRecord) {
	for _, bundle := range rec.PendingEvidence {
		delivered := false
		for attempt := 1; attempt <= o.uploadRetry.MaxAttempts; attempt++ {
			outcome := o.backend.UploadEvidence(ctx, *rec.RemoteID, bundle, rec.Frame.Latitude, rec.Frame.Longitude)
			if outcome.Success() {
				delivered = true
				break
			}
			if outcome.Rejected() {
				break
			}
			if attempt < o.uploadRetry.MaxAttempts {
				if !o.sleep(ctx, o.uploadRetry.Delay(attempt)) {
					break
				}
			}
		}

		if delivered {
			o.journalEvidence(ctx, rec.LocalID, bundle, journal.EvidenceUploaded)
		} else {
			o.logger.Warn("evidence dropped after retries",
				zap.String("alert_id", rec.LocalID),
				zap.String("kind", string(bundle.Kind)),
				zap.String("file_name", bundle.FileName),
			)
			o.journalEvidence(ctx, rec.LocalID, bundle, journal.EvidenceDropped)
		}
		bundle.Release()
	}
	rec.PendingEvidence = nil
}

// finish moves the record to a terminal state, releases whatever evidence
// is still held, journals the close and frees the active slot.
func (o *Orchestrator) finish(ctx context.Context, rec *models.AlertRecord, state models.AlertState) {
	rec.ReleaseEvidence()
	rec.State = state
	o.journalState(ctx, rec)

	o.logger.Info("alert closed",
		zap.String("alert_id", rec.LocalID),
		zap.String("state", string(state)),
		zap.Int("attempts", rec.AttemptCount),
	)

	o.clearActive()
}

func (o *Orchestrator) clearActive() {
	o.mu.Lock()
	o.active = nil
	o.coalesced = false
	o.mu.Unlock()
}

func (o *Orchestrator) takeCoalesced() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	c := o.coalesced
	o.coalesced = false
	return c
}

// Journal failures are logged and swallowed: local bookkeeping must never
// stop an alert from being delivered.

func (o *Orchestrator) journalCreated(ctx context.Context, rec *models.AlertRecord) {
	if err := o.journal.RecordCreated(ctx, rec); err != nil {
		o.logger.Error("journal write failed", zap.String("alert_id", rec.LocalID), zap.Error(err))
	}
}

func (o *Orchestrator) journalState(ctx context.Context, rec *models.AlertRecord) {
	if err := o.journal.RecordStateChange(ctx, rec); err != nil {
		o.logger.Error("journal write failed", zap.String("alert_id", rec.LocalID), zap.Error(err))
	}
}

func (o *Orchestrator) journalEvidence(ctx context.Context, localID string, bundle *models.EvidenceBundle, outcome string) {
	if err := o.journal.RecordEvidence(ctx, localID, bundle, outcome); err != nil {
		o.logger.Error("journal write failed", zap.String("alert_id", localID), zap.Error(err))
	}
}

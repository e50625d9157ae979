// Package evaluator decides whether a vitals frame warrants an alert.
package evaluator

import (
	"sync"

	"go.uber.org/zap"

	"safeband-device/internal/config"
	"safeband-device/internal/models"
)

// combinedStreakRequired：规则3需要连续两个评估周期都异常才触发（抗抖动）
const combinedStreakRequired = 2

// Evaluator 压力评估器。规则按优先级：手动触发 > 音频AI评分 > 心率+体温联合异常。
// 除联合异常的迟滞计数外无状态；每次评估产生新的 StressVerdict。
type Evaluator struct {
	cfg    *config.Config
	logger *zap.Logger

	mu             sync.Mutex
	manualArmed    bool
	combinedStreak int
}

// New 创建评估器
func New(cfg *config.Config, logger *zap.Logger) *Evaluator {
	return &Evaluator{cfg: cfg, logger: logger}
}

// TriggerManual arms a manual trigger (panic button / external command).
// The next Evaluate call consumes it and trumps every other rule.
func (e *Evaluator) TriggerManual() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.manualArmed = true
	e.logger.Info("manual trigger armed")
}

// Reset clears the anti-flap history. Called after a trigger has been acted
// on so a fresh event needs fresh evidence of anomaly.
func (e *Evaluator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.combinedStreak = 0
}

// Evaluate applies the trigger rules to one frame. audioScore is the
// externally computed AI stress score for the current window, nil when no
// audio analysis ran. Unavailable signals skip their rule instead of
// counting as anomalous.
func (e *Evaluator) Evaluate(frame models.VitalsFrame, audioScore *float64) models.StressVerdict {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Rule 1: manual trigger, immediate.
	if e.manualArmed {
		e.manualArmed = false
		e.combinedStreak = 0
		return models.StressVerdict{
			Triggered:  true,
			Source:     models.SourceManual,
			Confidence: 1.0,
			Priority:   models.PriorityHigh,
		}
	}

	// Rule 2: AI audio score above threshold, immediate.
	if audioScore != nil && *audioScore >= e.cfg.Thresholds.AIStress {
		e.combinedStreak = 0
		return models.StressVerdict{
			Triggered:  true,
			Source:     models.SourceAudioAI,
			Confidence: *audioScore,
			Priority:   models.PriorityHigh,
		}
	}

	// Rule 3: heart rate AND temperature both anomalous. Requiring both
	// signals suppresses single-sensor noise; a missing signal skips the
	// rule entirely.
	if e.combinedAnomaly(frame) {
		e.combinedStreak++
		if e.combinedStreak >= combinedStreakRequired {
			e.logger.Info("combined anomaly confirmed",
				zap.Float64p("heart_rate", frame.HeartRate),
				zap.Float64p("body_temp_c", frame.BodyTempC),
				zap.Int("streak", e.combinedStreak),
			)
			return models.StressVerdict{
				Triggered:  true,
				Source:     models.SourceCombined,
				Confidence: 0.8,
				Priority:   models.PriorityHigh,
			}
		}
		e.logger.Debug("combined anomaly observed, awaiting confirmation cycle",
			zap.Int("streak", e.combinedStreak),
		)
	} else {
		e.combinedStreak = 0
	}

	return models.StressVerdict{Source: models.SourceNone, Priority: models.PriorityNormal}
}

func (e *Evaluator) combinedAnomaly(frame models.VitalsFrame) bool {
	if frame.HeartRate == nil || frame.BodyTempC == nil {
		return false
	}
	hr, temp := *frame.HeartRate, *frame.BodyTempC
	hrAnomalous := hr < e.cfg.Thresholds.HeartRateLow || hr > e.cfg.Thresholds.HeartRateHigh
	tempAnomalous := temp < e.cfg.Thresholds.TemperatureLow || temp > e.cfg.Thresholds.TemperatureHigh
	return hrAnomalous && tempAnomalous
}

package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"safeband-device/internal/config"
	"safeband-device/internal/models"
)

func newEvaluator() *Evaluator {
	return New(config.Default(), zap.NewNop())
}

func frame(heartRate, bodyTemp *float64) models.VitalsFrame {
	return models.VitalsFrame{
		HeartRate:  heartRate,
		BodyTempC:  bodyTemp,
		BatteryPct: 90,
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestEvaluate_NormalRange_NoTrigger(t *testing.T) {
	e := newEvaluator()

	for i := 0; i < 5; i++ {
		verdict := e.Evaluate(frame(floatPtr(75), floatPtr(36.5)), nil)
		assert.False(t, verdict.Triggered)
		assert.Equal(t, models.SourceNone, verdict.Source, "untriggered verdicts carry no source")
		assert.Equal(t, models.PriorityNormal, verdict.Priority)
	}
}

func TestEvaluate_AudioScoreAboveThreshold_TriggersImmediately(t *testing.T) {
	e := newEvaluator()

	// Scenario: normal vitals, high audio score — no hysteresis delay
	verdict := e.Evaluate(frame(floatPtr(75), floatPtr(36.5)), floatPtr(0.85))

	assert.True(t, verdict.Triggered)
	assert.Equal(t, models.SourceAudioAI, verdict.Source)
	assert.Equal(t, 0.85, verdict.Confidence)
	assert.Equal(t, models.PriorityHigh, verdict.Priority)
}

func TestEvaluate_AudioScoreBelowThreshold_NoTrigger(t *testing.T) {
	e := newEvaluator()

	verdict := e.Evaluate(frame(floatPtr(75), floatPtr(36.5)), floatPtr(0.69))
	assert.False(t, verdict.Triggered)
}

func TestEvaluate_AudioScoreOverridesVitals(t *testing.T) {
	e := newEvaluator()

	// anomalous vitals present, but the audio rule wins outright
	verdict := e.Evaluate(frame(floatPtr(40), floatPtr(39.0)), floatPtr(0.9))

	assert.True(t, verdict.Triggered)
	assert.Equal(t, models.SourceAudioAI, verdict.Source)
}

func TestEvaluate_CombinedAnomaly_RequiresTwoCycles(t *testing.T) {
	e := newEvaluator()
	anomalous := frame(floatPtr(40), floatPtr(39.0))

	first := e.Evaluate(anomalous, nil)
	assert.False(t, first.Triggered, "single anomalous cycle must not trigger")

	second := e.Evaluate(anomalous, nil)
	assert.True(t, second.Triggered)
	assert.Equal(t, models.SourceCombined, second.Source)
	assert.Equal(t, models.PriorityHigh, second.Priority)
}

func TestEvaluate_CombinedStreak_ResetOnNormalCycle(t *testing.T) {
	e := newEvaluator()
	anomalous := frame(floatPtr(40), floatPtr(39.0))

	assert.False(t, e.Evaluate(anomalous, nil).Triggered)
	assert.False(t, e.Evaluate(frame(floatPtr(75), floatPtr(36.5)), nil).Triggered)
	// streak was broken, one more anomalous cycle is not enough
	assert.False(t, e.Evaluate(anomalous, nil).Triggered)
}

func TestEvaluate_SingleSignalAnomaly_NeverTriggers(t *testing.T) {
	e := newEvaluator()

	cases := []models.VitalsFrame{
		frame(floatPtr(40), floatPtr(36.5)),  // low HR, normal temp
		frame(floatPtr(140), floatPtr(36.5)), // high HR, normal temp
		frame(floatPtr(75), floatPtr(39.5)),  // normal HR, high temp
		frame(floatPtr(75), floatPtr(34.0)),  // normal HR, low temp
	}
	for _, f := range cases {
		for i := 0; i < 3; i++ {
			assert.False(t, e.Evaluate(f, nil).Triggered)
		}
	}
}

func TestEvaluate_MissingSignal_SkipsCombinedRule(t *testing.T) {
	e := newEvaluator()

	// anomalous HR but no temperature reading: rule skipped, not anomalous
	for i := 0; i < 3; i++ {
		assert.False(t, e.Evaluate(frame(floatPtr(40), nil), nil).Triggered)
	}
	for i := 0; i < 3; i++ {
		assert.False(t, e.Evaluate(frame(nil, floatPtr(39.5)), nil).Triggered)
	}
}

func TestEvaluate_ManualTrigger_ImmediateAndConsumed(t *testing.T) {
	e := newEvaluator()
	e.TriggerManual()

	verdict := e.Evaluate(frame(floatPtr(75), floatPtr(36.5)), nil)
	assert.True(t, verdict.Triggered)
	assert.Equal(t, models.SourceManual, verdict.Source)
	assert.Equal(t, 1.0, verdict.Confidence)
	assert.Equal(t, models.PriorityHigh, verdict.Priority)

	// the trigger is an edge, not a level
	assert.False(t, e.Evaluate(frame(floatPtr(75), floatPtr(36.5)), nil).Triggered)
}

func TestEvaluate_ManualTrigger_BypassesOtherRules(t *testing.T) {
	e := newEvaluator()
	e.TriggerManual()

	// even with a high audio score the manual source wins
	verdict := e.Evaluate(frame(nil, nil), floatPtr(0.95))
	assert.Equal(t, models.SourceManual, verdict.Source)
}

func TestReset_ClearsHysteresis(t *testing.T) {
	e := newEvaluator()
	anomalous := frame(floatPtr(40), floatPtr(39.0))

	assert.False(t, e.Evaluate(anomalous, nil).Triggered)
	e.Reset()
	assert.False(t, e.Evaluate(anomalous, nil).Triggered, "reset must restart the streak")
	assert.True(t, e.Evaluate(anomalous, nil).Triggered)
}

package models

// TriggerSource 触发来源
type TriggerSource string

const (
	// SourceNone marks an untriggered verdict.
	SourceNone      TriggerSource = ""
	SourceManual    TriggerSource = "manual"
	SourceBiometric TriggerSource = "biometric"
	SourceAudioAI   TriggerSource = "audio_ai"
	SourceCombined  TriggerSource = "combined"
)

// Priority 报警优先级
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// StressVerdict is the evaluator's decision for one evaluation cycle.
// Produced fresh each cycle, never persisted.
type StressVerdict struct {
	Triggered  bool          `json:"triggered"`
	Source     TriggerSource `json:"source"`
	Confidence float64       `json:"confidence"`
	Priority   Priority      `json:"priority"`
}

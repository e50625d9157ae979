package gateway

// CallStatus 后端调用三态结果
type CallStatus int

const (
	CallSuccess CallStatus = iota
	// CallRejected: the backend answered with a non-success status. The
	// payload is presumed structurally invalid or policy-denied; callers
	// must not retry.
	CallRejected
	// CallUnreachable: no response at all (transport failure, timeout).
	// Business-level retry is the orchestrator's call.
	CallUnreachable
)

// Outcome is the result of one backend call.
type Outcome struct {
	Status   CallStatus
	HTTPCode int
}

func (o Outcome) Success() bool     { return o.Status == CallSuccess }
func (o Outcome) Rejected() bool    { return o.Status == CallRejected }
func (o Outcome) Unreachable() bool { return o.Status == CallUnreachable }

// Optional fields are omitted entirely (never sent as null) when the
// underlying signal is unavailable or zero — the backend contract.

type heartbeatRequest struct {
	BatteryLevel int      `json:"battery_level"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

type sensorDataRequest struct {
	HeartRate    *int     `json:"heart_rate,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	BatteryLevel int      `json:"battery_level"`
}

type triggerAlertRequest struct {
	AlertType     string         `json:"alert_type"`
	TriggerSource string         `json:"trigger_source"`
	Priority      string         `json:"priority"`
	StressScore   *float64       `json:"stress_score,omitempty"`
	Confidence    *float64       `json:"confidence,omitempty"`
	HeartRate     *int           `json:"heart_rate,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	Latitude      *float64       `json:"latitude,omitempty"`
	Longitude     *float64       `json:"longitude,omitempty"`
	AIAnalysis    map[string]any `json:"ai_analysis,omitempty"`
}

type triggerAlertResponse struct {
	AlertID int64 `json:"alert_id"`
}

type analyzeAudioRequest struct {
	AudioBase64 string   `json:"audio_base64"`
	HeartRate   *int     `json:"heart_rate,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// AnalysisResult AI音频压力分析结果
type AnalysisResult struct {
	Success        bool    `json:"success"`
	StressDetected bool    `json:"stress_detected"`
	CombinedScore  float64 `json:"combined_score"`
}

type uploadEvidenceRequest struct {
	AlertID      int64    `json:"alert_id"`
	EvidenceType string   `json:"evidence_type"`
	FileName     string   `json:"file_name"`
	FileBase64   string   `json:"file_base64"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	CapturedAt   string   `json:"captured_at"`
}

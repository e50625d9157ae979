package models

import "time"

// SignalKind 信号类型
type SignalKind string

const (
	SignalBiometric SignalKind = "biometric"
	SignalThermal   SignalKind = "thermal"
	SignalLocation  SignalKind = "location"
)

// Reading is one sampled value from a capability port.
// Available=false means the port had nothing usable (sensor absent,
// no finger on the sensor, no satellite fix).
type Reading struct {
	Value     float64
	Available bool
	Age       time.Duration
}

// Fix is a location fix from the GNSS port.
type Fix struct {
	Latitude   float64
	Longitude  float64
	Satellites int
}

// VitalsFrame is an immutable snapshot of the latest known readings.
// A nil field means the signal was never read or is currently unavailable.
// The aggregator swaps whole frames; consumers never see a partial update
// for a single signal.
type VitalsFrame struct {
	HeartRate  *float64 `json:"heart_rate,omitempty"`
	BodyTempC  *float64 `json:"body_temp_c,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Satellites *int     `json:"satellites,omitempty"`
	BatteryPct int      `json:"battery_pct"`
	SampledAt  time.Time `json:"sampled_at"`

	// A stale fix is still reported (last known position) but should not
	// be trusted as current.
	LocationStale bool `json:"location_stale,omitempty"`
}

// HasLocation reports whether the frame carries a usable fix.
func (f VitalsFrame) HasLocation() bool {
	return f.Latitude != nil && f.Longitude != nil
}

// HasVitals reports whether at least one biometric signal is present.
func (f VitalsFrame) HasVitals() bool {
	return f.HeartRate != nil || f.BodyTempC != nil
}

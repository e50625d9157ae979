// Package aggregator maintains the latest known reading for every signal and
// produces immutable vitals snapshots for the evaluator and the gateway.
package aggregator

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"safeband-device/internal/config"
	"safeband-device/internal/models"
	"safeband-device/internal/ports"
)

// signalState 单个信号的最近读数
type signalState struct {
	value     float64
	available bool
	at        time.Time
	polledAt  time.Time
}

// Aggregator polls the biometric, thermal and location ports at independent
// cadences and serves atomic snapshots. Each signal updates independently;
// cross-signal consistency is best-effort.
type Aggregator struct {
	cfg       *config.Config
	biometric ports.BiometricPort
	thermal   ports.ThermalPort
	location  ports.LocationPort
	battery   ports.BatteryFunc
	logger    *zap.Logger

	// now is replaceable in tests
	now func() time.Time

	mu       sync.RWMutex
	hr       signalState
	temp     signalState
	fix      models.Fix
	fixValid bool
	fixAt    time.Time
	locPoll  time.Time
}

// New 创建采样聚合器
func New(
	cfg *config.Config,
	biometric ports.BiometricPort,
	thermal ports.ThermalPort,
	location ports.LocationPort,
	battery ports.BatteryFunc,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		cfg:       cfg,
		biometric: biometric,
		thermal:   thermal,
		location:  location,
		battery:   battery,
		logger:    logger,
		now:       time.Now,
	}
}

// SampleBiometric polls the heart-rate port, honoring the minimum poll
// interval. Between polls the cached reading is returned. A zero value is
// recorded as unavailable (no contact with the wearer).
func (a *Aggregator) SampleBiometric() models.Reading {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.hr.polledAt.IsZero() || now.Sub(a.hr.polledAt) >= a.cfg.Intervals.SensorRead {
		a.hr.polledAt = now
		if a.biometric.Available() {
			r := a.biometric.Read()
			if r.Available && r.Value > 0 {
				a.hr = signalState{value: r.Value, available: true, at: now, polledAt: now}
			} else {
				a.hr.available = false
			}
		} else {
			a.hr.available = false
		}
	}
	return a.readingLocked(a.hr, now)
}

// SampleThermal polls the temperature port, honoring the minimum poll
// interval.
func (a *Aggregator) SampleThermal() models.Reading {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.temp.polledAt.IsZero() || now.Sub(a.temp.polledAt) >= a.cfg.Intervals.SensorRead {
		a.temp.polledAt = now
		if a.thermal.Available() {
			r := a.thermal.Read()
			if r.Available && r.Value > 0 {
				a.temp = signalState{value: r.Value, available: true, at: now, polledAt: now}
			} else {
				a.temp.available = false
			}
		} else {
			a.temp.available = false
		}
	}
	return a.readingLocked(a.temp, now)
}

// SampleLocation polls the location port. The last fix is retained when the
// port loses its fix; staleness tagging in Snapshot covers fix loss.
func (a *Aggregator) SampleLocation() models.Reading {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.locPoll.IsZero() || now.Sub(a.locPoll) >= a.cfg.Intervals.Location {
		a.locPoll = now
		if a.location.Available() {
			if fix, ok := a.location.ReadFix(); ok {
				if !a.fixValid {
					a.logger.Info("location fix acquired",
						zap.Float64("latitude", fix.Latitude),
						zap.Float64("longitude", fix.Longitude),
						zap.Int("satellites", fix.Satellites),
					)
				}
				a.fix = fix
				a.fixValid = true
				a.fixAt = now
			}
		}
	}

	if !a.fixValid {
		return models.Reading{}
	}
	return models.Reading{Value: a.fix.Latitude, Available: true, Age: now.Sub(a.fixAt)}
}

func (a *Aggregator) readingLocked(s signalState, now time.Time) models.Reading {
	if !s.available {
		return models.Reading{}
	}
	return models.Reading{Value: s.value, Available: true, Age: now.Sub(s.at)}
}

// Snapshot returns the most recent reading for every signal as one immutable
// frame. Fields for unavailable signals are nil; readings past their
// staleness bound are flagged.
func (a *Aggregator) Snapshot() models.VitalsFrame {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := a.now()
	frame := models.VitalsFrame{
		BatteryPct: a.battery(),
		SampledAt:  now,
	}

	if a.hr.available {
		v := a.hr.value
		frame.HeartRate = &v
	}
	if a.temp.available {
		v := a.temp.value
		frame.BodyTempC = &v
	}
	if a.fixValid {
		lat, lon, sats := a.fix.Latitude, a.fix.Longitude, a.fix.Satellites
		frame.Latitude = &lat
		frame.Longitude = &lon
		frame.Satellites = &sats
		frame.LocationStale = now.Sub(a.fixAt) > a.cfg.Staleness.Location
	}

	return frame
}

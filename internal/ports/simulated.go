package ports

import (
	"math/rand"
	"sync"
	"time"

	"safeband-device/internal/models"
)

// Simulated ports reproduce the synthetic readings the firmware used when a
// sensor was not fitted, but as an explicit port variant instead of a hidden
// fallback inside the read path.

// SimulatedBiometric emits a resting heart rate around 75 bpm.
type SimulatedBiometric struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedBiometric(seed int64) *SimulatedBiometric {
	return &SimulatedBiometric{rng: rand.New(rand.NewSource(seed))}
}

func (s *SimulatedBiometric) Read() models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Reading{
		Value:     75.0 + float64(s.rng.Intn(21)-10),
		Available: true,
	}
}

func (s *SimulatedBiometric) Available() bool { return true }

// SimulatedThermal emits a body temperature around 36.5 °C.
type SimulatedThermal struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedThermal(seed int64) *SimulatedThermal {
	return &SimulatedThermal{rng: rand.New(rand.NewSource(seed))}
}

func (s *SimulatedThermal) Read() models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Reading{
		Value:     36.5 + float64(s.rng.Intn(11)-5)/10.0,
		Available: true,
	}
}

func (s *SimulatedThermal) Available() bool { return true }

// SimulatedLocation walks a slow random drift around a base coordinate with
// a steady satellite count.
type SimulatedLocation struct {
	mu       sync.Mutex
	rng      *rand.Rand
	lat, lon float64
}

func NewSimulatedLocation(seed int64, baseLat, baseLon float64) *SimulatedLocation {
	return &SimulatedLocation{
		rng: rand.New(rand.NewSource(seed)),
		lat: baseLat,
		lon: baseLon,
	}
}

func (s *SimulatedLocation) ReadFix() (models.Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// ~1m of drift per read
	s.lat += (s.rng.Float64() - 0.5) * 0.00002
	s.lon += (s.rng.Float64() - 0.5) * 0.00002
	return models.Fix{
		Latitude:   s.lat,
		Longitude:  s.lon,
		Satellites: 7 + s.rng.Intn(4),
	}, true
}

func (s *SimulatedLocation) Available() bool { return true }

// SimulatedMicrophone blocks for the requested window and returns a
// 16-bit mono noise buffer at the configured sample rate.
type SimulatedMicrophone struct {
	SampleRate int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedMicrophone(seed int64, sampleRate int) *SimulatedMicrophone {
	return &SimulatedMicrophone{
		SampleRate: sampleRate,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (s *SimulatedMicrophone) Capture(d time.Duration) ([]byte, error) {
	time.Sleep(d)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := int(float64(s.SampleRate) * d.Seconds() * 2) // 16-bit samples
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(s.rng.Intn(8)) // low-amplitude noise floor
	}
	return buf, nil
}

func (s *SimulatedMicrophone) Available() bool { return true }

// jpegStub is a minimal JPEG byte stream (SOI + EOI) used as the simulated
// still frame.
var jpegStub = []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x04, 0x00, 0x00, 0xFF, 0xD9}

// SimulatedCamera returns a stub JPEG frame.
type SimulatedCamera struct{}

func NewSimulatedCamera() *SimulatedCamera { return &SimulatedCamera{} }

func (s *SimulatedCamera) CaptureFrame() ([]byte, error) {
	frame := make([]byte, len(jpegStub))
	copy(frame, jpegStub)
	return frame, nil
}

func (s *SimulatedCamera) Available() bool { return true }

// SimulatedBattery drains slowly from full.
func SimulatedBattery(start time.Time) BatteryFunc {
	return func() int {
		// ~1% per 10 minutes
		drained := int(time.Since(start) / (10 * time.Minute))
		level := 100 - drained
		if level < 0 {
			level = 0
		}
		return level
	}
}

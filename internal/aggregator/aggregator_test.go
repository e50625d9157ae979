package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"safeband-device/internal/config"
	"safeband-device/internal/models"
)

type stubBiometric struct {
	reading models.Reading
	calls   int
}

func (s *stubBiometric) Read() models.Reading { s.calls++; return s.reading }
func (s *stubBiometric) Available() bool      { return true }

type stubThermal struct {
	reading models.Reading
	calls   int
}

func (s *stubThermal) Read() models.Reading { s.calls++; return s.reading }
func (s *stubThermal) Available() bool      { return true }

type stubLocation struct {
	fix   models.Fix
	valid bool
	calls int
}

func (s *stubLocation) ReadFix() (models.Fix, bool) { s.calls++; return s.fix, s.valid }
func (s *stubLocation) Available() bool             { return true }

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestAggregator(bio *stubBiometric, thermal *stubThermal, loc *stubLocation) (*Aggregator, *testClock) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	a := New(config.Default(), bio, thermal, loc, func() int { return 80 }, zap.NewNop())
	a.now = clock.Now
	return a, clock
}

func TestSampleBiometric_CachesWithinPollInterval(t *testing.T) {
	bio := &stubBiometric{reading: models.Reading{Value: 72, Available: true}}
	a, clock := newTestAggregator(bio, &stubThermal{}, &stubLocation{})

	first := a.SampleBiometric()
	require.True(t, first.Available)
	assert.Equal(t, 72.0, first.Value)
	assert.Equal(t, 1, bio.calls)

	// within the 5s minimum interval: cached, port not polled again
	clock.Advance(2 * time.Second)
	second := a.SampleBiometric()
	assert.Equal(t, 1, bio.calls)
	assert.Equal(t, 72.0, second.Value)
	assert.Equal(t, 2*time.Second, second.Age)

	clock.Advance(4 * time.Second)
	a.SampleBiometric()
	assert.Equal(t, 2, bio.calls)
}

func TestSampleBiometric_ZeroValueMarkedUnavailable(t *testing.T) {
	// zero bpm means no contact with the wearer, never a valid reading
	bio := &stubBiometric{reading: models.Reading{Value: 0, Available: true}}
	a, _ := newTestAggregator(bio, &stubThermal{}, &stubLocation{})

	reading := a.SampleBiometric()
	assert.False(t, reading.Available)

	frame := a.Snapshot()
	assert.Nil(t, frame.HeartRate)
}

func TestSampleLocation_KeepsLastFixOnLoss(t *testing.T) {
	loc := &stubLocation{fix: models.Fix{Latitude: 12.97, Longitude: 77.59, Satellites: 8}, valid: true}
	a, clock := newTestAggregator(&stubBiometric{}, &stubThermal{}, loc)

	reading := a.SampleLocation()
	require.True(t, reading.Available)

	// fix lost: last known coordinates survive
	loc.valid = false
	clock.Advance(2 * time.Second)
	reading = a.SampleLocation()
	assert.True(t, reading.Available)
	assert.Equal(t, 12.97, reading.Value)
	assert.Equal(t, 2*time.Second, reading.Age)
}

func TestSnapshot_LocationStaleAfterBound(t *testing.T) {
	loc := &stubLocation{fix: models.Fix{Latitude: 12.97, Longitude: 77.59, Satellites: 8}, valid: true}
	a, clock := newTestAggregator(&stubBiometric{}, &stubThermal{}, loc)

	a.SampleLocation()
	frame := a.Snapshot()
	require.True(t, frame.HasLocation())
	assert.False(t, frame.LocationStale)

	loc.valid = false
	clock.Advance(31 * time.Second)
	a.SampleLocation()

	frame = a.Snapshot()
	require.True(t, frame.HasLocation(), "stale fix is still reported")
	assert.True(t, frame.LocationStale)
}

func TestSnapshot_UnavailableSignalsAreNil(t *testing.T) {
	a, _ := newTestAggregator(
		&stubBiometric{reading: models.Reading{}},
		&stubThermal{reading: models.Reading{}},
		&stubLocation{},
	)

	a.SampleBiometric()
	a.SampleThermal()
	a.SampleLocation()

	frame := a.Snapshot()
	assert.Nil(t, frame.HeartRate)
	assert.Nil(t, frame.BodyTempC)
	assert.Nil(t, frame.Latitude)
	assert.Nil(t, frame.Satellites)
	assert.False(t, frame.HasVitals())
	assert.Equal(t, 80, frame.BatteryPct)
}

func TestSnapshot_CarriesAllSignals(t *testing.T) {
	bio := &stubBiometric{reading: models.Reading{Value: 68, Available: true}}
	thermal := &stubThermal{reading: models.Reading{Value: 36.8, Available: true}}
	loc := &stubLocation{fix: models.Fix{Latitude: 12.97, Longitude: 77.59, Satellites: 9}, valid: true}
	a, _ := newTestAggregator(bio, thermal, loc)

	a.SampleBiometric()
	a.SampleThermal()
	a.SampleLocation()

	frame := a.Snapshot()
	require.NotNil(t, frame.HeartRate)
	assert.Equal(t, 68.0, *frame.HeartRate)
	require.NotNil(t, frame.BodyTempC)
	assert.Equal(t, 36.8, *frame.BodyTempC)
	require.NotNil(t, frame.Satellites)
	assert.Equal(t, 9, *frame.Satellites)
	assert.True(t, frame.HasVitals())
}

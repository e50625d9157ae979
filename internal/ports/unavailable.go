package ports

import (
	"time"

	"safeband-device/internal/models"
)

// Unavailable ports stand in for hardware that is not fitted. Reads surface
// as unavailable results so the evaluator skips the signal; captures return
// ErrSensorUnavailable and never allocate a buffer.

type UnavailableBiometric struct{}

func (UnavailableBiometric) Read() models.Reading { return models.Reading{} }
func (UnavailableBiometric) Available() bool      { return false }

type UnavailableThermal struct{}

func (UnavailableThermal) Read() models.Reading { return models.Reading{} }
func (UnavailableThermal) Available() bool      { return false }

type UnavailableLocation struct{}

func (UnavailableLocation) ReadFix() (models.Fix, bool) { return models.Fix{}, false }
func (UnavailableLocation) Available() bool             { return false }

type UnavailableMicrophone struct{}

func (UnavailableMicrophone) Capture(time.Duration) ([]byte, error) {
	return nil, models.ErrSensorUnavailable
}
func (UnavailableMicrophone) Available() bool { return false }

type UnavailableCamera struct{}

func (UnavailableCamera) CaptureFrame() ([]byte, error) {
	return nil, models.ErrSensorUnavailable
}
func (UnavailableCamera) Available() bool { return false }

// Package ports defines the capability ports the monitoring core consumes.
// Every port reports its own availability and fails soft: a missing sensor
// surfaces as Available()==false or an unavailable reading, never a panic.
//
// A port is built in an explicit mode (simulated or unavailable); real
// hardware adapters satisfy the same interfaces and are wired in at
// integration time. Simulation is a configuration choice visible to tests,
// never a silent fallback inside a read path.
package ports

import (
	"time"

	"safeband-device/internal/models"
)

// BiometricPort 心率端口
type BiometricPort interface {
	Read() models.Reading
	Available() bool
}

// ThermalPort 体温端口
type ThermalPort interface {
	Read() models.Reading
	Available() bool
}

// LocationPort 定位端口
type LocationPort interface {
	// ReadFix returns the current fix and whether it is valid.
	ReadFix() (models.Fix, bool)
	Available() bool
}

// MicrophonePort 麦克风端口
type MicrophonePort interface {
	// Capture blocks for up to d and returns the captured bytes. Partial
	// captures are valid; there is no mid-capture cancellation.
	Capture(d time.Duration) ([]byte, error)
	Available() bool
}

// CameraPort 摄像头端口
type CameraPort interface {
	// CaptureFrame returns one encoded still frame.
	CaptureFrame() ([]byte, error)
	Available() bool
}

// BatteryFunc reports the current battery percentage.
type BatteryFunc func() int

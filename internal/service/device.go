// Package service wires the capability ports, aggregator, evaluator,
// capture pipeline, gateway, journal and orchestrator into the running
// device engine.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"safeband-device/internal/aggregator"
	"safeband-device/internal/capture"
	"safeband-device/internal/config"
	"safeband-device/internal/evaluator"
	"safeband-device/internal/gateway"
	"safeband-device/internal/journal"
	"safeband-device/internal/orchestrator"
	"safeband-device/internal/ports"
	"safeband-device/internal/scheduler"
)

// simulated walk starts here when no real GNSS is fitted
const (
	simBaseLatitude  = 12.9716
	simBaseLongitude = 77.5946
)

// Status 本地状态指示：传感器可用性与报警状态
type Status struct {
	Biometric   bool `json:"biometric"`
	Thermal     bool `json:"thermal"`
	Location    bool `json:"location"`
	Microphone  bool `json:"microphone"`
	Camera      bool `json:"camera"`
	AlertActive bool `json:"alert_active"`
	BatteryPct  int  `json:"battery_pct"`
}

// DeviceService 设备服务（整合各层）
type DeviceService struct {
	cfg    *config.Config
	logger *zap.Logger

	biometric ports.BiometricPort
	thermal   ports.ThermalPort
	location  ports.LocationPort
	mic       ports.MicrophonePort
	camera    ports.CameraPort
	battery   ports.BatteryFunc

	agg   *aggregator.Aggregator
	eval  *evaluator.Evaluator
	pipe  *capture.Pipeline
	gw    *gateway.Client
	jrnl  *journal.Journal
	orch  *orchestrator.Orchestrator
	sched *scheduler.Scheduler

	// telemetry pushes run off the scheduler goroutines so a slow or
	// unreachable backend never stalls the periodic loops
	pushJobs chan func(ctx context.Context)

	// latest ambient audio score, staged by the monitor for the next
	// evaluation cycle
	scoreMu    sync.Mutex
	audioScore *float64
}

// New 创建设备服务
func New(cfg *config.Config, logger *zap.Logger) (*DeviceService, error) {
	s := &DeviceService{
		cfg:      cfg,
		logger:   logger,
		pushJobs: make(chan func(ctx context.Context), 4),
	}

	if err := s.buildPorts(); err != nil {
		return nil, err
	}

	s.agg = aggregator.New(cfg, s.biometric, s.thermal, s.location, s.battery, logger)
	s.eval = evaluator.New(cfg, logger)
	s.pipe = capture.New(cfg, s.mic, s.camera, logger)
	s.gw = gateway.NewClient(cfg, logger)

	jrnl, err := journal.Open(cfg.Journal.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	s.jrnl = jrnl

	s.orch = orchestrator.New(cfg, s.gw, s.pipe, s.jrnl, s.agg.Snapshot, logger)
	s.sched = scheduler.New(logger)
	s.registerTasks()

	return s, nil
}

func (s *DeviceService) buildPorts() error {
	seed := time.Now().UnixNano()

	switch s.cfg.Ports.Biometric {
	case config.PortSimulated:
		s.biometric = ports.NewSimulatedBiometric(seed)
	case config.PortUnavailable:
		s.biometric = ports.UnavailableBiometric{}
	}

	switch s.cfg.Ports.Thermal {
	case config.PortSimulated:
		s.thermal = ports.NewSimulatedThermal(seed + 1)
	case config.PortUnavailable:
		s.thermal = ports.UnavailableThermal{}
	}

	switch s.cfg.Ports.Location {
	case config.PortSimulated:
		s.location = ports.NewSimulatedLocation(seed+2, simBaseLatitude, simBaseLongitude)
	case config.PortUnavailable:
		s.location = ports.UnavailableLocation{}
	}

	switch s.cfg.Ports.Microphone {
	case config.PortSimulated:
		s.mic = ports.NewSimulatedMicrophone(seed+3, s.cfg.Audio.SampleRate)
	case config.PortUnavailable:
		s.mic = ports.UnavailableMicrophone{}
	}

	switch s.cfg.Ports.Camera {
	case config.PortSimulated:
		s.camera = ports.NewSimulatedCamera()
	case config.PortUnavailable:
		s.camera = ports.UnavailableCamera{}
	}

	s.battery = ports.SimulatedBattery(time.Now())

	if s.biometric == nil || s.thermal == nil || s.location == nil || s.mic == nil || s.camera == nil {
		return fmt.Errorf("invalid port configuration")
	}

	s.logger.Info("ports configured",
		zap.String("biometric", string(s.cfg.Ports.Biometric)),
		zap.String("thermal", string(s.cfg.Ports.Thermal)),
		zap.String("location", string(s.cfg.Ports.Location)),
		zap.String("microphone", string(s.cfg.Ports.Microphone)),
		zap.String("camera", string(s.cfg.Ports.Camera)),
	)
	return nil
}

func (s *DeviceService) registerTasks() {
	s.sched.Add("location-sample", s.cfg.Intervals.Location, func(ctx context.Context) {
		s.agg.SampleLocation()
	})

	s.sched.Add("vitals-sample", s.cfg.Intervals.SensorRead, func(ctx context.Context) {
		s.agg.SampleBiometric()
		s.agg.SampleThermal()
	})

	s.sched.Add("evaluate", s.cfg.Intervals.Evaluation, s.evaluateOnce)

	if s.cfg.Audio.MonitorEnabled {
		s.sched.Add("audio-monitor", s.cfg.Audio.MonitorInterval, func(ctx context.Context) {
			s.enqueuePush(s.monitorAudio)
		})
	}

	s.sched.Add("heartbeat", s.cfg.Intervals.Heartbeat, func(ctx context.Context) {
		status := s.Status()
		s.logger.Info("device status",
			zap.Bool("biometric", status.Biometric),
			zap.Bool("thermal", status.Thermal),
			zap.Bool("location", status.Location),
			zap.Bool("alert_active", status.AlertActive),
			zap.Int("battery_pct", status.BatteryPct),
		)
		s.enqueuePush(func(ctx context.Context) {
			s.gw.Heartbeat(ctx, s.agg.Snapshot())
		})
	})

	s.sched.Add("sensor-push", s.cfg.Intervals.SensorPush, func(ctx context.Context) {
		s.enqueuePush(func(ctx context.Context) {
			frame := s.agg.Snapshot()
			if !frame.HasVitals() {
				return
			}
			s.gw.PushSensorData(ctx, frame)
		})
	})
}

// enqueuePush hands a network push to the worker without ever blocking the
// scheduler tick; a busy worker drops the push (the next tick resends).
func (s *DeviceService) enqueuePush(job func(ctx context.Context)) {
	select {
	case s.pushJobs <- job:
	default:
		s.logger.Debug("telemetry worker busy, push skipped")
	}
}

// evaluateOnce runs one evaluation cycle: snapshot, apply the trigger rules
// (with the staged ambient audio score, if any) and hand a triggered verdict
// to the orchestrator.
func (s *DeviceService) evaluateOnce(ctx context.Context) {
	frame := s.agg.Snapshot()
	verdict := s.eval.Evaluate(frame, s.takeAudioScore())
	if verdict.Triggered && s.orch.Submit(verdict) {
		s.eval.Reset()
	}
}

// monitorAudio runs one ambient audio check: capture a short sample, have
// the backend score it, and stage the score for the next evaluation cycle.
// Skipped while an alert is in flight since the orchestrator owns the
// microphone during confirmation and evidence capture.
func (s *DeviceService) monitorAudio(ctx context.Context) {
	if s.orch.Active() {
		return
	}

	sample, err := s.pipe.CaptureAudioSample("ambient")
	if err != nil {
		return
	}
	defer sample.Release()

	frame := s.agg.Snapshot()
	result, outcome := s.gw.AnalyzeAudioStress(ctx, sample.Payload, frame.HeartRate, frame.BodyTempC)
	if !outcome.Success() || !result.Success {
		return
	}

	score := result.CombinedScore
	s.scoreMu.Lock()
	s.audioScore = &score
	s.scoreMu.Unlock()

	s.logger.Debug("ambient audio scored",
		zap.Float64("combined_score", score),
	)
}

// takeAudioScore consumes the staged ambient score. A score feeds exactly
// one evaluation cycle.
func (s *DeviceService) takeAudioScore() *float64 {
	s.scoreMu.Lock()
	defer s.scoreMu.Unlock()
	score := s.audioScore
	s.audioScore = nil
	return score
}

// TriggerManual arms the panic trigger; the next evaluation cycle acts on it.
func (s *DeviceService) TriggerManual() {
	s.eval.TriggerManual()
}

// Status returns the local status indicators.
func (s *DeviceService) Status() Status {
	return Status{
		Biometric:   s.biometric.Available(),
		Thermal:     s.thermal.Available(),
		Location:    s.location.Available(),
		Microphone:  s.mic.Available(),
		Camera:      s.camera.Available(),
		AlertActive: s.orch.Active(),
		BatteryPct:  s.battery(),
	}
}

// Start runs the device engine until the context is canceled.
func (s *DeviceService) Start(ctx context.Context) error {
	if err := s.jrnl.Init(ctx); err != nil {
		return fmt.Errorf("failed to init journal: %w", err)
	}

	s.logger.Info("starting device service",
		zap.String("device_id", s.cfg.Device.ID),
		zap.String("backend", s.cfg.Backend.BaseURL),
	)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.orch.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-s.pushJobs:
				job(ctx)
			}
		}
	}()

	s.sched.Run(ctx)
	wg.Wait()
	return nil
}

// Stop releases held resources.
func (s *DeviceService) Stop() error {
	s.logger.Info("stopping device service")
	if err := s.jrnl.Close(); err != nil {
		s.logger.Error("failed to close journal", zap.Error(err))
		return err
	}
	return nil
}

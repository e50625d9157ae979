package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PortMode 端口模式：传感器要么真实接入，要么显式模拟，要么不可用
type PortMode string

const (
	PortSimulated   PortMode = "simulated"
	PortUnavailable PortMode = "unavailable"
)

// Config 设备配置
type Config struct {
	Device struct {
		ID    string `yaml:"id"`
		Token string `yaml:"token"`
	} `yaml:"device"`

	Backend struct {
		BaseURL        string        `yaml:"base_url"`
		ControlTimeout time.Duration `yaml:"control_timeout"`
		AnalyzeTimeout time.Duration `yaml:"analyze_timeout"`
		UploadTimeout  time.Duration `yaml:"upload_timeout"`
	} `yaml:"backend"`

	Thresholds struct {
		HeartRateLow    float64 `yaml:"heart_rate_low"`
		HeartRateHigh   float64 `yaml:"heart_rate_high"`
		TemperatureLow  float64 `yaml:"temperature_low"`
		TemperatureHigh float64 `yaml:"temperature_high"`
		AIStress        float64 `yaml:"ai_stress"`
	} `yaml:"thresholds"`

	Intervals struct {
		Heartbeat  time.Duration `yaml:"heartbeat"`
		SensorRead time.Duration `yaml:"sensor_read"`
		SensorPush time.Duration `yaml:"sensor_push"`
		Location   time.Duration `yaml:"location"`
		Evaluation time.Duration `yaml:"evaluation"`
	} `yaml:"intervals"`

	Audio struct {
		SampleRate       int           `yaml:"sample_rate"`
		SampleDuration   time.Duration `yaml:"sample_duration"`
		EvidenceDuration time.Duration `yaml:"evidence_duration"`
		// MonitorEnabled：周期性环境音频监测（采样→后端AI评分→喂给下一次评估）
		MonitorEnabled  bool          `yaml:"monitor_enabled"`
		MonitorInterval time.Duration `yaml:"monitor_interval"`
	} `yaml:"audio"`

	Ports struct {
		Biometric  PortMode `yaml:"biometric"`
		Thermal    PortMode `yaml:"thermal"`
		Location   PortMode `yaml:"location"`
		Microphone PortMode `yaml:"microphone"`
		Camera     PortMode `yaml:"camera"`
	} `yaml:"ports"`

	Alert struct {
		// ConfirmWithAudio：非音频来源的触发是否先用短音频做AI确认
		ConfirmWithAudio bool          `yaml:"confirm_with_audio"`
		MaxAttempts      int           `yaml:"max_attempts"`
		RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
		RetryMaxDelay    time.Duration `yaml:"retry_max_delay"`
		UploadAttempts   int           `yaml:"upload_attempts"`
	} `yaml:"alert"`

	Staleness struct {
		Location time.Duration `yaml:"location"`
	} `yaml:"staleness"`

	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load 加载配置：默认值 → 可选 YAML 文件（CONFIG_FILE）→ 环境变量覆盖
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration (firmware defaults), without
// consulting the environment. Used by tests and as the Load baseline.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	cfg := &Config{}

	cfg.Device.ID = "safeband-001"
	cfg.Device.Token = ""

	cfg.Backend.BaseURL = "http://localhost:5000/api/v1"
	cfg.Backend.ControlTimeout = 10 * time.Second
	cfg.Backend.AnalyzeTimeout = 30 * time.Second
	cfg.Backend.UploadTimeout = 60 * time.Second

	cfg.Thresholds.HeartRateLow = 50
	cfg.Thresholds.HeartRateHigh = 120
	cfg.Thresholds.TemperatureLow = 35.0
	cfg.Thresholds.TemperatureHigh = 38.5
	cfg.Thresholds.AIStress = 0.7

	cfg.Intervals.Heartbeat = 30 * time.Second
	cfg.Intervals.SensorRead = 5 * time.Second
	cfg.Intervals.SensorPush = 5 * time.Second
	cfg.Intervals.Location = 1 * time.Second
	cfg.Intervals.Evaluation = 5 * time.Second

	cfg.Audio.SampleRate = 16000
	cfg.Audio.SampleDuration = 3 * time.Second
	cfg.Audio.EvidenceDuration = 10 * time.Second
	cfg.Audio.MonitorEnabled = false
	cfg.Audio.MonitorInterval = 60 * time.Second

	cfg.Ports.Biometric = PortSimulated
	cfg.Ports.Thermal = PortSimulated
	cfg.Ports.Location = PortSimulated
	cfg.Ports.Microphone = PortSimulated
	cfg.Ports.Camera = PortSimulated

	cfg.Alert.ConfirmWithAudio = true
	cfg.Alert.MaxAttempts = 3
	cfg.Alert.RetryBaseDelay = 1 * time.Second
	cfg.Alert.RetryMaxDelay = 8 * time.Second
	cfg.Alert.UploadAttempts = 3

	cfg.Staleness.Location = 30 * time.Second

	cfg.Journal.Path = "safeband.db"

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Device.ID = getEnv("DEVICE_ID", cfg.Device.ID)
	cfg.Device.Token = getEnv("DEVICE_TOKEN", cfg.Device.Token)
	cfg.Backend.BaseURL = getEnv("API_BASE_URL", cfg.Backend.BaseURL)
	cfg.Journal.Path = getEnv("JOURNAL_PATH", cfg.Journal.Path)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Thresholds.AIStress = getEnvFloat("AI_STRESS_THRESHOLD", cfg.Thresholds.AIStress)
	cfg.Thresholds.HeartRateLow = getEnvFloat("HEART_RATE_THRESHOLD_LOW", cfg.Thresholds.HeartRateLow)
	cfg.Thresholds.HeartRateHigh = getEnvFloat("HEART_RATE_THRESHOLD_HIGH", cfg.Thresholds.HeartRateHigh)
	cfg.Thresholds.TemperatureLow = getEnvFloat("TEMPERATURE_THRESHOLD_LOW", cfg.Thresholds.TemperatureLow)
	cfg.Thresholds.TemperatureHigh = getEnvFloat("TEMPERATURE_THRESHOLD_HIGH", cfg.Thresholds.TemperatureHigh)

	cfg.Ports.Biometric = PortMode(getEnv("PORT_BIOMETRIC", string(cfg.Ports.Biometric)))
	cfg.Ports.Thermal = PortMode(getEnv("PORT_THERMAL", string(cfg.Ports.Thermal)))
	cfg.Ports.Location = PortMode(getEnv("PORT_LOCATION", string(cfg.Ports.Location)))
	cfg.Ports.Microphone = PortMode(getEnv("PORT_MICROPHONE", string(cfg.Ports.Microphone)))
	cfg.Ports.Camera = PortMode(getEnv("PORT_CAMERA", string(cfg.Ports.Camera)))

	if v := os.Getenv("ALERT_CONFIRM_WITH_AUDIO"); v != "" {
		cfg.Alert.ConfirmWithAudio = v == "true" || v == "1"
	}
	if v := os.Getenv("AUDIO_MONITOR_ENABLED"); v != "" {
		cfg.Audio.MonitorEnabled = v == "true" || v == "1"
	}
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is required")
	}
	if c.Thresholds.AIStress <= 0 || c.Thresholds.AIStress > 1 {
		return fmt.Errorf("ai_stress threshold must be in (0, 1], got %v", c.Thresholds.AIStress)
	}
	if c.Alert.MaxAttempts < 1 {
		return fmt.Errorf("alert max_attempts must be >= 1, got %d", c.Alert.MaxAttempts)
	}
	if c.Audio.MonitorEnabled && c.Audio.MonitorInterval <= 0 {
		return fmt.Errorf("audio monitor_interval must be positive, got %v", c.Audio.MonitorInterval)
	}
	for name, mode := range map[string]PortMode{
		"biometric":  c.Ports.Biometric,
		"thermal":    c.Ports.Thermal,
		"location":   c.Ports.Location,
		"microphone": c.Ports.Microphone,
		"camera":     c.Ports.Camera,
	} {
		if mode != PortSimulated && mode != PortUnavailable {
			return fmt.Errorf("invalid mode %q for port %s", mode, name)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

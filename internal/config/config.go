// Package config provides configuration helpers for go-presence commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/presencelabs/go-presence/pkg/gesture"
)

// Default command configuration.
const (
	DefaultPort      = "8090"
	DefaultCameraID  = 0
	DefaultModelPath = "models/face_detection_yunet.onnx"
)

// LoadEnv loads a .env file if one exists. Missing files are not an error.
func LoadEnv() {
	_ = godotenv.Load()
}

// Port returns the HTTP port from PRESENCE_PORT or the default.
func Port() string {
	if p := os.Getenv("PRESENCE_PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// CameraID returns the capture device index from CAMERA_ID or the default.
func CameraID() int {
	if v := os.Getenv("CAMERA_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			return id
		}
	}
	return DefaultCameraID
}

// ModelPath returns the face-detection model path from MODEL_PATH or the
// default.
func ModelPath() string {
	if p := os.Getenv("MODEL_PATH"); p != "" {
		return p
	}
	return DefaultModelPath
}

// WebhookURL returns the confirmation webhook URL from WEBHOOK_URL.
// Empty means webhook delivery is disabled.
func WebhookURL() string {
	return os.Getenv("WEBHOOK_URL")
}

// LogLevel returns the log level from LOG_LEVEL or "info".
func LogLevel() string {
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		return l
	}
	return "info"
}

// thresholdsFile mirrors the tunable subset of gesture.Config for the
// optional YAML overrides file. Zero values mean "keep the default".
type thresholdsFile struct {
	TurnThresholdDeg     float64 `yaml:"turn_threshold_deg"`
	VerticalThresholdDeg float64 `yaml:"vertical_threshold_deg"`
	EyesOpenThreshold    float64 `yaml:"eyes_open_threshold"`
	EyesClosedThreshold  float64 `yaml:"eyes_closed_threshold"`
	SmileThreshold       float64 `yaml:"smile_threshold"`
	AttemptTimeoutSec    float64 `yaml:"attempt_timeout_sec"`
	TurnCooldownMs       int     `yaml:"turn_cooldown_ms"`
	FrameIntervalMs      int     `yaml:"frame_interval_ms"`
	RetryIntervalMs      int     `yaml:"retry_interval_ms"`

	Kinds    []gesture.Kind      `yaml:"kinds"`
	Sequence []gesture.Direction `yaml:"sequence"`
}

// GestureConfig returns the gesture configuration: defaults, overlaid with
// the YAML file named by PRESENCE_THRESHOLDS (if set).
func GestureConfig() (gesture.Config, error) {
	cfg := gesture.DefaultConfig()

	path := os.Getenv("PRESENCE_THRESHOLDS")
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read thresholds file: %w", err)
	}

	var f thresholdsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return cfg, fmt.Errorf("parse thresholds file: %w", err)
	}

	apply(&cfg, f)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("thresholds file %s: %w", path, err)
	}
	return cfg, nil
}

func apply(cfg *gesture.Config, f thresholdsFile) {
	if f.TurnThresholdDeg > 0 {
		cfg.TurnThreshold = f.TurnThresholdDeg
	}
	if f.VerticalThresholdDeg > 0 {
		cfg.VerticalThreshold = f.VerticalThresholdDeg
	}
	if f.EyesOpenThreshold > 0 {
		cfg.EyesOpenThreshold = f.EyesOpenThreshold
	}
	if f.EyesClosedThreshold > 0 {
		cfg.EyesClosedThreshold = f.EyesClosedThreshold
	}
	if f.SmileThreshold > 0 {
		cfg.SmileThreshold = f.SmileThreshold
	}
	if f.AttemptTimeoutSec > 0 {
		cfg.AttemptTimeout = secondsToDuration(f.AttemptTimeoutSec)
	}
	if f.TurnCooldownMs > 0 {
		cfg.TurnCooldown = msToDuration(f.TurnCooldownMs)
	}
	if f.FrameIntervalMs > 0 {
		cfg.FrameInterval = msToDuration(f.FrameIntervalMs)
	}
	if f.RetryIntervalMs > 0 {
		cfg.RetryInterval = msToDuration(f.RetryIntervalMs)
	}
	if len(f.Kinds) > 0 {
		cfg.Kinds = f.Kinds
	}
	if len(f.Sequence) > 0 {
		cfg.Sequence = f.Sequence
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

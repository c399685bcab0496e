package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/presencelabs/go-presence/pkg/gesture"
)

func TestGestureConfig_NoFile(t *testing.T) {
	t.Setenv("PRESENCE_THRESHOLDS", "")

	cfg, err := GestureConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TurnThreshold != 50 {
		t.Errorf("turn threshold %v, want default 50", cfg.TurnThreshold)
	}
}

func TestGestureConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	data := []byte(`
turn_threshold_deg: 35
smile_threshold: 0.8
attempt_timeout_sec: 20
turn_cooldown_ms: 500
kinds: [blink, smile]
sequence: [left, right]
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PRESENCE_THRESHOLDS", path)

	cfg, err := GestureConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.TurnThreshold != 35 {
		t.Errorf("turn threshold %v, want 35", cfg.TurnThreshold)
	}
	if cfg.SmileThreshold != 0.8 {
		t.Errorf("smile threshold %v, want 0.8", cfg.SmileThreshold)
	}
	if cfg.AttemptTimeout != 20*time.Second {
		t.Errorf("timeout %v, want 20s", cfg.AttemptTimeout)
	}
	if cfg.TurnCooldown != 500*time.Millisecond {
		t.Errorf("cooldown %v, want 500ms", cfg.TurnCooldown)
	}
	if len(cfg.Kinds) != 2 || cfg.Kinds[0] != gesture.KindBlink {
		t.Errorf("kinds = %v", cfg.Kinds)
	}
	if len(cfg.Sequence) != 2 || cfg.Sequence[0] != gesture.DirLeft {
		t.Errorf("sequence = %v", cfg.Sequence)
	}

	// Untouched values keep their defaults.
	if cfg.VerticalThreshold != 40 {
		t.Errorf("vertical threshold %v, want default 40", cfg.VerticalThreshold)
	}
}

func TestGestureConfig_InvalidOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(path, []byte("eyes_closed_threshold: 0.9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PRESENCE_THRESHOLDS", path)

	if _, err := GestureConfig(); err == nil {
		t.Error("expected validation error for closed > open")
	}
}

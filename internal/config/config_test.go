package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mothtrap/internal/config"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStorage := filepath.Join(tempHome, ".local", "share", "mothtrap", "captures")
	if cfg.Paths.StorageDir != wantStorage {
		t.Fatalf("unexpected storage dir: got %q want %q", cfg.Paths.StorageDir, wantStorage)
	}
	if cfg.Capture.Policy != config.PolicyTriggered {
		t.Fatalf("expected triggered policy by default, got %q", cfg.Capture.Policy)
	}
	if cfg.Detection.DebounceMs != 100 || cfg.Detection.CooldownMs != 500 {
		t.Fatalf("unexpected trigger timing defaults: %d/%d", cfg.Detection.DebounceMs, cfg.Detection.CooldownMs)
	}
	if cfg.Capture.SampleRate != 16000 {
		t.Fatalf("unexpected sample rate default: %d", cfg.Capture.SampleRate)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7512" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
}

func TestLoadReadsTOMLAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfgPath := filepath.Join(tempHome, "trap.toml")
	content := `
device_name = "trap-7"

[paths]
storage_dir = "~/captures"

[capture]
policy = "continuous"
duration_ms = 5000
frame_rate = 10

[schedule]
mode = "light"
light_threshold = 25
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.DeviceName != "trap-7" {
		t.Fatalf("unexpected device name: %q", cfg.DeviceName)
	}
	if cfg.Paths.StorageDir != filepath.Join(tempHome, "captures") {
		t.Fatalf("tilde not expanded: %q", cfg.Paths.StorageDir)
	}
	if cfg.Capture.Policy != config.PolicyContinuous {
		t.Fatalf("unexpected policy: %q", cfg.Capture.Policy)
	}
	if cfg.Capture.DurationMs != 5000 {
		t.Fatalf("unexpected duration: %d", cfg.Capture.DurationMs)
	}
	if cfg.Schedule.Mode != config.ScheduleLight || cfg.Schedule.LightThreshold != 25 {
		t.Fatalf("unexpected schedule: %+v", cfg.Schedule)
	}
	// Unset sections keep defaults.
	if cfg.Capture.GraceMs != 2000 {
		t.Fatalf("unexpected grace default: %d", cfg.Capture.GraceMs)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad policy", func(c *config.Config) { c.Capture.Policy = "sometimes" }, "capture.policy"},
		{"zero duration", func(c *config.Config) { c.Capture.DurationMs = 0 }, "duration_ms"},
		{"zero fps", func(c *config.Config) { c.Capture.FrameRate = 0 }, "frame_rate"},
		{"bad schedule", func(c *config.Config) { c.Schedule.Mode = "sometimes" }, "schedule.mode"},
		{"bad light threshold", func(c *config.Config) { c.Schedule.Mode = config.ScheduleLight; c.Schedule.LightThreshold = 150 }, "light_threshold"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "yaml" }, "logging.format"},
		{"negative debounce", func(c *config.Config) { c.Detection.DebounceMs = -1 }, "debounce_ms"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		cfg.Paths.StorageDir = "/tmp/storage"
		cfg.Paths.ScratchDir = "/tmp/scratch"
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Capture.FrameRate != 15 {
		t.Fatalf("sample config should carry defaults, got fps %d", cfg.Capture.FrameRate)
	}
}

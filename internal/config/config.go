package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StorageDir string `toml:"storage_dir"`
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Detection contains beam-break trigger configuration.
type Detection struct {
	DebounceMs int    `toml:"debounce_ms"`
	CooldownMs int    `toml:"cooldown_ms"`
	BeamDevice string `toml:"beam_device"`
}

// Capture contains capture window configuration.
type Capture struct {
	Policy       string `toml:"policy"`
	DurationMs   int    `toml:"duration_ms"`
	GraceMs      int    `toml:"grace_ms"`
	FrameRate    int    `toml:"frame_rate"`
	FrameWidth   int    `toml:"frame_width"`
	FrameHeight  int    `toml:"frame_height"`
	SampleRate   int    `toml:"sample_rate"`
	VideoDevice  string `toml:"video_device"`
	AudioDevice  string `toml:"audio_device"`
	AudioChunkB  int    `toml:"audio_chunk_bytes"`
	FilePrefix   string `toml:"file_prefix"`
	MinFreeSpace int64  `toml:"min_free_space_mb"`
}

// Schedule contains arming configuration: when the trap reacts to the beam.
type Schedule struct {
	Mode           string `toml:"mode"` // "always", "light", or "hours"
	LightThreshold int    `toml:"light_threshold"`
	NightStartHour int    `toml:"night_start_hour"`
	NightEndHour   int    `toml:"night_end_hour"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Committed      bool   `toml:"committed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mothtrap.
//
// Configuration sections by subsystem:
//   - Paths: permanent storage root, scratch root, log directory, API bind
//   - Detection: beam debounce and cooldown intervals
//   - Capture: window duration, frame/sample rates, device nodes, policy
//   - Schedule: arming mode (always / light threshold / night hours)
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	DeviceName    string        `toml:"device_name"`
	Paths         Paths         `toml:"paths"`
	Detection     Detection     `toml:"detection"`
	Capture       Capture       `toml:"capture"`
	Schedule      Schedule      `toml:"schedule"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mothtrap/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// config file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mothtrap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// StorageDir is created on a best-effort basis so the daemon can start when
// external storage (SD card, USB) is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.StorageDir) != "" {
		_ = os.MkdirAll(c.Paths.StorageDir, 0o755)
	}
	return nil
}

// WindowDuration returns the capture window target duration.
func (c *Config) WindowDuration() time.Duration {
	return time.Duration(c.Capture.DurationMs) * time.Millisecond
}

// WindowGrace returns the additional slack past the target duration before a
// window is declared timed out.
func (c *Config) WindowGrace() time.Duration {
	return time.Duration(c.Capture.GraceMs) * time.Millisecond
}

// DebounceInterval returns the beam debounce interval.
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.Detection.DebounceMs) * time.Millisecond
}

// CooldownInterval returns the post-trigger cooldown interval.
func (c *Config) CooldownInterval() time.Duration {
	return time.Duration(c.Detection.CooldownMs) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

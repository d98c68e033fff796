package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StorageDir == "" {
		return errors.New("paths.storage_dir must be set")
	}
	if c.Paths.ScratchDir == c.Paths.StorageDir {
		return errors.New("paths.scratch_dir must differ from paths.storage_dir")
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.DebounceMs < 0 {
		return errors.New("detection.debounce_ms must not be negative")
	}
	if c.Detection.CooldownMs < 0 {
		return errors.New("detection.cooldown_ms must not be negative")
	}
	return nil
}

func (c *Config) validateCapture() error {
	switch c.Capture.Policy {
	case PolicyTriggered, PolicyContinuous:
	default:
		return fmt.Errorf("capture.policy must be %q or %q, got %q", PolicyTriggered, PolicyContinuous, c.Capture.Policy)
	}
	if c.Capture.DurationMs <= 0 {
		return errors.New("capture.duration_ms must be positive")
	}
	if c.Capture.FrameRate <= 0 {
		return errors.New("capture.frame_rate must be positive")
	}
	if c.Capture.FrameWidth <= 0 || c.Capture.FrameHeight <= 0 {
		return errors.New("capture.frame_width and capture.frame_height must be positive")
	}
	if c.Capture.SampleRate <= 0 {
		return errors.New("capture.sample_rate must be positive")
	}
	if c.Capture.MinFreeSpace < 0 {
		return errors.New("capture.min_free_space_mb must not be negative")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	switch c.Schedule.Mode {
	case ScheduleAlways:
		return nil
	case ScheduleLight:
		if c.Schedule.LightThreshold < 0 || c.Schedule.LightThreshold > 100 {
			return errors.New("schedule.light_threshold must be between 0 and 100")
		}
		return nil
	case ScheduleHours:
		for _, hour := range []int{c.Schedule.NightStartHour, c.Schedule.NightEndHour} {
			if hour < 0 || hour > 23 {
				return errors.New("schedule night hours must be between 0 and 23")
			}
		}
		return nil
	default:
		return fmt.Errorf("schedule.mode must be %q, %q, or %q, got %q", ScheduleAlways, ScheduleLight, ScheduleHours, c.Schedule.Mode)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}

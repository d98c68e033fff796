package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeSchedule()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.Policy = strings.ToLower(strings.TrimSpace(c.Capture.Policy))
	if c.Capture.Policy == "" {
		c.Capture.Policy = defaultPolicy
	}
	if c.Capture.GraceMs <= 0 {
		c.Capture.GraceMs = defaultGraceMs
	}
	if c.Capture.AudioChunkB <= 0 {
		c.Capture.AudioChunkB = defaultAudioChunkBytes
	}
	c.Capture.FilePrefix = strings.TrimSpace(c.Capture.FilePrefix)
	if c.Capture.FilePrefix == "" {
		c.Capture.FilePrefix = defaultFilePrefix
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.Mode = strings.ToLower(strings.TrimSpace(c.Schedule.Mode))
	if c.Schedule.Mode == "" {
		c.Schedule.Mode = defaultScheduleMode
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mothtrap/internal/logging"
)

// CleanResult contains the outcome of an orphaned-scratch sweep.
type CleanResult struct {
	Removed []string
	Errors  []CleanError
}

// CleanError pairs a directory path with its cleanup error.
type CleanError struct {
	Path  string
	Error error
}

// CleanOrphans removes scratch window directories older than maxAge. It is a
// best-effort sweep for artifacts left by a crash; the active window's scratch
// directory is always younger than any sensible maxAge.
func CleanOrphans(scratchRoot string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	scratchRoot = strings.TrimSpace(scratchRoot)
	if scratchRoot == "" {
		return result
	}

	entries, err := os.ReadDir(scratchRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanError{Path: scratchRoot, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "window-") {
			continue
		}

		dirPath := filepath.Join(scratchRoot, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove orphaned scratch directory",
					logging.String("path", dirPath),
					logging.Error(err),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed orphaned scratch directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
			)
		}
	}

	return result
}

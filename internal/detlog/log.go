package detlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"mothtrap/internal/envsense"
)

var header = []string{
	"timestamp", "sequence", "video_path", "audio_path",
	"air_temp_c", "humidity_pct", "soil_temp_c", "soil_moisture_pct", "light_pct",
}

// Recorder is the logging collaborator notified once per committed window.
type Recorder interface {
	RecordEvent(timestamp time.Time, sequence uint64, videoPath, audioPath string, snapshot envsense.Snapshot) error
}

// CSVRecorder appends detection rows to a CSV file.
type CSVRecorder struct {
	path string
}

// NewCSVRecorder returns a recorder writing to the given file path. The file
// and its header row are created on first use.
func NewCSVRecorder(path string) *CSVRecorder {
	return &CSVRecorder{path: path}
}

// Path returns the log file location.
func (r *CSVRecorder) Path() string { return r.path }

// RecordEvent appends one detection row.
func (r *CSVRecorder) RecordEvent(timestamp time.Time, sequence uint64, videoPath, audioPath string, snapshot envsense.Snapshot) error {
	if dir := filepath.Dir(r.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure detection log directory: %w", err)
		}
	}

	_, statErr := os.Stat(r.path)
	needHeader := os.IsNotExist(statErr)

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open detection log: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if needHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write detection log header: %w", err)
		}
	}

	row := []string{
		timestamp.Format(time.RFC3339),
		strconv.FormatUint(sequence, 10),
		videoPath,
		audioPath,
		formatReading(snapshot.AirTempC),
		formatReading(snapshot.HumidityPct),
		formatReading(snapshot.SoilTempC),
		formatReading(snapshot.SoilMoistPct),
		formatReading(snapshot.LightPct),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write detection row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush detection log: %w", err)
	}
	return file.Close()
}

func formatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mothtrap/internal/config"
	"mothtrap/internal/detlog"
	"mothtrap/internal/envsense"
	"mothtrap/internal/logging"
)

// Scratch locates the in-flight artifacts of one capture window.
type Scratch struct {
	Dir         string
	VideoStream string // raw frame chunk stream
	VideoPath   string // finalized AVI, still in scratch
	AudioPath   string // WAV, still in scratch
}

// CommitResult reports where a window's artifacts landed.
type CommitResult struct {
	VideoPath string
	AudioPath string
}

// Manager commits or discards capture windows.
type Manager struct {
	storageRoot string
	scratchRoot string
	prefix      string
	minFree     int64
	logger      *slog.Logger
	recorder    detlog.Recorder
	now         func() time.Time
}

// NewManager constructs a lifecycle manager from configuration. The recorder
// may be nil, in which case committed windows are not logged.
func NewManager(cfg *config.Config, recorder detlog.Recorder, logger *slog.Logger) *Manager {
	return &Manager{
		storageRoot: cfg.Paths.StorageDir,
		scratchRoot: cfg.Paths.ScratchDir,
		prefix:      cfg.Capture.FilePrefix,
		minFree:     cfg.Capture.MinFreeSpace * 1024 * 1024,
		logger:      logging.NewComponentLogger(logger, "storage"),
		recorder:    recorder,
		now:         time.Now,
	}
}

// ScratchRoot returns the private temp root holding in-flight windows.
func (m *Manager) ScratchRoot() string { return m.scratchRoot }

// NewScratch creates the scratch directory for a window. The directory name
// carries the cycle id; if a crashed predecessor left the name taken, a random
// nonce is appended rather than reusing the stale directory.
func (m *Manager) NewScratch(cycle uint64) (Scratch, error) {
	dir := filepath.Join(m.scratchRoot, fmt.Sprintf("window-%06d", cycle))
	if err := os.Mkdir(dir, 0o755); err != nil {
		if !errors.Is(err, os.ErrExist) {
			if mkErr := os.MkdirAll(m.scratchRoot, 0o755); mkErr != nil {
				return Scratch{}, fmt.Errorf("create scratch root: %w", mkErr)
			}
			if err = os.Mkdir(dir, 0o755); err == nil {
				return m.scratchFor(dir), nil
			}
		}
		dir = filepath.Join(m.scratchRoot, fmt.Sprintf("window-%06d-%s", cycle, uuid.NewString()[:8]))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Scratch{}, fmt.Errorf("create scratch directory: %w", err)
		}
	}
	return m.scratchFor(dir), nil
}

func (m *Manager) scratchFor(dir string) Scratch {
	return Scratch{
		Dir:         dir,
		VideoStream: filepath.Join(dir, "frames.movi"),
		VideoPath:   filepath.Join(dir, "capture.avi"),
		AudioPath:   filepath.Join(dir, "capture.wav"),
	}
}

// Commit moves the window's containers into permanent storage and records the
// detection exactly once. Renames are all-or-nothing: if any artifact fails to
// move, artifacts already moved are pulled back and an error is returned with
// nothing left in permanent storage.
func (m *Manager) Commit(stamp time.Time, sequence uint64, scratch Scratch, snapshot envsense.Snapshot) (CommitResult, error) {
	dayDir := filepath.Join(m.storageRoot, stamp.Format("20060102"))
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return CommitResult{}, fmt.Errorf("create day directory: %w", err)
	}

	if err := CheckFreeSpace(dayDir, m.minFree); err != nil {
		return CommitResult{}, err
	}

	type move struct{ src, dst string }
	var moves []move
	result := CommitResult{}

	base := m.baseName(dayDir, stamp, sequence)
	if fileExists(scratch.VideoPath) {
		result.VideoPath = filepath.Join(dayDir, base+".avi")
		moves = append(moves, move{scratch.VideoPath, result.VideoPath})
	}
	if fileExists(scratch.AudioPath) {
		result.AudioPath = filepath.Join(dayDir, base+".wav")
		moves = append(moves, move{scratch.AudioPath, result.AudioPath})
	}
	if len(moves) == 0 {
		return CommitResult{}, errors.New("nothing to commit: no artifacts in scratch")
	}

	for i, mv := range moves {
		if err := os.Rename(mv.src, mv.dst); err != nil {
			// Pull back whatever already moved so permanent storage holds
			// both artifacts or neither.
			for j := 0; j < i; j++ {
				_ = os.Rename(moves[j].dst, moves[j].src)
			}
			return CommitResult{}, fmt.Errorf("commit %s: %w", filepath.Base(mv.dst), err)
		}
	}

	if m.recorder != nil {
		if err := m.recorder.RecordEvent(stamp, sequence, result.VideoPath, result.AudioPath, snapshot); err != nil {
			m.logger.Warn("detection log append failed",
				logging.Error(err),
				logging.String("video", result.VideoPath),
			)
		}
	}

	m.logger.Info("window committed",
		logging.String("video", result.VideoPath),
		logging.String("audio", result.AudioPath),
		logging.Uint64("sequence", sequence),
	)

	// Scratch dir itself is no longer needed.
	_ = os.RemoveAll(scratch.Dir)
	return result, nil
}

// Discard removes the window's scratch directory and everything in it.
// Discarding an already-discarded window is a no-op.
func (m *Manager) Discard(scratch Scratch) error {
	if scratch.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(scratch.Dir); err != nil {
		return fmt.Errorf("discard scratch %s: %w", scratch.Dir, err)
	}
	return nil
}

// baseName derives the deterministic permanent file stem for a window. When a
// same-second window already produced the plain stem, the detection sequence
// disambiguates.
func (m *Manager) baseName(dayDir string, stamp time.Time, sequence uint64) string {
	base := fmt.Sprintf("%s_%s", m.prefix, stamp.Format("150405"))
	if fileExists(filepath.Join(dayDir, base+".avi")) || fileExists(filepath.Join(dayDir, base+".wav")) {
		base = fmt.Sprintf("%s_%d", base, sequence)
	}
	return base
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

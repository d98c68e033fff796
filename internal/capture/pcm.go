package capture

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// pcmReadTimeout bounds a single microphone read so a stalled device looks
// like an underrun instead of hanging the audio task.
const pcmReadTimeout = 50 * time.Millisecond

// PCMSource reads raw 16-bit mono PCM from a capture device node. The device
// is held open only between Start and Stop, matching the window lifetime.
type PCMSource struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// NewPCMSource prepares a source for the given device node without touching
// the hardware.
func NewPCMSource(path string) *PCMSource {
	return &PCMSource{path: path}
}

// Start opens the device. Calling Start while already started is an error.
func (s *PCMSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f != nil {
		return errors.New("audio device already started")
	}
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	s.f = f
	return nil
}

// Read fills buf with captured samples. A device timeout is reported as
// (0, nil) so the caller treats it as underrun rather than failure.
func (s *PCMSource) Read(buf []byte) (int, error) {
	s.mu.Lock()
	f := s.f
	s.mu.Unlock()
	if f == nil {
		return 0, errors.New("audio device not started")
	}

	// Deadline errors are expected when the device momentarily has no data.
	_ = f.SetReadDeadline(time.Now().Add(pcmReadTimeout))
	n, err := f.Read(buf)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}

// Stop closes the device. Stopping a stopped source is a no-op.
func (s *PCMSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return fmt.Errorf("close audio device: %w", err)
	}
	return nil
}

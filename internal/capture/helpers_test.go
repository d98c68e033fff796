package capture

import (
	"sync"
	"time"
)

// fakeClock advances only when a capture loop sleeps, making task timing
// deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 12, 22, 41, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type frameFunc func() ([]byte, bool, error)

func (f frameFunc) NextFrame() ([]byte, bool, error) { return f() }

// fakeSamples is a scripted SampleSource. It delivers full chunks for the
// first maxChunks reads (forever when maxChunks is zero), then underruns.
type fakeSamples struct {
	maxChunks int
	readErr   error
	startErr  error
	readDelay time.Duration

	mu      sync.Mutex
	started int
	stopped int
	reads   int
}

func (s *fakeSamples) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started++
	return nil
}

func (s *fakeSamples) Read(buf []byte) (int, error) {
	if s.readDelay > 0 {
		time.Sleep(s.readDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.readErr != nil {
		return 0, s.readErr
	}
	if s.maxChunks > 0 && s.reads > s.maxChunks {
		return 0, nil
	}
	for i := range buf {
		buf[i] = byte(i)
	}
	return len(buf), nil
}

func (s *fakeSamples) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return nil
}

func testWindow(duration time.Duration, frameRate, sampleRate int) *Window {
	return &Window{
		Cycle:      1,
		Start:      time.Date(2026, 6, 12, 22, 41, 5, 0, time.UTC),
		Duration:   duration,
		FrameRate:  frameRate,
		SampleRate: sampleRate,
		State:      WindowPending,
	}
}

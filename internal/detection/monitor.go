package detection

import (
	"time"
)

// Event is a single accepted beam crossing.
type Event struct {
	Timestamp time.Time
	Sequence  uint64
}

// Line reports the instantaneous beam state. Broken returns true while the
// beam is interrupted.
type Line interface {
	Broken() (bool, error)
}

// LineFunc adapts a function to the Line interface.
type LineFunc func() (bool, error)

func (f LineFunc) Broken() (bool, error) { return f() }

// Scheduler gates the monitor: events are only emitted while Armed reports
// true. Implementations live with the daemon (light threshold, night hours).
type Scheduler interface {
	Armed(now time.Time) bool
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(now time.Time) bool

func (f SchedulerFunc) Armed(now time.Time) bool { return f(now) }

type monitorState int

const (
	stateIdle monitorState = iota
	stateTriggered
)

// Monitor is the debounced edge detector over the beam line.
type Monitor struct {
	line     Line
	sched    Scheduler
	debounce time.Duration
	cooldown time.Duration
	now      func() time.Time

	state       monitorState
	lastBroken  bool
	lastChange  time.Time
	lastTrigger time.Time
	primed      bool
	sequence    uint64
}

// MonitorOption configures optional Monitor behavior.
type MonitorOption func(*Monitor)

// WithNow overrides the monitor's time source. Intended for tests.
func WithNow(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor constructs a beam monitor with the given debounce and cooldown
// intervals. A nil scheduler arms the monitor unconditionally.
func NewMonitor(line Line, sched Scheduler, debounce, cooldown time.Duration, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		line:     line,
		sched:    sched,
		debounce: debounce,
		cooldown: cooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Armed reports whether the external schedule currently allows triggering.
func (m *Monitor) Armed() bool {
	if m.sched == nil {
		return true
	}
	return m.sched.Armed(m.now())
}

// Sequence returns the id the next accepted event will carry.
func (m *Monitor) Sequence() uint64 {
	return m.sequence + 1
}

// Poll samples the line and returns an event when a debounced crossing is
// accepted. It never blocks. A level change restarts the debounce clock; after
// an accepted trigger the line must clear and the cooldown must elapse before
// another event is produced.
func (m *Monitor) Poll() (Event, bool) {
	now := m.now()

	broken, err := m.line.Broken()
	if err != nil {
		// Treat a misbehaving line as clear; the next good read recovers.
		broken = false
	}

	if !m.primed || broken != m.lastBroken {
		m.lastBroken = broken
		m.lastChange = now
		m.primed = true
		if !broken {
			m.state = stateIdle
		}
		return Event{}, false
	}

	if !broken {
		m.state = stateIdle
		return Event{}, false
	}

	// Line is broken and unchanged since lastChange.
	if m.state == stateTriggered {
		return Event{}, false
	}
	if now.Sub(m.lastChange) < m.debounce {
		return Event{}, false
	}
	if !m.lastTrigger.IsZero() && now.Sub(m.lastTrigger) < m.cooldown {
		return Event{}, false
	}
	if !m.Armed() {
		return Event{}, false
	}

	m.state = stateTriggered
	m.lastTrigger = now
	m.sequence++
	return Event{Timestamp: now, Sequence: m.sequence}, true
}

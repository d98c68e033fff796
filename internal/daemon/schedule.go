package daemon

import (
	"time"

	"mothtrap/internal/config"
	"mothtrap/internal/detection"
	"mothtrap/internal/envsense"
)

// NewScheduler builds the arming scheduler for the configured mode. The
// scheduler decides when the beam monitor may accept triggers; outside the
// armed period detections are ignored entirely.
func NewScheduler(cfg *config.Config, env envsense.Provider) detection.Scheduler {
	switch cfg.Schedule.Mode {
	case config.ScheduleLight:
		return &lightScheduler{env: env, threshold: float64(cfg.Schedule.LightThreshold)}
	case config.ScheduleHours:
		return &hourScheduler{start: cfg.Schedule.NightStartHour, end: cfg.Schedule.NightEndHour}
	default:
		return detection.SchedulerFunc(func(time.Time) bool { return true })
	}
}

// lightScheduler arms the trap while ambient light is at or below the
// configured threshold, so captures only run after dark.
type lightScheduler struct {
	env       envsense.Provider
	threshold float64
}

func (s *lightScheduler) Armed(time.Time) bool {
	if s.env == nil {
		// No light sensor means no way to tell night from day; stay armed.
		return true
	}
	return s.env.Snapshot().LightPct <= s.threshold
}

// hourScheduler arms the trap inside a fixed local-time window. The window
// may wrap midnight, e.g. 18:00 through 06:00.
type hourScheduler struct {
	start int
	end   int
}

func (s *hourScheduler) Armed(now time.Time) bool {
	hour := now.Hour()
	if s.start == s.end {
		return true
	}
	if s.start < s.end {
		return hour >= s.start && hour < s.end
	}
	return hour >= s.start || hour < s.end
}

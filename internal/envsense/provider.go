package envsense

import "sync"

// Snapshot is a point-in-time reading of the trap's environmental sensors.
type Snapshot struct {
	AirTempC     float64
	HumidityPct  float64
	SoilTempC    float64
	SoilMoistPct float64
	LightPct     float64
}

// Provider supplies the snapshot recorded alongside each committed window.
type Provider interface {
	Snapshot() Snapshot
}

// Static is a Provider holding the last value fed to Update. The zero value
// reports all-zero readings.
type Static struct {
	mu   sync.RWMutex
	last Snapshot
}

// NewStatic returns a provider preloaded with the given snapshot.
func NewStatic(snapshot Snapshot) *Static {
	return &Static{last: snapshot}
}

// Snapshot returns the most recently stored reading.
func (s *Static) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Update stores a new reading. Safe for concurrent use with Snapshot.
func (s *Static) Update(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = snapshot
}

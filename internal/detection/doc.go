// Package detection turns a noisy beam-break line into discrete entry events.
//
// Monitor debounces level changes, requires the line to clear between
// triggers, and enforces a cooldown so one physical crossing is never counted
// twice. Poll is non-blocking and safe to call from a tight daemon loop. The
// beam line and the arming schedule are injected interfaces so the state
// machine is host-testable.
package detection

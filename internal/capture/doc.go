// Package capture runs event-triggered dual-stream capture windows.
//
// The Orchestrator serializes windows: at most one is ever capturing. Each
// window launches a video task and an audio task as independent goroutines
// that own their peripheral and scratch output exclusively and share nothing
// but a write-once done flag, read by the orchestrator's coarse polling join.
// A hard timeout (duration plus grace) instructs both tasks to finalize
// whatever they have; the window is marked degraded but still goes through
// the same commit/discard decision.
//
// Two persistence policies are supported. Under the triggered policy a window
// starts only on a detection event and is always persisted. Under the
// continuous policy windows run back-to-back while the trap is armed, and a
// window is persisted only when a detection event lands inside it; the
// decision latches the moment it becomes true and is never re-evaluated.
package capture

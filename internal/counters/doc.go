// Package counters persists the trap's lifetime operation counters in a
// small SQLite database so they survive restarts and power loss.
package counters

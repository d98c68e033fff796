// Package storage owns the lifecycle of capture artifacts on disk.
//
// Each window gets a scratch directory under a private temp root, named with
// the window's cycle id so a crash mid-commit can never collide with the next
// window. Commit renames the window's containers into the permanent,
// date-partitioned tree and notifies the detection log exactly once; it is
// all-or-nothing from the caller's view. Discard removes the scratch
// directory recursively and is idempotent. Startup runs a best-effort sweep
// of orphaned scratch directories left by earlier crashes.
package storage

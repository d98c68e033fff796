// Package daemon runs the trap's long-lived services: the beam poll loop
// feeding the capture orchestrator, the hotplug monitor for camera and
// microphone, the local status API, and single-instance enforcement.
package daemon

// Package simulate provides synthetic camera and microphone sources so the
// capture pipeline can be exercised on a workstation without trap hardware.
package simulate

// Package detlog appends detection rows to the CSV log that accompanies
// committed captures.
//
// Exactly one row is written per committed window; discarded windows never
// reach this package. The file carries a header row when created and is opened
// append-only afterwards, so rows survive daemon restarts.
package detlog

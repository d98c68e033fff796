// Package envsense defines the boundary to the environmental sensor suite.
//
// The capture pipeline only needs a point-in-time snapshot at commit time for
// the detection log; periodic environmental sampling itself is an external
// collaborator. Static returns fixed or last-known values and is the default
// provider when no sensor bus is wired up.
package envsense

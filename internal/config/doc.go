// Package config loads, normalizes, and validates mothtrap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// daemon and CLI need: storage and scratch directories, detection debounce and
// cooldown intervals, capture window geometry and rates, arming schedule, and
// logging output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and validated intervals.
package config

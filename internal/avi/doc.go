// Package avi writes motion-JPEG AVI containers from frames captured one at a
// time.
//
// Capture appends frames to a scratch stream (StreamWriter) that is laid out
// exactly like the movi data region: tag, little-endian length, payload, and a
// pad byte for odd lengths. Finalize then emits the full RIFF/AVI file - main
// header, stream list, data copied verbatim from scratch, and the idx1 index -
// with every size field computed from what was actually captured, so a window
// that ends early still yields a structurally valid, player-compatible file.
//
// All multi-byte fields are explicit little-endian writes; nothing depends on
// native struct layout.
package avi

// Package wav writes canonical uncompressed WAV files for 16-bit mono PCM.
//
// The header is written up front with a declared data size computed from the
// capture window's target duration, not from the bytes eventually written.
// A capture that underruns therefore leaves a parseable file whose declared
// length exceeds its true content. That mirrors the deployed firmware and is
// kept deliberately; Inspect reports both sizes so callers can detect it.
package wav

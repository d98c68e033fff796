package avi

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func buildContainer(t *testing.T, frames [][]byte, params Params) string {
	t.Helper()
	dir := t.TempDir()
	scratch := filepath.Join(dir, "window.movi")
	dst := filepath.Join(dir, "window.avi")

	stream, err := NewStreamWriter(scratch)
	if err != nil {
		t.Fatalf("NewStreamWriter: %v", err)
	}
	for i, frame := range frames {
		if err := stream.AppendFrame(frame); err != nil {
			t.Fatalf("AppendFrame %d: %v", i, err)
		}
	}
	if err := Finalize(dst, params, stream); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return dst
}

func syntheticFrames(count int) [][]byte {
	frames := make([][]byte, count)
	for i := range frames {
		// Vary size, including odd lengths, to exercise padding.
		size := 100 + (i%7)*13 + i%2
		frame := bytes.Repeat([]byte{byte(i)}, size)
		frames[i] = frame
	}
	return frames
}

// A 10 s window at 15 fps with an exact source yields 150 frames in both the
// main header and the stream descriptor.
func TestHeaderFrameCountsMatchCapturedFrames(t *testing.T) {
	frames := syntheticFrames(150)
	dst := buildContainer(t, frames, Params{Width: 640, Height: 480, FrameRate: 15})

	info, err := Inspect(dst)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.HeaderFrames != 150 {
		t.Errorf("main header frame count = %d, want 150", info.HeaderFrames)
	}
	if info.StreamFrames != 150 {
		t.Errorf("stream descriptor frame count = %d, want 150", info.StreamFrames)
	}
	if len(info.Index) != 150 {
		t.Errorf("index has %d entries, want 150", len(info.Index))
	}
	if info.Width != 640 || info.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", info.Width, info.Height)
	}
	if info.MicroSecPerFrame != 66666 {
		t.Errorf("microseconds per frame = %d, want 66666", info.MicroSecPerFrame)
	}
}

// Sum over all frames of 8 + roundUpToEven(frameSize) equals the recorded
// data-section size.
func TestDataSectionSizeMatchesChunkSum(t *testing.T) {
	frames := syntheticFrames(37)
	dst := buildContainer(t, frames, Params{Width: 320, Height: 240, FrameRate: 10})

	info, err := Inspect(dst)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	var want uint32
	for _, frame := range frames {
		size := uint32(len(frame))
		if size%2 == 1 {
			size++
		}
		want += 8 + size
	}
	if info.MoviDataBytes != want {
		t.Errorf("movi data size = %d, want %d", info.MoviDataBytes, want)
	}
}

// Re-parsing the index yields offsets and sizes matching the byte layout.
func TestIndexOffsetsMatchByteLayout(t *testing.T) {
	frames := syntheticFrames(12)
	dst := buildContainer(t, frames, Params{Width: 640, Height: 480, FrameRate: 15})

	info, err := Inspect(dst)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	file, err := os.Open(dst)
	if err != nil {
		t.Fatalf("open container: %v", err)
	}
	defer file.Close()

	if info.Index[0].Offset != 4 {
		t.Errorf("first frame offset = %d, want 4", info.Index[0].Offset)
	}
	for i, entry := range info.Index {
		payload, err := ReadFrame(file, info.MoviListStart, entry)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(payload, frames[i]) {
			t.Fatalf("frame %d payload does not round-trip", i)
		}
	}
}

// An empty capture still finalizes into a structurally valid container.
func TestEmptyCaptureFinalizes(t *testing.T) {
	dst := buildContainer(t, nil, Params{Width: 640, Height: 480, FrameRate: 15})

	info, err := Inspect(dst)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.HeaderFrames != 0 || info.StreamFrames != 0 || len(info.Index) != 0 {
		t.Errorf("expected zero frames, got header=%d stream=%d index=%d",
			info.HeaderFrames, info.StreamFrames, len(info.Index))
	}
	if info.MoviDataBytes != 0 {
		t.Errorf("expected empty data section, got %d bytes", info.MoviDataBytes)
	}
}

func TestSuggestedBufferTracksLargestFrame(t *testing.T) {
	frames := [][]byte{
		bytes.Repeat([]byte{1}, 100),
		bytes.Repeat([]byte{2}, 501), // odd, and the largest
		bytes.Repeat([]byte{3}, 200),
	}
	dst := buildContainer(t, frames, Params{Width: 640, Height: 480, FrameRate: 15})

	info, err := Inspect(dst)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.SuggestedBuffer != 502 {
		t.Errorf("suggested buffer = %d, want 502 (largest frame rounded even)", info.SuggestedBuffer)
	}
}

func TestStreamWriterTracksCounters(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), "stream.movi")
	stream, err := NewStreamWriter(scratch)
	if err != nil {
		t.Fatalf("NewStreamWriter: %v", err)
	}
	defer stream.Close()

	if err := stream.AppendFrame(bytes.Repeat([]byte{9}, 11)); err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	if err := stream.AppendFrame(bytes.Repeat([]byte{9}, 4)); err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}

	if stream.FrameCount() != 2 {
		t.Errorf("FrameCount = %d, want 2", stream.FrameCount())
	}
	if stream.MaxFrameSize() != 11 {
		t.Errorf("MaxFrameSize = %d, want 11", stream.MaxFrameSize())
	}
	// 8+12 (padded) + 8+4.
	if stream.DataBytes() != 32 {
		t.Errorf("DataBytes = %d, want 32", stream.DataBytes())
	}
}

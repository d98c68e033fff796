package capture

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mothtrap/internal/logging"
	"mothtrap/internal/wav"
)

func TestAudioTaskReachesDeclaredSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")
	src := &fakeSamples{}

	// 1 s at 1 kHz mono 16-bit declares 2000 data bytes; four 500-byte
	// chunks fill it exactly.
	w := testWindow(time.Second, 10, 1000)
	task := newAudioTask(src, newFakeClock(), logging.NewNop(), w, 200*time.Millisecond, 500, path)
	task.run()

	if task.result.Status != TaskOK {
		t.Fatalf("status = %q, err = %v", task.result.Status, task.result.Err)
	}
	if task.result.Bytes != 2000 {
		t.Fatalf("captured %d bytes, want 2000", task.result.Bytes)
	}

	info, err := wav.Inspect(path)
	if err != nil {
		t.Fatalf("inspect wav: %v", err)
	}
	if info.DeclaredDataSize != 2000 || info.ActualDataSize != 2000 {
		t.Fatalf("declared=%d actual=%d, want 2000 each", info.DeclaredDataSize, info.ActualDataSize)
	}
	if info.SampleRate != 1000 || info.Channels != 1 || info.BitsPerSample != 16 {
		t.Fatalf("format = %d Hz / %d ch / %d bit", info.SampleRate, info.Channels, info.BitsPerSample)
	}
}

func TestAudioTaskUnderrunLeavesParseableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")

	// The microphone delivers two chunks and then dries up until the
	// deadline. The header keeps declaring the full window.
	src := &fakeSamples{maxChunks: 2}

	w := testWindow(time.Second, 10, 1000)
	task := newAudioTask(src, newFakeClock(), logging.NewNop(), w, 50*time.Millisecond, 500, path)
	task.run()

	if task.result.Status != TaskOK {
		t.Fatalf("status = %q, err = %v", task.result.Status, task.result.Err)
	}
	if task.result.Bytes != 1000 {
		t.Fatalf("captured %d bytes, want 1000", task.result.Bytes)
	}

	info, err := wav.Inspect(path)
	if err != nil {
		t.Fatalf("inspect wav: %v", err)
	}
	if info.DeclaredDataSize != 2000 {
		t.Fatalf("DeclaredDataSize = %d, want 2000", info.DeclaredDataSize)
	}
	if info.ActualDataSize != 1000 {
		t.Fatalf("ActualDataSize = %d, want 1000", info.ActualDataSize)
	}
}

func TestAudioTaskReadErrorsAreUnderrun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")
	src := &fakeSamples{readErr: errors.New("i2s fault")}

	w := testWindow(time.Second, 10, 1000)
	task := newAudioTask(src, newFakeClock(), logging.NewNop(), w, 50*time.Millisecond, 500, path)
	task.run()

	if task.result.Status != TaskOK {
		t.Fatalf("status = %q, err = %v", task.result.Status, task.result.Err)
	}
	if task.result.Bytes != 0 {
		t.Fatalf("captured %d bytes, want 0", task.result.Bytes)
	}
	if _, err := wav.Inspect(path); err != nil {
		t.Fatalf("inspect empty wav: %v", err)
	}
}

func TestAudioTaskWithoutSourceSkips(t *testing.T) {
	w := testWindow(time.Second, 10, 1000)
	task := newAudioTask(nil, newFakeClock(), logging.NewNop(), w, 0, 500, "")
	task.run()

	if task.result.Status != TaskSkipped {
		t.Fatalf("status = %q, want %q", task.result.Status, TaskSkipped)
	}
	if !errors.Is(task.result.Err, ErrSensorUnavailable) {
		t.Fatalf("err = %v, want ErrSensorUnavailable", task.result.Err)
	}
}

func TestAudioTaskCreateFailure(t *testing.T) {
	src := &fakeSamples{}
	w := testWindow(time.Second, 10, 1000)
	task := newAudioTask(src, newFakeClock(), logging.NewNop(), w, 0, 500,
		filepath.Join(t.TempDir(), "missing", "capture.wav"))
	task.run()

	if task.result.Status != TaskFailed {
		t.Fatalf("status = %q, want %q", task.result.Status, TaskFailed)
	}
	if !errors.Is(task.result.Err, ErrStorageWrite) {
		t.Fatalf("err = %v, want ErrStorageWrite", task.result.Err)
	}
}

func TestAudioTaskFinalizeStopsEarly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")
	src := &fakeSamples{}

	w := testWindow(time.Second, 10, 1000)
	task := newAudioTask(src, newFakeClock(), logging.NewNop(), w, 200*time.Millisecond, 500, path)
	task.Finalize()
	task.run()

	if task.result.Status != TaskOK {
		t.Fatalf("status = %q, err = %v", task.result.Status, task.result.Err)
	}
	if task.result.Bytes != 0 {
		t.Fatalf("captured %d bytes, want 0", task.result.Bytes)
	}
	if _, err := wav.Inspect(path); err != nil {
		t.Fatalf("inspect wav: %v", err)
	}
}

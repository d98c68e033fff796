package capture

// FrameSource supplies compressed frames from the image sensor. NextFrame
// must not block for long: when no frame is ready it returns ok=false and the
// capture loop skips the tick without padding or counting it. A non-nil error
// reports a sensor fault for that read; the loop treats it like a missed
// frame and keeps its cadence.
type FrameSource interface {
	NextFrame() (frame []byte, ok bool, err error)
}

// SampleSource supplies raw 16-bit mono PCM from the microphone. The
// orchestrator calls Start immediately before the audio task runs and Stop
// immediately after it exits, so the peripheral is powered only inside the
// window. Read may return (0, nil) on a timeout; the task counts only bytes
// actually delivered.
type SampleSource interface {
	Start() error
	Read(buf []byte) (int, error)
	Stop() error
}

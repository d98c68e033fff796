package capture

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// JPEG stream markers. The camera emits back-to-back JFIF images; frames are
// recovered by scanning for the start and end markers.
const (
	jpegMarker = 0xff
	jpegSOI    = 0xd8
	jpegEOI    = 0xd9
)

// maxFrameBytes bounds a single recovered frame. A frame growing past this
// means the scanner lost sync; the partial data is dropped and scanning
// restarts at the next start-of-image.
const maxFrameBytes = 1 << 20

// MJPEGSource recovers complete JPEG frames from a raw camera byte stream. A
// background goroutine scans the stream continuously; NextFrame hands over
// the most recent complete frame without blocking, so the capture loop's
// cadence is never tied to the camera's.
type MJPEGSource struct {
	r      io.ReadCloser
	frames chan []byte

	mu      sync.Mutex
	readErr error
	closed  bool
}

// OpenMJPEG opens the camera device node and starts scanning it.
func OpenMJPEG(path string) (*MJPEGSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open video device: %w", err)
	}
	return NewMJPEGSource(f), nil
}

// NewMJPEGSource wraps an already-open MJPEG byte stream. The source takes
// ownership of r and closes it on Close.
func NewMJPEGSource(r io.ReadCloser) *MJPEGSource {
	s := &MJPEGSource{
		r:      r,
		frames: make(chan []byte, 2),
	}
	go s.scan()
	return s
}

// NextFrame returns the most recent complete frame. ok is false when no new
// frame has arrived since the last call. A stream fault is reported once per
// read attempt until the stream recovers or the source is closed.
func (s *MJPEGSource) NextFrame() ([]byte, bool, error) {
	select {
	case frame := <-s.frames:
		return frame, true, nil
	default:
	}
	s.mu.Lock()
	err := s.readErr
	s.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// Close stops the scanner and releases the underlying stream.
func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.r.Close()
}

func (s *MJPEGSource) scan() {
	br := bufio.NewReaderSize(s.r, 64*1024)
	var frame []byte
	inFrame := false
	prev := byte(0)

	for {
		b, err := br.ReadByte()
		if err != nil {
			s.mu.Lock()
			if !s.closed {
				s.readErr = fmt.Errorf("video stream read: %w", err)
			}
			s.mu.Unlock()
			return
		}

		switch {
		case !inFrame:
			if prev == jpegMarker && b == jpegSOI {
				frame = append(frame[:0], jpegMarker, jpegSOI)
				inFrame = true
			}
		default:
			frame = append(frame, b)
			if prev == jpegMarker && b == jpegEOI {
				s.publish(frame)
				frame = nil
				inFrame = false
			} else if len(frame) > maxFrameBytes {
				// Lost sync; resynchronize on the next start marker.
				frame = frame[:0]
				inFrame = false
			}
		}
		prev = b
	}
}

// publish hands a frame to the consumer, evicting the oldest queued frame
// when the consumer is behind. The capture loop always sees recent data.
func (s *MJPEGSource) publish(frame []byte) {
	out := make([]byte, len(frame))
	copy(out, frame)
	for {
		select {
		case s.frames <- out:
			return
		default:
			select {
			case <-s.frames:
			default:
			}
		}
	}
}

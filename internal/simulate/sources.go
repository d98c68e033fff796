package simulate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"sync"
)

// FrameGenerator produces JPEG frames with a moving bar so consecutive frames
// differ. It satisfies the capture pipeline's frame source interface.
type FrameGenerator struct {
	width  int
	height int

	mu   sync.Mutex
	tick int
}

// NewFrameGenerator returns a generator producing width x height frames.
func NewFrameGenerator(width, height int) *FrameGenerator {
	return &FrameGenerator{width: width, height: height}
}

// NextFrame encodes and returns the next synthetic frame. It always has a
// frame ready and never fails.
func (g *FrameGenerator) NextFrame() ([]byte, bool, error) {
	g.mu.Lock()
	tick := g.tick
	g.tick++
	g.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	bar := tick % g.width
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			c := color.RGBA{R: 16, G: 24, B: 32, A: 255}
			if x >= bar && x < bar+8 {
				c = color.RGBA{R: 220, G: 200, B: 40, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 60}); err != nil {
		return nil, false, fmt.Errorf("encode synthetic frame: %w", err)
	}
	return buf.Bytes(), true, nil
}

// ToneSource produces a continuous 16-bit mono sine tone. It satisfies the
// capture pipeline's sample source interface.
type ToneSource struct {
	sampleRate int
	freqHz     float64

	mu     sync.Mutex
	phase  int
	active bool
}

// NewToneSource returns a tone source at the given sample rate and frequency.
func NewToneSource(sampleRate int, freqHz float64) *ToneSource {
	return &ToneSource{sampleRate: sampleRate, freqHz: freqHz}
}

// Start arms the source.
func (s *ToneSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	return nil
}

// Read fills buf with consecutive samples of the tone. Reading a stopped
// source reports no data rather than failing.
func (s *ToneSource) Read(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return 0, nil
	}

	samples := len(buf) / 2
	for i := 0; i < samples; i++ {
		angle := 2 * math.Pi * s.freqHz * float64(s.phase) / float64(s.sampleRate)
		value := int16(math.Sin(angle) * 0.4 * math.MaxInt16)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(value))
		s.phase++
	}
	return samples * 2, nil
}

// Stop disarms the source.
func (s *ToneSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	return nil
}

package wav

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

const (
	headerBytes   = 44
	bitsPerSample = 16
	channels      = 1
	fmtChunkBytes = 16
	pcmFormat     = 1
)

// DeclaredDataSize returns the data chunk size a window of the given target
// duration declares: duration seconds x sample rate x 2 bytes per sample.
func DeclaredDataSize(duration time.Duration, sampleRate int) uint32 {
	ms := duration.Milliseconds()
	return uint32(ms / 1000 * int64(sampleRate) * (bitsPerSample / 8))
}

// Writer streams PCM chunks into a WAV file whose header was fixed at create
// time.
type Writer struct {
	file    *os.File
	path    string
	written int64
}

// Create opens path and writes a complete WAV header declaring the data size
// for the full target duration. Samples appended later fill in behind it.
func Create(path string, sampleRate int, targetDuration time.Duration) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create wav %s: %w", path, err)
	}

	dataSize := DeclaredDataSize(targetDuration, sampleRate)
	header := make([]byte, 0, headerBytes)
	header = append(header, "RIFF"...)
	header = binary.LittleEndian.AppendUint32(header, 36+dataSize)
	header = append(header, "WAVE"...)
	header = append(header, "fmt "...)
	header = binary.LittleEndian.AppendUint32(header, fmtChunkBytes)
	header = binary.LittleEndian.AppendUint16(header, pcmFormat)
	header = binary.LittleEndian.AppendUint16(header, channels)
	header = binary.LittleEndian.AppendUint32(header, uint32(sampleRate))
	header = binary.LittleEndian.AppendUint32(header, uint32(sampleRate*channels*bitsPerSample/8)) // byte rate
	header = binary.LittleEndian.AppendUint16(header, channels*bitsPerSample/8)                    // block align
	header = binary.LittleEndian.AppendUint16(header, bitsPerSample)
	header = append(header, "data"...)
	header = binary.LittleEndian.AppendUint32(header, dataSize)

	if _, err := file.Write(header); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write wav header: %w", err)
	}

	return &Writer{file: file, path: path}, nil
}

// AppendSamples writes raw PCM bytes behind the header.
func (w *Writer) AppendSamples(chunk []byte) error {
	n, err := w.file.Write(chunk)
	w.written += int64(n)
	if err != nil {
		return fmt.Errorf("append samples: %w", err)
	}
	return nil
}

// BytesWritten returns the PCM byte count actually captured, which may fall
// short of the declared data size.
func (w *Writer) BytesWritten() int64 { return w.written }

// Close releases the file handle. The header is not revisited.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Info summarizes a parsed WAV file.
type Info struct {
	SampleRate       int
	Channels         int
	BitsPerSample    int
	DeclaredDataSize uint32
	ActualDataSize   int64
}

// Inspect parses the file's RIFF/WAVE header and reports declared versus
// actual data sizes.
func Inspect(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	if len(data) < headerBytes || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%s: not a RIFF/WAVE file", path)
	}

	info := &Info{}
	pos := 12
	for pos+8 <= len(data) {
		tag := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8

		switch tag {
		case "fmt ":
			if size < fmtChunkBytes || body+fmtChunkBytes > len(data) {
				return nil, fmt.Errorf("%s: fmt chunk too short", path)
			}
			if format := binary.LittleEndian.Uint16(data[body : body+2]); format != pcmFormat {
				return nil, fmt.Errorf("%s: unexpected format tag %d", path, format)
			}
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			info.DeclaredDataSize = uint32(size)
			info.ActualDataSize = int64(len(data) - body)
			// The data chunk is last; declared size may exceed actual content.
			return info, nil
		}

		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	return nil, fmt.Errorf("%s: no data chunk", path)
}

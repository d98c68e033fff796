package avi

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	frameTag = "00dc"

	aviMainHeaderFlagHasIndex = 0x00000010 // AVIF_HASINDEX
	aviIndexFlagKeyframe      = 0x00000010 // AVIIF_KEYFRAME

	mainHeaderBytes   = 56
	streamHeaderBytes = 56
	streamFormatBytes = 40
	indexEntryBytes   = 16

	// hdrl list payload: "hdrl" + avih chunk + strl list.
	strlListBytes = 4 + (8 + streamHeaderBytes) + (8 + streamFormatBytes)
	hdrlListBytes = 4 + (8 + mainHeaderBytes) + (8 + strlListBytes)
)

// IndexEntry locates one frame chunk. Offset is measured from the start of the
// movi list (the "movi" fourcc), so the first frame always sits at offset 4.
type IndexEntry struct {
	Offset uint32
	Size   uint32
}

// Params describes the stream geometry written into the container headers.
type Params struct {
	Width     int
	Height    int
	FrameRate int
}

// StreamWriter accumulates frame chunks in a scratch file laid out exactly
// like the final movi data region. The caller owns the scratch path.
type StreamWriter struct {
	file      *os.File
	path      string
	entries   []IndexEntry
	dataBytes int64
	maxFrame  int
}

// NewStreamWriter creates (or truncates) the scratch stream at path.
func NewStreamWriter(path string) (*StreamWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create scratch stream %s: %w", path, err)
	}
	return &StreamWriter{file: file, path: path}, nil
}

// AppendFrame writes one compressed frame as a tagged, length-prefixed chunk,
// padding odd payloads to even length. On a write failure the stream is
// truncated back to the last complete chunk so it can still be finalized over
// the frames that succeeded.
func (w *StreamWriter) AppendFrame(frame []byte) error {
	chunk := make([]byte, 0, 8+len(frame)+1)
	chunk = append(chunk, frameTag...)
	chunk = binary.LittleEndian.AppendUint32(chunk, uint32(len(frame)))
	chunk = append(chunk, frame...)
	if len(frame)%2 == 1 {
		chunk = append(chunk, 0)
	}

	if _, err := w.file.Write(chunk); err != nil {
		_ = w.file.Truncate(w.dataBytes)
		return fmt.Errorf("append frame %d: %w", len(w.entries), err)
	}

	w.entries = append(w.entries, IndexEntry{
		// +4 skips the "movi" fourcc the data region will sit behind.
		Offset: uint32(w.dataBytes) + 4,
		Size:   uint32(len(frame)),
	})
	w.dataBytes += int64(len(chunk))
	if len(frame) > w.maxFrame {
		w.maxFrame = len(frame)
	}
	return nil
}

// FrameCount returns the number of complete frames appended so far.
func (w *StreamWriter) FrameCount() int { return len(w.entries) }

// MaxFrameSize returns the largest single frame payload appended so far.
func (w *StreamWriter) MaxFrameSize() int { return w.maxFrame }

// DataBytes returns the movi data region size accumulated so far.
func (w *StreamWriter) DataBytes() int64 { return w.dataBytes }

// Close releases the scratch file handle. The scratch file itself remains for
// Finalize to copy.
func (w *StreamWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Finalize writes the complete AVI container to dst from the scratch stream.
// Header fields reflect only the frames actually captured; a truncated capture
// produces a shorter but structurally valid file.
func Finalize(dst string, params Params, stream *StreamWriter) error {
	if err := stream.Close(); err != nil {
		return fmt.Errorf("close scratch stream: %w", err)
	}

	src, err := os.Open(stream.path)
	if err != nil {
		return fmt.Errorf("open scratch stream: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create container %s: %w", dst, err)
	}
	defer out.Close()

	frameCount := len(stream.entries)
	moviListBytes := 4 + stream.dataBytes
	indexBytes := indexEntryBytes * frameCount
	riffBytes := 4 + // "AVI "
		(8 + hdrlListBytes) +
		(8 + int64(moviListBytes)) +
		(8 + int64(indexBytes))

	header := make([]byte, 0, 12+8+hdrlListBytes+8)
	header = appendFourCC(header, "RIFF")
	header = binary.LittleEndian.AppendUint32(header, uint32(riffBytes))
	header = appendFourCC(header, "AVI ")

	header = appendFourCC(header, "LIST")
	header = binary.LittleEndian.AppendUint32(header, uint32(hdrlListBytes))
	header = appendFourCC(header, "hdrl")
	header = appendMainHeader(header, params, frameCount, stream.maxFrame)
	header = appendStreamList(header, params, frameCount, stream.maxFrame)

	header = appendFourCC(header, "LIST")
	header = binary.LittleEndian.AppendUint32(header, uint32(moviListBytes))
	header = appendFourCC(header, "movi")

	if _, err := out.Write(header); err != nil {
		return fmt.Errorf("write container header: %w", err)
	}

	if copied, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("copy frame data: %w", err)
	} else if copied != stream.dataBytes {
		return fmt.Errorf("frame data short copy: scratch holds %d bytes, copied %d", stream.dataBytes, copied)
	}

	index := make([]byte, 0, 8+indexBytes)
	index = appendFourCC(index, "idx1")
	index = binary.LittleEndian.AppendUint32(index, uint32(indexBytes))
	for _, entry := range stream.entries {
		index = appendFourCC(index, frameTag)
		index = binary.LittleEndian.AppendUint32(index, aviIndexFlagKeyframe)
		index = binary.LittleEndian.AppendUint32(index, entry.Offset)
		index = binary.LittleEndian.AppendUint32(index, entry.Size)
	}
	if _, err := out.Write(index); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	return out.Close()
}

func appendMainHeader(b []byte, params Params, frameCount, maxFrame int) []byte {
	b = appendFourCC(b, "avih")
	b = binary.LittleEndian.AppendUint32(b, mainHeaderBytes)
	b = binary.LittleEndian.AppendUint32(b, microSecPerFrame(params.FrameRate))
	b = binary.LittleEndian.AppendUint32(b, uint32(maxFrame*params.FrameRate)) // dwMaxBytesPerSec
	b = binary.LittleEndian.AppendUint32(b, 0)                                 // dwPaddingGranularity
	b = binary.LittleEndian.AppendUint32(b, aviMainHeaderFlagHasIndex)
	b = binary.LittleEndian.AppendUint32(b, uint32(frameCount))
	b = binary.LittleEndian.AppendUint32(b, 0) // dwInitialFrames
	b = binary.LittleEndian.AppendUint32(b, 1) // dwStreams
	b = binary.LittleEndian.AppendUint32(b, uint32(evenSize(maxFrame)))
	b = binary.LittleEndian.AppendUint32(b, uint32(params.Width))
	b = binary.LittleEndian.AppendUint32(b, uint32(params.Height))
	for i := 0; i < 4; i++ {
		b = binary.LittleEndian.AppendUint32(b, 0) // dwReserved
	}
	return b
}

func appendStreamList(b []byte, params Params, frameCount, maxFrame int) []byte {
	b = appendFourCC(b, "LIST")
	b = binary.LittleEndian.AppendUint32(b, strlListBytes)
	b = appendFourCC(b, "strl")

	b = appendFourCC(b, "strh")
	b = binary.LittleEndian.AppendUint32(b, streamHeaderBytes)
	b = appendFourCC(b, "vids")
	b = appendFourCC(b, "MJPG")
	b = binary.LittleEndian.AppendUint32(b, 0) // dwFlags
	b = binary.LittleEndian.AppendUint16(b, 0) // wPriority
	b = binary.LittleEndian.AppendUint16(b, 0) // wLanguage
	b = binary.LittleEndian.AppendUint32(b, 0) // dwInitialFrames
	b = binary.LittleEndian.AppendUint32(b, 1) // dwScale
	b = binary.LittleEndian.AppendUint32(b, uint32(params.FrameRate))
	b = binary.LittleEndian.AppendUint32(b, 0) // dwStart
	b = binary.LittleEndian.AppendUint32(b, uint32(frameCount))
	b = binary.LittleEndian.AppendUint32(b, uint32(evenSize(maxFrame)))
	b = binary.LittleEndian.AppendUint32(b, 0) // dwQuality
	b = binary.LittleEndian.AppendUint32(b, 0) // dwSampleSize
	b = binary.LittleEndian.AppendUint16(b, 0) // rcFrame left
	b = binary.LittleEndian.AppendUint16(b, 0) // rcFrame top
	b = binary.LittleEndian.AppendUint16(b, uint16(params.Width))
	b = binary.LittleEndian.AppendUint16(b, uint16(params.Height))

	b = appendFourCC(b, "strf")
	b = binary.LittleEndian.AppendUint32(b, streamFormatBytes)
	b = binary.LittleEndian.AppendUint32(b, streamFormatBytes) // biSize
	b = binary.LittleEndian.AppendUint32(b, uint32(params.Width))
	b = binary.LittleEndian.AppendUint32(b, uint32(params.Height))
	b = binary.LittleEndian.AppendUint16(b, 1)  // biPlanes
	b = binary.LittleEndian.AppendUint16(b, 24) // biBitCount
	b = appendFourCC(b, "MJPG")
	b = binary.LittleEndian.AppendUint32(b, uint32(params.Width*params.Height*3)) // biSizeImage
	for i := 0; i < 4; i++ {
		b = binary.LittleEndian.AppendUint32(b, 0) // pels-per-meter, color counts
	}
	return b
}

func appendFourCC(b []byte, code string) []byte {
	return append(b, code...)
}

func microSecPerFrame(fps int) uint32 {
	if fps <= 0 {
		return 0
	}
	return uint32(1_000_000 / fps)
}

func evenSize(n int) int {
	if n%2 == 1 {
		return n + 1
	}
	return n
}

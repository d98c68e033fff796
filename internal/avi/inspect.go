package avi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Info summarizes a parsed AVI container.
type Info struct {
	Width            int
	Height           int
	MicroSecPerFrame uint32
	HeaderFrames     uint32 // dwTotalFrames from the main header
	StreamFrames     uint32 // dwLength from the stream header
	SuggestedBuffer  uint32
	MoviDataBytes    uint32 // movi list size minus the list fourcc
	MoviListStart    int64  // file offset of the "movi" fourcc; index offsets are relative to this
	Index            []IndexEntry
}

// Inspect parses an AVI file written by this package and returns its header
// fields and frame index. It walks the top-level RIFF chunks, so it also
// accepts files with extra chunks interleaved.
func Inspect(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read container: %w", err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "AVI " {
		return nil, fmt.Errorf("%s: not a RIFF/AVI file", path)
	}
	riffSize := binary.LittleEndian.Uint32(data[4:8])
	if int64(riffSize)+8 != int64(len(data)) {
		return nil, fmt.Errorf("%s: RIFF size %d does not match file size %d", path, riffSize, len(data))
	}

	info := &Info{}
	pos := 12
	for pos+8 <= len(data) {
		tag := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			return nil, fmt.Errorf("%s: chunk %q overruns file", path, tag)
		}

		switch tag {
		case "LIST":
			listType := string(data[body : body+4])
			switch listType {
			case "hdrl":
				if err := parseHeaderList(data[body+4:body+size], info); err != nil {
					return nil, fmt.Errorf("%s: %w", path, err)
				}
			case "movi":
				info.MoviDataBytes = uint32(size - 4)
				info.MoviListStart = int64(body)
			}
		case "idx1":
			if size%indexEntryBytes != 0 {
				return nil, fmt.Errorf("%s: index size %d not a multiple of %d", path, size, indexEntryBytes)
			}
			for off := body; off < body+size; off += indexEntryBytes {
				info.Index = append(info.Index, IndexEntry{
					Offset: binary.LittleEndian.Uint32(data[off+8 : off+12]),
					Size:   binary.LittleEndian.Uint32(data[off+12 : off+16]),
				})
			}
		}

		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	return info, nil
}

func parseHeaderList(body []byte, info *Info) error {
	pos := 0
	for pos+8 <= len(body) {
		tag := string(body[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(body[pos+4 : pos+8]))
		chunk := body[pos+8:]
		if size > len(chunk) {
			return fmt.Errorf("header chunk %q overruns list", tag)
		}
		chunk = chunk[:size]

		switch tag {
		case "avih":
			if size < mainHeaderBytes {
				return fmt.Errorf("main header too short: %d bytes", size)
			}
			info.MicroSecPerFrame = binary.LittleEndian.Uint32(chunk[0:4])
			info.HeaderFrames = binary.LittleEndian.Uint32(chunk[16:20])
			info.SuggestedBuffer = binary.LittleEndian.Uint32(chunk[28:32])
			info.Width = int(binary.LittleEndian.Uint32(chunk[32:36]))
			info.Height = int(binary.LittleEndian.Uint32(chunk[36:40]))
		case "LIST":
			if size >= 4 && string(chunk[0:4]) == "strl" {
				if err := parseStreamList(chunk[4:], info); err != nil {
					return err
				}
			}
		}

		pos += 8 + size
		if size%2 == 1 {
			pos++
		}
	}
	return nil
}

func parseStreamList(body []byte, info *Info) error {
	pos := 0
	for pos+8 <= len(body) {
		tag := string(body[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(body[pos+4 : pos+8]))
		chunk := body[pos+8:]
		if size > len(chunk) {
			return fmt.Errorf("stream chunk %q overruns list", tag)
		}
		chunk = chunk[:size]

		if tag == "strh" {
			if size < streamHeaderBytes {
				return fmt.Errorf("stream header too short: %d bytes", size)
			}
			if !bytes.Equal(chunk[0:4], []byte("vids")) {
				return fmt.Errorf("unexpected stream type %q", chunk[0:4])
			}
			info.StreamFrames = binary.LittleEndian.Uint32(chunk[32:36])
		}

		pos += 8 + size
		if size%2 == 1 {
			pos++
		}
	}
	return nil
}

// ReadFrame extracts the payload of the index entry from an open container.
// Used by tests and tooling to verify that index offsets match byte layout.
func ReadFrame(r io.ReaderAt, moviListStart int64, entry IndexEntry) ([]byte, error) {
	header := make([]byte, 8)
	chunkPos := moviListStart + int64(entry.Offset)
	if _, err := r.ReadAt(header, chunkPos); err != nil {
		return nil, fmt.Errorf("read chunk header: %w", err)
	}
	if string(header[0:4]) != frameTag {
		return nil, fmt.Errorf("index offset %d does not point at a frame chunk (got %q)", entry.Offset, header[0:4])
	}
	size := binary.LittleEndian.Uint32(header[4:8])
	if size != entry.Size {
		return nil, fmt.Errorf("chunk size %d disagrees with index size %d", size, entry.Size)
	}
	payload := make([]byte, size)
	if _, err := r.ReadAt(payload, chunkPos+8); err != nil {
		return nil, fmt.Errorf("read chunk payload: %w", err)
	}
	return payload, nil
}

package ptyfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ringMagic identifies a valid pty ring-buffer file.
const ringMagic = 0x70747931 // "pty1"
const ringVersion = 1

// headerSize is the fixed on-disk size of ringHeader (see MarshalBinary).
const headerSize = 40

// ringHeader is the fixed-size header at the start of every pty file. The
// payload region immediately follows it and is exactly MaxSize bytes.
//
// Head is the payload-relative offset the next write starts at; it wraps
// modulo MaxSize. Filled is how many of the payload bytes currently hold
// valid data (grows to MaxSize then stays there once the buffer has
// wrapped at least once). Total is the monotonically increasing count of
// every byte ever appended, independent of wrapping — it is what callers
// see as a line's pty "real offset".
type ringHeader struct {
	MaxSize int64
	Head    int64
	Filled  int64
	Total   int64
}

func (h ringHeader) MarshalBinary() []byte {
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[0:4], ringMagic)
	binary.BigEndian.PutUint32(buf[4:8], ringVersion)
	binary.BigEndian.PutUint64(buf[8:16], uint64(h.MaxSize))
	binary.BigEndian.PutUint64(buf[16:24], uint64(h.Head))
	binary.BigEndian.PutUint64(buf[24:32], uint64(h.Filled))
	binary.BigEndian.PutUint64(buf[32:40], uint64(h.Total))
	return buf
}

func unmarshalHeader(buf []byte) (ringHeader, error) {
	if len(buf) < headerSize {
		return ringHeader{}, ErrBadHeader
	}
	if binary.BigEndian.Uint32(buf[0:4]) != ringMagic {
		return ringHeader{}, ErrBadHeader
	}
	if binary.BigEndian.Uint32(buf[4:8]) != ringVersion {
		return ringHeader{}, ErrBadHeader
	}
	return ringHeader{
		MaxSize: int64(binary.BigEndian.Uint64(buf[8:16])),
		Head:    int64(binary.BigEndian.Uint64(buf[16:24])),
		Filled:  int64(binary.BigEndian.Uint64(buf[24:32])),
		Total:   int64(binary.BigEndian.Uint64(buf[32:40])),
	}, nil
}

// createRingFile creates path fresh with an empty header for a ring of the
// given maxSize. It fails if path already exists.
func createRingFile(path string, maxSize int64) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	h := ringHeader{MaxSize: maxSize}
	if _, err := f.Write(h.MarshalBinary()); err != nil {
		return err
	}
	return nil
}

func readHeader(f *os.File) (ringHeader, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, headerSize), buf); err != nil {
		return ringHeader{}, err
	}
	return unmarshalHeader(buf)
}

func writeHeader(f *os.File, h ringHeader) error {
	_, err := f.WriteAt(h.MarshalBinary(), 0)
	return err
}

// appendRing appends data to the ring described by h, writing through the
// wrap point as needed, and returns the updated header plus the real
// (monotonic) offset the data was written at.
func appendRing(f *os.File, h ringHeader, data []byte) (ringHeader, int64, error) {
	realOffset := h.Total
	if int64(len(data)) > h.MaxSize {
		// Only the tail that still fits in one lap matters; everything
		// before it would be immediately overwritten anyway. The dropped
		// bytes still count toward Total.
		dropped := int64(len(data)) - h.MaxSize
		data = data[dropped:]
		h.Total += dropped
	}

	remaining := data
	for len(remaining) > 0 {
		space := h.MaxSize - h.Head
		chunk := remaining
		if int64(len(chunk)) > space {
			chunk = chunk[:space]
		}
		if _, err := f.WriteAt(chunk, headerSize+h.Head); err != nil {
			return h, 0, fmt.Errorf("ptyfile: write payload: %w", err)
		}
		h.Head = (h.Head + int64(len(chunk))) % h.MaxSize
		h.Filled += int64(len(chunk))
		if h.Filled > h.MaxSize {
			h.Filled = h.MaxSize
		}
		h.Total += int64(len(chunk))
		remaining = remaining[len(chunk):]
	}

	if err := writeHeader(f, h); err != nil {
		return h, 0, err
	}
	return h, realOffset, nil
}

// readRing returns up to maxSize bytes starting at logical offset off
// (relative to the start of the currently-retained window, i.e. 0 is the
// oldest byte still in the ring) along with the real offset of the first
// byte returned.
func readRing(f *os.File, h ringHeader, off int64, maxSize int64) (int64, []byte, error) {
	if off < 0 || off > h.Filled {
		return 0, nil, fmt.Errorf("ptyfile: offset %d out of range [0,%d]", off, h.Filled)
	}
	avail := h.Filled - off
	if maxSize > 0 && avail > maxSize {
		avail = maxSize
	}
	if avail <= 0 {
		return h.Total - h.Filled + off, nil, nil
	}

	// The oldest retained byte lives at payload offset h.Head when the
	// buffer has wrapped (Filled == MaxSize), or at payload offset 0
	// otherwise (buffer has never wrapped, Head == Filled).
	var start int64
	if h.Filled == h.MaxSize {
		start = (h.Head + off) % h.MaxSize
	} else {
		start = off
	}

	out := make([]byte, avail)
	read := int64(0)
	for read < avail {
		chunkStart := (start + read) % h.MaxSize
		space := h.MaxSize - chunkStart
		want := avail - read
		if want > space {
			want = space
		}
		n, err := f.ReadAt(out[read:read+want], headerSize+chunkStart)
		read += int64(n)
		if err != nil && err != io.EOF {
			return 0, nil, fmt.Errorf("ptyfile: read payload: %w", err)
		}
		if n == 0 {
			break
		}
	}

	realOffset := h.Total - h.Filled + off
	return realOffset, out[:read], nil
}

package archive

import (
	"errors"
	"io"
	"slices"
	"unicode/utf8"

	perr "sift/internal/platform/errors"
	"sift/internal/platform/logger"
)

const (
	// DefaultChunkSize is the number of decompressed bytes requested per read (2^27)
	DefaultChunkSize = 1 << 27
	// DefaultMaxWindow bounds the bytes accumulated while repairing a split character (2^30)
	DefaultMaxWindow = 1 << 30

	minGrow = 32 << 10
)

// ErrDecodeWindowExceeded is returned when bytes cannot be decoded as UTF-8 within the window.
// Errors returned by the decoder wrap it, so errors.Is works on them
var ErrDecodeWindowExceeded = perr.New(perr.ErrorCodeDecodeWindow, "decode window exceeded")

// Decoder reads fixed-size chunks from r and returns them as valid UTF-8
// The returned slice is only valid until the next call to Next
type Decoder struct {
	r         io.Reader
	chunkSize int
	maxWindow int
	buf       []byte
	total     int64
}

// NewDecoder builds a Decoder; non-positive sizes fall back to the defaults
func NewDecoder(r io.Reader, chunkSize, maxWindow int) *Decoder {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if maxWindow <= 0 {
		maxWindow = DefaultMaxWindow
	}
	return &Decoder{r: r, chunkSize: chunkSize, maxWindow: maxWindow}
}

// DecodeNext reads one chunk (more when a character straddles the boundary) and returns it as text
func DecodeNext(r io.Reader, chunkSize, maxWindow int) ([]byte, error) {
	b, err := NewDecoder(r, chunkSize, maxWindow).Next()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// Next returns the next decoded chunk, or io.EOF once the stream is exhausted
func (d *Decoder) Next() ([]byte, error) {
	acc := d.buf[:0]
	for {
		var err error
		acc, err = d.fill(acc)
		d.buf = acc

		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return nil, err
		}
		if len(acc) == 0 && eof {
			return nil, io.EOF
		}

		if utf8.Valid(acc) {
			return acc, nil
		}
		if !incompleteTail(acc) {
			return nil, perr.Wrapf(ErrDecodeWindowExceeded, perr.ErrorCodeDecodeWindow,
				"invalid utf-8 after %d bytes", d.total)
		}
		if eof {
			return nil, perr.Wrapf(ErrDecodeWindowExceeded, perr.ErrorCodeDecodeWindow,
				"stream ended inside a multi-byte character after %d bytes", d.total)
		}
		if len(acc) > d.maxWindow {
			return nil, perr.Wrapf(ErrDecodeWindowExceeded, perr.ErrorCodeDecodeWindow,
				"unable to decode frame after reading %d bytes (window %d)", len(acc), d.maxWindow)
		}
		logger.Named("archive").Debug().Int("window_bytes", len(acc)).Msg("split character at chunk boundary, reading another chunk")
	}
}

// fill appends up to chunkSize bytes to acc, growing it as data arrives
// Returns io.EOF when the stream ended before the chunk was full
func (d *Decoder) fill(acc []byte) ([]byte, error) {
	want := len(acc) + d.chunkSize
	for len(acc) < want {
		if len(acc) == cap(acc) {
			acc = slices.Grow(acc, min(want-len(acc), max(len(acc), minGrow)))
		}
		n, err := d.r.Read(acc[len(acc):min(cap(acc), want)])
		acc = acc[:len(acc)+n]
		d.total += int64(n)
		if err != nil {
			return acc, err
		}
	}
	return acc, nil
}

// Total returns the number of decompressed bytes read so far
func (d *Decoder) Total() int64 { return d.total }

// incompleteTail reports whether b is valid UTF-8 except for a truncated character at the end
func incompleteTail(b []byte) bool {
	for k := 1; k < utf8.UTFMax && k <= len(b); k++ {
		i := len(b) - k
		if !utf8.RuneStart(b[i]) {
			continue
		}
		return !utf8.FullRune(b[i:]) && utf8.Valid(b[:i])
	}
	return false
}

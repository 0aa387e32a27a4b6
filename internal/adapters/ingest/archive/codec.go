package archive

import (
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"

	perr "sift/internal/platform/errors"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names a streaming decompression format
type Codec string

// Supported codecs
const (
	CodecPlain Codec = "plain"
	CodecZstd  Codec = "zstd"
	CodecGzip  Codec = "gzip"
	CodecLZ4   Codec = "lz4"
)

// zstdMaxWindow allows the long-window frames large dumps are compressed with (2^31)
const zstdMaxWindow = 1 << 31

// CodecFor picks a codec from the file extension
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return CodecZstd
	case ".gz", ".gzip":
		return CodecGzip
	case ".lz4":
		return CodecLZ4
	default:
		return CodecPlain
	}
}

// ParseCodec maps a configured name ("auto" or empty means by extension)
func ParseCodec(s string) (Codec, bool) {
	switch c := Codec(strings.ToLower(strings.TrimSpace(s))); c {
	case "", "auto":
		return "", true
	case CodecPlain, CodecZstd, CodecGzip, CodecLZ4:
		return c, true
	default:
		return "", false
	}
}

// Open wraps r in a decompression stream; closing it does not close r
func (c Codec) Open(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CodecZstd:
		dec, err := zstd.NewReader(r,
			zstd.WithDecoderMaxWindow(zstdMaxWindow),
			zstd.WithDecoderConcurrency(1),
		)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "zstd reader")
		}
		return dec.IOReadCloser(), nil
	case CodecGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "gzip reader")
		}
		return zr, nil
	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CodecPlain, "":
		return io.NopCloser(r), nil
	default:
		return nil, perr.InvalidArgf("unknown codec %q", string(c))
	}
}

// CountingReader counts bytes read from the underlying (compressed) reader
type CountingReader struct {
	r io.Reader
	n atomic.Int64
}

// NewCountingReader wraps r
func NewCountingReader(r io.Reader) *CountingReader { return &CountingReader{r: r} }

// Read implements io.Reader
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// Count returns the bytes read so far; safe for concurrent use
func (c *CountingReader) Count() int64 { return c.n.Load() }

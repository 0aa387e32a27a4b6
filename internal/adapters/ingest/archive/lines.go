package archive

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"os"

	perr "sift/internal/platform/errors"
	"sift/internal/platform/logger"
)

// Line is one complete, whitespace-trimmed line and the raw file position when it was yielded
type Line struct {
	Text     string
	Progress int64
}

// Option configures a LineReader
type Option func(*options)

type options struct {
	chunkSize int
	maxWindow int
	flushTail bool
	codec     Codec
}

// WithChunkSize sets the decompressed bytes requested per read
func WithChunkSize(n int) Option { return func(o *options) { o.chunkSize = n } }

// WithMaxWindow sets the decode window bound
func WithMaxWindow(n int) Option { return func(o *options) { o.maxWindow = n } }

// WithFlushTail emits the final unterminated fragment at end of stream when it is non-blank
func WithFlushTail(on bool) Option { return func(o *options) { o.flushTail = on } }

// WithCodec forces a codec instead of choosing one by extension (Open only)
func WithCodec(c Codec) Option { return func(o *options) { o.codec = c } }

// LineReader streams lines out of a decompressed byte stream
type LineReader struct {
	name    string
	size    int64
	dec     *Decoder
	counter *CountingReader
	closers []io.Closer

	buf       []byte // carry + current chunk
	pending   []byte // unconsumed part of buf
	flushTail bool

	err    error
	closed bool
	lines  int64
}

// NewLineReader reads lines from an already decompressed stream
// If r is an io.Closer it is closed by Close. Progress is the byte count read from r
func NewLineReader(r io.Reader, opts ...Option) *LineReader {
	o := applyOptions(opts)
	cr := NewCountingReader(r)
	rd := &LineReader{
		dec:       NewDecoder(cr, o.chunkSize, o.maxWindow),
		counter:   cr,
		flushTail: o.flushTail,
	}
	if c, ok := r.(io.Closer); ok {
		rd.closers = append(rd.closers, c)
	}
	return rd
}

// Open opens a compressed file and returns a LineReader over its lines
// The codec is chosen by extension unless WithCodec is given
func Open(path string, opts ...Option) (*LineReader, error) {
	o := applyOptions(opts)

	f, err := os.Open(path)
	if err != nil {
		return nil, perr.FileIO(err, "open", path)
	}
	var size int64
	if fi, err := f.Stat(); err == nil {
		size = fi.Size()
	}

	codec := o.codec
	if codec == "" {
		codec = CodecFor(path)
	}
	cr := NewCountingReader(f)
	stream, err := codec.Open(cr)
	if err != nil {
		return nil, abandon(perr.WithOp(err, "open "+path), f, path)
	}

	return &LineReader{
		name:      path,
		size:      size,
		dec:       NewDecoder(stream, o.chunkSize, o.maxWindow),
		counter:   cr,
		closers:   []io.Closer{stream, f},
		flushTail: o.flushTail,
	}, nil
}

// abandon closes c after a failed open; a close failure is joined, never swapped in
func abandon(err error, c io.Closer, path string) error {
	if cerr := c.Close(); cerr != nil {
		return errors.Join(err, perr.FileIO(cerr, "close", path))
	}
	return err
}

func applyOptions(opts []Option) options {
	o := options{chunkSize: DefaultChunkSize, maxWindow: DefaultMaxWindow}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Next returns the next line; io.EOF when the stream is exhausted
// Read and decode errors are returned unchanged and are sticky
func (rd *LineReader) Next() (Line, error) {
	for {
		if rd.err != nil {
			return Line{}, rd.err
		}
		if i := bytes.IndexByte(rd.pending, '\n'); i >= 0 {
			frag := rd.pending[:i]
			rd.pending = rd.pending[i+1:]
			rd.lines++
			return Line{Text: string(bytes.TrimSpace(frag)), Progress: rd.counter.Count()}, nil
		}

		chunk, err := rd.dec.Next()
		if errors.Is(err, io.EOF) {
			rd.err = io.EOF
			tail := bytes.TrimSpace(rd.pending)
			rd.pending = nil
			if rd.flushTail && len(tail) > 0 {
				rd.lines++
				return Line{Text: string(tail), Progress: rd.counter.Count()}, nil
			}
			if len(tail) > 0 {
				logger.Named("archive").Debug().
					Str("file", rd.name).
					Int("tail_bytes", len(tail)).
					Msg("dropping unterminated final fragment")
			}
			return Line{}, io.EOF
		}
		if err != nil {
			rd.err = err
			return Line{}, err
		}

		// carry is reattached as raw bytes ahead of the new chunk
		rd.buf = append(append(rd.buf[:0], rd.pending...), chunk...)
		rd.pending = rd.buf
	}
}

// All returns a range-over-func iterator over the remaining lines
// The reader is closed when iteration ends, including on early break
func (rd *LineReader) All() iter.Seq2[Line, error] {
	return func(yield func(Line, error) bool) {
		defer rd.Close()
		for {
			ln, err := rd.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ln, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the decompression stream and the file handle. Safe to call more than once
func (rd *LineReader) Close() error {
	if rd.closed {
		return nil
	}
	rd.closed = true
	if rd.err == nil {
		rd.err = errReaderClosed
	}
	var first error
	for _, c := range rd.closers {
		if err := c.Close(); err != nil && first == nil && !errors.Is(err, io.ErrClosedPipe) {
			first = err
		}
	}
	rd.buf, rd.pending = nil, nil
	logger.Named("archive").Debug().
		Str("file", rd.name).
		Int64("lines", rd.lines).
		Int64("read", rd.counter.Count()).
		Int64("decoded", rd.dec.Total()).
		Msg("line reader closed")
	if first != nil {
		return perr.FileIO(first, "close", rd.name)
	}
	return nil
}

var errReaderClosed = perr.New(perr.ErrorCodeFileIO, "line reader closed")

// Name returns the file path for readers built with Open
func (rd *LineReader) Name() string { return rd.name }

// Size returns the compressed file size, 0 when unknown
func (rd *LineReader) Size() int64 { return rd.size }


package archive

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	perr "sift/internal/platform/errors"
)

func TestDecodeNext_WholeChunk(t *testing.T) {
	got, err := DecodeNext(strings.NewReader("héllo\nwörld\n"), 1024, 4096)
	if err != nil {
		t.Fatalf("DecodeNext: %v", err)
	}
	if string(got) != "héllo\nwörld\n" {
		t.Fatalf("DecodeNext = %q", got)
	}
}

func TestDecodeNext_EmptyStreamIsEOF(t *testing.T) {
	if _, err := DecodeNext(strings.NewReader(""), 8, 8); !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

// "😀" is four bytes; with one-byte chunks it needs a window of at least three to reassemble
func TestDecodeNext_StraddlingCharacterWithinWindow(t *testing.T) {
	got, err := DecodeNext(strings.NewReader("😀"), 1, 3)
	if err != nil {
		t.Fatalf("DecodeNext within window: %v", err)
	}
	if string(got) != "😀" {
		t.Fatalf("DecodeNext = %q, want %q", got, "😀")
	}
}

func TestDecodeNext_StraddlingCharacterOutsideWindow(t *testing.T) {
	_, err := DecodeNext(strings.NewReader("😀"), 1, 2)
	if !errors.Is(err, ErrDecodeWindowExceeded) {
		t.Fatalf("err = %v, want ErrDecodeWindowExceeded", err)
	}
	if !perr.IsCode(err, perr.ErrorCodeDecodeWindow) {
		t.Fatalf("code = %v, want decode window", perr.CodeOf(err))
	}
}

func TestDecodeNext_InvalidMidBufferFailsFast(t *testing.T) {
	r := &countingSource{r: strings.NewReader("a\xffbcdefgh")}
	_, err := DecodeNext(r, 3, 1<<20)
	if !errors.Is(err, ErrDecodeWindowExceeded) {
		t.Fatalf("err = %v, want ErrDecodeWindowExceeded", err)
	}
	if r.reads != 1 {
		t.Fatalf("reads = %d, want 1 (no retry for a non-tail error)", r.reads)
	}
}

func TestDecodeNext_TruncatedCharacterAtEOF(t *testing.T) {
	_, err := DecodeNext(strings.NewReader("ab\xc3"), 8, 1<<20)
	if !errors.Is(err, ErrDecodeWindowExceeded) {
		t.Fatalf("err = %v, want ErrDecodeWindowExceeded", err)
	}
}

func TestDecodeNext_ReadErrorPropagates(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := DecodeNext(io.MultiReader(strings.NewReader("ab"), errReader{boom}), 8, 8)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestDecoder_SequenceAndTotal(t *testing.T) {
	src := "aé€😀z"
	d := NewDecoder(strings.NewReader(src), 2, 16)
	var out bytes.Buffer
	for {
		b, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out.Write(b)
	}
	if out.String() != src {
		t.Fatalf("reassembled %q, want %q", out.String(), src)
	}
	if d.Total() != int64(len(src)) {
		t.Fatalf("Total = %d, want %d", d.Total(), len(src))
	}
}

func TestNewDecoder_Defaults(t *testing.T) {
	d := NewDecoder(strings.NewReader(""), 0, -1)
	if d.chunkSize != DefaultChunkSize || d.maxWindow != DefaultMaxWindow {
		t.Fatalf("defaults = %d/%d", d.chunkSize, d.maxWindow)
	}
}

func TestIncompleteTail(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"ab\xc3", true},
		{"ab\xe2\x82", true},
		{"\xf0\x9f\x98", true},
		{"ab\xff", false},
		{"a\xffb\xc3", false},
		{"\x82\x82\x82", false},
		{"ab", false},
	}
	for _, c := range cases {
		if got := incompleteTail([]byte(c.in)); got != c.want {
			t.Fatalf("incompleteTail(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

type countingSource struct {
	r     io.Reader
	reads int
}

func (c *countingSource) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}

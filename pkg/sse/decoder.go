package sse

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrDecode indicates the stream carried a malformed UTF-8 sequence.
var ErrDecode = errors.New("decoding stream")

const readBufferSize = 32 * 1024

// Decoder turns raw stream reads into text, one decoded chunk per read.
// A multi-byte sequence split across two reads is held back and completed by
// the next read instead of being decoded twice as garbage.
type Decoder struct {
	r     io.Reader
	t     transform.Transformer
	raw   []byte
	carry []byte
	err   error
}

// NewDecoder returns a Decoder reading from r. In lenient mode malformed bytes
// become U+FFFD; in strict mode they surface as ErrDecode.
func NewDecoder(r io.Reader, strict bool) *Decoder {
	var t transform.Transformer = unicode.UTF8.NewDecoder()
	if strict {
		t = encoding.UTF8Validator
	}
	t.Reset()

	return &Decoder{
		r:   r,
		t:   t,
		raw: make([]byte, readBufferSize),
	}
}

// Next blocks for the next read and returns its decoded text. At the end of
// the stream it returns "", io.EOF. Read errors from the source are returned
// unchanged once any text decoded before them has been handed out.
func (d *Decoder) Next() (string, error) {
	for d.err == nil {
		n, err := d.r.Read(d.raw)
		if err != nil {
			d.err = err
		}
		atEOF := errors.Is(err, io.EOF)

		if n == 0 && !atEOF {
			continue
		}

		text, derr := d.decode(d.raw[:n], atEOF)
		if derr != nil {
			d.err = derr
		}
		if text != "" {
			return text, nil
		}
	}

	return "", d.err
}

func (d *Decoder) decode(p []byte, atEOF bool) (string, error) {
	src := make([]byte, 0, len(d.carry)+len(p))
	src = append(src, d.carry...)
	src = append(src, p...)
	d.carry = nil

	// U+FFFD is 3 bytes, so the worst case is every source byte replaced.
	dst := make([]byte, 3*len(src)+4)
	var out []byte

	for {
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]

		switch {
		case err == nil:
			return string(out), nil
		case errors.Is(err, transform.ErrShortSrc):
			d.carry = append([]byte(nil), src...)
			return string(out), nil
		case errors.Is(err, transform.ErrShortDst) && nDst+nSrc > 0:
			continue
		default:
			return string(out), fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}
}

// Package binary decodes the WebAssembly 1.0 binary module format into
// a *wasm.Module.
package binary

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/sile/nowasm/leb128"
	"github.com/sile/nowasm/wasm"
)

// reader is a thin wrapper around an io.Reader adding the primitive
// decodes the binary format is built from: LEB128 integers, raw byte
// runs, and length-prefixed UTF-8 names. Grounded on the teacher's
// binary/decoder.go reader helper.
type reader struct {
	r io.Reader
}

func (d *reader) byte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w", wasm.ErrUnexpectedEOF)
	}
	return buf[0], nil
}

func (d *reader) bytes(n uint32) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, fmt.Errorf("%w", wasm.ErrUnexpectedEOF)
	}
	return buf, nil
}

func (d *reader) u32() (uint32, error) {
	v, _, err := leb128.DecodeUint32(d.r)
	if err != nil {
		return 0, wrapLEB(err)
	}
	return v, nil
}

func (d *reader) u64() (uint64, error) {
	v, _, err := leb128.DecodeUint64(d.r)
	if err != nil {
		return 0, wrapLEB(err)
	}
	return v, nil
}

func (d *reader) i32() (int32, error) {
	v, _, err := leb128.DecodeInt32(d.r)
	if err != nil {
		return 0, wrapLEB(err)
	}
	return v, nil
}

func (d *reader) i64() (int64, error) {
	v, _, err := leb128.DecodeInt64(d.r)
	if err != nil {
		return 0, wrapLEB(err)
	}
	return v, nil
}

func wrapLEB(err error) error {
	if err == leb128.ErrOverflow {
		return fmt.Errorf("%w: %v", wasm.ErrMalformedLEB128, err)
	}
	return fmt.Errorf("%w", wasm.ErrUnexpectedEOF)
}

// name reads a length-prefixed, validated-UTF-8 string, as used for
// import/export names and the custom "name" section.
func (d *reader) name() (string, error) {
	n, err := d.u32()
	if err != nil {
		return "", err
	}
	b, err := d.bytes(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", wasm.ErrInvalidUTF8
	}
	return string(b), nil
}

// vec reads a LEB128 element count then calls decode that many times,
// mirroring every "vec(B)" production in the binary format grammar.
func vec[T any](d *reader, decode func(*reader) (T, error)) ([]T, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// sub returns a reader limited to exactly n bytes, so decoding a section
// body cannot read past its declared size. Bytes that the body's decoder
// leaves unread are not reported as an error.
func (d *reader) sub(n uint32) (*reader, error) {
	b, err := d.bytes(n)
	if err != nil {
		return nil, err
	}
	return &reader{r: bytes.NewReader(b)}, nil
}

// readAll drains whatever remains of d's underlying reader, used once a
// section's structured prefix has been decoded and only a trailing raw
// instruction stream remains (function code bodies).
func readAll(d *reader) ([]byte, error) {
	b, err := io.ReadAll(d.r)
	if err != nil {
		return nil, fmt.Errorf("%w", wasm.ErrUnexpectedEOF)
	}
	return b, nil
}

// Package leb128 decodes the variable-length integer encoding used
// throughout the WebAssembly binary format.
//
// See https://www.w3.org/TR/wasm-core-1/#integers%E2%91%A6
package leb128

import (
	"errors"
	"fmt"
	"io"
)

// ErrOverflow is returned when an encoded integer uses more groups than its
// declared bit width permits.
var ErrOverflow = errors.New("leb128: integer representation too long")

// DecodeUint32 decodes an unsigned LEB128-encoded u32 from r, returning the
// value and the number of bytes consumed.
func DecodeUint32(r io.Reader) (ret uint32, n uint64, err error) {
	const mask, mask2 = uint32(1) << 7, ^(uint32(1) << 7)
	for shift := 0; shift < 35; shift += 7 {
		b, err := readByte(r)
		if err != nil {
			return 0, 0, fmt.Errorf("read byte: %w", err)
		}
		n++
		if shift == 28 && b&0x70 != 0 {
			return 0, 0, ErrOverflow
		}
		ret |= (uint32(b) & mask2) << shift
		if uint32(b)&mask == 0 {
			return ret, n, nil
		}
	}
	return 0, 0, ErrOverflow
}

// DecodeUint64 decodes an unsigned LEB128-encoded u64 from r.
func DecodeUint64(r io.Reader) (ret uint64, n uint64, err error) {
	const mask, mask2 = uint64(1) << 7, ^(uint64(1) << 7)
	for shift := 0; shift < 70; shift += 7 {
		b, err := readByte(r)
		if err != nil {
			return 0, 0, fmt.Errorf("read byte: %w", err)
		}
		n++
		if shift == 63 && b&0xFE != 0 {
			return 0, 0, ErrOverflow
		}
		ret |= (uint64(b) & mask2) << shift
		if uint64(b)&mask == 0 {
			return ret, n, nil
		}
	}
	return 0, 0, ErrOverflow
}

// DecodeInt32 decodes a signed LEB128-encoded i32 from r, sign-extending the
// final group.
func DecodeInt32(r io.Reader) (ret int32, n uint64, err error) {
	const signBit = int32(1) << 6
	var shift int
	var b byte
	for shift < 35 {
		b, err = readByte(r)
		if err != nil {
			return 0, 0, fmt.Errorf("read byte: %w", err)
		}
		n++
		ret |= (int32(b) & 0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if b&0x80 != 0 {
		return 0, 0, ErrOverflow
	}
	if shift < 32 && b&byte(signBit) != 0 {
		ret |= ^int32(0) << shift
	}
	return ret, n, nil
}

// DecodeInt64 decodes a signed LEB128-encoded i64 from r, sign-extending the
// final group.
func DecodeInt64(r io.Reader) (ret int64, n uint64, err error) {
	const signBit = int64(1) << 6
	var shift int
	var b byte
	for shift < 70 {
		b, err = readByte(r)
		if err != nil {
			return 0, 0, fmt.Errorf("read byte: %w", err)
		}
		n++
		ret |= (int64(b) & 0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if b&0x80 != 0 {
		return 0, 0, ErrOverflow
	}
	if shift < 64 && b&byte(signBit) != 0 {
		ret |= ^int64(0) << shift
	}
	return ret, n, nil
}

func readByte(r io.Reader) (byte, error) {
	b := make([]byte, 1)
	_, err := io.ReadFull(r, b)
	return b[0], err
}

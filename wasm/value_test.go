package wasm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVal_I32RoundTrip(t *testing.T) {
	v := ValI32(-7)
	require.Equal(t, ValueTypeI32, v.Type())
	require.Equal(t, int32(-7), v.I32())
}

func TestVal_I64RoundTrip(t *testing.T) {
	v := ValI64(-123456789012)
	require.Equal(t, ValueTypeI64, v.Type())
	require.Equal(t, int64(-123456789012), v.I64())
}

func TestVal_F32RoundTrip(t *testing.T) {
	v := ValF32(3.5)
	require.Equal(t, ValueTypeF32, v.Type())
	require.Equal(t, float32(3.5), v.F32())
}

func TestVal_F64RoundTrip(t *testing.T) {
	v := ValF64(-2.25)
	require.Equal(t, ValueTypeF64, v.Type())
	require.Equal(t, -2.25, v.F64())
}

// Bit-reinterpretation is the identity on all u32/u64 patterns, including
// NaN payloads, since reinterpret ops never inspect the value, only relabel it.
func TestVal_BitsRoundTripIsIdentity(t *testing.T) {
	patterns := []uint32{0, 1, 0x7fc00000, 0xffffffff, 0x80000000}
	for _, p := range patterns {
		v := ValFromBits(ValueTypeF32, uint64(p))
		require.Equal(t, uint64(p), v.Bits())
	}
}

func TestVal_NaNBitsPreserved(t *testing.T) {
	nan := math.Float32bits(float32(math.NaN()))
	v := ValFromBits(ValueTypeF32, uint64(nan))
	require.True(t, math.IsNaN(float64(v.F32())))
	require.Equal(t, nan, math.Float32bits(v.F32()))
}

func TestVal_MismatchedAccessorPanics(t *testing.T) {
	v := ValI32(1)
	require.Panics(t, func() { v.I64() })
	require.Panics(t, func() { v.F32() })
	require.Panics(t, func() { v.F64() })
}

func TestValueType_String(t *testing.T) {
	require.Equal(t, "i32", ValueTypeI32.String())
	require.Equal(t, "i64", ValueTypeI64.String())
	require.Equal(t, "f32", ValueTypeF32.String())
	require.Equal(t, "f64", ValueTypeF64.String())
	require.Equal(t, "unknown", ValueType(0xff).String())
}

func TestFunctionType_Equal(t *testing.T) {
	a := FunctionType{Params: []ValueType{ValueTypeI32}, Results: []ValueType{ValueTypeI32}}
	b := FunctionType{Params: []ValueType{ValueTypeI32}, Results: []ValueType{ValueTypeI32}}
	c := FunctionType{Params: []ValueType{ValueTypeI64}, Results: []ValueType{ValueTypeI32}}
	require.True(t, a.Equal(&b))
	require.False(t, a.Equal(&c))
}

package wasm

import (
	"fmt"
	"math"
)

// Val is a tagged WebAssembly value: one of i32, i64, f32 or f64.
//
// The interpreter's operand stack stores raw uint64 bits (the teacher's
// naiveVirtualMachine does the same, since every wasm value round-trips
// through 64 bits); Val exists at the module boundary so callers of
// Invoke never have to know about that representation.
type Val struct {
	typ ValueType
	bits uint64
}

// ValI32 constructs an i32 value.
func ValI32(v int32) Val { return Val{typ: ValueTypeI32, bits: uint64(uint32(v))} }

// ValI64 constructs an i64 value.
func ValI64(v int64) Val { return Val{typ: ValueTypeI64, bits: uint64(v)} }

// ValF32 constructs an f32 value.
func ValF32(v float32) Val { return Val{typ: ValueTypeF32, bits: uint64(math.Float32bits(v))} }

// ValF64 constructs an f64 value.
func ValF64(v float64) Val { return Val{typ: ValueTypeF64, bits: math.Float64bits(v)} }

// Type reports which of the four value types v holds.
func (v Val) Type() ValueType { return v.typ }

// I32 returns v's bits reinterpreted as int32. Panics if Type() != ValueTypeI32.
func (v Val) I32() int32 {
	v.mustBe(ValueTypeI32)
	return int32(uint32(v.bits))
}

// I64 returns v's bits reinterpreted as int64. Panics if Type() != ValueTypeI64.
func (v Val) I64() int64 {
	v.mustBe(ValueTypeI64)
	return int64(v.bits)
}

// F32 returns v's bits reinterpreted as float32. Panics if Type() != ValueTypeF32.
func (v Val) F32() float32 {
	v.mustBe(ValueTypeF32)
	return math.Float32frombits(uint32(v.bits))
}

// F64 returns v's bits reinterpreted as float64. Panics if Type() != ValueTypeF64.
func (v Val) F64() float64 {
	v.mustBe(ValueTypeF64)
	return math.Float64frombits(v.bits)
}

func (v Val) mustBe(want ValueType) {
	if v.typ != want {
		panic(fmt.Sprintf("wasm: Val holds %s, not %s", v.typ, want))
	}
}

// Bits returns v's raw 64-bit representation, as used on the operand stack.
func (v Val) Bits() uint64 { return v.bits }

// ValFromBits wraps raw stack bits back into a typed Val.
func ValFromBits(t ValueType, bits uint64) Val { return Val{typ: t, bits: bits} }

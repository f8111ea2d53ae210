package interp

import (
	"math"

	"github.com/sile/nowasm/wasm"
)

func i32WrapI64(vm *VM) { unop64To32(vm, func(a uint64) uint32 { return uint32(a) }) }

func unop64To32(vm *VM, f func(uint64) uint32) {
	vm.operands.push(uint64(f(vm.operands.pop())))
	vm.activeFrame.pc++
}

func unop32To64(vm *VM, f func(uint32) uint64) {
	vm.operands.push(f(uint32(vm.operands.pop())))
	vm.activeFrame.pc++
}

// truncToInt implements the shared bounds check for all trunc_f32/f64
// instructions: trap on NaN and on a source value outside the
// destination integer's representable range. It truncates z toward zero
// before comparing against lo/hi, not after, so a value like -0.9 (whose
// truncation 0 is in an unsigned destination's range) isn't rejected by
// comparing the untruncated -0.9 against a lower bound of 0, while a
// value like exactly -1.0 (which truncates to itself, out of an unsigned
// range) is. Grounded on the teacher's vm_num.go truncation handlers
// (e.g. i32truncf32u), which compare math.Trunc(z) rather than z itself
// for the same reason.
func truncToInt(z float64, lo, hi float64) int64 {
	if math.IsNaN(z) {
		throw(wasm.ErrInvalidConversionToInt)
	}
	t := math.Trunc(z)
	if t < lo || t >= hi {
		throw(wasm.ErrIntegerOverflow)
	}
	return int64(t)
}

func i32TruncF32S(vm *VM) {
	z := float64(wasm.ValFromBits(wasm.ValueTypeF32, vm.operands.pop()).F32())
	vm.operands.push(uint64(uint32(truncToInt(z, -2147483648, 2147483648))))
	vm.activeFrame.pc++
}

func i32TruncF32U(vm *VM) {
	z := float64(wasm.ValFromBits(wasm.ValueTypeF32, vm.operands.pop()).F32())
	vm.operands.push(uint64(uint32(truncToInt(z, 0, 4294967296))))
	vm.activeFrame.pc++
}

func i32TruncF64S(vm *VM) {
	z := wasm.ValFromBits(wasm.ValueTypeF64, vm.operands.pop()).F64()
	vm.operands.push(uint64(uint32(truncToInt(z, -2147483648, 2147483648))))
	vm.activeFrame.pc++
}

func i32TruncF64U(vm *VM) {
	z := wasm.ValFromBits(wasm.ValueTypeF64, vm.operands.pop()).F64()
	vm.operands.push(uint64(uint32(truncToInt(z, 0, 4294967296))))
	vm.activeFrame.pc++
}

func i64ExtendI32S(vm *VM) {
	unop32To64(vm, func(a uint32) uint64 { return uint64(int64(int32(a))) })
}

func i64ExtendI32U(vm *VM) {
	unop32To64(vm, func(a uint32) uint64 { return uint64(a) })
}

func i64TruncF32S(vm *VM) {
	z := float64(wasm.ValFromBits(wasm.ValueTypeF32, vm.operands.pop()).F32())
	vm.operands.push(uint64(truncToInt(z, -9223372036854775808, 9223372036854775808)))
	vm.activeFrame.pc++
}

// i64TruncF32U/i64TruncF64U can't route through truncToInt: its int64
// return value would itself overflow for unsigned results near 2^64, so
// the truncate-then-compare-then-cast-to-uint64 steps are inlined here.
func i64TruncF32U(vm *VM) {
	z := float64(wasm.ValFromBits(wasm.ValueTypeF32, vm.operands.pop()).F32())
	if math.IsNaN(z) {
		throw(wasm.ErrInvalidConversionToInt)
	}
	t := math.Trunc(z)
	if t < 0 || t >= 18446744073709551616 {
		throw(wasm.ErrIntegerOverflow)
	}
	vm.operands.push(uint64(t))
	vm.activeFrame.pc++
}

func i64TruncF64S(vm *VM) {
	z := wasm.ValFromBits(wasm.ValueTypeF64, vm.operands.pop()).F64()
	vm.operands.push(uint64(truncToInt(z, -9223372036854775808, 9223372036854775808)))
	vm.activeFrame.pc++
}

func i64TruncF64U(vm *VM) {
	z := wasm.ValFromBits(wasm.ValueTypeF64, vm.operands.pop()).F64()
	if math.IsNaN(z) {
		throw(wasm.ErrInvalidConversionToInt)
	}
	t := math.Trunc(z)
	if t < 0 || t >= 18446744073709551616 {
		throw(wasm.ErrIntegerOverflow)
	}
	vm.operands.push(uint64(t))
	vm.activeFrame.pc++
}

func f32ConvertI32S(vm *VM) {
	v := int32(uint32(vm.operands.pop()))
	vm.operands.push(wasm.ValF32(float32(v)).Bits())
	vm.activeFrame.pc++
}

func f32ConvertI32U(vm *VM) {
	v := uint32(vm.operands.pop())
	vm.operands.push(wasm.ValF32(float32(v)).Bits())
	vm.activeFrame.pc++
}

func f32ConvertI64S(vm *VM) {
	v := int64(vm.operands.pop())
	vm.operands.push(wasm.ValF32(float32(v)).Bits())
	vm.activeFrame.pc++
}

func f32ConvertI64U(vm *VM) {
	v := vm.operands.pop()
	vm.operands.push(wasm.ValF32(float32(v)).Bits())
	vm.activeFrame.pc++
}

func f32DemoteF64(vm *VM) {
	v := wasm.ValFromBits(wasm.ValueTypeF64, vm.operands.pop()).F64()
	vm.operands.push(wasm.ValF32(float32(v)).Bits())
	vm.activeFrame.pc++
}

func f64ConvertI32S(vm *VM) {
	v := int32(uint32(vm.operands.pop()))
	vm.operands.push(wasm.ValF64(float64(v)).Bits())
	vm.activeFrame.pc++
}

func f64ConvertI32U(vm *VM) {
	v := uint32(vm.operands.pop())
	vm.operands.push(wasm.ValF64(float64(v)).Bits())
	vm.activeFrame.pc++
}

func f64ConvertI64S(vm *VM) {
	v := int64(vm.operands.pop())
	vm.operands.push(wasm.ValF64(float64(v)).Bits())
	vm.activeFrame.pc++
}

func f64ConvertI64U(vm *VM) {
	v := vm.operands.pop()
	vm.operands.push(wasm.ValF64(float64(v)).Bits())
	vm.activeFrame.pc++
}

func f64PromoteF32(vm *VM) {
	v := wasm.ValFromBits(wasm.ValueTypeF32, vm.operands.pop()).F32()
	vm.operands.push(wasm.ValF64(float64(v)).Bits())
	vm.activeFrame.pc++
}

// Reinterpretations: the stack already stores raw bits, so these are
// pure pass-throughs; grounded on the teacher's vm.go dispatch table,
// which likewise treats all four as a no-op beyond advancing pc.
func i32ReinterpretF32(vm *VM) { vm.activeFrame.pc++ }
func i64ReinterpretF64(vm *VM) { vm.activeFrame.pc++ }
func f32ReinterpretI32(vm *VM) { vm.activeFrame.pc++ }
func f64ReinterpretI64(vm *VM) { vm.activeFrame.pc++ }

// Sign-extension proposal.

func i32Extend8S(vm *VM)  { unop32(vm, func(a uint32) uint32 { return uint32(int32(int8(a))) }) }
func i32Extend16S(vm *VM) { unop32(vm, func(a uint32) uint32 { return uint32(int32(int16(a))) }) }
func i64Extend8S(vm *VM)  { unop64(vm, func(a uint64) uint64 { return uint64(int64(int8(a))) }) }
func i64Extend16S(vm *VM) { unop64(vm, func(a uint64) uint64 { return uint64(int64(int16(a))) }) }
func i64Extend32S(vm *VM) { unop64(vm, func(a uint64) uint64 { return uint64(int64(int32(a))) }) }

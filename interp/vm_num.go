package interp

import (
	"math"
	"math/bits"

	"github.com/sile/nowasm/wasm"
)

func unop32(vm *VM, f func(uint32) uint32) {
	vm.operands.push(uint64(f(uint32(vm.operands.pop()))))
	vm.activeFrame.pc++
}

func unop64(vm *VM, f func(uint64) uint64) {
	vm.operands.push(f(vm.operands.pop()))
	vm.activeFrame.pc++
}

func binop32(vm *VM, f func(a, b uint32) uint32) {
	b := uint32(vm.operands.pop())
	a := uint32(vm.operands.pop())
	vm.operands.push(uint64(f(a, b)))
	vm.activeFrame.pc++
}

func binop64(vm *VM, f func(a, b uint64) uint64) {
	b := vm.operands.pop()
	a := vm.operands.pop()
	vm.operands.push(f(a, b))
	vm.activeFrame.pc++
}

func cmp32(vm *VM, f func(a, b uint32) bool) {
	b := uint32(vm.operands.pop())
	a := uint32(vm.operands.pop())
	vm.operands.pushBool(f(a, b))
	vm.activeFrame.pc++
}

func cmp64(vm *VM, f func(a, b uint64) bool) {
	b := vm.operands.pop()
	a := vm.operands.pop()
	vm.operands.pushBool(f(a, b))
	vm.activeFrame.pc++
}

func fbinop32(vm *VM, f func(a, b float32) float32) {
	b := wasm.ValFromBits(wasm.ValueTypeF32, vm.operands.pop()).F32()
	a := wasm.ValFromBits(wasm.ValueTypeF32, vm.operands.pop()).F32()
	vm.operands.push(wasm.ValF32(f(a, b)).Bits())
	vm.activeFrame.pc++
}

func fbinop64(vm *VM, f func(a, b float64) float64) {
	b := wasm.ValFromBits(wasm.ValueTypeF64, vm.operands.pop()).F64()
	a := wasm.ValFromBits(wasm.ValueTypeF64, vm.operands.pop()).F64()
	vm.operands.push(wasm.ValF64(f(a, b)).Bits())
	vm.activeFrame.pc++
}

func funop32(vm *VM, f func(float32) float32) {
	v := wasm.ValFromBits(wasm.ValueTypeF32, vm.operands.pop()).F32()
	vm.operands.push(wasm.ValF32(f(v)).Bits())
	vm.activeFrame.pc++
}

func funop64(vm *VM, f func(float64) float64) {
	v := wasm.ValFromBits(wasm.ValueTypeF64, vm.operands.pop()).F64()
	vm.operands.push(wasm.ValF64(f(v)).Bits())
	vm.activeFrame.pc++
}

func fcmp32(vm *VM, f func(a, b float32) bool) {
	b := wasm.ValFromBits(wasm.ValueTypeF32, vm.operands.pop()).F32()
	a := wasm.ValFromBits(wasm.ValueTypeF32, vm.operands.pop()).F32()
	vm.operands.pushBool(f(a, b))
	vm.activeFrame.pc++
}

func fcmp64(vm *VM, f func(a, b float64) bool) {
	b := wasm.ValFromBits(wasm.ValueTypeF64, vm.operands.pop()).F64()
	a := wasm.ValFromBits(wasm.ValueTypeF64, vm.operands.pop()).F64()
	vm.operands.pushBool(f(a, b))
	vm.activeFrame.pc++
}

// i32 comparisons

func i32Eqz(vm *VM) { unop32(vm, func(a uint32) uint32 { return b2u(a == 0) }) }
func i32Eq(vm *VM)  { cmp32(vm, func(a, b uint32) bool { return a == b }) }
func i32Ne(vm *VM)  { cmp32(vm, func(a, b uint32) bool { return a != b }) }
func i32LtS(vm *VM) { cmp32(vm, func(a, b uint32) bool { return int32(a) < int32(b) }) }
func i32LtU(vm *VM) { cmp32(vm, func(a, b uint32) bool { return a < b }) }
func i32GtS(vm *VM) { cmp32(vm, func(a, b uint32) bool { return int32(a) > int32(b) }) }
func i32GtU(vm *VM) { cmp32(vm, func(a, b uint32) bool { return a > b }) }
func i32LeS(vm *VM) { cmp32(vm, func(a, b uint32) bool { return int32(a) <= int32(b) }) }
func i32LeU(vm *VM) { cmp32(vm, func(a, b uint32) bool { return a <= b }) }
func i32GeS(vm *VM) { cmp32(vm, func(a, b uint32) bool { return int32(a) >= int32(b) }) }
func i32GeU(vm *VM) { cmp32(vm, func(a, b uint32) bool { return a >= b }) }

// i64 comparisons

func i64Eqz(vm *VM) { unop64(vm, func(a uint64) uint64 { return b2u64(a == 0) }) }
func i64Eq(vm *VM)  { cmp64(vm, func(a, b uint64) bool { return a == b }) }
func i64Ne(vm *VM)  { cmp64(vm, func(a, b uint64) bool { return a != b }) }
func i64LtS(vm *VM) { cmp64(vm, func(a, b uint64) bool { return int64(a) < int64(b) }) }
func i64LtU(vm *VM) { cmp64(vm, func(a, b uint64) bool { return a < b }) }
func i64GtS(vm *VM) { cmp64(vm, func(a, b uint64) bool { return int64(a) > int64(b) }) }
func i64GtU(vm *VM) { cmp64(vm, func(a, b uint64) bool { return a > b }) }
func i64LeS(vm *VM) { cmp64(vm, func(a, b uint64) bool { return int64(a) <= int64(b) }) }
func i64LeU(vm *VM) { cmp64(vm, func(a, b uint64) bool { return a <= b }) }
func i64GeS(vm *VM) { cmp64(vm, func(a, b uint64) bool { return int64(a) >= int64(b) }) }
func i64GeU(vm *VM) { cmp64(vm, func(a, b uint64) bool { return a >= b }) }

// f32/f64 comparisons

func f32Eq(vm *VM) { fcmp32(vm, func(a, b float32) bool { return a == b }) }
func f32Ne(vm *VM) { fcmp32(vm, func(a, b float32) bool { return a != b }) }
func f32Lt(vm *VM) { fcmp32(vm, func(a, b float32) bool { return a < b }) }
func f32Gt(vm *VM) { fcmp32(vm, func(a, b float32) bool { return a > b }) }
func f32Le(vm *VM) { fcmp32(vm, func(a, b float32) bool { return a <= b }) }
func f32Ge(vm *VM) { fcmp32(vm, func(a, b float32) bool { return a >= b }) }
func f64Eq(vm *VM) { fcmp64(vm, func(a, b float64) bool { return a == b }) }
func f64Ne(vm *VM) { fcmp64(vm, func(a, b float64) bool { return a != b }) }
func f64Lt(vm *VM) { fcmp64(vm, func(a, b float64) bool { return a < b }) }
func f64Gt(vm *VM) { fcmp64(vm, func(a, b float64) bool { return a > b }) }
func f64Le(vm *VM) { fcmp64(vm, func(a, b float64) bool { return a <= b }) }
func f64Ge(vm *VM) { fcmp64(vm, func(a, b float64) bool { return a >= b }) }

// i32 arithmetic

func i32Clz(vm *VM)    { unop32(vm, func(a uint32) uint32 { return uint32(bits.LeadingZeros32(a)) }) }
func i32Ctz(vm *VM)    { unop32(vm, func(a uint32) uint32 { return uint32(bits.TrailingZeros32(a)) }) }
func i32Popcnt(vm *VM) { unop32(vm, func(a uint32) uint32 { return uint32(bits.OnesCount32(a)) }) }
func i32Add(vm *VM)    { binop32(vm, func(a, b uint32) uint32 { return a + b }) }
func i32Sub(vm *VM)    { binop32(vm, func(a, b uint32) uint32 { return a - b }) }
func i32Mul(vm *VM)    { binop32(vm, func(a, b uint32) uint32 { return a * b }) }

func i32DivS(vm *VM) {
	binop32(vm, func(a, b uint32) uint32 {
		sa, sb := int32(a), int32(b)
		if sb == 0 {
			throw(wasm.ErrIntegerDivideByZero)
		}
		if sa == math.MinInt32 && sb == -1 {
			throw(wasm.ErrIntegerOverflow)
		}
		return uint32(sa / sb)
	})
}

func i32DivU(vm *VM) {
	binop32(vm, func(a, b uint32) uint32 {
		if b == 0 {
			throw(wasm.ErrIntegerDivideByZero)
		}
		return a / b
	})
}

func i32RemS(vm *VM) {
	binop32(vm, func(a, b uint32) uint32 {
		sa, sb := int32(a), int32(b)
		if sb == 0 {
			throw(wasm.ErrIntegerDivideByZero)
		}
		if sa == math.MinInt32 && sb == -1 {
			return 0
		}
		return uint32(sa % sb)
	})
}

func i32RemU(vm *VM) {
	binop32(vm, func(a, b uint32) uint32 {
		if b == 0 {
			throw(wasm.ErrIntegerDivideByZero)
		}
		return a % b
	})
}

func i32And(vm *VM)  { binop32(vm, func(a, b uint32) uint32 { return a & b }) }
func i32Or(vm *VM)   { binop32(vm, func(a, b uint32) uint32 { return a | b }) }
func i32Xor(vm *VM)  { binop32(vm, func(a, b uint32) uint32 { return a ^ b }) }
func i32Shl(vm *VM)  { binop32(vm, func(a, b uint32) uint32 { return a << (b % 32) }) }
func i32ShrS(vm *VM) { binop32(vm, func(a, b uint32) uint32 { return uint32(int32(a) >> (b % 32)) }) }
func i32ShrU(vm *VM) { binop32(vm, func(a, b uint32) uint32 { return a >> (b % 32) }) }
func i32Rotl(vm *VM) { binop32(vm, func(a, b uint32) uint32 { return bits.RotateLeft32(a, int(b%32)) }) }
func i32Rotr(vm *VM) { binop32(vm, func(a, b uint32) uint32 { return bits.RotateLeft32(a, -int(b%32)) }) }

// i64 arithmetic

func i64Clz(vm *VM)    { unop64(vm, func(a uint64) uint64 { return uint64(bits.LeadingZeros64(a)) }) }
func i64Ctz(vm *VM)    { unop64(vm, func(a uint64) uint64 { return uint64(bits.TrailingZeros64(a)) }) }
func i64Popcnt(vm *VM) { unop64(vm, func(a uint64) uint64 { return uint64(bits.OnesCount64(a)) }) }
func i64Add(vm *VM)    { binop64(vm, func(a, b uint64) uint64 { return a + b }) }
func i64Sub(vm *VM)    { binop64(vm, func(a, b uint64) uint64 { return a - b }) }
func i64Mul(vm *VM)    { binop64(vm, func(a, b uint64) uint64 { return a * b }) }

func i64DivS(vm *VM) {
	binop64(vm, func(a, b uint64) uint64 {
		sa, sb := int64(a), int64(b)
		if sb == 0 {
			throw(wasm.ErrIntegerDivideByZero)
		}
		if sa == math.MinInt64 && sb == -1 {
			throw(wasm.ErrIntegerOverflow)
		}
		return uint64(sa / sb)
	})
}

func i64DivU(vm *VM) {
	binop64(vm, func(a, b uint64) uint64 {
		if b == 0 {
			throw(wasm.ErrIntegerDivideByZero)
		}
		return a / b
	})
}

func i64RemS(vm *VM) {
	binop64(vm, func(a, b uint64) uint64 {
		sa, sb := int64(a), int64(b)
		if sb == 0 {
			throw(wasm.ErrIntegerDivideByZero)
		}
		if sa == math.MinInt64 && sb == -1 {
			return 0
		}
		return uint64(sa % sb)
	})
}

func i64RemU(vm *VM) {
	binop64(vm, func(a, b uint64) uint64 {
		if b == 0 {
			throw(wasm.ErrIntegerDivideByZero)
		}
		return a % b
	})
}

func i64And(vm *VM)  { binop64(vm, func(a, b uint64) uint64 { return a & b }) }
func i64Or(vm *VM)   { binop64(vm, func(a, b uint64) uint64 { return a | b }) }
func i64Xor(vm *VM)  { binop64(vm, func(a, b uint64) uint64 { return a ^ b }) }
func i64Shl(vm *VM)  { binop64(vm, func(a, b uint64) uint64 { return a << (b % 64) }) }
func i64ShrS(vm *VM) { binop64(vm, func(a, b uint64) uint64 { return uint64(int64(a) >> (b % 64)) }) }
func i64ShrU(vm *VM) { binop64(vm, func(a, b uint64) uint64 { return a >> (b % 64) }) }
func i64Rotl(vm *VM) { binop64(vm, func(a, b uint64) uint64 { return bits.RotateLeft64(a, int(b%64)) }) }
func i64Rotr(vm *VM) { binop64(vm, func(a, b uint64) uint64 { return bits.RotateLeft64(a, -int(b%64)) }) }

// f32 arithmetic

func f32Abs(vm *VM)   { funop32(vm, func(a float32) float32 { return float32(math.Abs(float64(a))) }) }
func f32Neg(vm *VM)   { funop32(vm, func(a float32) float32 { return -a }) }
func f32Ceil(vm *VM)  { funop32(vm, func(a float32) float32 { return float32(math.Ceil(float64(a))) }) }
func f32Floor(vm *VM) { funop32(vm, func(a float32) float32 { return float32(math.Floor(float64(a))) }) }
func f32Trunc(vm *VM) { funop32(vm, func(a float32) float32 { return float32(math.Trunc(float64(a))) }) }
func f32Nearest(vm *VM) {
	funop32(vm, func(a float32) float32 { return float32(math.RoundToEven(float64(a))) })
}
func f32Sqrt(vm *VM)     { funop32(vm, func(a float32) float32 { return float32(math.Sqrt(float64(a))) }) }
func f32Add(vm *VM)      { fbinop32(vm, func(a, b float32) float32 { return a + b }) }
func f32Sub(vm *VM)      { fbinop32(vm, func(a, b float32) float32 { return a - b }) }
func f32Mul(vm *VM)      { fbinop32(vm, func(a, b float32) float32 { return a * b }) }
func f32Div(vm *VM)      { fbinop32(vm, func(a, b float32) float32 { return a / b }) }
func f32Min(vm *VM)      { fbinop32(vm, fminFloat32) }
func f32Max(vm *VM)      { fbinop32(vm, fmaxFloat32) }
func f32Copysign(vm *VM) { fbinop32(vm, func(a, b float32) float32 { return float32(math.Copysign(float64(a), float64(b))) }) }

// f64 arithmetic

func f64Abs(vm *VM)     { funop64(vm, math.Abs) }
func f64Neg(vm *VM)     { funop64(vm, func(a float64) float64 { return -a }) }
func f64Ceil(vm *VM)    { funop64(vm, math.Ceil) }
func f64Floor(vm *VM)   { funop64(vm, math.Floor) }
func f64Trunc(vm *VM)   { funop64(vm, math.Trunc) }
func f64Nearest(vm *VM) { funop64(vm, math.RoundToEven) }
func f64Sqrt(vm *VM)    { funop64(vm, math.Sqrt) }
func f64Add(vm *VM)     { fbinop64(vm, func(a, b float64) float64 { return a + b }) }
func f64Sub(vm *VM)     { fbinop64(vm, func(a, b float64) float64 { return a - b }) }
func f64Mul(vm *VM)     { fbinop64(vm, func(a, b float64) float64 { return a * b }) }
func f64Div(vm *VM)     { fbinop64(vm, func(a, b float64) float64 { return a / b }) }
func f64Min(vm *VM)      { fbinop64(vm, fminFloat64) }
func f64Max(vm *VM)      { fbinop64(vm, fmaxFloat64) }
func f64Copysign(vm *VM) { fbinop64(vm, math.Copysign) }

func fminFloat32(a, b float32) float32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return float32(math.NaN())
	}
	if a == 0 && b == 0 {
		if math.Signbit(float64(a)) {
			return a
		}
		return b
	}
	if a < b {
		return a
	}
	return b
}

func fmaxFloat32(a, b float32) float32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return float32(math.NaN())
	}
	if a == 0 && b == 0 {
		if math.Signbit(float64(a)) {
			return b
		}
		return a
	}
	if a > b {
		return a
	}
	return b
}

func fminFloat64(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return a
		}
		return b
	}
	return math.Min(a, b)
}

func fmaxFloat64(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return b
		}
		return a
	}
	return math.Max(a, b)
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func b2u64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

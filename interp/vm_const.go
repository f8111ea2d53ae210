package interp

import "github.com/sile/nowasm/wasm"

func i32Const(vm *VM) {
	f := vm.activeFrame
	f.pc++
	v := vm.fetchInt32()
	vm.operands.push(uint64(uint32(v)))
}

func i64Const(vm *VM) {
	f := vm.activeFrame
	f.pc++
	v := vm.fetchInt64()
	vm.operands.push(uint64(v))
}

func f32Const(vm *VM) {
	f := vm.activeFrame
	f.pc++
	v := vm.fetchFloat32()
	vm.operands.push(wasm.ValF32(v).Bits())
}

func f64Const(vm *VM) {
	f := vm.activeFrame
	f.pc++
	v := vm.fetchFloat64()
	vm.operands.push(wasm.ValF64(v).Bits())
}

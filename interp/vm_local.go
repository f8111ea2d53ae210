package interp

import "github.com/sile/nowasm/wasm"

func getLocal(vm *VM) {
	f := vm.activeFrame
	f.pc++
	idx := vm.fetchUint32()
	vm.operands.push(f.locals[idx])
}

func setLocal(vm *VM) {
	f := vm.activeFrame
	f.pc++
	idx := vm.fetchUint32()
	f.locals[idx] = vm.operands.pop()
}

func teeLocal(vm *VM) {
	f := vm.activeFrame
	f.pc++
	idx := vm.fetchUint32()
	f.locals[idx] = vm.operands.peek()
}

func getGlobal(vm *VM) {
	f := vm.activeFrame
	f.pc++
	idx := vm.fetchUint32()
	vm.operands.push(vm.inst.Globals[idx].Val.Bits())
}

func setGlobal(vm *VM) {
	f := vm.activeFrame
	f.pc++
	idx := vm.fetchUint32()
	g := vm.inst.Globals[idx]
	if !g.Mutable {
		throw(wasm.ErrImmutableGlobal)
	}
	g.Val = wasm.ValFromBits(g.Val.Type(), vm.operands.pop())
}

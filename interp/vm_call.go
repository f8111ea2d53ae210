package interp

import "github.com/sile/nowasm/wasm"

func call(vm *VM) {
	f := vm.activeFrame
	f.pc++
	idx := vm.fetchUint32()
	target := vm.inst.Funcs[idx]
	invokeFromBody(vm, target)
}

func callIndirect(vm *VM) {
	f := vm.activeFrame
	f.pc++
	typeIdx := vm.fetchUint32()
	f.pc++ // skip the reserved table-index byte (always 0x00 in 1.0).

	if len(vm.inst.Tables) == 0 {
		throw(wasm.ErrUndefinedTableElement)
	}
	table := vm.inst.Tables[0]
	elemIdx := vm.operands.pop()
	if elemIdx >= uint64(len(table.Elems)) {
		throw(wasm.ErrUndefinedTableElement)
	}
	target := table.Elems[elemIdx]
	if target == nil {
		throw(wasm.ErrUninitializedTableElement)
	}
	wantType := vm.inst.Module.Types[typeIdx]
	if !wantType.Equal(&target.Type) {
		throw(wasm.ErrIndirectCallTypeMismatch)
	}
	invokeFromBody(vm, target)
}

// invokeFromBody performs a call while already inside the interpreter's
// exec loop: host functions run to completion immediately (they cannot
// themselves trap via the label/frame machinery), module functions push
// a new frame and let the shared dispatch loop drive them, exactly the
// way the active exec loop drives the outer function.
func invokeFromBody(vm *VM, target *wasm.FunctionInstance) {
	if target.IsHost() {
		n := len(target.Type.Params)
		args := make([]uint64, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = vm.operands.pop()
		}
		cc := &wasm.CallContext{Instance: vm.inst}
		v, ok, err := target.Host.Call(cc, args)
		if err != nil {
			throw(err)
		}
		if ok {
			vm.operands.push(v)
		}
		return
	}

	numParams := len(target.Type.Params)
	locals := make([]uint64, int(target.Code.NumLocals)+numParams)
	for i := numParams - 1; i >= 0; i-- {
		locals[i] = vm.operands.pop()
	}
	f := &frame{fn: target, locals: locals, labels: newLabelStack()}
	f.labels.push(label{
		arity:          len(target.Type.Results),
		continuationPC: len(target.Code.Body) - 1,
		operandSP:      vm.operands.sp,
	})
	// The caller's pc already points past the call and its immediates, so
	// it resumes right after the call once the callee returns.
	vm.pushFrame(f)
}

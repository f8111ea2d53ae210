package interp

import "github.com/sile/nowasm/wasm"

func unreachable(vm *VM) { throw(wasm.ErrUnreachable) }

func nop(vm *VM) { vm.activeFrame.pc++ }

func block(vm *VM) {
	f := vm.activeFrame
	info := f.fn.Blocks.Get(f.pc)
	f.labels.push(label{arity: info.ResultCount, continuationPC: info.EndAt + 1, operandSP: vm.operands.sp})
	f.pc = info.StartAt
}

func loop(vm *VM) {
	f := vm.activeFrame
	info := f.fn.Blocks.Get(f.pc)
	f.labels.push(label{arity: 0, continuationPC: info.StartAt, operandSP: vm.operands.sp, isLoop: true})
	f.pc = info.StartAt
}

func ifOp(vm *VM) {
	f := vm.activeFrame
	info := f.fn.Blocks.Get(f.pc)
	cond := vm.operands.pop()
	f.labels.push(label{arity: info.ResultCount, continuationPC: info.EndAt + 1, operandSP: vm.operands.sp})
	switch {
	case cond != 0:
		f.pc = info.StartAt
	case info.HasElse:
		f.pc = info.ElseAt + 1
	default:
		f.pc = info.EndAt
	}
}

func elseOp(vm *VM) {
	l := vm.activeFrame.labels.pop()
	vm.activeFrame.pc = l.continuationPC
}

func end(vm *VM) {
	vm.activeFrame.labels.pop()
	if vm.activeFrame.labels.sp < 0 {
		// The outermost label, representing the function body itself,
		// just closed: this end doubles as the function's return.
		vm.popFrame()
		return
	}
	vm.activeFrame.pc++
}

func returnOp(vm *VM) {
	vm.popFrame()
}

func br(vm *VM) {
	f := vm.activeFrame
	f.pc++
	index := vm.fetchUint32()
	branchTo(vm, index)
}

func brIf(vm *VM) {
	f := vm.activeFrame
	f.pc++
	index := vm.fetchUint32()
	c := vm.operands.pop()
	if c != 0 {
		branchTo(vm, index)
	}
}

// branchTo implements the shared mechanics of br/brIf/brTable: pop the
// target label (and every label nested inside it), preserve its arity
// worth of result values, restore the operand stack to the height it
// had when the label was entered, then jump to its continuation. A
// loop label is re-pushed after the jump since branching to a loop
// re-enters it rather than exiting it; every other label is discarded.
func branchTo(vm *VM, depth uint32) {
	f := vm.activeFrame
	var l label
	for i := uint32(0); i <= depth; i++ {
		l = f.labels.pop()
	}
	vals := make([]uint64, l.arity)
	for i := l.arity - 1; i >= 0; i-- {
		vals[i] = vm.operands.pop()
	}
	vm.operands.sp = l.operandSP
	for _, v := range vals {
		vm.operands.push(v)
	}
	if l.isLoop {
		f.labels.push(l)
		f.pc = l.continuationPC
		return
	}
	if f.labels.sp < 0 {
		// Branched past the function's own outermost label: equivalent to return.
		vm.popFrame()
		return
	}
	f.pc = l.continuationPC
}

func brTable(vm *VM) {
	f := vm.activeFrame
	f.pc++
	targets := vm.fetchBrTable()
	i := vm.operands.pop()
	if uint32(i) < uint32(len(targets.labels)) {
		branchTo(vm, targets.labels[i])
	} else {
		branchTo(vm, targets.defaultLabel)
	}
}

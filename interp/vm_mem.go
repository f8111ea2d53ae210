package interp

import (
	"encoding/binary"

	"github.com/sile/nowasm/buildoptions"
	"github.com/sile/nowasm/wasm"
)

// memArg reads a load/store instruction's align+offset immediates (align
// is unused by this interpreter, which does not need aligned access for
// correctness) and returns the effective byte address to access,
// trapping if it or the requested width runs past the end of memory.
// Grounded on the teacher's vm_memory.go load/store helpers, which
// perform no bounds checking at all; the check here is this
// interpreter's addition, required by spec.
func (vm *VM) memArg(width uint32) (mem *wasm.MemoryInstance, addr uint32) {
	f := vm.activeFrame
	f.pc++
	_ = vm.fetchUint32() // align
	offset := vm.fetchUint32()
	base := uint32(vm.operands.pop())
	ea := uint64(base) + uint64(offset)
	mem = vm.memory()
	if ea+uint64(width) > uint64(len(mem.Data)) {
		throw(wasm.ErrOutOfBoundsMemory)
	}
	return mem, uint32(ea)
}

func (vm *VM) memory() *wasm.MemoryInstance {
	if len(vm.inst.Memories) == 0 {
		throw(wasm.ErrOutOfBoundsMemory)
	}
	return vm.inst.Memories[0]
}

func i32Load(vm *VM) {
	mem, ea := vm.memArg(4)
	vm.operands.push(uint64(binary.LittleEndian.Uint32(mem.Data[ea:])))
}

func i64Load(vm *VM) {
	mem, ea := vm.memArg(8)
	vm.operands.push(binary.LittleEndian.Uint64(mem.Data[ea:]))
}

func f32Load(vm *VM) {
	mem, ea := vm.memArg(4)
	vm.operands.push(uint64(binary.LittleEndian.Uint32(mem.Data[ea:])))
}

func f64Load(vm *VM) {
	mem, ea := vm.memArg(8)
	vm.operands.push(binary.LittleEndian.Uint64(mem.Data[ea:]))
}

func i32Load8S(vm *VM) {
	mem, ea := vm.memArg(1)
	vm.operands.push(uint64(uint32(int32(int8(mem.Data[ea])))))
}

func i32Load8U(vm *VM) {
	mem, ea := vm.memArg(1)
	vm.operands.push(uint64(mem.Data[ea]))
}

func i32Load16S(vm *VM) {
	mem, ea := vm.memArg(2)
	v := int16(binary.LittleEndian.Uint16(mem.Data[ea:]))
	vm.operands.push(uint64(uint32(int32(v))))
}

func i32Load16U(vm *VM) {
	mem, ea := vm.memArg(2)
	vm.operands.push(uint64(binary.LittleEndian.Uint16(mem.Data[ea:])))
}

func i64Load8S(vm *VM) {
	mem, ea := vm.memArg(1)
	vm.operands.push(uint64(int64(int8(mem.Data[ea]))))
}

func i64Load8U(vm *VM) {
	mem, ea := vm.memArg(1)
	vm.operands.push(uint64(mem.Data[ea]))
}

func i64Load16S(vm *VM) {
	mem, ea := vm.memArg(2)
	v := int16(binary.LittleEndian.Uint16(mem.Data[ea:]))
	vm.operands.push(uint64(int64(v)))
}

func i64Load16U(vm *VM) {
	mem, ea := vm.memArg(2)
	vm.operands.push(uint64(binary.LittleEndian.Uint16(mem.Data[ea:])))
}

func i64Load32S(vm *VM) {
	mem, ea := vm.memArg(4)
	v := int32(binary.LittleEndian.Uint32(mem.Data[ea:]))
	vm.operands.push(uint64(int64(v)))
}

func i64Load32U(vm *VM) {
	mem, ea := vm.memArg(4)
	vm.operands.push(uint64(binary.LittleEndian.Uint32(mem.Data[ea:])))
}

func i32Store(vm *VM) {
	storeHelper(vm, 4, func(mem *wasm.MemoryInstance, ea uint32, v uint64) {
		binary.LittleEndian.PutUint32(mem.Data[ea:], uint32(v))
	})
}

func i64Store(vm *VM) {
	storeHelper(vm, 8, func(mem *wasm.MemoryInstance, ea uint32, v uint64) {
		binary.LittleEndian.PutUint64(mem.Data[ea:], v)
	})
}

func f32Store(vm *VM) { i32Store(vm) }
func f64Store(vm *VM) { i64Store(vm) }

func i32Store8(vm *VM) {
	storeHelper(vm, 1, func(mem *wasm.MemoryInstance, ea uint32, v uint64) {
		mem.Data[ea] = byte(v)
	})
}

func i32Store16(vm *VM) {
	storeHelper(vm, 2, func(mem *wasm.MemoryInstance, ea uint32, v uint64) {
		binary.LittleEndian.PutUint16(mem.Data[ea:], uint16(v))
	})
}

func i64Store8(vm *VM) {
	storeHelper(vm, 1, func(mem *wasm.MemoryInstance, ea uint32, v uint64) {
		mem.Data[ea] = byte(v)
	})
}

func i64Store16(vm *VM) {
	storeHelper(vm, 2, func(mem *wasm.MemoryInstance, ea uint32, v uint64) {
		binary.LittleEndian.PutUint16(mem.Data[ea:], uint16(v))
	})
}

func i64Store32(vm *VM) {
	storeHelper(vm, 4, func(mem *wasm.MemoryInstance, ea uint32, v uint64) {
		binary.LittleEndian.PutUint32(mem.Data[ea:], uint32(v))
	})
}

// storeHelper pops the value first (it is the top of the stack), then
// resolves and bounds-checks the address exactly like a load, and
// finally writes.
func storeHelper(vm *VM, width uint32, write func(*wasm.MemoryInstance, uint32, uint64)) {
	val := vm.operands.pop()
	f := vm.activeFrame
	f.pc++
	_ = vm.fetchUint32() // align
	offset := vm.fetchUint32()
	base := uint32(vm.operands.pop())
	ea := uint64(base) + uint64(offset)
	mem := vm.memory()
	if ea+uint64(width) > uint64(len(mem.Data)) {
		throw(wasm.ErrOutOfBoundsMemory)
	}
	write(mem, uint32(ea), val)
}

func memorySize(vm *VM) {
	f := vm.activeFrame
	f.pc++
	_ = vm.fetchUint32() // reserved
	vm.operands.push(uint64(vm.memory().PageCount()))
}

func memoryGrow(vm *VM) {
	f := vm.activeFrame
	f.pc++
	_ = vm.fetchUint32() // reserved
	delta := uint32(vm.operands.pop())
	mem := vm.memory()
	old := mem.PageCount()
	newPages := old + delta
	if delta > 0 && (newPages < old || newPages > buildoptions.MaxPages || (mem.Max != nil && newPages > *mem.Max)) {
		vm.operands.push(uint64(uint32(0xffffffff)))
		return
	}
	mem.Data = append(mem.Data, make([]byte, uint64(delta)*wasm.PageSize)...)
	vm.operands.push(uint64(old))
}

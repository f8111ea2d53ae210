package interp

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sile/nowasm/buildoptions"
	"github.com/sile/nowasm/leb128"
	"github.com/sile/nowasm/wasm"
)

// VM is a stack-machine interpreter bound to one wasm.Instance. Its
// operand/label/frame stacks persist across Invoke calls, the same
// reuse pattern as the teacher's naiveVirtualMachine (one engine per
// store, many Call invocations).
type VM struct {
	inst        *wasm.Instance
	activeFrame *frame
	frames      *frameStack
	operands    *operandStack
	fuel        *uint64
}

// New creates a VM bound to inst, ready to Invoke any of its functions.
func New(inst *wasm.Instance) *VM {
	return &VM{inst: inst, frames: newFrameStack(), operands: newOperandStack()}
}

// SetFuel installs an optional step budget: every dispatched instruction
// decrements *fuel by one, and exhausting it traps with ErrOutOfFuel
// instead of letting the interpreter run unbounded. Passing nil disables
// the check, the default. This is the optional fuel mechanism spec.md §5
// allows layering on top of the core without making it a core
// requirement.
func (vm *VM) SetFuel(fuel *uint64) { vm.fuel = fuel }

// Invoke calls fn with args (already in stack-bit form) and returns its
// results the same way. It recovers traps raised by throw and returns
// them as a plain error, leaving vm reusable for further calls.
func (vm *VM) Invoke(fn *wasm.FunctionInstance, args []uint64) (returns []uint64, err error) {
	if fn.IsHost() {
		return vm.invokeHost(fn, args)
	}
	for _, a := range args {
		vm.operands.push(a)
	}
	if err := vm.exec(fn); err != nil {
		return nil, err
	}
	n := len(fn.Type.Results)
	returns = make([]uint64, n)
	for i := n - 1; i >= 0; i-- {
		returns[i] = vm.operands.pop()
	}
	return returns, nil
}

func (vm *VM) invokeHost(fn *wasm.FunctionInstance, args []uint64) ([]uint64, error) {
	cc := &wasm.CallContext{Instance: vm.inst}
	v, ok, err := fn.Host.Call(cc, args)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return []uint64{v}, nil
}

func (vm *VM) exec(fn *wasm.FunctionInstance) (errRet error) {
	numParams := len(fn.Type.Params)
	locals := make([]uint64, int(fn.Code.NumLocals)+numParams)
	for i := numParams - 1; i >= 0; i-- {
		locals[i] = vm.operands.pop()
	}

	f := &frame{fn: fn, locals: locals, labels: newLabelStack()}
	f.labels.push(label{
		arity:          len(fn.Type.Results),
		continuationPC: len(fn.Code.Body) - 1,
		operandSP:      vm.operands.sp,
	})

	prevFrame := vm.frames.peek()
	prevFrameSP := vm.frames.sp
	defer func() {
		if v := recover(); v != nil {
			vm.frames.sp = prevFrameSP
			vm.activeFrame = vm.frames.peek()
			if trap, ok := v.(*wasm.Trap); ok {
				errRet = trap
			} else if e, ok := v.(error); ok {
				errRet = e
			} else {
				errRet = fmt.Errorf("wasm: runtime error: %v", v)
			}
		}
	}()

	vm.pushFrame(f)
	for vm.activeFrame != prevFrame {
		if vm.fuel != nil {
			if *vm.fuel == 0 {
				throw(wasm.ErrOutOfFuel)
			}
			*vm.fuel--
		}
		op := wasm.Opcode(vm.activeFrame.fn.Code.Body[vm.activeFrame.pc])
		if buildoptions.IsDebugMode {
			fmt.Fprintf(os.Stderr, "depth=%d pc=%d op=0x%02x\n", vm.frames.sp, vm.activeFrame.pc, byte(op))
		}
		dispatch[op](vm)
	}
	return nil
}

func (vm *VM) pushFrame(f *frame) {
	vm.frames.push(f)
	vm.activeFrame = f
}

func (vm *VM) popFrame() *frame {
	f := vm.frames.pop()
	vm.activeFrame = vm.frames.peek()
	return f
}

func (vm *VM) body() []byte { return vm.activeFrame.fn.Code.Body }

func (vm *VM) fetchUint32() uint32 {
	v, n, err := leb128.DecodeUint32(bytes.NewReader(vm.body()[vm.activeFrame.pc:]))
	if err != nil {
		throw(wasm.ErrMalformedLEB128)
	}
	vm.activeFrame.pc += int(n)
	return v
}

func (vm *VM) fetchInt32() int32 {
	v, n, err := leb128.DecodeInt32(bytes.NewReader(vm.body()[vm.activeFrame.pc:]))
	if err != nil {
		throw(wasm.ErrMalformedLEB128)
	}
	vm.activeFrame.pc += int(n)
	return v
}

func (vm *VM) fetchInt64() int64 {
	v, n, err := leb128.DecodeInt64(bytes.NewReader(vm.body()[vm.activeFrame.pc:]))
	if err != nil {
		throw(wasm.ErrMalformedLEB128)
	}
	vm.activeFrame.pc += int(n)
	return v
}

func (vm *VM) fetchFloat32() float32 {
	b := vm.body()[vm.activeFrame.pc : vm.activeFrame.pc+4]
	vm.activeFrame.pc += 4
	return wasm.ValFromBits(wasm.ValueTypeF32, uint64(le32(b))).F32()
}

func (vm *VM) fetchFloat64() float64 {
	b := vm.body()[vm.activeFrame.pc : vm.activeFrame.pc+8]
	vm.activeFrame.pc += 8
	return wasm.ValFromBits(wasm.ValueTypeF64, le64(b)).F64()
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	return uint64(le32(b[:4])) | uint64(le32(b[4:]))<<32
}

type brTableTargets struct {
	labels       []uint32
	defaultLabel uint32
}

func (vm *VM) fetchBrTable() brTableTargets {
	count := vm.fetchUint32()
	labels := make([]uint32, count)
	for i := range labels {
		labels[i] = vm.fetchUint32()
	}
	def := vm.fetchUint32()
	return brTableTargets{labels: labels, defaultLabel: def}
}

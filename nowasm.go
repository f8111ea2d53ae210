// Package nowasm is an embeddable, dependency-free interpreter for
// WebAssembly 1.0 plus the sign-extension proposal. It decodes a binary
// module, instantiates it against host- or module-supplied imports, and
// runs its exported functions to completion or to a trap.
package nowasm

import (
	"fmt"
	"io"

	"github.com/sile/nowasm/binary"
	"github.com/sile/nowasm/interp"
	"github.com/sile/nowasm/wasm"
)

// Re-exported so callers never need to import the wasm package directly
// for the types that appear in this package's own function signatures.
type (
	Module             = wasm.Module
	Val                = wasm.Val
	FunctionInstance   = wasm.FunctionInstance
	TableInstance      = wasm.TableInstance
	MemoryInstance     = wasm.MemoryInstance
	GlobalInstance     = wasm.GlobalInstance
	HostFunction       = wasm.HostFunction
	CallContext        = wasm.CallContext
	Trap               = wasm.Trap
	Containers         = wasm.Containers
)

// Decode parses a WebAssembly binary module. The returned *Module holds
// no mutable state and can be instantiated any number of times.
func Decode(r io.Reader) (*Module, error) {
	return binary.DecodeModule(r)
}

// NewHostFunction binds a Go function as an importable host function;
// see wasm.NewHostFunction for the accepted signatures.
func NewHostFunction(fn interface{}) (*HostFunction, error) {
	return wasm.NewHostFunction(fn)
}

// ValI32 constructs an i32 value.
func ValI32(v int32) Val { return wasm.ValI32(v) }

// ValI64 constructs an i64 value.
func ValI64(v int64) Val { return wasm.ValI64(v) }

// ValF32 constructs an f32 value.
func ValF32(v float32) Val { return wasm.ValF32(v) }

// ValF64 constructs an f64 value.
func ValF64(v float64) Val { return wasm.ValF64(v) }

// Instance is an instantiated module together with the interpreter
// state needed to invoke its exports.
type Instance struct {
	*wasm.Instance
	vm *interp.VM
}

// Invoke calls the exported function name with args and returns its
// results as Vals. An unknown export yields ErrExportNotFound, and
// arguments whose count or types do not match the function's signature
// yield ErrSignatureMismatch. A trap is returned as a plain error; a
// *Trap can be distinguished with errors.As.
func (i *Instance) Invoke(name string, args ...Val) ([]Val, error) {
	fn, err := i.ExportedFunction(name)
	if err != nil {
		return nil, err
	}
	if len(args) != len(fn.Type.Params) {
		return nil, fmt.Errorf("%w: %q expects %d argument(s), got %d", wasm.ErrSignatureMismatch, name, len(fn.Type.Params), len(args))
	}
	raw := make([]uint64, len(args))
	for idx, a := range args {
		if a.Type() != fn.Type.Params[idx] {
			return nil, fmt.Errorf("%w: %q argument %d", wasm.ErrSignatureMismatch, name, idx)
		}
		raw[idx] = a.Bits()
	}
	results, err := i.vm.Invoke(fn, raw)
	if err != nil {
		return nil, err
	}
	out := make([]Val, len(results))
	for idx, r := range results {
		out[idx] = wasm.ValFromBits(fn.Type.Results[idx], r)
	}
	return out, nil
}

package wasm

import (
	"fmt"
	"reflect"
)

// CallContext is the first, implicit parameter of every host function: it
// gives host code access to the calling instance's linear memory
// without requiring the host to capture it by closure at link time.
type CallContext struct {
	Instance *Instance
}

// Memory returns the instance's sole linear memory, or nil if it has none.
func (c *CallContext) Memory() *MemoryInstance {
	if len(c.Instance.Memories) == 0 {
		return nil
	}
	return c.Instance.Memories[0]
}

// reflectedKinds is the set of Go types a host function parameter or
// result may use, mirroring the four WebAssembly value types plus their
// unsigned counterparts (the sign only matters to instructions, not to
// the 64-bit stack slot, but host functions read Go-typed arguments).
var reflectedKinds = map[reflect.Kind]ValueType{
	reflect.Int32:  ValueTypeI32,
	reflect.Uint32: ValueTypeI32,
	reflect.Int64:  ValueTypeI64,
	reflect.Uint64: ValueTypeI64,
	reflect.Float32: ValueTypeF32,
	reflect.Float64: ValueTypeF64,
}

// HostFunction wraps a Go function to be imported into a module. fn must
// accept *CallContext as its first parameter, followed by zero or more
// of int32/uint32/int64/uint64/float32/float64, and return zero or one
// of the same plus an optional trailing error.
type HostFunction struct {
	fn      reflect.Value
	ftype   FunctionType
	hasErr  bool
}

// NewHostFunction validates fn's signature via reflection and derives its
// WebAssembly FunctionType, the same binding strategy the teacher's
// naiveVirtualMachine callIn path uses for imported functions.
func NewHostFunction(fn interface{}) (*HostFunction, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("wasm: host function must be a func, got %s", t.Kind())
	}
	if t.NumIn() < 1 || t.In(0) != reflect.TypeOf(&CallContext{}) {
		return nil, fmt.Errorf("wasm: host function must take *wasm.CallContext as its first parameter")
	}
	params := make([]ValueType, 0, t.NumIn()-1)
	for i := 1; i < t.NumIn(); i++ {
		vt, ok := reflectedKinds[t.In(i).Kind()]
		if !ok {
			return nil, fmt.Errorf("wasm: host function parameter %d has unsupported type %s", i, t.In(i))
		}
		params = append(params, vt)
	}
	numOut := t.NumOut()
	hasErr := numOut > 0 && t.Out(numOut-1) == reflect.TypeOf((*error)(nil)).Elem()
	if hasErr {
		numOut--
	}
	if numOut > 1 {
		return nil, fmt.Errorf("wasm: host function must return at most one value besides error")
	}
	results := make([]ValueType, 0, numOut)
	for i := 0; i < numOut; i++ {
		vt, ok := reflectedKinds[t.Out(i).Kind()]
		if !ok {
			return nil, fmt.Errorf("wasm: host function result %d has unsupported type %s", i, t.Out(i))
		}
		results = append(results, vt)
	}
	return &HostFunction{fn: v, ftype: FunctionType{Params: params, Results: results}, hasErr: hasErr}, nil
}

// Call invokes the bound Go function with args taken from raw stack bits
// and returns the raw stack bits of its result, if any.
func (h *HostFunction) Call(cc *CallContext, args []uint64) (uint64, bool, error) {
	in := make([]reflect.Value, 0, len(args)+1)
	in = append(in, reflect.ValueOf(cc))
	ft := h.fn.Type()
	for i, a := range args {
		pt := ft.In(i + 1)
		var rv reflect.Value
		switch pt.Kind() {
		case reflect.Int32:
			rv = reflect.ValueOf(int32(uint32(a)))
		case reflect.Uint32:
			rv = reflect.ValueOf(uint32(a))
		case reflect.Int64:
			rv = reflect.ValueOf(int64(a))
		case reflect.Uint64:
			rv = reflect.ValueOf(a)
		case reflect.Float32:
			rv = reflect.ValueOf(ValFromBits(ValueTypeF32, a).F32())
		case reflect.Float64:
			rv = reflect.ValueOf(ValFromBits(ValueTypeF64, a).F64())
		}
		in = append(in, rv)
	}
	out := h.fn.Call(in)
	if h.hasErr {
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			return 0, false, errVal.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return 0, false, nil
	}
	return toBits(out[0]), true, nil
}

func toBits(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Int32, reflect.Uint32:
		return uint64(uint32(v.Convert(reflect.TypeOf(uint32(0))).Uint()))
	case reflect.Int64, reflect.Uint64:
		return v.Convert(reflect.TypeOf(uint64(0))).Uint()
	case reflect.Float32:
		return uint64(ValF32(float32(v.Float())).Bits())
	case reflect.Float64:
		return ValF64(v.Float()).Bits()
	}
	return 0
}

// BlockInfo is the resolved control-flow shape of one block/loop/if
// instruction within a function body, located by a one-time scan over
// the raw bytecode at instantiation time (WebAssembly 1.0 block types
// never carry parameters, only an optional single result, so ParamCount
// is implicitly always zero and is not tracked).
type BlockInfo struct {
	ResultCount int
	HasElse     bool
	StartAt     int // pc of the first instruction inside the block/then-branch.
	ElseAt      int // pc of the matching else opcode; meaningless if !HasElse.
	EndAt       int // pc of the matching end opcode.
}

// FunctionInstance is a runtime function: either interpreted (backed by a
// module's Code) or a host function bound via reflection.
type FunctionInstance struct {
	Type FunctionType

	// Set when this is a module-defined function.
	Code   *Code
	Blocks BlockMap

	// Set when this is a host import.
	Host *HostFunction
}

// BlockMap resolves a function body's block/loop/if pc to its analyzed
// BlockInfo. It is substitutable, per spec.md §9's "mapping from small
// integer to T" container capability: NewBlockMap wraps the plain Go map
// instantiate.go builds by default, and Containers.NewBlockMap lets an
// embedder back it with a Mapping instead.
type BlockMap interface {
	Get(pc int) BlockInfo
}

type mapBlocks map[int]BlockInfo

func (m mapBlocks) Get(pc int) BlockInfo { return m[pc] }

// NewBlockMap wraps a plain Go map as a BlockMap.
func NewBlockMap(m map[int]BlockInfo) BlockMap { return mapBlocks(m) }

// IsHost reports whether f is a host import rather than module-defined code.
func (f *FunctionInstance) IsHost() bool { return f.Host != nil }

// MemoryInstance is one linear memory: a growable byte slice plus the
// limits that bound it.
type MemoryInstance struct {
	Data []byte
	Min  uint32
	Max  *uint32 // module-declared max, if any; buildoptions.MaxPages always applies too.
}

// PageCount reports the current size of Data in 64KiB pages.
func (m *MemoryInstance) PageCount() uint32 { return uint32(len(m.Data) / PageSize) }

// PageSize is the fixed WebAssembly page size in bytes.
const PageSize = 65536

// TableInstance is one table: a slice of pointers to function instances
// (taken from the owning Instance's Funcs), with nil marking an
// uninitialized element.
type TableInstance struct {
	Elems []*FunctionInstance
	Min   uint32
	Max   *uint32
}

// GlobalInstance is one runtime global: its current value plus whether
// global.set on it is permitted.
type GlobalInstance struct {
	Val     Val
	Mutable bool
}

// ExportInstance resolves one exported name to the runtime object it names.
type ExportInstance struct {
	Kind    ExportKind
	Func    *FunctionInstance
	Table   *TableInstance
	Memory  *MemoryInstance
	Global  *GlobalInstance
}

// Instance is an instantiated module: the Module's static image paired
// with allocated, mutable runtime state. Instantiating the same Module
// twice produces two independent Instances.
type Instance struct {
	Module *Module

	Funcs   []*FunctionInstance
	Tables  []*TableInstance
	Memories []*MemoryInstance
	Globals []*GlobalInstance

	Exports map[string]*ExportInstance
}

// ExportedFunction looks up a function export by name.
func (i *Instance) ExportedFunction(name string) (*FunctionInstance, error) {
	e, ok := i.Exports[name]
	if !ok || e.Kind != ExportKindFunc {
		return nil, fmt.Errorf("%w: %q", ErrExportNotFound, name)
	}
	return e.Func, nil
}

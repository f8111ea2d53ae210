package wasm

// ValueType is the binary encoding of a WebAssembly 1.0 value type.
//
// See https://www.w3.org/TR/wasm-core-1/#binary-valtype
type ValueType byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// String returns the WebAssembly text-format name of t, or "unknown".
func (t ValueType) String() string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "unknown"
}

// SectionID identifies one of the twelve WebAssembly 1.0 module sections.
//
// See https://www.w3.org/TR/wasm-core-1/#sections%E2%91%A0
type SectionID byte

const (
	SectionIDCustom SectionID = iota
	SectionIDType
	SectionIDImport
	SectionIDFunction
	SectionIDTable
	SectionIDMemory
	SectionIDGlobal
	SectionIDExport
	SectionIDStart
	SectionIDElement
	SectionIDCode
	SectionIDData
)

// FunctionType is a function signature: an ordered sequence of parameter
// types and an ordered sequence of result types (at most one in 1.0).
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// HasSameSignature reports whether a and b name the same sequence of types.
func HasSameSignature(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equal reports whether t and other describe the same function signature.
func (t *FunctionType) Equal(other *FunctionType) bool {
	return HasSameSignature(t.Params, other.Params) && HasSameSignature(t.Results, other.Results)
}

// Limits bounds the size of a table or memory.
//
// See https://www.w3.org/TR/wasm-core-1/#limits%E2%91%A6
type Limits struct {
	Min uint32
	Max *uint32 // nil means unbounded (subject to the implementation cap).
}

// TableElemType is the element type of a table; 1.0 only defines funcref.
type TableElemType byte

const TableElemTypeFuncRef TableElemType = 0x70

// TableType describes a module's table declaration.
type TableType struct {
	ElemType TableElemType
	Limits   Limits
}

// MemoryType describes a module's memory declaration, in units of pages.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a module's global declaration.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// ImportKind tags which description variant an Import carries.
type ImportKind byte

const (
	ImportKindFunc   ImportKind = 0x00
	ImportKindTable  ImportKind = 0x01
	ImportKindMemory ImportKind = 0x02
	ImportKindGlobal ImportKind = 0x03
)

// ExportKind tags which index space an Export.Index refers into.
type ExportKind byte

const (
	ExportKindFunc   ExportKind = 0x00
	ExportKindTable  ExportKind = 0x01
	ExportKindMemory ExportKind = 0x02
	ExportKindGlobal ExportKind = 0x03
)

package wasm

// ConstExpr is a restricted instruction used for global initializers and
// segment offsets: one of the four *.const opcodes, carrying its
// immediate in Val, or global.get, carrying the referenced index in
// GlobalIndex. The binary encoding is always terminated by an end
// opcode, which the decoder consumes but does not keep.
//
// See https://www.w3.org/TR/wasm-core-1/#constant-expressions%E2%91%A0
type ConstExpr struct {
	Opcode      Opcode
	Val         Val
	GlobalIndex uint32 // valid only when Opcode == OpcodeGlobalGet.
}

// ImportDesc is the tagged description of a single import.
type ImportDesc struct {
	Kind       ImportKind
	FuncType   uint32 // valid when Kind == ImportKindFunc
	TableType  TableType
	MemoryType MemoryType
	GlobalType GlobalType
}

// Import is one entry of the import section: (module, name, description).
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// ExportDesc is the tagged description of a single export.
type ExportDesc struct {
	Kind  ExportKind
	Index uint32
}

// Export is one entry of the export section; names are unique within a module.
type Export struct {
	Name string
	Desc ExportDesc
}

// Global is one entry of the global section: its type plus a const-expr
// initializer.
type Global struct {
	Type GlobalType
	Init ConstExpr
}

// Code is the per-function body paired with the function section's type
// index by position.
type Code struct {
	NumLocals  uint32
	LocalTypes []ValueType
	Body       []byte // terminated by OpcodeEnd.
}

// Element is one entry of the element section: a table index, an
// offset expression, and the function indices to write starting there.
type Element struct {
	TableIndex uint32
	Offset     ConstExpr
	Init       []uint32
}

// Data is one entry of the data section: a memory index, an offset
// expression, and the raw bytes to copy starting there.
type Data struct {
	MemoryIndex uint32
	Offset      ConstExpr
	Init        []byte
}

// Module is the static, decoded, immutable image of a WebAssembly binary.
// A single Module may be instantiated many times; none of its state is
// mutated by instantiation or execution.
//
// See https://www.w3.org/TR/wasm-core-1/#modules%E2%91%A7
type Module struct {
	Types    []FunctionType
	Imports  []Import
	Funcs    []uint32 // type indices of module-defined functions, aligned with Codes.
	Tables   []TableType
	Memories []MemoryType
	Globals  []Global
	Exports  []Export
	Start    *uint32
	Elements []Element
	Codes    []Code
	Data     []Data

	// CustomSections holds the raw payload of any custom section by name,
	// keyed by name (duplicates are rejected at decode time).
	CustomSections map[string][]byte
}

// NumImportedFuncs returns how many entries in the func index space are
// imports (they come before module-defined functions).
func (m *Module) NumImportedFuncs() int {
	n := 0
	for _, im := range m.Imports {
		if im.Desc.Kind == ImportKindFunc {
			n++
		}
	}
	return n
}

// NumImportedTables returns how many entries in the table index space are imports.
func (m *Module) NumImportedTables() int {
	n := 0
	for _, im := range m.Imports {
		if im.Desc.Kind == ImportKindTable {
			n++
		}
	}
	return n
}

// NumImportedMemories returns how many entries in the memory index space are imports.
func (m *Module) NumImportedMemories() int {
	n := 0
	for _, im := range m.Imports {
		if im.Desc.Kind == ImportKindMemory {
			n++
		}
	}
	return n
}

// NumImportedGlobals returns how many entries in the global index space are imports.
func (m *Module) NumImportedGlobals() int {
	n := 0
	for _, im := range m.Imports {
		if im.Desc.Kind == ImportKindGlobal {
			n++
		}
	}
	return n
}

// FuncTypeIndex returns the type index of the funcidx-th function, whether
// imported or module-defined.
func (m *Module) FuncTypeIndex(funcidx uint32) (uint32, bool) {
	imported := uint32(m.NumImportedFuncs())
	if funcidx < imported {
		i := 0
		for _, im := range m.Imports {
			if im.Desc.Kind != ImportKindFunc {
				continue
			}
			if uint32(i) == funcidx {
				return im.Desc.FuncType, true
			}
			i++
		}
		return 0, false
	}
	idx := funcidx - imported
	if int(idx) >= len(m.Funcs) {
		return 0, false
	}
	return m.Funcs[idx], true
}

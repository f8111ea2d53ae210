package nowasm

import (
	"fmt"

	"github.com/sile/nowasm/interp"
	"github.com/sile/nowasm/wasm"
)

// Resolver looks up one import by module and field name at instantiation
// time. A Resolver is typically backed by a set of already-instantiated
// Instances (for module-to-module imports) plus host functions and
// globals registered directly by the embedder.
type Resolver interface {
	ResolveFunc(module, name string) (*wasm.FunctionInstance, bool)
	ResolveTable(module, name string) (*wasm.TableInstance, bool)
	ResolveMemory(module, name string) (*wasm.MemoryInstance, bool)
	ResolveGlobal(module, name string) (*wasm.GlobalInstance, bool)
}

// Config tunes resource limits and storage strategy for one Instantiate
// call. Its zero value selects every default behavior (plain Go slices,
// no fuel ceiling), so most embedders never construct one explicitly.
type Config struct {
	// Containers substitutes the storage backing an Instance's function
	// table and each function's block-lookup table, per spec.md §9's
	// container-provider capability (Sequence and Mapping respectively).
	// Left zero, a plain Go slice and a plain Go map are used, which is
	// correct for every normal embedding.
	Containers wasm.Containers

	// Fuel, if non-nil, bounds the number of instructions the resulting
	// Instance's calls may execute in total before trapping with
	// ErrOutOfFuel; see spec.md §5 "Cancellation". Nil disables the
	// check.
	Fuel *uint64
}

// Instantiate allocates a wasm.Instance from m, resolving every import
// through resolver, running the element/data segments and the start
// function if present. It is Instantiate with the default Config.
func Instantiate(m *wasm.Module, resolver Resolver) (*Instance, error) {
	return InstantiateWithConfig(m, resolver, Config{})
}

// InstantiateWithConfig is Instantiate with explicit resource limits and
// storage strategy.
//
// A module's tables and memories can be shared with other already-live
// instances via import, so every element segment is bounds-checked
// before any element is written, and every data segment is bounds-checked
// before any data byte is written. Element segments are written before
// the data segments are checked, so a module whose data segment fails its
// check leaves its element writes in place in the (possibly imported)
// table. This is this interpreter's version of the rollback problem the
// teacher's Store.Instantiate solves with a deferred per-kind undo list;
// no undo list is kept here, and a failed call returns no Instance.
func InstantiateWithConfig(m *wasm.Module, resolver Resolver, cfg Config) (*Instance, error) {
	inst := &wasm.Instance{Module: m, Exports: map[string]*wasm.ExportInstance{}}

	if err := resolveImports(inst, m, resolver); err != nil {
		return nil, err
	}
	if err := allocateTables(inst, m); err != nil {
		return nil, err
	}
	if err := allocateMemories(inst, m); err != nil {
		return nil, err
	}
	if err := allocateFunctions(inst, m, cfg.Containers); err != nil {
		return nil, err
	}
	if err := allocateGlobals(inst, m); err != nil {
		return nil, err
	}
	if err := applyElements(inst, m); err != nil {
		return nil, err
	}
	if err := applyData(inst, m); err != nil {
		return nil, err
	}
	if err := buildExports(inst, m); err != nil {
		return nil, err
	}

	vm := interp.New(inst)
	vm.SetFuel(cfg.Fuel)
	if m.Start != nil {
		if int(*m.Start) >= len(inst.Funcs) {
			return nil, fmt.Errorf("wasm: invalid start function index")
		}
		if _, err := vm.Invoke(inst.Funcs[*m.Start], nil); err != nil {
			return nil, err
		}
	}

	return &Instance{Instance: inst, vm: vm}, nil
}

func resolveImports(inst *wasm.Instance, m *wasm.Module, resolver Resolver) error {
	for _, im := range m.Imports {
		switch im.Desc.Kind {
		case wasm.ImportKindFunc:
			f, ok := resolver.ResolveFunc(im.Module, im.Name)
			if !ok {
				return fmt.Errorf("%w: %s.%s", wasm.ErrUnresolvedImport, im.Module, im.Name)
			}
			want := m.Types[im.Desc.FuncType]
			if !want.Equal(&f.Type) {
				return fmt.Errorf("%w: %s.%s", wasm.ErrImportTypeMismatch, im.Module, im.Name)
			}
			inst.Funcs = append(inst.Funcs, f)
		case wasm.ImportKindTable:
			t, ok := resolver.ResolveTable(im.Module, im.Name)
			if !ok {
				return fmt.Errorf("%w: %s.%s", wasm.ErrUnresolvedImport, im.Module, im.Name)
			}
			inst.Tables = append(inst.Tables, t)
		case wasm.ImportKindMemory:
			mem, ok := resolver.ResolveMemory(im.Module, im.Name)
			if !ok {
				return fmt.Errorf("%w: %s.%s", wasm.ErrUnresolvedImport, im.Module, im.Name)
			}
			inst.Memories = append(inst.Memories, mem)
		case wasm.ImportKindGlobal:
			g, ok := resolver.ResolveGlobal(im.Module, im.Name)
			if !ok {
				return fmt.Errorf("%w: %s.%s", wasm.ErrUnresolvedImport, im.Module, im.Name)
			}
			inst.Globals = append(inst.Globals, g)
		}
	}
	return nil
}

func allocateTables(inst *wasm.Instance, m *wasm.Module) error {
	for _, t := range m.Tables {
		inst.Tables = append(inst.Tables, &wasm.TableInstance{
			Elems: make([]*wasm.FunctionInstance, t.Limits.Min),
			Min:   t.Limits.Min,
			Max:   t.Limits.Max,
		})
	}
	return nil
}

func allocateMemories(inst *wasm.Instance, m *wasm.Module) error {
	for _, mt := range m.Memories {
		inst.Memories = append(inst.Memories, &wasm.MemoryInstance{
			Data: make([]byte, uint64(mt.Limits.Min)*wasm.PageSize),
			Min:  mt.Limits.Min,
			Max:  mt.Limits.Max,
		})
	}
	return nil
}

// allocateFunctions builds one FunctionInstance per module-defined
// function and appends it to inst.Funcs (which already holds the
// resolved function imports, indexed first). When the embedder supplies
// a Containers.NewFuncSeq, the module-defined functions are staged
// through that substitutable Sequence instead of relying on Go's slice
// growth directly — the fixed-capacity-arena case spec.md §9 names —
// before being copied into inst.Funcs, whose own element type stays a
// plain slice so the abstraction never leaks into the public Instance
// shape. Each function's own block table is built the same way, via
// Containers.NewBlockMap: a Mapping[BlockInfo] in place of the plain
// map AnalyzeBlocks returns.
func allocateFunctions(inst *wasm.Instance, m *wasm.Module, containers wasm.Containers) error {
	build := func(i int, typeIdx uint32) (*wasm.FunctionInstance, error) {
		code := m.Codes[i]
		body := append([]byte(nil), code.Body...)
		blocks, err := interp.AnalyzeBlocks(body)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		var bm wasm.BlockMap
		if containers.NewBlockMap == nil {
			bm = wasm.NewBlockMap(blocks)
		} else {
			mapping := containers.NewBlockMap(len(blocks))
			for pc, info := range blocks {
				mapping.Set(uint32(pc), info)
			}
			bm = wasm.NewMappingBlockMap(mapping)
		}
		return &wasm.FunctionInstance{
			Type:   m.Types[typeIdx],
			Code:   &wasm.Code{NumLocals: code.NumLocals, LocalTypes: code.LocalTypes, Body: body},
			Blocks: bm,
		}, nil
	}

	if containers.NewFuncSeq == nil {
		for i, typeIdx := range m.Funcs {
			fi, err := build(i, typeIdx)
			if err != nil {
				return err
			}
			inst.Funcs = append(inst.Funcs, fi)
		}
		return nil
	}

	seq := containers.NewFuncSeq(len(m.Funcs))
	for i, typeIdx := range m.Funcs {
		fi, err := build(i, typeIdx)
		if err != nil {
			return err
		}
		seq.Append(fi)
	}
	for i := 0; i < seq.Len(); i++ {
		inst.Funcs = append(inst.Funcs, seq.At(i))
	}
	return nil
}

func allocateGlobals(inst *wasm.Instance, m *wasm.Module) error {
	numImported := len(inst.Globals)
	for _, g := range m.Globals {
		if g.Init.Opcode == wasm.OpcodeGlobalGet && int(g.Init.GlobalIndex) >= numImported {
			return fmt.Errorf("%w: global initializer reads non-imported global %d", wasm.ErrInvalidConstExpr, g.Init.GlobalIndex)
		}
		v, err := evalConstExpr(inst, g.Init)
		if err != nil {
			return err
		}
		inst.Globals = append(inst.Globals, &wasm.GlobalInstance{Val: v, Mutable: g.Type.Mutable})
	}
	return nil
}

// evalConstExpr evaluates a global initializer or a segment offset.
// Grounded on the teacher's store.go executeConstExpression. global.get
// may read any global already in inst.Globals: allocateGlobals rejects an
// initializer that reads a non-imported global before calling this, while
// a segment offset, evaluated after every global is allocated, may read
// any global of the instance, module-defined ones included.
func evalConstExpr(inst *wasm.Instance, ce wasm.ConstExpr) (wasm.Val, error) {
	switch ce.Opcode {
	case wasm.OpcodeI32Const, wasm.OpcodeI64Const, wasm.OpcodeF32Const, wasm.OpcodeF64Const:
		return ce.Val, nil
	case wasm.OpcodeGlobalGet:
		if int(ce.GlobalIndex) >= len(inst.Globals) {
			return wasm.Val{}, fmt.Errorf("%w: global index %d out of range in constant expression", wasm.ErrInvalidConstExpr, ce.GlobalIndex)
		}
		return inst.Globals[ce.GlobalIndex].Val, nil
	default:
		return wasm.Val{}, wasm.ErrInvalidConstExpr
	}
}

// evalOffsetExpr evaluates a segment offset, which the binary format
// restricts to i32 regardless of the const-expr opcode used to compute
// it. Checking Type() here, rather than calling Val.I32() directly
// against whatever evalConstExpr returns, turns a malformed module's
// wrong-typed offset (e.g. a global.get of an f64 global) into a clean
// ErrInvalidConstExpr instead of a panic from Val's now-strict accessor.
func evalOffsetExpr(inst *wasm.Instance, ce wasm.ConstExpr) (uint32, error) {
	v, err := evalConstExpr(inst, ce)
	if err != nil {
		return 0, err
	}
	if v.Type() != wasm.ValueTypeI32 {
		return 0, wasm.ErrInvalidConstExpr
	}
	return uint32(v.I32()), nil
}

func applyElements(inst *wasm.Instance, m *wasm.Module) error {
	offsets := make([]uint32, len(m.Elements))
	for i, el := range m.Elements {
		if int(el.TableIndex) >= len(inst.Tables) {
			return wasm.ErrElementSegmentOutOfBounds
		}
		table := inst.Tables[el.TableIndex]
		offset, err := evalOffsetExpr(inst, el.Offset)
		if err != nil {
			return err
		}
		if uint64(offset)+uint64(len(el.Init)) > uint64(len(table.Elems)) {
			return wasm.ErrElementSegmentOutOfBounds
		}
		for _, funcIdx := range el.Init {
			if int(funcIdx) >= len(inst.Funcs) {
				return wasm.ErrElementSegmentOutOfBounds
			}
		}
		offsets[i] = offset
	}
	for i, el := range m.Elements {
		table := inst.Tables[el.TableIndex]
		for j, funcIdx := range el.Init {
			table.Elems[offsets[i]+uint32(j)] = inst.Funcs[funcIdx]
		}
	}
	return nil
}

func applyData(inst *wasm.Instance, m *wasm.Module) error {
	offsets := make([]uint32, len(m.Data))
	for i, d := range m.Data {
		if int(d.MemoryIndex) >= len(inst.Memories) {
			return wasm.ErrDataSegmentOutOfBounds
		}
		mem := inst.Memories[d.MemoryIndex]
		offset, err := evalOffsetExpr(inst, d.Offset)
		if err != nil {
			return err
		}
		if uint64(offset)+uint64(len(d.Init)) > uint64(len(mem.Data)) {
			return wasm.ErrDataSegmentOutOfBounds
		}
		offsets[i] = offset
	}
	for i, d := range m.Data {
		mem := inst.Memories[d.MemoryIndex]
		copy(mem.Data[offsets[i]:], d.Init)
	}
	return nil
}

func buildExports(inst *wasm.Instance, m *wasm.Module) error {
	for _, e := range m.Exports {
		ei := &wasm.ExportInstance{Kind: e.Desc.Kind}
		switch e.Desc.Kind {
		case wasm.ExportKindFunc:
			if int(e.Desc.Index) >= len(inst.Funcs) {
				return fmt.Errorf("wasm: export %q refers to undefined function", e.Name)
			}
			ei.Func = inst.Funcs[e.Desc.Index]
		case wasm.ExportKindTable:
			if int(e.Desc.Index) >= len(inst.Tables) {
				return fmt.Errorf("wasm: export %q refers to undefined table", e.Name)
			}
			ei.Table = inst.Tables[e.Desc.Index]
		case wasm.ExportKindMemory:
			if int(e.Desc.Index) >= len(inst.Memories) {
				return fmt.Errorf("wasm: export %q refers to undefined memory", e.Name)
			}
			ei.Memory = inst.Memories[e.Desc.Index]
		case wasm.ExportKindGlobal:
			if int(e.Desc.Index) >= len(inst.Globals) {
				return fmt.Errorf("wasm: export %q refers to undefined global", e.Name)
			}
			ei.Global = inst.Globals[e.Desc.Index]
		}
		inst.Exports[e.Name] = ei
	}
	return nil
}

package nowasm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sile/nowasm/wasm"
)

func u32leb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			return out
		}
	}
}

func i32leb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}

func concat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func section(id wasm.SectionID, body []byte) []byte {
	return concat([]byte{byte(id)}, u32leb(uint32(len(body))), body)
}

func header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
}

// emptyResolver satisfies Resolver for modules with no imports.
type emptyResolver struct{}

func (emptyResolver) ResolveFunc(string, string) (*wasm.FunctionInstance, bool)     { return nil, false }
func (emptyResolver) ResolveTable(string, string) (*wasm.TableInstance, bool)       { return nil, false }
func (emptyResolver) ResolveMemory(string, string) (*wasm.MemoryInstance, bool)     { return nil, false }
func (emptyResolver) ResolveGlobal(string, string) (*wasm.GlobalInstance, bool)     { return nil, false }

// funcResolver resolves a single named host import.
type funcResolver struct {
	module, name string
	fn           *wasm.FunctionInstance
}

func (r funcResolver) ResolveFunc(module, name string) (*wasm.FunctionInstance, bool) {
	if module == r.module && name == r.name {
		return r.fn, true
	}
	return nil, false
}
func (funcResolver) ResolveTable(string, string) (*wasm.TableInstance, bool)   { return nil, false }
func (funcResolver) ResolveMemory(string, string) (*wasm.MemoryInstance, bool) { return nil, false }
func (funcResolver) ResolveGlobal(string, string) (*wasm.GlobalInstance, bool) { return nil, false }

// addModuleBytes encodes a module exporting add(i32, i32) -> i32, exercising
// the full Decode -> Instantiate -> Invoke pipeline end to end (spec.md §8
// scenario 1).
func addModuleBytes() []byte {
	typeSec := section(wasm.SectionIDType, concat(
		u32leb(1),
		[]byte{0x60},
		u32leb(2), []byte{0x7f, 0x7f},
		u32leb(1), []byte{0x7f},
	))
	funcSec := section(wasm.SectionIDFunction, concat(u32leb(1), u32leb(0)))
	exportSec := section(wasm.SectionIDExport, concat(
		u32leb(1),
		u32leb(3), []byte("add"),
		[]byte{byte(wasm.ExportKindFunc)}, u32leb(0),
	))
	body := concat(
		[]byte{0x20, 0x00},
		[]byte{0x20, 0x01},
		[]byte{0x6a},
		[]byte{0x0b},
	)
	codeEntry := concat(u32leb(0), body)
	codeSec := section(wasm.SectionIDCode, concat(u32leb(1), u32leb(uint32(len(codeEntry))), codeEntry))

	return concat(header(), typeSec, funcSec, exportSec, codeSec)
}

func TestEndToEnd_Add(t *testing.T) {
	m, err := Decode(bytes.NewReader(addModuleBytes()))
	require.NoError(t, err)

	inst, err := Instantiate(m, emptyResolver{})
	require.NoError(t, err)

	results, err := inst.Invoke("add", ValI32(40), ValI32(2))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int32(42), results[0].I32())
}

func TestEndToEnd_UnknownExport(t *testing.T) {
	m, err := Decode(bytes.NewReader(addModuleBytes()))
	require.NoError(t, err)
	inst, err := Instantiate(m, emptyResolver{})
	require.NoError(t, err)

	_, err = inst.Invoke("missing")
	require.ErrorIs(t, err, wasm.ErrExportNotFound)
}

func TestEndToEnd_SignatureMismatch(t *testing.T) {
	m, err := Decode(bytes.NewReader(addModuleBytes()))
	require.NoError(t, err)
	inst, err := Instantiate(m, emptyResolver{})
	require.NoError(t, err)

	_, err = inst.Invoke("add", ValI32(1))
	require.ErrorIs(t, err, wasm.ErrSignatureMismatch)

	_, err = inst.Invoke("add", ValI32(1), ValI64(2))
	require.ErrorIs(t, err, wasm.ErrSignatureMismatch)
}

// hostImportModuleBytes imports env.double(i32) -> i32 and exports
// callDouble(i32) -> i32, which simply forwards to the import (spec.md §8
// scenario 3's shape: a module-to-host call through the import path).
func hostImportModuleBytes() []byte {
	typeSec := section(wasm.SectionIDType, concat(
		u32leb(1),
		[]byte{0x60},
		u32leb(1), []byte{0x7f},
		u32leb(1), []byte{0x7f},
	))
	importSec := section(wasm.SectionIDImport, concat(
		u32leb(1),
		u32leb(3), []byte("env"),
		u32leb(6), []byte("double"),
		[]byte{byte(wasm.ImportKindFunc)}, u32leb(0),
	))
	funcSec := section(wasm.SectionIDFunction, concat(u32leb(1), u32leb(0)))
	exportSec := section(wasm.SectionIDExport, concat(
		u32leb(1),
		u32leb(10), []byte("callDouble"),
		[]byte{byte(wasm.ExportKindFunc)}, u32leb(1), // index 1: first module-defined func (0 is the import)
	))
	body := concat(
		[]byte{0x20, 0x00}, // local.get 0
		[]byte{0x10}, u32leb(0), // call 0 (the import)
		[]byte{0x0b},
	)
	codeEntry := concat(u32leb(0), body)
	codeSec := section(wasm.SectionIDCode, concat(u32leb(1), u32leb(uint32(len(codeEntry))), codeEntry))

	return concat(header(), typeSec, importSec, funcSec, exportSec, codeSec)
}

func TestEndToEnd_HostImport(t *testing.T) {
	m, err := Decode(bytes.NewReader(hostImportModuleBytes()))
	require.NoError(t, err)

	hf, err := NewHostFunction(func(cc *CallContext, a int32) int32 { return a * 2 })
	require.NoError(t, err)

	resolver := funcResolver{module: "env", name: "double", fn: &wasm.FunctionInstance{
		Type: wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}},
		Host: hf,
	}}

	inst, err := Instantiate(m, resolver)
	require.NoError(t, err)

	results, err := inst.Invoke("callDouble", ValI32(21))
	require.NoError(t, err)
	require.Equal(t, int32(42), results[0].I32())
}

func TestEndToEnd_UnresolvedImportFails(t *testing.T) {
	m, err := Decode(bytes.NewReader(hostImportModuleBytes()))
	require.NoError(t, err)

	_, err = Instantiate(m, emptyResolver{})
	require.ErrorIs(t, err, wasm.ErrUnresolvedImport)
}

// dataSegmentModuleBytes declares one page of memory, writes "hi" via a
// data segment at offset 0, and exports a function that reads it back.
func dataSegmentModuleBytes() []byte {
	typeSec := section(wasm.SectionIDType, concat(
		u32leb(1),
		[]byte{0x60},
		u32leb(0),
		u32leb(1), []byte{0x7f},
	))
	funcSec := section(wasm.SectionIDFunction, concat(u32leb(1), u32leb(0)))
	memSec := section(wasm.SectionIDMemory, concat(u32leb(1), []byte{0x00}, u32leb(1)))
	exportSec := section(wasm.SectionIDExport, concat(
		u32leb(1),
		u32leb(8), []byte("readByte"),
		[]byte{byte(wasm.ExportKindFunc)}, u32leb(0),
	))
	dataSec := section(wasm.SectionIDData, concat(
		u32leb(1),
		u32leb(0), []byte{0x41}, i32leb(0), []byte{0x0b}, // memory 0, offset const i32.const 0, end
		u32leb(2), []byte("hi"),
	))
	body := concat(
		[]byte{0x41}, i32leb(0), // i32.const 0
		[]byte{0x2d}, u32leb(0), u32leb(0), // i32.load8_u align=0 offset=0
		[]byte{0x0b},
	)
	codeEntry := concat(u32leb(0), body)
	codeSec := section(wasm.SectionIDCode, concat(u32leb(1), u32leb(uint32(len(codeEntry))), codeEntry))

	return concat(header(), typeSec, funcSec, memSec, exportSec, codeSec, dataSec)
}

func TestEndToEnd_DataSegment(t *testing.T) {
	m, err := Decode(bytes.NewReader(dataSegmentModuleBytes()))
	require.NoError(t, err)

	inst, err := Instantiate(m, emptyResolver{})
	require.NoError(t, err)

	results, err := inst.Invoke("readByte")
	require.NoError(t, err)
	require.Equal(t, int32('h'), results[0].I32())
}

// TestInstantiateWithConfig_CustomFuncSequence confirms
// InstantiateWithConfig actually routes module-defined functions
// through a supplied Containers.NewFuncSeq instead of ignoring it.
func TestInstantiateWithConfig_CustomFuncSequence(t *testing.T) {
	built := false
	cfg := Config{
		Containers: wasm.Containers{
			NewFuncSeq: func(cap int) wasm.Sequence[*wasm.FunctionInstance] {
				built = true
				return wasm.NewSliceSequence[*wasm.FunctionInstance](cap)
			},
		},
	}

	m, err := Decode(bytes.NewReader(addModuleBytes()))
	require.NoError(t, err)

	inst, err := InstantiateWithConfig(m, emptyResolver{}, cfg)
	require.NoError(t, err)
	require.True(t, built)

	results, err := inst.Invoke("add", ValI32(40), ValI32(2))
	require.NoError(t, err)
	require.Equal(t, int32(42), results[0].I32())
}

// countingMapping is a minimal map-backed Mapping, used to confirm
// InstantiateWithConfig actually routes a function's block table through
// a supplied Containers.NewBlockMap instead of ignoring it.
type countingMapping struct {
	m map[uint32]wasm.BlockInfo
}

func (c *countingMapping) Get(key uint32) (wasm.BlockInfo, bool) { v, ok := c.m[key]; return v, ok }
func (c *countingMapping) Set(key uint32, v wasm.BlockInfo)      { c.m[key] = v }

func TestInstantiateWithConfig_CustomBlockMapping(t *testing.T) {
	built := false
	cfg := Config{
		Containers: wasm.Containers{
			NewBlockMap: func(cap int) wasm.Mapping[wasm.BlockInfo] {
				built = true
				return &countingMapping{m: make(map[uint32]wasm.BlockInfo, cap)}
			},
		},
	}

	// A module whose body actually contains a block, so the function's
	// block table is non-empty and genuinely exercised on call.
	typeSec := section(wasm.SectionIDType, concat(u32leb(1), []byte{0x60}, u32leb(0), u32leb(1), []byte{0x7f}))
	funcSec := section(wasm.SectionIDFunction, concat(u32leb(1), u32leb(0)))
	exportSec := section(wasm.SectionIDExport, concat(
		u32leb(1), u32leb(6), []byte("blocky"), []byte{byte(wasm.ExportKindFunc)}, u32leb(0),
	))
	body := concat(
		[]byte{0x02, 0x7f}, // block (result i32)
		[]byte{0x41}, i32leb(7), // i32.const 7
		[]byte{0x0b}, // end (block)
		[]byte{0x0b}, // end (function)
	)
	codeEntry := concat(u32leb(0), body)
	codeSec := section(wasm.SectionIDCode, concat(u32leb(1), u32leb(uint32(len(codeEntry))), codeEntry))
	raw := concat(header(), typeSec, funcSec, exportSec, codeSec)

	m, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	inst, err := InstantiateWithConfig(m, emptyResolver{}, cfg)
	require.NoError(t, err)
	require.True(t, built)

	results, err := inst.Invoke("blocky")
	require.NoError(t, err)
	require.Equal(t, int32(7), results[0].I32())
}

// wrongTypedOffsetModuleBytes declares an immutable f64 global and a data
// segment whose offset expression reads that global instead of an i32 one
// — malformed per the binary format's requirement that segment offsets be
// i32, regardless of which const-expr opcode computed them.
func wrongTypedOffsetModuleBytes() []byte {
	memSec := section(wasm.SectionIDMemory, concat(u32leb(1), []byte{0x00}, u32leb(1)))
	globalSec := section(wasm.SectionIDGlobal, concat(
		u32leb(1),
		[]byte{0x7c, 0x00}, // f64, immutable
		[]byte{0x44}, make([]byte, 8), []byte{0x0b}, // f64.const 0.0, end
	))
	dataSec := section(wasm.SectionIDData, concat(
		u32leb(1),
		u32leb(0), []byte{0x23}, u32leb(0), []byte{0x0b}, // memory 0, offset global.get 0, end
		u32leb(1), []byte("x"),
	))
	return concat(header(), memSec, globalSec, dataSec)
}

// TestInstantiate_WrongTypedOffsetExprFails confirms a malformed segment
// offset (wrong value type, not just wrong value) fails instantiation with
// a clean error instead of panicking through Val's type-checked accessors.
func TestInstantiate_WrongTypedOffsetExprFails(t *testing.T) {
	m, err := Decode(bytes.NewReader(wrongTypedOffsetModuleBytes()))
	require.NoError(t, err)

	_, err = Instantiate(m, emptyResolver{})
	require.ErrorIs(t, err, wasm.ErrInvalidConstExpr)
}

func TestInstantiateWithConfig_FuelExhausted(t *testing.T) {
	// A loop with no exit condition: must trap on fuel exhaustion rather
	// than hang.
	typeSec := section(wasm.SectionIDType, concat(u32leb(1), []byte{0x60}, u32leb(0), u32leb(0)))
	funcSec := section(wasm.SectionIDFunction, concat(u32leb(1), u32leb(0)))
	exportSec := section(wasm.SectionIDExport, concat(
		u32leb(1), u32leb(4), []byte("spin"), []byte{byte(wasm.ExportKindFunc)}, u32leb(0),
	))
	body := concat(
		[]byte{0x03, 0x40}, // loop (empty)
		[]byte{0x0c}, u32leb(0), // br 0
		[]byte{0x0b}, // end (loop)
		[]byte{0x0b}, // end (function)
	)
	codeEntry := concat(u32leb(0), body)
	codeSec := section(wasm.SectionIDCode, concat(u32leb(1), u32leb(uint32(len(codeEntry))), codeEntry))
	raw := concat(header(), typeSec, funcSec, exportSec, codeSec)

	m, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	fuel := uint64(10)
	inst, err := InstantiateWithConfig(m, emptyResolver{}, Config{Fuel: &fuel})
	require.NoError(t, err)

	_, err = inst.Invoke("spin")
	require.ErrorIs(t, err, wasm.ErrOutOfFuel)
}

package binary

import "github.com/sile/nowasm/wasm"

func decodeImport(d *reader) (wasm.Import, error) {
	mod, err := d.name()
	if err != nil {
		return wasm.Import{}, err
	}
	nm, err := d.name()
	if err != nil {
		return wasm.Import{}, err
	}
	kind, err := d.byte()
	if err != nil {
		return wasm.Import{}, err
	}
	desc := wasm.ImportDesc{Kind: wasm.ImportKind(kind)}
	switch desc.Kind {
	case wasm.ImportKindFunc:
		idx, err := d.u32()
		if err != nil {
			return wasm.Import{}, err
		}
		desc.FuncType = idx
	case wasm.ImportKindTable:
		tt, err := decodeTableType(d)
		if err != nil {
			return wasm.Import{}, err
		}
		desc.TableType = tt
	case wasm.ImportKindMemory:
		mt, err := decodeMemoryType(d)
		if err != nil {
			return wasm.Import{}, err
		}
		desc.MemoryType = mt
	case wasm.ImportKindGlobal:
		gt, err := decodeGlobalType(d)
		if err != nil {
			return wasm.Import{}, err
		}
		desc.GlobalType = gt
	default:
		return wasm.Import{}, wasm.ErrInvalidImportKind
	}
	return wasm.Import{Module: mod, Name: nm, Desc: desc}, nil
}

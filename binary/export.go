package binary

import "github.com/sile/nowasm/wasm"

func decodeExport(d *reader) (wasm.Export, error) {
	nm, err := d.name()
	if err != nil {
		return wasm.Export{}, err
	}
	kind, err := d.byte()
	if err != nil {
		return wasm.Export{}, err
	}
	switch wasm.ExportKind(kind) {
	case wasm.ExportKindFunc, wasm.ExportKindTable, wasm.ExportKindMemory, wasm.ExportKindGlobal:
	default:
		return wasm.Export{}, wasm.ErrInvalidExportKind
	}
	idx, err := d.u32()
	if err != nil {
		return wasm.Export{}, err
	}
	return wasm.Export{Name: nm, Desc: wasm.ExportDesc{Kind: wasm.ExportKind(kind), Index: idx}}, nil
}

func decodeGlobal(d *reader) (wasm.Global, error) {
	gt, err := decodeGlobalType(d)
	if err != nil {
		return wasm.Global{}, err
	}
	init, err := decodeConstExpr(d)
	if err != nil {
		return wasm.Global{}, err
	}
	return wasm.Global{Type: gt, Init: init}, nil
}

package binary

import "github.com/sile/nowasm/wasm"

func decodeElement(d *reader) (wasm.Element, error) {
	tableIdx, err := d.u32()
	if err != nil {
		return wasm.Element{}, err
	}
	offset, err := decodeConstExpr(d)
	if err != nil {
		return wasm.Element{}, err
	}
	init, err := vec(d, func(d *reader) (uint32, error) { return d.u32() })
	if err != nil {
		return wasm.Element{}, err
	}
	return wasm.Element{TableIndex: tableIdx, Offset: offset, Init: init}, nil
}

func decodeData(d *reader) (wasm.Data, error) {
	memIdx, err := d.u32()
	if err != nil {
		return wasm.Data{}, err
	}
	offset, err := decodeConstExpr(d)
	if err != nil {
		return wasm.Data{}, err
	}
	n, err := d.u32()
	if err != nil {
		return wasm.Data{}, err
	}
	init, err := d.bytes(n)
	if err != nil {
		return wasm.Data{}, err
	}
	return wasm.Data{MemoryIndex: memIdx, Offset: offset, Init: init}, nil
}

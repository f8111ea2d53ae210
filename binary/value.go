package binary

import "github.com/sile/nowasm/wasm"

func decodeValueType(d *reader) (wasm.ValueType, error) {
	b, err := d.byte()
	if err != nil {
		return 0, err
	}
	switch wasm.ValueType(b) {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return wasm.ValueType(b), nil
	default:
		return 0, wasm.ErrInvalidValueType
	}
}

func decodeValueTypes(d *reader) ([]wasm.ValueType, error) {
	return vec(d, decodeValueType)
}

func decodeFunctionType(d *reader) (wasm.FunctionType, error) {
	tag, err := d.byte()
	if err != nil {
		return wasm.FunctionType{}, err
	}
	if tag != 0x60 {
		return wasm.FunctionType{}, wasm.ErrInvalidValueType
	}
	params, err := decodeValueTypes(d)
	if err != nil {
		return wasm.FunctionType{}, err
	}
	results, err := decodeValueTypes(d)
	if err != nil {
		return wasm.FunctionType{}, err
	}
	return wasm.FunctionType{Params: params, Results: results}, nil
}

func decodeLimits(d *reader) (wasm.Limits, error) {
	flag, err := d.byte()
	if err != nil {
		return wasm.Limits{}, err
	}
	min, err := d.u32()
	if err != nil {
		return wasm.Limits{}, err
	}
	l := wasm.Limits{Min: min}
	switch flag {
	case 0x00:
	case 0x01:
		max, err := d.u32()
		if err != nil {
			return wasm.Limits{}, err
		}
		l.Max = &max
	default:
		return wasm.Limits{}, wasm.ErrInvalidMemoryLimits
	}
	return l, nil
}

func decodeTableType(d *reader) (wasm.TableType, error) {
	b, err := d.byte()
	if err != nil {
		return wasm.TableType{}, err
	}
	if wasm.TableElemType(b) != wasm.TableElemTypeFuncRef {
		return wasm.TableType{}, wasm.ErrInvalidTableLimits
	}
	limits, err := decodeLimits(d)
	if err != nil {
		return wasm.TableType{}, err
	}
	return wasm.TableType{ElemType: wasm.TableElemTypeFuncRef, Limits: limits}, nil
}

func decodeMemoryType(d *reader) (wasm.MemoryType, error) {
	limits, err := decodeLimits(d)
	if err != nil {
		return wasm.MemoryType{}, err
	}
	return wasm.MemoryType{Limits: limits}, nil
}

func decodeGlobalType(d *reader) (wasm.GlobalType, error) {
	vt, err := decodeValueType(d)
	if err != nil {
		return wasm.GlobalType{}, err
	}
	m, err := d.byte()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	if m != 0x00 && m != 0x01 {
		return wasm.GlobalType{}, wasm.ErrInvalidValueType
	}
	return wasm.GlobalType{ValType: vt, Mutable: m == 0x01}, nil
}

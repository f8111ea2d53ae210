package binary

import "github.com/sile/nowasm/wasm"

// decodeCode decodes one entry of the code section: a byte-length
// prefixed body consisting of a vector of (count, type) local
// declarations followed by the function's raw instruction bytes. The
// instruction bytes are kept as-is; the interpreter decodes opcodes
// lazily as it executes, the same division of labor as the teacher's
// naivevm engine (decode-time only locates the body, execution decodes
// instructions from it).
func decodeCode(d *reader) (wasm.Code, error) {
	size, err := d.u32()
	if err != nil {
		return wasm.Code{}, err
	}
	body, err := d.sub(size)
	if err != nil {
		return wasm.Code{}, err
	}
	localDecls, err := vec(body, decodeLocalDecl)
	if err != nil {
		return wasm.Code{}, err
	}
	var numLocals uint32
	var localTypes []wasm.ValueType
	for _, ld := range localDecls {
		numLocals += ld.count
		for i := uint32(0); i < ld.count; i++ {
			localTypes = append(localTypes, ld.typ)
		}
	}
	rest, err := readAll(body)
	if err != nil {
		return wasm.Code{}, err
	}
	return wasm.Code{NumLocals: numLocals, LocalTypes: localTypes, Body: rest}, nil
}

type localDecl struct {
	count uint32
	typ   wasm.ValueType
}

func decodeLocalDecl(d *reader) (localDecl, error) {
	n, err := d.u32()
	if err != nil {
		return localDecl{}, err
	}
	t, err := decodeValueType(d)
	if err != nil {
		return localDecl{}, err
	}
	return localDecl{count: n, typ: t}, nil
}

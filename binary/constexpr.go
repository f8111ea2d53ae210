package binary

import "github.com/sile/nowasm/wasm"

// decodeConstExpr decodes the restricted instruction set allowed for
// global initializers and element/data segment offsets, grounded on the
// teacher's const_expr.go readConstantExpression (same opcode
// whitelist), adapted to store the decoded immediate on wasm.ConstExpr
// directly instead of re-encoding it.
func decodeConstExpr(d *reader) (wasm.ConstExpr, error) {
	op, err := d.byte()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	var ce wasm.ConstExpr
	ce.Opcode = wasm.Opcode(op)
	switch ce.Opcode {
	case wasm.OpcodeI32Const:
		v, err := d.i32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.Val = wasm.ValI32(v)
	case wasm.OpcodeI64Const:
		v, err := d.i64()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.Val = wasm.ValI64(v)
	case wasm.OpcodeF32Const:
		b, err := d.bytes(4)
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.Val = wasm.ValFromBits(wasm.ValueTypeF32, uint64(le32(b)))
	case wasm.OpcodeF64Const:
		b, err := d.bytes(8)
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.Val = wasm.ValFromBits(wasm.ValueTypeF64, le64(b))
	case wasm.OpcodeGlobalGet:
		idx, err := d.u32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.GlobalIndex = idx
	default:
		return wasm.ConstExpr{}, wasm.ErrInvalidConstExpr
	}
	end, err := d.byte()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	if wasm.Opcode(end) != wasm.OpcodeEnd {
		return wasm.ConstExpr{}, wasm.ErrInvalidConstExpr
	}
	return ce, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	return uint64(le32(b[:4])) | uint64(le32(b[4:]))<<32
}

// Package interp is the stack-machine interpreter: given an allocated
// wasm.Instance, it executes a function's bytecode directly, without any
// prior translation to an intermediate form.
//
// The dispatch style, frame/label/operand stack shapes, and the
// fetch-immediate helpers are grounded on the teacher's
// wasm/naivevm/*.go (naiveVirtualMachine), generalized to add the trap
// checks that implementation left out (see DESIGN.md).
package interp

import (
	"bytes"

	"github.com/sile/nowasm/leb128"
	"github.com/sile/nowasm/wasm"
)

// AnalyzeBlocks scans a function body once, locating the matching
// else/end of every block/loop/if so the interpreter can resolve branch
// targets without re-scanning on every jump. Grounded on the teacher's
// analyzeFunction (store.go), which computes the same table as part of
// instantiation-time validation; this version skips the type-checking
// that function performs, since that is out of this interpreter's scope.
func AnalyzeBlocks(body []byte) (map[int]wasm.BlockInfo, error) {
	blocks := map[int]wasm.BlockInfo{}
	var stack []int // pcs of open block/loop/if instructions.

	pc := 0
	for pc < len(body) {
		op := wasm.Opcode(body[pc])
		switch op {
		case wasm.OpcodeBlock, wasm.OpcodeLoop, wasm.OpcodeIf:
			start := pc
			bt := body[pc+1]
			results := 0
			if bt != wasm.BlockTypeEmpty {
				results = 1
			}
			blocks[start] = wasm.BlockInfo{ResultCount: results, StartAt: pc + 2}
			stack = append(stack, start)
			pc += 2
		case wasm.OpcodeElse:
			if len(stack) == 0 {
				return nil, wasm.ErrInvalidConstExpr
			}
			top := stack[len(stack)-1]
			info := blocks[top]
			info.HasElse = true
			info.ElseAt = pc
			blocks[top] = info
			pc++
		case wasm.OpcodeEnd:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				info := blocks[top]
				info.EndAt = pc
				blocks[top] = info
			}
			pc++
		default:
			n, err := immediateLen(body[pc:])
			if err != nil {
				return nil, err
			}
			pc += 1 + n
		}
	}
	return blocks, nil
}

// immediateLen reports how many bytes follow the opcode at b[0] as its
// immediate operand(s), so a structural scan can skip over instructions
// it does not otherwise care about.
func immediateLen(b []byte) (int, error) {
	op := wasm.Opcode(b[0])
	switch op {
	case wasm.OpcodeBr, wasm.OpcodeBrIf, wasm.OpcodeCall,
		wasm.OpcodeLocalGet, wasm.OpcodeLocalSet, wasm.OpcodeLocalTee,
		wasm.OpcodeGlobalGet, wasm.OpcodeGlobalSet,
		wasm.OpcodeMemorySize, wasm.OpcodeMemoryGrow:
		_, n, err := leb128.DecodeUint32(bytes.NewReader(b[1:]))
		if err != nil {
			return 0, err
		}
		return int(n), nil
	case wasm.OpcodeI32Const:
		_, n, err := leb128.DecodeInt32(bytes.NewReader(b[1:]))
		if err != nil {
			return 0, err
		}
		return int(n), nil
	case wasm.OpcodeI64Const:
		_, n, err := leb128.DecodeInt64(bytes.NewReader(b[1:]))
		if err != nil {
			return 0, err
		}
		return int(n), nil
	case wasm.OpcodeCallIndirect:
		_, n, err := leb128.DecodeUint32(bytes.NewReader(b[1:]))
		if err != nil {
			return 0, err
		}
		return int(n) + 1, nil // plus the trailing reserved 0x00 byte.
	case wasm.OpcodeF32Const:
		return 4, nil
	case wasm.OpcodeF64Const:
		return 8, nil
	case wasm.OpcodeBrTable:
		r := bytes.NewReader(b[1:])
		count, n1, err := leb128.DecodeUint32(r)
		if err != nil {
			return 0, err
		}
		total := int(n1)
		for i := uint32(0); i < count; i++ {
			_, n, err := leb128.DecodeUint32(r)
			if err != nil {
				return 0, err
			}
			total += int(n)
		}
		_, n, err := leb128.DecodeUint32(r)
		if err != nil {
			return 0, err
		}
		return total + int(n), nil
	case wasm.OpcodeI32Load, wasm.OpcodeI64Load, wasm.OpcodeF32Load, wasm.OpcodeF64Load,
		wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U, wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U,
		wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U, wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U,
		wasm.OpcodeI64Load32S, wasm.OpcodeI64Load32U,
		wasm.OpcodeI32Store, wasm.OpcodeI64Store, wasm.OpcodeF32Store, wasm.OpcodeF64Store,
		wasm.OpcodeI32Store8, wasm.OpcodeI32Store16, wasm.OpcodeI64Store8, wasm.OpcodeI64Store16, wasm.OpcodeI64Store32:
		r := bytes.NewReader(b[1:])
		_, n1, err := leb128.DecodeUint32(r)
		if err != nil {
			return 0, err
		}
		_, n2, err := leb128.DecodeUint32(r)
		if err != nil {
			return 0, err
		}
		return int(n1 + n2), nil
	default:
		return 0, nil
	}
}

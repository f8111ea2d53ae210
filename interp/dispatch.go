package interp

import "github.com/sile/nowasm/wasm"

// dispatch is the opcode jump table the exec loop indexes into.
// Grounded on the teacher's vm.go virtualMachineInstructions table.
var dispatch = [256]func(*VM){
	wasm.OpcodeUnreachable:  unreachable,
	wasm.OpcodeNop:          nop,
	wasm.OpcodeBlock:        block,
	wasm.OpcodeLoop:         loop,
	wasm.OpcodeIf:           ifOp,
	wasm.OpcodeElse:         elseOp,
	wasm.OpcodeEnd:          end,
	wasm.OpcodeBr:           br,
	wasm.OpcodeBrIf:         brIf,
	wasm.OpcodeBrTable:      brTable,
	wasm.OpcodeReturn:       returnOp,
	wasm.OpcodeCall:         call,
	wasm.OpcodeCallIndirect: callIndirect,

	wasm.OpcodeDrop:   drop,
	wasm.OpcodeSelect: selectOp,

	wasm.OpcodeLocalGet:  getLocal,
	wasm.OpcodeLocalSet:  setLocal,
	wasm.OpcodeLocalTee:  teeLocal,
	wasm.OpcodeGlobalGet: getGlobal,
	wasm.OpcodeGlobalSet: setGlobal,

	wasm.OpcodeI32Load:    i32Load,
	wasm.OpcodeI64Load:    i64Load,
	wasm.OpcodeF32Load:    f32Load,
	wasm.OpcodeF64Load:    f64Load,
	wasm.OpcodeI32Load8S:  i32Load8S,
	wasm.OpcodeI32Load8U:  i32Load8U,
	wasm.OpcodeI32Load16S: i32Load16S,
	wasm.OpcodeI32Load16U: i32Load16U,
	wasm.OpcodeI64Load8S:  i64Load8S,
	wasm.OpcodeI64Load8U:  i64Load8U,
	wasm.OpcodeI64Load16S: i64Load16S,
	wasm.OpcodeI64Load16U: i64Load16U,
	wasm.OpcodeI64Load32S: i64Load32S,
	wasm.OpcodeI64Load32U: i64Load32U,
	wasm.OpcodeI32Store:   i32Store,
	wasm.OpcodeI64Store:   i64Store,
	wasm.OpcodeF32Store:   f32Store,
	wasm.OpcodeF64Store:   f64Store,
	wasm.OpcodeI32Store8:  i32Store8,
	wasm.OpcodeI32Store16: i32Store16,
	wasm.OpcodeI64Store8:  i64Store8,
	wasm.OpcodeI64Store16: i64Store16,
	wasm.OpcodeI64Store32: i64Store32,
	wasm.OpcodeMemorySize: memorySize,
	wasm.OpcodeMemoryGrow: memoryGrow,

	wasm.OpcodeI32Const: i32Const,
	wasm.OpcodeI64Const: i64Const,
	wasm.OpcodeF32Const: f32Const,
	wasm.OpcodeF64Const: f64Const,

	wasm.OpcodeI32Eqz: i32Eqz,
	wasm.OpcodeI32Eq:  i32Eq,
	wasm.OpcodeI32Ne:  i32Ne,
	wasm.OpcodeI32LtS: i32LtS,
	wasm.OpcodeI32LtU: i32LtU,
	wasm.OpcodeI32GtS: i32GtS,
	wasm.OpcodeI32GtU: i32GtU,
	wasm.OpcodeI32LeS: i32LeS,
	wasm.OpcodeI32LeU: i32LeU,
	wasm.OpcodeI32GeS: i32GeS,
	wasm.OpcodeI32GeU: i32GeU,

	wasm.OpcodeI64Eqz: i64Eqz,
	wasm.OpcodeI64Eq:  i64Eq,
	wasm.OpcodeI64Ne:  i64Ne,
	wasm.OpcodeI64LtS: i64LtS,
	wasm.OpcodeI64LtU: i64LtU,
	wasm.OpcodeI64GtS: i64GtS,
	wasm.OpcodeI64GtU: i64GtU,
	wasm.OpcodeI64LeS: i64LeS,
	wasm.OpcodeI64LeU: i64LeU,
	wasm.OpcodeI64GeS: i64GeS,
	wasm.OpcodeI64GeU: i64GeU,

	wasm.OpcodeF32Eq: f32Eq,
	wasm.OpcodeF32Ne: f32Ne,
	wasm.OpcodeF32Lt: f32Lt,
	wasm.OpcodeF32Gt: f32Gt,
	wasm.OpcodeF32Le: f32Le,
	wasm.OpcodeF32Ge: f32Ge,
	wasm.OpcodeF64Eq: f64Eq,
	wasm.OpcodeF64Ne: f64Ne,
	wasm.OpcodeF64Lt: f64Lt,
	wasm.OpcodeF64Gt: f64Gt,
	wasm.OpcodeF64Le: f64Le,
	wasm.OpcodeF64Ge: f64Ge,

	wasm.OpcodeI32Clz:    i32Clz,
	wasm.OpcodeI32Ctz:    i32Ctz,
	wasm.OpcodeI32Popcnt: i32Popcnt,
	wasm.OpcodeI32Add:    i32Add,
	wasm.OpcodeI32Sub:    i32Sub,
	wasm.OpcodeI32Mul:    i32Mul,
	wasm.OpcodeI32DivS:   i32DivS,
	wasm.OpcodeI32DivU:   i32DivU,
	wasm.OpcodeI32RemS:   i32RemS,
	wasm.OpcodeI32RemU:   i32RemU,
	wasm.OpcodeI32And:    i32And,
	wasm.OpcodeI32Or:     i32Or,
	wasm.OpcodeI32Xor:    i32Xor,
	wasm.OpcodeI32Shl:    i32Shl,
	wasm.OpcodeI32ShrS:   i32ShrS,
	wasm.OpcodeI32ShrU:   i32ShrU,
	wasm.OpcodeI32Rotl:   i32Rotl,
	wasm.OpcodeI32Rotr:   i32Rotr,

	wasm.OpcodeI64Clz:    i64Clz,
	wasm.OpcodeI64Ctz:    i64Ctz,
	wasm.OpcodeI64Popcnt: i64Popcnt,
	wasm.OpcodeI64Add:    i64Add,
	wasm.OpcodeI64Sub:    i64Sub,
	wasm.OpcodeI64Mul:    i64Mul,
	wasm.OpcodeI64DivS:   i64DivS,
	wasm.OpcodeI64DivU:   i64DivU,
	wasm.OpcodeI64RemS:   i64RemS,
	wasm.OpcodeI64RemU:   i64RemU,
	wasm.OpcodeI64And:    i64And,
	wasm.OpcodeI64Or:     i64Or,
	wasm.OpcodeI64Xor:    i64Xor,
	wasm.OpcodeI64Shl:    i64Shl,
	wasm.OpcodeI64ShrS:   i64ShrS,
	wasm.OpcodeI64ShrU:   i64ShrU,
	wasm.OpcodeI64Rotl:   i64Rotl,
	wasm.OpcodeI64Rotr:   i64Rotr,

	wasm.OpcodeF32Abs:      f32Abs,
	wasm.OpcodeF32Neg:      f32Neg,
	wasm.OpcodeF32Ceil:     f32Ceil,
	wasm.OpcodeF32Floor:    f32Floor,
	wasm.OpcodeF32Trunc:    f32Trunc,
	wasm.OpcodeF32Nearest:  f32Nearest,
	wasm.OpcodeF32Sqrt:     f32Sqrt,
	wasm.OpcodeF32Add:      f32Add,
	wasm.OpcodeF32Sub:      f32Sub,
	wasm.OpcodeF32Mul:      f32Mul,
	wasm.OpcodeF32Div:      f32Div,
	wasm.OpcodeF32Min:      f32Min,
	wasm.OpcodeF32Max:      f32Max,
	wasm.OpcodeF32Copysign: f32Copysign,

	wasm.OpcodeF64Abs:      f64Abs,
	wasm.OpcodeF64Neg:      f64Neg,
	wasm.OpcodeF64Ceil:     f64Ceil,
	wasm.OpcodeF64Floor:    f64Floor,
	wasm.OpcodeF64Trunc:    f64Trunc,
	wasm.OpcodeF64Nearest:  f64Nearest,
	wasm.OpcodeF64Sqrt:     f64Sqrt,
	wasm.OpcodeF64Add:      f64Add,
	wasm.OpcodeF64Sub:      f64Sub,
	wasm.OpcodeF64Mul:      f64Mul,
	wasm.OpcodeF64Div:      f64Div,
	wasm.OpcodeF64Min:      f64Min,
	wasm.OpcodeF64Max:      f64Max,
	wasm.OpcodeF64Copysign: f64Copysign,

	wasm.OpcodeI32WrapI64:      i32WrapI64,
	wasm.OpcodeI32TruncF32S:    i32TruncF32S,
	wasm.OpcodeI32TruncF32U:    i32TruncF32U,
	wasm.OpcodeI32TruncF64S:    i32TruncF64S,
	wasm.OpcodeI32TruncF64U:    i32TruncF64U,
	wasm.OpcodeI64ExtendI32S:   i64ExtendI32S,
	wasm.OpcodeI64ExtendI32U:   i64ExtendI32U,
	wasm.OpcodeI64TruncF32S:    i64TruncF32S,
	wasm.OpcodeI64TruncF32U:    i64TruncF32U,
	wasm.OpcodeI64TruncF64S:    i64TruncF64S,
	wasm.OpcodeI64TruncF64U:    i64TruncF64U,
	wasm.OpcodeF32ConvertI32S:  f32ConvertI32S,
	wasm.OpcodeF32ConvertI32U:  f32ConvertI32U,
	wasm.OpcodeF32ConvertI64S:  f32ConvertI64S,
	wasm.OpcodeF32ConvertI64U:  f32ConvertI64U,
	wasm.OpcodeF32DemoteF64:    f32DemoteF64,
	wasm.OpcodeF64ConvertI32S:  f64ConvertI32S,
	wasm.OpcodeF64ConvertI32U:  f64ConvertI32U,
	wasm.OpcodeF64ConvertI64S:  f64ConvertI64S,
	wasm.OpcodeF64ConvertI64U:  f64ConvertI64U,
	wasm.OpcodeF64PromoteF32:   f64PromoteF32,
	wasm.OpcodeI32ReinterpretF32: i32ReinterpretF32,
	wasm.OpcodeI64ReinterpretF64: i64ReinterpretF64,
	wasm.OpcodeF32ReinterpretI32: f32ReinterpretI32,
	wasm.OpcodeF64ReinterpretI64: f64ReinterpretI64,

	wasm.OpcodeI32Extend8S:  i32Extend8S,
	wasm.OpcodeI32Extend16S: i32Extend16S,
	wasm.OpcodeI64Extend8S:  i64Extend8S,
	wasm.OpcodeI64Extend16S: i64Extend16S,
	wasm.OpcodeI64Extend32S: i64Extend32S,
}

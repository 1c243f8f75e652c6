package wasm

import "fmt"

// ValType is the result type of an instruction. None and Unreachable are not
// value types; they describe instructions that leave nothing on the stack and
// instructions that never fall through, respectively.
type ValType uint8

const (
	None ValType = iota
	I32
	I64
	F32
	F64
	V128
	Unreachable
)

func (t ValType) String() string {
	switch t {
	case None:
		return "none"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	case Unreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("ValType(%d)", t)
	}
}

// IsValue reports whether t describes a value left on the operand stack.
func (t ValType) IsValue() bool {
	return t >= I32 && t <= V128
}

// code returns the binary encoding of a value type.
func (t ValType) code() byte {
	switch t {
	case I32:
		return 0x7F
	case I64:
		return 0x7E
	case F32:
		return 0x7D
	case F64:
		return 0x7C
	case V128:
		return 0x7B
	default:
		panic("not a value type: " + t.String())
	}
}

// WASM Opcode Constants
const (
	UNREACHABLE = 0x00
	NOP         = 0x01
	BLOCK       = 0x02
	LOOP        = 0x03
	IF          = 0x04
	ELSE        = 0x05
	END         = 0x0B
	BR          = 0x0C
	BR_IF       = 0x0D
	RETURN      = 0x0F
	CALL        = 0x10
	DROP        = 0x1A
	LOCAL_GET   = 0x20
	LOCAL_SET   = 0x21
	GLOBAL_GET  = 0x23

	I32_CONST = 0x41
	I64_CONST = 0x42
	F32_CONST = 0x43
	F64_CONST = 0x44

	I32_EQZ  = 0x45
	I32_EQ   = 0x46
	I32_NE   = 0x47
	I32_LT_S = 0x48
	I32_GT_S = 0x4A
	I32_LE_S = 0x4C
	I32_GE_S = 0x4E

	I64_EQZ  = 0x50
	I64_EQ   = 0x51
	I64_NE   = 0x52
	I64_LT_S = 0x53
	I64_GT_S = 0x55
	I64_LE_S = 0x57
	I64_GE_S = 0x59

	F32_EQ = 0x5B
	F32_NE = 0x5C
	F32_LT = 0x5D
	F32_GT = 0x5E
	F32_LE = 0x5F
	F32_GE = 0x60

	F64_EQ = 0x61
	F64_NE = 0x62
	F64_LT = 0x63
	F64_GT = 0x64
	F64_LE = 0x65
	F64_GE = 0x66

	I32_ADD   = 0x6A
	I32_SUB   = 0x6B
	I32_MUL   = 0x6C
	I32_DIV_S = 0x6D
	I32_REM_S = 0x6F
	I32_AND   = 0x71
	I32_OR    = 0x72
	I32_XOR   = 0x73

	I64_ADD   = 0x7C
	I64_SUB   = 0x7D
	I64_MUL   = 0x7E
	I64_DIV_S = 0x7F
	I64_REM_S = 0x81
	I64_AND   = 0x83
	I64_OR    = 0x84

	F32_NEG = 0x8C
	F32_ADD = 0x92
	F32_SUB = 0x93
	F32_MUL = 0x94
	F32_DIV = 0x95

	F64_NEG = 0x9A
	F64_ADD = 0xA0
	F64_SUB = 0xA1
	F64_MUL = 0xA2
	F64_DIV = 0xA3
)

// opInfo describes a numeric instruction: the type of each of its operands,
// how many operands it pops, and what it pushes.
type opInfo struct {
	name    string
	operand ValType
	arity   int
	result  ValType
}

var numericOps = map[byte]opInfo{
	I32_EQZ:  {"i32.eqz", I32, 1, I32},
	I32_EQ:   {"i32.eq", I32, 2, I32},
	I32_NE:   {"i32.ne", I32, 2, I32},
	I32_LT_S: {"i32.lt_s", I32, 2, I32},
	I32_GT_S: {"i32.gt_s", I32, 2, I32},
	I32_LE_S: {"i32.le_s", I32, 2, I32},
	I32_GE_S: {"i32.ge_s", I32, 2, I32},

	I64_EQZ:  {"i64.eqz", I64, 1, I32},
	I64_EQ:   {"i64.eq", I64, 2, I32},
	I64_NE:   {"i64.ne", I64, 2, I32},
	I64_LT_S: {"i64.lt_s", I64, 2, I32},
	I64_GT_S: {"i64.gt_s", I64, 2, I32},
	I64_LE_S: {"i64.le_s", I64, 2, I32},
	I64_GE_S: {"i64.ge_s", I64, 2, I32},

	F32_EQ: {"f32.eq", F32, 2, I32},
	F32_NE: {"f32.ne", F32, 2, I32},
	F32_LT: {"f32.lt", F32, 2, I32},
	F32_GT: {"f32.gt", F32, 2, I32},
	F32_LE: {"f32.le", F32, 2, I32},
	F32_GE: {"f32.ge", F32, 2, I32},

	F64_EQ: {"f64.eq", F64, 2, I32},
	F64_NE: {"f64.ne", F64, 2, I32},
	F64_LT: {"f64.lt", F64, 2, I32},
	F64_GT: {"f64.gt", F64, 2, I32},
	F64_LE: {"f64.le", F64, 2, I32},
	F64_GE: {"f64.ge", F64, 2, I32},

	I32_ADD:   {"i32.add", I32, 2, I32},
	I32_SUB:   {"i32.sub", I32, 2, I32},
	I32_MUL:   {"i32.mul", I32, 2, I32},
	I32_DIV_S: {"i32.div_s", I32, 2, I32},
	I32_REM_S: {"i32.rem_s", I32, 2, I32},
	I32_AND:   {"i32.and", I32, 2, I32},
	I32_OR:    {"i32.or", I32, 2, I32},
	I32_XOR:   {"i32.xor", I32, 2, I32},

	I64_ADD:   {"i64.add", I64, 2, I64},
	I64_SUB:   {"i64.sub", I64, 2, I64},
	I64_MUL:   {"i64.mul", I64, 2, I64},
	I64_DIV_S: {"i64.div_s", I64, 2, I64},
	I64_REM_S: {"i64.rem_s", I64, 2, I64},
	I64_AND:   {"i64.and", I64, 2, I64},
	I64_OR:    {"i64.or", I64, 2, I64},

	F32_NEG: {"f32.neg", F32, 1, F32},
	F32_ADD: {"f32.add", F32, 2, F32},
	F32_SUB: {"f32.sub", F32, 2, F32},
	F32_MUL: {"f32.mul", F32, 2, F32},
	F32_DIV: {"f32.div", F32, 2, F32},

	F64_NEG: {"f64.neg", F64, 1, F64},
	F64_ADD: {"f64.add", F64, 2, F64},
	F64_SUB: {"f64.sub", F64, 2, F64},
	F64_MUL: {"f64.mul", F64, 2, F64},
	F64_DIV: {"f64.div", F64, 2, F64},
}

// OpName returns the text-format mnemonic for a numeric opcode.
func OpName(op byte) string {
	if info, ok := numericOps[op]; ok {
		return info.name
	}
	return fmt.Sprintf("op(0x%02X)", op)
}

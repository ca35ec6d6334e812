package cpu

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// CodeOp is an instruction opcode byte.
type CodeOp byte

const (
	OP_HLT = CodeOp(0) // Also "none".

	OP_MOV_REG_TO_REG           = CodeOp(1)
	OP_MOV_ADDRESS_TO_REG       = CodeOp(2)
	OP_MOV_REGADDRESS_TO_REG    = CodeOp(3)
	OP_MOV_REG_TO_ADDRESS       = CodeOp(4)
	OP_MOV_REG_TO_REGADDRESS    = CodeOp(5)
	OP_MOV_NUMBER_TO_REG        = CodeOp(6)
	OP_MOV_NUMBER_TO_ADDRESS    = CodeOp(7)
	OP_MOV_NUMBER_TO_REGADDRESS = CodeOp(8)

	OP_ADD_REG_TO_REG        = CodeOp(10)
	OP_ADD_REGADDRESS_TO_REG = CodeOp(11)
	OP_ADD_ADDRESS_TO_REG    = CodeOp(12)
	OP_ADD_NUMBER_TO_REG     = CodeOp(13)

	OP_SUB_REG_FROM_REG        = CodeOp(14)
	OP_SUB_REGADDRESS_FROM_REG = CodeOp(15)
	OP_SUB_ADDRESS_FROM_REG    = CodeOp(16)
	OP_SUB_NUMBER_FROM_REG     = CodeOp(17)

	OP_INC_REG = CodeOp(18)
	OP_DEC_REG = CodeOp(19)

	OP_CMP_REG_WITH_REG        = CodeOp(20)
	OP_CMP_REGADDRESS_WITH_REG = CodeOp(21)
	OP_CMP_ADDRESS_WITH_REG    = CodeOp(22)
	OP_CMP_NUMBER_WITH_REG     = CodeOp(23)

	OP_JMP_REGADDRESS = CodeOp(30)
	OP_JMP_ADDRESS    = CodeOp(31)
	OP_JC_REGADDRESS  = CodeOp(32)
	OP_JC_ADDRESS     = CodeOp(33)
	OP_JNC_REGADDRESS = CodeOp(34)
	OP_JNC_ADDRESS    = CodeOp(35)
	OP_JZ_REGADDRESS  = CodeOp(36)
	OP_JZ_ADDRESS     = CodeOp(37)
	OP_JNZ_REGADDRESS = CodeOp(38)
	OP_JNZ_ADDRESS    = CodeOp(39)
	OP_JA_REGADDRESS  = CodeOp(40)
	OP_JA_ADDRESS     = CodeOp(41)
	OP_JNA_REGADDRESS = CodeOp(42)
	OP_JNA_ADDRESS    = CodeOp(43)

	OP_PUSH_REG        = CodeOp(50)
	OP_PUSH_REGADDRESS = CodeOp(51)
	OP_PUSH_ADDRESS    = CodeOp(52)
	OP_PUSH_NUMBER     = CodeOp(53)
	OP_POP_REG         = CodeOp(54)
	OP_CALL_REGADDRESS = CodeOp(55)
	OP_CALL_ADDRESS    = CodeOp(56)
	OP_RET             = CodeOp(57)

	OP_MUL_REG        = CodeOp(60)
	OP_MUL_REGADDRESS = CodeOp(61)
	OP_MUL_ADDRESS    = CodeOp(62)
	OP_MUL_NUMBER     = CodeOp(63)
	OP_DIV_REG        = CodeOp(64)
	OP_DIV_REGADDRESS = CodeOp(65)
	OP_DIV_ADDRESS    = CodeOp(66)
	OP_DIV_NUMBER     = CodeOp(67)

	OP_AND_REG_WITH_REG        = CodeOp(70)
	OP_AND_REGADDRESS_WITH_REG = CodeOp(71)
	OP_AND_ADDRESS_WITH_REG    = CodeOp(72)
	OP_AND_NUMBER_WITH_REG     = CodeOp(73)
	OP_OR_REG_WITH_REG         = CodeOp(74)
	OP_OR_REGADDRESS_WITH_REG  = CodeOp(75)
	OP_OR_ADDRESS_WITH_REG     = CodeOp(76)
	OP_OR_NUMBER_WITH_REG      = CodeOp(77)
	OP_XOR_REG_WITH_REG        = CodeOp(78)
	OP_XOR_REGADDRESS_WITH_REG = CodeOp(79)
	OP_XOR_ADDRESS_WITH_REG    = CodeOp(80)
	OP_XOR_NUMBER_WITH_REG     = CodeOp(81)
	OP_NOT_REG                 = CodeOp(82)

	OP_SHL_REG_WITH_REG        = CodeOp(90)
	OP_SHL_REGADDRESS_WITH_REG = CodeOp(91)
	OP_SHL_ADDRESS_WITH_REG    = CodeOp(92)
	OP_SHL_NUMBER_WITH_REG     = CodeOp(93)
	OP_SHR_REG_WITH_REG        = CodeOp(94)
	OP_SHR_REGADDRESS_WITH_REG = CodeOp(95)
	OP_SHR_ADDRESS_WITH_REG    = CodeOp(96)
	OP_SHR_NUMBER_WITH_REG     = CodeOp(97)
)

// MNEMONIC_DB is the data pseudo-instruction. It emits raw bytes and has
// no opcode.
const MNEMONIC_DB = "DB"

// Encoding is one legal operand combination of a mnemonic.
type Encoding struct {
	Mnemonic string
	Op       CodeOp
	Operand  [2]OperandKind
}

// Arity returns the number of operand bytes following the opcode.
func (enc Encoding) Arity() (n int) {
	for _, kind := range enc.Operand {
		if kind != KIND_NONE {
			n++
		}
	}
	return
}

// Size returns the encoded length in bytes.
func (enc Encoding) Size() int {
	return 1 + enc.Arity()
}

// String returns the mnemonic and its operand kinds.
func (enc Encoding) String() string {
	switch enc.Arity() {
	case 0:
		return enc.Mnemonic
	case 1:
		return fmt.Sprintf("%v %v", enc.Mnemonic, enc.Operand[0])
	default:
		return fmt.Sprintf("%v %v,%v", enc.Mnemonic, enc.Operand[0], enc.Operand[1])
	}
}

// String returns the encoding of the opcode, or its value if unassigned.
func (op CodeOp) String() string {
	enc, ok := Lookup(op)
	if !ok {
		return fmt.Sprintf("CodeOp(%d)", byte(op))
	}
	return enc.String()
}

// aluEncodings lists the reg,X forms shared by the two operand ALU mnemonics.
func aluEncodings(mnemonic string, reg, regaddress, address, number CodeOp) []Encoding {
	return []Encoding{
		{mnemonic, reg, [2]OperandKind{KIND_REGISTER, KIND_REGISTER}},
		{mnemonic, regaddress, [2]OperandKind{KIND_REGISTER, KIND_REGADDRESS}},
		{mnemonic, address, [2]OperandKind{KIND_REGISTER, KIND_ADDRESS}},
		{mnemonic, number, [2]OperandKind{KIND_REGISTER, KIND_NUMBER}},
	}
}

// jumpEncodings lists the register and address forms of a jump.
func jumpEncodings(mnemonic string, regaddress, address CodeOp) []Encoding {
	return []Encoding{
		{mnemonic, regaddress, [2]OperandKind{KIND_REGISTER, KIND_NONE}},
		{mnemonic, address, [2]OperandKind{KIND_NUMBER, KIND_NONE}},
	}
}

// unaryEncodings lists the four single operand forms of PUSH, MUL and DIV.
func unaryEncodings(mnemonic string, reg, regaddress, address, number CodeOp) []Encoding {
	return []Encoding{
		{mnemonic, reg, [2]OperandKind{KIND_REGISTER, KIND_NONE}},
		{mnemonic, regaddress, [2]OperandKind{KIND_REGADDRESS, KIND_NONE}},
		{mnemonic, address, [2]OperandKind{KIND_ADDRESS, KIND_NONE}},
		{mnemonic, number, [2]OperandKind{KIND_NUMBER, KIND_NONE}},
	}
}

// instructionSet is every legal encoding, keyed by canonical mnemonic.
var instructionSet = map[string][]Encoding{
	"HLT": {{"HLT", OP_HLT, [2]OperandKind{}}},
	"RET": {{"RET", OP_RET, [2]OperandKind{}}},
	"MOV": {
		{"MOV", OP_MOV_REG_TO_REG, [2]OperandKind{KIND_REGISTER, KIND_REGISTER}},
		{"MOV", OP_MOV_ADDRESS_TO_REG, [2]OperandKind{KIND_REGISTER, KIND_ADDRESS}},
		{"MOV", OP_MOV_REGADDRESS_TO_REG, [2]OperandKind{KIND_REGISTER, KIND_REGADDRESS}},
		{"MOV", OP_MOV_REG_TO_ADDRESS, [2]OperandKind{KIND_ADDRESS, KIND_REGISTER}},
		{"MOV", OP_MOV_REG_TO_REGADDRESS, [2]OperandKind{KIND_REGADDRESS, KIND_REGISTER}},
		{"MOV", OP_MOV_NUMBER_TO_REG, [2]OperandKind{KIND_REGISTER, KIND_NUMBER}},
		{"MOV", OP_MOV_NUMBER_TO_ADDRESS, [2]OperandKind{KIND_ADDRESS, KIND_NUMBER}},
		{"MOV", OP_MOV_NUMBER_TO_REGADDRESS, [2]OperandKind{KIND_REGADDRESS, KIND_NUMBER}},
	},
	"ADD":  aluEncodings("ADD", OP_ADD_REG_TO_REG, OP_ADD_REGADDRESS_TO_REG, OP_ADD_ADDRESS_TO_REG, OP_ADD_NUMBER_TO_REG),
	"SUB":  aluEncodings("SUB", OP_SUB_REG_FROM_REG, OP_SUB_REGADDRESS_FROM_REG, OP_SUB_ADDRESS_FROM_REG, OP_SUB_NUMBER_FROM_REG),
	"CMP":  aluEncodings("CMP", OP_CMP_REG_WITH_REG, OP_CMP_REGADDRESS_WITH_REG, OP_CMP_ADDRESS_WITH_REG, OP_CMP_NUMBER_WITH_REG),
	"AND":  aluEncodings("AND", OP_AND_REG_WITH_REG, OP_AND_REGADDRESS_WITH_REG, OP_AND_ADDRESS_WITH_REG, OP_AND_NUMBER_WITH_REG),
	"OR":   aluEncodings("OR", OP_OR_REG_WITH_REG, OP_OR_REGADDRESS_WITH_REG, OP_OR_ADDRESS_WITH_REG, OP_OR_NUMBER_WITH_REG),
	"XOR":  aluEncodings("XOR", OP_XOR_REG_WITH_REG, OP_XOR_REGADDRESS_WITH_REG, OP_XOR_ADDRESS_WITH_REG, OP_XOR_NUMBER_WITH_REG),
	"SHL":  aluEncodings("SHL", OP_SHL_REG_WITH_REG, OP_SHL_REGADDRESS_WITH_REG, OP_SHL_ADDRESS_WITH_REG, OP_SHL_NUMBER_WITH_REG),
	"SHR":  aluEncodings("SHR", OP_SHR_REG_WITH_REG, OP_SHR_REGADDRESS_WITH_REG, OP_SHR_ADDRESS_WITH_REG, OP_SHR_NUMBER_WITH_REG),
	"INC":  {{"INC", OP_INC_REG, [2]OperandKind{KIND_REGISTER, KIND_NONE}}},
	"DEC":  {{"DEC", OP_DEC_REG, [2]OperandKind{KIND_REGISTER, KIND_NONE}}},
	"NOT":  {{"NOT", OP_NOT_REG, [2]OperandKind{KIND_REGISTER, KIND_NONE}}},
	"POP":  {{"POP", OP_POP_REG, [2]OperandKind{KIND_REGISTER, KIND_NONE}}},
	"JMP":  jumpEncodings("JMP", OP_JMP_REGADDRESS, OP_JMP_ADDRESS),
	"JC":   jumpEncodings("JC", OP_JC_REGADDRESS, OP_JC_ADDRESS),
	"JNC":  jumpEncodings("JNC", OP_JNC_REGADDRESS, OP_JNC_ADDRESS),
	"JZ":   jumpEncodings("JZ", OP_JZ_REGADDRESS, OP_JZ_ADDRESS),
	"JNZ":  jumpEncodings("JNZ", OP_JNZ_REGADDRESS, OP_JNZ_ADDRESS),
	"JA":   jumpEncodings("JA", OP_JA_REGADDRESS, OP_JA_ADDRESS),
	"JNA":  jumpEncodings("JNA", OP_JNA_REGADDRESS, OP_JNA_ADDRESS),
	"CALL": jumpEncodings("CALL", OP_CALL_REGADDRESS, OP_CALL_ADDRESS),
	"PUSH": unaryEncodings("PUSH", OP_PUSH_REG, OP_PUSH_REGADDRESS, OP_PUSH_ADDRESS, OP_PUSH_NUMBER),
	"MUL":  unaryEncodings("MUL", OP_MUL_REG, OP_MUL_REGADDRESS, OP_MUL_ADDRESS, OP_MUL_NUMBER),
	"DIV":  unaryEncodings("DIV", OP_DIV_REG, OP_DIV_REGADDRESS, OP_DIV_ADDRESS, OP_DIV_NUMBER),
}

// aliasMap maps alternate mnemonics to their canonical form.
var aliasMap = map[string]string{
	"JB":   "JC",
	"JNAE": "JC",
	"JNB":  "JNC",
	"JAE":  "JNC",
	"JE":   "JZ",
	"JNE":  "JNZ",
	"JNBE": "JA",
	"JBE":  "JNA",
	"SAL":  "SHL",
	"SAR":  "SHR",
}

// opMap is the reverse of instructionSet.
var opMap = func() map[CodeOp]Encoding {
	ops := make(map[CodeOp]Encoding)
	for _, encs := range instructionSet {
		for _, enc := range encs {
			ops[enc.Op] = enc
		}
	}
	return ops
}()

// Canonical returns the upper case canonical spelling of a mnemonic.
func Canonical(mnemonic string) string {
	name := strings.ToUpper(mnemonic)
	if alias, ok := aliasMap[name]; ok {
		return alias
	}
	return name
}

// Arity returns the operand count of a mnemonic.
func Arity(mnemonic string) (n int, ok bool) {
	if strings.ToUpper(mnemonic) == MNEMONIC_DB {
		return 1, true
	}

	encs, ok := instructionSet[Canonical(mnemonic)]
	if !ok {
		return
	}

	n = encs[0].Arity()
	return
}

// SelectOpcode returns the opcode of a mnemonic for a pair of operand
// kinds. Use KIND_NONE for absent operands.
func SelectOpcode(mnemonic string, a, b OperandKind) (op CodeOp, err error) {
	encs, ok := instructionSet[Canonical(mnemonic)]
	if !ok {
		err = ErrUnknownMnemonic(mnemonic)
		return
	}

	kinds := [2]OperandKind{a, b}
	for _, enc := range encs {
		if enc.Operand == kinds {
			op = enc.Op
			return
		}
	}

	err = ErrUnsupportedOperands(strings.ToUpper(mnemonic))
	return
}

// Lookup returns the encoding of an opcode.
func Lookup(op CodeOp) (enc Encoding, ok bool) {
	enc, ok = opMap[op]
	return
}

// Mnemonics returns the canonical mnemonics, DB excluded.
func Mnemonics() []string {
	return slices.Sorted(maps.Keys(instructionSet))
}

// Package cpu implements the instruction set and assembler for a small
// 8-bit CPU.
//
// The CPU has four general purpose registers (A, B, C, D) and a stack
// pointer (SP). Instructions are an opcode byte followed by zero, one or
// two operand bytes, selected by the mnemonic and the kinds of its
// operands: register, register address ([A], [SP-1]), address ([0x20],
// [label]) or number.
//
// The assembler is two pass. The first pass emits code and records
// labels, the second patches label references with label offsets. The
// result is a memory image addressed from 0, a map from instruction
// offset to source line, and the label table.
//
// Source lines have the form
//
//	label: MNEMONIC operand1, operand2 ; comment
//
// Numbers may be written as 200, 200d, 0xC8, 0o310 or 11001000b. The
// DB pseudo-instruction emits a number or the characters of a "string".
// $(expr) is replaced by the value of a Starlark expression before the
// line is parsed.
package cpu

package cpu

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/ezrec/asm8/internal"
)

// Opcode is the code emitted by one source line.
type Opcode struct {
	LineNo int      // Zero-based source line index.
	Ip     int      // Offset of the first byte.
	Words  []string // Mnemonic and raw operands.
	Bytes  []byte   // Emitted bytes, labels resolved.
	Data   bool     // Emitted by DB; not an instruction.
}

// Encoding returns the encoding of the instruction.
func (op *Opcode) Encoding() (enc Encoding, ok bool) {
	if op.Data || len(op.Bytes) == 0 {
		return
	}
	return Lookup(CodeOp(op.Bytes[0]))
}

// Program is the result of an assembly.
type Program struct {
	Code    []byte         // Memory image, loaded at address 0.
	Mapping map[int]int    // Instruction offset to source line index.
	Labels  map[string]int // Label to offset.
	Opcodes []Opcode       // Per line listing, in source order.
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the opcode covering a byte offset.
func (prog *Program) Debug(ip int) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if ip >= op.Ip && ip < op.Ip+len(op.Bytes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  ip - op.Ip,
			}
			break
		}
	}

	return
}

// LineOf returns the source line of the instruction starting at ip.
func (prog *Program) LineOf(ip int) (lineno int, ok bool) {
	lineno, ok = prog.Mapping[ip]
	return
}

// Binary returns a copy of the memory image.
func (prog *Program) Binary() []byte {
	return slices.Clone(prog.Code)
}

// Instructions iterates over the instructions by offset, skipping data.
func (prog *Program) Instructions() iter.Seq2[int, *Opcode] {
	return func(yield func(ip int, op *Opcode) bool) {
		for n := range prog.Opcodes {
			op := &prog.Opcodes[n]
			if op.Data {
				continue
			}
			if !yield(op.Ip, op) {
				return
			}
		}
	}
}

// Listing writes offsets, bytes and source of every opcode, followed by
// the labels in offset order.
func (prog *Program) Listing(w io.Writer) (err error) {
	for _, op := range prog.Opcodes {
		hex := make([]string, len(op.Bytes))
		for n, b := range op.Bytes {
			hex[n] = fmt.Sprintf("%02X", b)
		}

		source := op.Words[0]
		if len(op.Words) > 1 {
			source += " " + strings.Join(op.Words[1:], ", ")
		}

		kind := "data"
		if enc, ok := op.Encoding(); ok {
			kind = enc.String()
		}

		_, err = fmt.Fprintf(w, "%02X  %-9s %4d  %-24s ; %v\n",
			op.Ip, strings.Join(hex, " "), op.LineNo+1, source, kind)
		if err != nil {
			return
		}
	}

	for label, ip := range internal.SortedByValue(prog.Labels) {
		_, err = fmt.Fprintf(w, "%02X  %v\n", ip, label)
		if err != nil {
			return
		}
	}

	return
}

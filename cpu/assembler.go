// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/asm8/internal"
)

// MAX_LINE_SIZE is the longest source line accepted, in bytes.
const MAX_LINE_SIZE = 1 << 20

// Assembler is a two pass assembler for the 8-bit CPU.
//
// An Assembler only holds configuration; every Parse builds its own
// state, so one Assembler may be shared between goroutines once
// configured.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]string // Predefines
}

// Predefine defines a new constant for $(...) expressions, or redefines
// an existing one. Values use the assembler number notations.
func (asm *Assembler) Predefine(name string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// Predefines returns an iterator over the predefines, in name order.
func (asm *Assembler) Predefines() iter.Seq2[string, string] {
	return internal.SortedByKey(asm.predefine)
}

// link is an operand byte waiting for the offset of a label.
type link struct {
	Ip    int
	Label string
}

// assembly is the state of a single Parse.
type assembly struct {
	*Assembler

	code       []byte
	links      []link
	mapping    map[int]int
	labels     map[string]int
	normalized map[string]string
	opcodes    []Opcode
}

// Assemble assembles source text with a default Assembler.
func Assemble(source string) (prog *Program, err error) {
	asm := &Assembler{}
	return asm.Parse(strings.NewReader(source))
}

// Parse assembles an input stream into a Program.
//
// The first pass emits code, leaving a zero placeholder for each label
// operand; the second pass patches the placeholders. First pass errors
// are returned as *ErrLine. Second pass errors carry no line.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	state := &assembly{
		Assembler:  asm,
		mapping:    make(map[int]int),
		labels:     make(map[string]int),
		normalized: make(map[string]string),
	}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(nil, MAX_LINE_SIZE)

	var line string
	var lineno int

	glog.V(1).Infof("asm8: pass 1")

	for ; scanner.Scan(); lineno++ {
		line = scanner.Text()

		if asm.Verbose {
			glog.Infof("%v: %v", lineno, line)
		}

		err = state.parseLine(line, lineno)
		if err != nil {
			err = &ErrLine{LineNo: lineno, Line: line, Err: err}
			return
		}
	}

	err = scanner.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		err = &ErrLine{LineNo: lineno, Err: err}
	}
	if err != nil {
		return
	}

	glog.V(1).Infof("asm8: pass 2, %d label references", len(state.links))

	err = state.link()
	if err != nil {
		return
	}

	for n := range state.opcodes {
		op := &state.opcodes[n]
		op.Bytes = slices.Clone(state.code[op.Ip : op.Ip+len(op.Bytes)])
	}

	prog = &Program{
		Code:    state.code,
		Mapping: state.mapping,
		Labels:  state.labels,
		Opcodes: state.opcodes,
	}

	glog.V(1).Infof("asm8: %d bytes, %d labels", len(prog.Code), len(prog.Labels))

	return
}

// regexExpr matches a leading $(...) with at most one level of nested
// parentheses.
var regexExpr = regexp.MustCompile(`^\$\(([^()$]|\([^()$]*\))*\)`)

// parenEval does compile-time $(...) evaluations
func (state *assembly) parenEval(expr string, lineno int) (value int64, err error) {
	thread := starlark.Thread{Name: "asm8"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{
		"LINENO": starlark.MakeInt(lineno),
	}
	for key, str := range state.predefine {
		v64, perr := ParseNumber(str)
		if perr != nil {
			// Ignore values that are not numbers.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	for label, ip := range state.labels {
		if strings.HasPrefix(label, ".") {
			continue
		}
		pred[label] = starlark.MakeInt(ip)
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		glog.V(1).Infof("asm8: line %d: %v", lineno, err)
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrOperandRange
		return
	}
	if value < 0 {
		err = ErrOperandRange
		return
	}

	return
}

// expand replaces each $(...) in a line with its decimal value. Quoted
// literals and the comment are copied unchanged.
func (state *assembly) expand(line string, lineno int) (out string, err error) {
	if !strings.Contains(line, "$(") {
		out = line
		return
	}

	var sb strings.Builder
	for pos := 0; pos < len(line); {
		switch c := line[pos]; {
		case c == ';':
			sb.WriteString(line[pos:])
			pos = len(line)
		case c == '"' || c == '\'':
			end := scanOperand(line, pos)
			if end == pos {
				end = pos + 1
			}
			sb.WriteString(line[pos:end])
			pos = end
		case c == '$':
			loc := regexExpr.FindStringIndex(line[pos:])
			if loc == nil {
				sb.WriteByte(c)
				pos++
				continue
			}
			expr := line[pos+2 : pos+loc[1]-1]
			var value int64
			value, err = state.parenEval(expr, lineno)
			if err != nil {
				return
			}
			sb.WriteString(strconv.FormatInt(value, 10))
			pos += loc[1]
		default:
			sb.WriteByte(c)
			pos++
		}
	}

	out = sb.String()
	return
}

// parseLine runs the first pass over one source line.
func (state *assembly) parseLine(line string, lineno int) (err error) {
	line, err = state.expand(line, lineno)
	if err != nil {
		return
	}

	ln, err := Tokenize(line)
	if err != nil {
		return
	}

	if len(ln.Label) != 0 {
		err = state.addLabel(ln.Label)
		if err != nil {
			return
		}
	}

	if len(ln.Mnemonic) == 0 {
		return
	}

	return state.parseWords(ln, lineno)
}

// addLabel binds a label to the current offset.
func (state *assembly) addLabel(label string) (err error) {
	upper := strings.ToUpper(label)

	if _, ok := state.normalized[upper]; ok {
		err = ErrDuplicateLabel(label)
		return
	}

	switch upper {
	case "A", "B", "C", "D":
		err = ErrReservedLabel(upper)
		return
	}

	state.normalized[upper] = label
	state.labels[label] = len(state.code)
	return
}

// emit appends an operand byte, deferring label references.
func (state *assembly) emit(op Operand) {
	if len(op.Label) != 0 {
		state.links = append(state.links, link{Ip: len(state.code), Label: op.Label})
		state.code = append(state.code, 0)
		return
	}

	state.code = append(state.code, op.Value)
}

// parseWords evaluates the mnemonic and operands of a line.
func (state *assembly) parseWords(ln Line, lineno int) (err error) {
	name := strings.ToUpper(ln.Mnemonic)
	ip := len(state.code)

	defer func() {
		if err != nil || len(state.code) == ip {
			return
		}
		state.opcodes = append(state.opcodes, Opcode{
			LineNo: lineno,
			Ip:     ip,
			Words:  ln.Words(),
			Bytes:  state.code[ip:],
			Data:   name == MNEMONIC_DB,
		})
	}()

	if name == MNEMONIC_DB {
		return state.parseData(ln)
	}

	arity, ok := Arity(name)
	if !ok {
		err = ErrUnknownMnemonic(ln.Mnemonic)
		return
	}

	var args [2]Operand
	switch arity {
	case 0:
		if len(ln.Operand1) != 0 {
			err = ErrTooManyArguments(name)
			return
		}
	case 1:
		args[0], err = Classify(ln.Operand1)
		if err != nil {
			return
		}
		if len(ln.Operand2) != 0 {
			err = ErrTooManyArguments(name)
			return
		}
	default:
		for n, raw := range []string{ln.Operand1, ln.Operand2} {
			args[n], err = Classify(raw)
			if err != nil {
				return
			}
		}
	}

	op, err := SelectOpcode(name, args[0].Kind, args[1].Kind)
	if err != nil {
		return
	}

	if state.Verbose {
		glog.Infof("%v: %v %v", lineno, op, args[:arity])
	}

	state.mapping[ip] = lineno
	state.code = append(state.code, byte(op))
	for _, arg := range args[:arity] {
		state.emit(arg)
	}

	return
}

// parseData emits the bytes of a DB pseudo-instruction.
func (state *assembly) parseData(ln Line) (err error) {
	arg, err := Classify(ln.Operand1)
	if err != nil {
		return
	}
	if len(ln.Operand2) != 0 {
		err = ErrTooManyArguments(MNEMONIC_DB)
		return
	}

	switch arg.Kind {
	case KIND_NUMBER:
		state.emit(arg)
	case KIND_NUMBERS:
		state.code = append(state.code, arg.Values...)
	default:
		err = ErrUnsupportedOperands(MNEMONIC_DB)
	}

	return
}

// link patches every label placeholder with the label's offset.
func (state *assembly) link() (err error) {
	for _, ln := range state.links {
		ip, ok := state.labels[ln.Label]
		if !ok {
			err = ErrLabelMissing(ln.Label)
			return
		}
		if ip > 0xff {
			err = ErrLabelRange(ln.Label)
			return
		}
		glog.V(2).Infof("asm8: link %v at %d to %d", ln.Label, ln.Ip, ip)
		state.code[ln.Ip] = byte(ip)
	}

	return
}

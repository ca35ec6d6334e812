package cpu

import (
	"bufio"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Code))
	assert.Equal(0, len(prog.Opcodes))
	assert.Equal(0, len(prog.Labels))
	assert.Equal(0, len(prog.Mapping))

	prog, err = Assemble("MOV A, 5")
	assert.NoError(err)
	assert.Equal([]byte{6, 0, 5}, prog.Code)
	assert.Equal(map[int]int{0: 0}, prog.Mapping)

	prog, err = Assemble("MOV A, 255")
	assert.NoError(err)
	assert.Equal([]byte{6, 0, 255}, prog.Code)
}

func TestAssemblerBlank(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"",
		"   ",
		"; comment",
		"\t; indented comment",
		"; costs $(cycles) cycles",
		"; $(",
	}

	prog, err := Assemble(strings.Join(program, "\n"))
	assert.NoError(err)
	assert.Equal(0, len(prog.Code))
	assert.Equal(0, len(prog.Opcodes))

	prog, err = Assemble("HLT ; $(x)\nMOV A, $(2) ; $(y)")
	assert.NoError(err)
	assert.Equal([]byte{0, 6, 0, 2}, prog.Code)
}

func TestAssemblerLabels(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"start: MOV A, 5 ; ip = 0",
		"       JMP end  ; ip = 3",
		"loop:  INC A    ; ip = 5",
		"       CMP A, 10",
		"       JNZ loop",
		"end:   HLT      ; ip = 12",
	}

	prog, err := Assemble(strings.Join(program, "\n"))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
		return
	}

	assert.Equal([]byte{6, 0, 5, 31, 12, 18, 0, 23, 0, 10, 39, 5, 0}, prog.Code)
	assert.Equal(map[string]int{"start": 0, "loop": 5, "end": 12}, prog.Labels)
	assert.Equal(map[int]int{0: 0, 3: 1, 5: 2, 7: 3, 10: 4, 12: 5}, prog.Mapping)

	expected := []Opcode{
		{0, 0, []string{"MOV", "A", "5"}, []byte{6, 0, 5}, false},
		{1, 3, []string{"JMP", "end"}, []byte{31, 12}, false},
		{2, 5, []string{"INC", "A"}, []byte{18, 0}, false},
		{3, 7, []string{"CMP", "A", "10"}, []byte{23, 0, 10}, false},
		{4, 10, []string{"JNZ", "loop"}, []byte{39, 5}, false},
		{5, 12, []string{"HLT"}, []byte{0}, false},
	}
	assert.Equal(expected, prog.Opcodes)
}

func TestAssemblerCase(t *testing.T) {
	assert := assert.New(t)

	upper, err := Assemble("MOV B, 0x10\nJE done\ndone: PUSH SP")
	assert.NoError(err)
	lower, err := Assemble("mov b, 0x10\nje done\ndone: push sp")
	assert.NoError(err)

	assert.Equal([]byte{6, 1, 0x10, 37, 5, 50, 4}, upper.Code)
	assert.Equal(upper.Code, lower.Code)
}

func TestAssemblerAddressing(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"MOV [SP-1], 0x10",
		"MOV C, [B+15]",
		"MOV [232], 'A'",
		"MOV D, [A]",
		"ADD A, [table]",
		"table: DB 0",
	}

	prog, err := Assemble(strings.Join(program, "\n"))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
		return
	}

	assert.Equal([]byte{
		8, 252, 0x10,
		3, 2, 121,
		7, 232, 65,
		3, 3, 0,
		12, 0, 15,
		0,
	}, prog.Code)
}

func TestAssemblerData(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"JMP start",
		`msg: DB "AB"`,
		"DB 10",
		"start: MOV C, msg",
		"HLT",
	}

	prog, err := Assemble(strings.Join(program, "\n"))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
		return
	}

	assert.Equal([]byte{31, 5, 65, 66, 10, 6, 2, 2, 0}, prog.Code)
	assert.Equal(map[int]int{0: 0, 5: 3, 8: 4}, prog.Mapping)

	_, ok := prog.Mapping[2]
	assert.False(ok)
	_, ok = prog.Mapping[4]
	assert.False(ok)

	assert.Equal(5, len(prog.Opcodes))
	assert.True(prog.Opcodes[1].Data)
	assert.Equal([]byte{65, 66}, prog.Opcodes[1].Bytes)
	assert.True(prog.Opcodes[2].Data)
	assert.False(prog.Opcodes[3].Data)

	// A DB of a label is patched in the second pass.
	prog, err = Assemble("DB end\nend: HLT")
	assert.NoError(err)
	assert.Equal([]byte{1, 0}, prog.Code)
	assert.Equal([]byte{1}, prog.Opcodes[0].Bytes)
}

func TestAssemblerLineEndings(t *testing.T) {
	assert := assert.New(t)

	prog, err := Assemble("MOV A, 5\r\nHLT\r\n")
	assert.NoError(err)
	assert.Equal([]byte{6, 0, 5, 0}, prog.Code)
}

func TestAssemblerLabelSP(t *testing.T) {
	assert := assert.New(t)

	prog, err := Assemble("sp: HLT")
	assert.NoError(err)
	assert.Equal(map[string]int{"sp": 0}, prog.Labels)
}

func TestAssemblerExpressions(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("BASE", "0x10")
	asm.Predefine("MASK", "1111b")
	asm.Predefine("NAME", "hello")
	asm.Predefine("BASE", "0x20")

	var names []string
	for name := range asm.Predefines() {
		names = append(names, name)
	}
	assert.Equal([]string{"BASE", "MASK", "NAME"}, names)

	program := []string{
		"MOV A, $(BASE + 1)",
		"MOV B, $(LINENO)",
		"start: MOV C, $(BASE * (2 + 1))",
		"MOV D, $(start + MASK)",
		`DB "$(1+1)"`,
		"MOV [$(BASE)], '$' ; $(NOPE)",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
		return
	}

	assert.Equal([]byte{
		6, 0, 0x21,
		6, 1, 1,
		6, 2, 0x60,
		6, 3, 6 + 15,
		'$', '(', '1', '+', '1', ')',
		7, 0x20, '$',
	}, prog.Code)

	prog, err = asm.Parse(strings.NewReader(`DB "cost: $5 ($(NOPE))"`))
	assert.NoError(err)
	if err == nil {
		assert.Equal([]byte("cost: $5 ($(NOPE))"), prog.Code)
	}

	table := []string{
		"MOV A, $(NAME)",
		`MOV A, $("aaa")`,
		"MOV A, $(1 // 0)",
		"MOV A, $(undefined)",
		".local: HLT\nMOV A, $(.local)",
	}

	for _, text := range table {
		_, err := asm.Parse(strings.NewReader(text))
		var pe ErrParseExpression
		assert.True(errors.As(err, &pe), text)
	}

	for _, text := range []string{"MOV A, $(-1)", "MOV A, $(0x10000000000000000)", "MOV A, $(255 + 1)"} {
		_, err := asm.Parse(strings.NewReader(text))
		assert.ErrorIs(err, ErrOperandRange, text)
	}
}

func TestAssemblerVerbose(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{Verbose: true}

	prog, err := asm.Parse(strings.NewReader("loop: DEC A\nJNZ loop\nHLT"))
	assert.NoError(err)
	assert.Equal([]byte{19, 0, 39, 0, 0}, prog.Code)
}

func TestAssemblerShared(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("N", "3")

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for n := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prog, err := asm.Parse(strings.NewReader("top: MOV A, $(N)\nJMP top"))
			if err == nil {
				results[n] = prog.Code
			}
		}()
	}
	wg.Wait()

	for _, code := range results {
		assert.Equal([]byte{6, 0, 3, 31, 0}, code)
	}
}

func TestAssemblerErrLine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Zero-based index of the offending line
	table := [](struct {
		prog string
		line int
		err  error
	}){
		{"loop:\nloop:\n", 1, ErrDuplicateLabel("loop")},
		{"Loop: HLT\nLOOP: HLT\n", 1, ErrDuplicateLabel("LOOP")},
		{"a:", 0, ErrReservedLabel("A")},
		{"HLT\nd: HLT", 1, ErrReservedLabel("D")},
		{"FOO A", 0, ErrUnknownMnemonic("FOO")},
		{"HLT\nHLT\nMOV A B", 2, ErrSyntax},
		{"x: y: HLT", 0, ErrSyntax},
		{"MOV A", 0, ErrUnsupportedOperands("MOV")},
		{"MOV 5, A", 0, ErrUnsupportedOperands("MOV")},
		{"mov [A], [B]", 0, ErrUnsupportedOperands("MOV")},
		{"JMP [A]", 0, ErrUnsupportedOperands("JMP")},
		{"INC", 0, ErrUnsupportedOperands("INC")},
		{"DB", 0, ErrUnsupportedOperands("DB")},
		{"DB A", 0, ErrUnsupportedOperands("DB")},
		{"DB [10]", 0, ErrUnsupportedOperands("DB")},
		{"HLT A", 0, ErrTooManyArguments("HLT")},
		{"INC A, B", 0, ErrTooManyArguments("INC")},
		{"DB 1, 2", 0, ErrTooManyArguments("DB")},
		{"MOV A, 256", 0, ErrOperandRange},
		{"\n\nMOV A, [0x100]", 2, ErrOperandRange},
		{"MOV A, 'AB'", 0, ErrMultiCharLiteral},
		{"MOV [A+16], 1", 0, ErrOffsetRange},
		{"MOV A, 12z", 0, ErrParseNumber("12z")},
	}

	for _, entry := range table {
		_, err := asm.Parse(strings.NewReader(entry.prog))
		var el *ErrLine
		assert.NotNil(err, entry.prog)
		if err != nil {
			assert.True(errors.As(err, &el), entry.prog)
			assert.Equal(entry.line, el.LineNo, entry.prog)
			assert.Equal(entry.err, el.Err, entry.prog)
			assert.ErrorIs(err, entry.err, entry.prog)
		}
	}
}

func TestAssemblerLink(t *testing.T) {
	assert := assert.New(t)

	_, err := Assemble("JMP nowhere")
	assert.Equal(ErrLabelMissing("nowhere"), err)

	var el *ErrLine
	assert.False(errors.As(err, &el))

	// Labels are case sensitive when referenced.
	_, err = Assemble("Start: HLT\nJMP start")
	assert.Equal(ErrLabelMissing("start"), err)

	program := strings.Repeat("DB 0\n", 256) + "far: HLT\nJMP far\n"
	_, err = Assemble(program)
	assert.Equal(ErrLabelRange("far"), err)
	assert.ErrorIs(err, ErrOperandRange)

	program = strings.Repeat("DB 0\n", 255) + "edge: HLT\nJMP edge\n"
	prog, err := Assemble(program)
	assert.NoError(err)
	assert.Equal(255, prog.Labels["edge"])
	assert.Equal(byte(255), prog.Code[257])
}

func TestAssemblerLongLine(t *testing.T) {
	assert := assert.New(t)

	prog, err := Assemble("HLT\n; " + strings.Repeat("x", 70000) + "\nRET")
	assert.NoError(err)
	if err == nil {
		assert.Equal([]byte{0, 57}, prog.Code)
	}

	_, err = Assemble("HLT\n" + strings.Repeat("x", 2*MAX_LINE_SIZE))
	assert.ErrorIs(err, bufio.ErrTooLong)
	var el *ErrLine
	if assert.True(errors.As(err, &el)) {
		assert.Equal(1, el.LineNo)
	}

	diag := Diagnose(err)
	if assert.NotNil(diag.Line) {
		assert.Equal(1, *diag.Line)
	}
}

func TestAssemblerReader(t *testing.T) {
	assert := assert.New(t)

	boom := errors.New("boom")

	asm := &Assembler{}
	prog, err := asm.Parse(iotest.ErrReader(boom))
	assert.Nil(prog)
	assert.Equal(boom, err)
}

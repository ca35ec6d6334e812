package cpu

import (
	"errors"

	"github.com/ezrec/asm8/translate"
)

var f = translate.From

var (
	// Operand errors
	ErrOffsetRange      = errors.New(f("offset must be a value between -16...+15"))
	ErrOperandRange     = errors.New(f("operand must have a value between 0-255"))
	ErrMultiCharLiteral = errors.New(f("only one character is allowed, use a string instead"))

	// Line errors
	ErrSyntax = errors.New(f("syntax error"))
)

// ErrParseNumber is a word that is not in any accepted number notation.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrParseExpression is a $(...) expression that did not evaluate to an integer.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrUnknownMnemonic string

func (err ErrUnknownMnemonic) Error() string {
	return f("invalid instruction: %v", string(err))
}

type ErrUnsupportedOperands string

func (err ErrUnsupportedOperands) Error() string {
	return f("%v does not support these operands", string(err))
}

type ErrTooManyArguments string

func (err ErrTooManyArguments) Error() string {
	return f("%v: too many arguments", string(err))
}

type ErrDuplicateLabel string

func (err ErrDuplicateLabel) Error() string {
	return f("duplicate label: %v", string(err))
}

type ErrReservedLabel string

func (err ErrReservedLabel) Error() string {
	return f("label contains keyword: %v", string(err))
}

// ErrLabelMissing is a label referenced by an operand but never defined.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("undefined label: %v", string(el))
}

// ErrLabelRange is a label defined past the last byte addressable by an operand.
type ErrLabelRange string

func (err ErrLabelRange) Error() string {
	return f("label %v is beyond 0-255", string(err))
}

func (err ErrLabelRange) Unwrap() error {
	return ErrOperandRange
}

// ErrLine tags a first pass error with the zero-based source line index.
type ErrLine struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrLine) Error() string {
	return f("line %d '%v' %v", err.LineNo+1, err.Line, err.Err)
}

func (err *ErrLine) Unwrap() error {
	return err.Err
}

// Diagnostic is the error shape handed to editors and simulators.
type Diagnostic struct {
	Error string `json:"error"`
	Line  *int   `json:"line,omitempty"`
}

// Diagnose converts an assembler error to a Diagnostic.
// Errors from label resolution carry no line.
func Diagnose(err error) (diag Diagnostic) {
	if err == nil {
		return
	}

	var el *ErrLine
	if errors.As(err, &el) {
		lineno := el.LineNo
		diag.Error = el.Err.Error()
		diag.Line = &lineno
		return
	}

	diag.Error = err.Error()
	return
}

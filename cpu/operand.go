package cpu

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// OperandKind is the classification of a decoded operand.
type OperandKind int

//go:generate go tool stringer -linecomment -type=OperandKind
const (
	KIND_NONE       = OperandKind(0) // none
	KIND_REGISTER   = OperandKind(1) // register
	KIND_REGADDRESS = OperandKind(2) // regaddress
	KIND_ADDRESS    = OperandKind(3) // address
	KIND_NUMBER     = OperandKind(4) // number
	KIND_NUMBERS    = OperandKind(5) // numbers
)

// Register ids.
const (
	REG_A  = byte(0)
	REG_B  = byte(1)
	REG_C  = byte(2)
	REG_D  = byte(3)
	REG_SP = byte(4)
)

// Offset addressing limits.
const (
	OFFSET_MIN = -16
	OFFSET_MAX = 15
)

// registerMap maps upper case register names to ids.
var registerMap = map[string]byte{
	"A":  REG_A,
	"B":  REG_B,
	"C":  REG_C,
	"D":  REG_D,
	"SP": REG_SP,
}

// Operand is a classified operand.
//
// A KIND_ADDRESS or KIND_NUMBER operand with a non-empty Label holds a
// label reference; its value is only known after the second pass.
type Operand struct {
	Kind   OperandKind
	Value  byte   // Register id, encoded register address, or number.
	Label  string // Label reference, if any.
	Values []byte // Bytes of a KIND_NUMBERS string.
}

// String returns the operand as kind:value.
func (op Operand) String() string {
	switch {
	case op.Kind == KIND_NUMBERS:
		return fmt.Sprintf("%v:%v", op.Kind, op.Values)
	case len(op.Label) != 0:
		return fmt.Sprintf("%v:%v", op.Kind, op.Label)
	default:
		return fmt.Sprintf("%v:%v", op.Kind, op.Value)
	}
}

// Allowed formats: 200, 200d, 0xA4, 0o47, 101b
var regexNumber = regexp.MustCompile(`^[-+]?[0-9]+$`)

// ParseNumber parses a numeric literal.
func ParseNumber(word string) (value int64, err error) {
	body := word
	base := 10

	switch {
	case strings.HasPrefix(word, "0x"):
		body, base = word[2:], 16
	case strings.HasPrefix(word, "0o"):
		body, base = word[2:], 8
	case strings.HasSuffix(word, "b"):
		body, base = word[:len(word)-1], 2
	case strings.HasSuffix(word, "d"):
		body = word[:len(word)-1]
	case regexNumber.MatchString(word):
	default:
		err = ErrParseNumber(word)
		return
	}

	value, err = strconv.ParseInt(body, base, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			err = ErrOperandRange
		} else {
			err = ErrParseNumber(word)
		}
	}

	return
}

// ParseRegister returns the id of a register name, in any case.
func ParseRegister(word string) (id byte, ok bool) {
	id, ok = registerMap[strings.ToUpper(word)]
	return
}

// ParseOffsetAddressing parses REG+N or REG-N. The encoded byte holds the
// 5-bit two's complement offset in bits 7..3 and the base register in
// bits 2..0. ok is false if word does not have that shape.
func ParseOffsetAddressing(word string) (encoded byte, ok bool, err error) {
	upper := strings.ToUpper(word)

	var base byte
	var rest string
	switch {
	case len(upper) > 1 && strings.IndexByte("ABCD", upper[0]) >= 0:
		base, rest = registerMap[upper[:1]], upper[1:]
	case strings.HasPrefix(upper, "SP"):
		base, rest = REG_SP, upper[2:]
	default:
		return
	}

	if len(rest) == 0 || (rest[0] != '+' && rest[0] != '-') {
		return
	}
	ok = true

	offset, err := strconv.Atoi(rest[1:])
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			err = ErrOffsetRange
		} else {
			err = ErrParseNumber(word)
		}
		return
	}
	if rest[0] == '-' {
		offset = -offset
	}

	if offset < OFFSET_MIN || offset > OFFSET_MAX {
		err = ErrOffsetRange
		return
	}

	if offset < 0 {
		offset += 32
	}

	encoded = byte(offset*8) + base
	return
}

var regexLabel = regexp.MustCompile(`^[.A-Za-z]\w*$`)

// IsLabel returns true if word is spelled like a label.
func IsLabel(word string) bool {
	return regexLabel.MatchString(word)
}

// parseRegOrNumber tries, in order, a register, a label, an offset address
// (only when regKind is KIND_REGADDRESS) and a number.
func parseRegOrNumber(word string, regKind, numKind OperandKind) (op Operand, err error) {
	if id, ok := ParseRegister(word); ok {
		op = Operand{Kind: regKind, Value: id}
		return
	}

	if IsLabel(word) {
		op = Operand{Kind: numKind, Label: word}
		return
	}

	if regKind == KIND_REGADDRESS {
		encoded, ok, perr := ParseOffsetAddressing(word)
		if perr != nil {
			err = perr
			return
		}
		if ok {
			op = Operand{Kind: regKind, Value: encoded}
			return
		}
	}

	value, err := ParseNumber(word)
	if err != nil {
		return
	}
	if value < 0 || value > 0xff {
		err = ErrOperandRange
		return
	}

	op = Operand{Kind: numKind, Value: byte(value)}
	return
}

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// codeUnits splits text into UTF-16 code units.
func codeUnits(text string) (units []uint16, err error) {
	raw, err := utf16be.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return
	}

	units = make([]uint16, 0, len(raw)/2)
	for n := 0; n+1 < len(raw); n += 2 {
		units = append(units, uint16(raw[n])<<8|uint16(raw[n+1]))
	}

	return
}

// unitBytes narrows code units to bytes.
func unitBytes(units []uint16) (values []byte, err error) {
	values = make([]byte, len(units))
	for n, unit := range units {
		if unit > 0xff {
			err = ErrOperandRange
			return
		}
		values[n] = byte(unit)
	}

	return
}

// Classify decodes a raw operand.
//
//	[...]    address or register address
//	"text"   one byte per character
//	'c'      character code
//	other    register, label or number
//
// An empty operand is KIND_NONE.
func Classify(raw string) (op Operand, err error) {
	if len(raw) == 0 {
		return
	}

	switch raw[0] {
	case '[':
		if len(raw) < 3 || raw[len(raw)-1] != ']' {
			err = ErrSyntax
			return
		}
		return parseRegOrNumber(raw[1:len(raw)-1], KIND_REGADDRESS, KIND_ADDRESS)
	case '"':
		if len(raw) < 3 || raw[len(raw)-1] != '"' {
			err = ErrSyntax
			return
		}
		var units []uint16
		units, err = codeUnits(raw[1 : len(raw)-1])
		if err != nil {
			return
		}
		var values []byte
		values, err = unitBytes(units)
		if err != nil {
			return
		}
		op = Operand{Kind: KIND_NUMBERS, Values: values}
	case '\'':
		if len(raw) < 3 || raw[len(raw)-1] != '\'' {
			err = ErrSyntax
			return
		}
		var units []uint16
		units, err = codeUnits(raw[1 : len(raw)-1])
		if err != nil {
			return
		}
		if len(units) != 1 {
			err = ErrMultiCharLiteral
			return
		}
		var values []byte
		values, err = unitBytes(units)
		if err != nil {
			return
		}
		op = Operand{Kind: KIND_NUMBER, Value: values[0]}
	default:
		return parseRegOrNumber(raw, KIND_REGISTER, KIND_NUMBER)
	}

	return
}

package cpu

import (
	"strings"
)

// Line holds the fields of a source line. Absent fields are empty.
//
//	label: MNEMONIC operand1, operand2 ; comment
type Line struct {
	Label    string
	Mnemonic string
	Operand1 string
	Operand2 string
}

// Empty is true for blank and comment-only lines.
func (ln Line) Empty() bool {
	return len(ln.Label) == 0 && len(ln.Mnemonic) == 0
}

// Words returns the mnemonic and the operands that are present.
func (ln Line) Words() (words []string) {
	for _, word := range []string{ln.Mnemonic, ln.Operand1, ln.Operand2} {
		if len(word) != 0 {
			words = append(words, word)
		}
	}

	return
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWord(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}

// skipBlanks returns the index of the first non-blank at or after pos.
func skipBlanks(text string, pos int) int {
	for pos < len(text) && isBlank(text[pos]) {
		pos++
	}
	return pos
}

// scanWhile returns the index of the first byte at or after pos failing accept.
func scanWhile(text string, pos int, accept func(byte) bool) int {
	for pos < len(text) && accept(text[pos]) {
		pos++
	}
	return pos
}

// scanName scans [.A-Za-z]\w* at pos, returning pos if there is none.
func scanName(text string, pos int) int {
	if pos >= len(text) || (text[pos] != '.' && !isLetter(text[pos])) {
		return pos
	}
	return scanWhile(text, pos+1, isWord)
}

// scanMnemonic scans a word of two to four letters.
func scanMnemonic(text string, pos int) int {
	end := scanWhile(text, pos, isLetter)
	if end-pos < 2 || end-pos > 4 {
		return pos
	}
	if end < len(text) && isWord(text[end]) {
		return pos
	}
	return end
}

// scanOperand scans one operand at pos, returning pos if there is none.
//
//	[\w+] [\w+(+|-)\d+] ".+?" '.+?' [.A-Za-z0-9]\w*
func scanOperand(text string, pos int) int {
	if pos >= len(text) {
		return pos
	}

	switch c := text[pos]; {
	case c == '[':
		end := scanWhile(text, pos+1, isWord)
		if end == pos+1 {
			return pos
		}
		if end < len(text) && (text[end] == '+' || text[end] == '-') {
			digits := scanWhile(text, end+1, isDigit)
			if digits == end+1 {
				return pos
			}
			end = digits
		}
		if end >= len(text) || text[end] != ']' {
			return pos
		}
		return end + 1
	case c == '"' || c == '\'':
		if pos+2 > len(text) {
			return pos
		}
		end := strings.IndexByte(text[pos+2:], c)
		if end < 0 {
			return pos
		}
		return pos + 2 + end + 1
	case c == '.' || isLetter(c) || isDigit(c):
		return scanWhile(text, pos+1, isWord)
	}

	return pos
}

// Tokenize splits a source line into its label, mnemonic and operands.
// Anything left after the recognized fields must be blank or a ';'
// comment, otherwise the line is an ErrSyntax.
func Tokenize(text string) (ln Line, err error) {
	pos := skipBlanks(text, 0)

	if end := scanName(text, pos); end > pos && end < len(text) && text[end] == ':' {
		ln.Label = text[pos:end]
		pos = end + 1
	}

	mnemonic := skipBlanks(text, pos)
	if end := scanMnemonic(text, mnemonic); end > mnemonic {
		ln.Mnemonic = text[mnemonic:end]
		pos = end

		operand := skipBlanks(text, pos)
		if end := scanOperand(text, operand); operand > pos && end > operand {
			ln.Operand1 = text[operand:end]
			pos = end

			comma := skipBlanks(text, pos)
			if comma < len(text) && text[comma] == ',' {
				operand = skipBlanks(text, comma+1)
				if end := scanOperand(text, operand); end > operand {
					ln.Operand2 = text[operand:end]
					pos = end
				}
			}
		}
	}

	rest := strings.TrimSpace(text[pos:])
	if len(rest) != 0 && rest[0] != ';' {
		ln = Line{}
		err = ErrSyntax
	}

	return
}

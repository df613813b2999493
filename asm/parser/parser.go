// Package parser turns assembly source into a list of validated
// statements with opcodes resolved and source positions preserved.
package parser

import (
	"strconv"
	"strings"

	"github.com/dextercai/assembler-simulator/arch"
)

// parser holds parse state over the token stream.
type parser struct {
	tokens []Token
	index  int
}

// Parse tokenizes and parses the given source into a statement list.
// The last statement must be END.
func Parse(source string) ([]*Statement, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	var out []*Statement

	for p.index < len(p.tokens) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}

	if len(out) == 0 || out[len(out)-1].Instruction.Mnemonic != "END" {
		pos := Position{Line: 1, Col: 1}
		var length int
		if n := len(tokens); n > 0 {
			pos = tokens[n-1].Pos
			length = tokens[n-1].Len()
		}
		return nil, NewError(ErrMissingEnd, pos, length, "program must end with END")
	}

	return out, nil
}

// parseStatement parses one optional label, a mnemonic and its operands.
func (p *parser) parseStatement() (*Statement, error) {
	label, err := p.parseLabel()
	if err != nil {
		return nil, err
	}

	tok, ok := p.next()
	if !ok {
		return nil, tokenError(ErrStatement, label.Token, "expected instruction after label %q", label.Identifier)
	}

	if tok.Type != Unknown || !arch.IsMnemonic(tok.Value) {
		if label != nil {
			return nil, tokenError(ErrStatement, tok, "expected instruction after label; found %q", tok.Value)
		}
		return nil, tokenError(ErrStatement, tok, "expected label or instruction; found %q", tok.Value)
	}

	stmt := &Statement{
		Label: label,
		Instruction: Instruction{
			Mnemonic: tok.Value,
			Opcode:   -1,
			Token:    tok,
		},
		Pos: tok.Pos,
	}

	if err := p.parseOperands(stmt); err != nil {
		return nil, err
	}

	end := tok
	if n := len(stmt.Operands); n > 0 {
		end = stmt.Operands[n-1].Token
	}
	stmt.Length = end.Pos.Offset + end.Len() - stmt.Pos.Offset

	stmt.Encode()
	return stmt, nil
}

// parseLabel consumes a label definition if one is present.
func (p *parser) parseLabel() (*Label, error) {
	tok, ok := p.peek()
	if !ok || tok.Type != Unknown || !strings.HasSuffix(tok.Value, ":") {
		return nil, nil
	}

	p.index++
	ident := strings.TrimSuffix(tok.Value, ":")

	if len(ident) == 0 || !isLabelStart(ident[0]) {
		return nil, tokenError(ErrInvalidLabel, tok, "invalid label %q; a label must start with a letter or underscore", ident)
	}

	return &Label{Identifier: ident, Token: tok}, nil
}

// parseOperands parses the mnemonic's operands and resolves the opcode
// from the operand-type combination.
func (p *parser) parseOperands(s *Statement) error {
	m := s.Instruction.Mnemonic

	switch arch.OperandCount(m) {
	case 0:
		s.Instruction.Opcode = nullaryOpcode(m)
		return nil

	case 1:
		op, err := p.parseOperand(s.Instruction.Token, unaryExpected(m)...)
		if err != nil {
			return err
		}
		s.Operands = []Operand{op}
		if m != "ORG" && m != "DB" {
			s.Instruction.Opcode = unaryOpcode(m)
		}
		return nil

	case 2:
		first, err := p.parseOperand(s.Instruction.Token, firstExpected(m)...)
		if err != nil {
			return err
		}
		if err := p.parseComma(first.Token); err != nil {
			return err
		}
		second, err := p.parseOperand(s.Instruction.Token, secondExpected(m, first.Type)...)
		if err != nil {
			return err
		}

		s.Operands = []Operand{first, second}
		s.Instruction.Opcode = binaryOpcode(m, first.Type, second.Type)
		return nil
	}

	return tokenError(ErrStatement, s.Instruction.Token, "unknown instruction %q", m)
}

// parseComma consumes the mandatory comma between two operands.
func (p *parser) parseComma(prev Token) error {
	tok, ok := p.next()
	if !ok {
		return tokenError(ErrMissingEnd, prev, "unexpected end of input; expected a comma")
	}
	if tok.Type != Comma {
		return tokenError(ErrMissingComma, tok, "expected a comma; found %q", tok.Value)
	}
	return nil
}

// parseOperand reads one operand and checks it against the expected
// operand types for this position.
func (p *parser) parseOperand(instr Token, expected ...OperandType) (Operand, error) {
	tok, ok := p.next()
	if !ok {
		return Operand{}, tokenError(ErrMissingEnd, instr, "unexpected end of input; expected an operand")
	}

	var op Operand
	op.Token = tok

	switch tok.Type {
	case Digits:
		v, err := parseHex(tok)
		if err != nil {
			return op, err
		}
		op.Type, op.Value = Number, v

	case RegisterName:
		op.Type, op.Value = Register, arch.RegisterIndex(tok.Value)

	case AddressBracket:
		inner := tok.Value[1 : len(tok.Value)-1]
		switch {
		case arch.IsRegister(inner):
			op.Type, op.Value = RegisterAddress, arch.RegisterIndex(inner)
		case isHexString(inner):
			v, err := parseHexString(inner, tok)
			if err != nil {
				return op, err
			}
			op.Type, op.Value = Address, v
		default:
			return op, tokenError(ErrAddress, tok, "invalid address %q; expected a number or register", tok.Value)
		}

	case StringLiteral:
		op.Type = String
		op.Bytes = []byte(tok.Value[1 : len(tok.Value)-1])

	case Unknown:
		switch {
		case isHexString(tok.Value) && contains(expected, Number):
			v, err := parseHex(tok)
			if err != nil {
				return op, err
			}
			op.Type, op.Value = Number, v
		case isLabelStart(tok.Value[0]) && contains(expected, LabelRef):
			op.Type = LabelRef
		default:
			return op, operandTypeError(tok, expected)
		}

	default:
		return op, operandTypeError(tok, expected)
	}

	if !contains(expected, op.Type) {
		return op, operandTypeError(tok, expected)
	}

	return op, nil
}

// operandTypeError builds an ErrOperandType error listing the
// acceptable operand types at this position.
func operandTypeError(tok Token, expected []OperandType) *Error {
	names := make([]string, len(expected))
	for i, t := range expected {
		names[i] = t.String()
	}

	err := tokenError(ErrOperandType, tok, "unexpected operand %q; expected %s", tok.Value, strings.Join(names, " or "))
	err.Expected = expected
	return err
}

func (p *parser) peek() (Token, bool) {
	if p.index >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.index], true
}

func (p *parser) next() (Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.index++
	}
	return tok, ok
}

// parseHex decodes the token's value as a hexadecimal byte.
func parseHex(tok Token) (int, error) {
	return parseHexString(tok.Value, tok)
}

func parseHexString(s string, tok Token) (int, error) {
	v, err := strconv.ParseInt(s, 16, 32)
	if err != nil || v > 0xff {
		return 0, tokenError(ErrInvalidNumber, tok, "number %q does not fit in a byte", s)
	}
	return int(v), nil
}

func isHexString(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

func isLabelStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z')
}

func contains(set []OperandType, t OperandType) bool {
	for _, v := range set {
		if v == t {
			return true
		}
	}
	return false
}

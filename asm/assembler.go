// Package asm implements the assembler which turns a source program
// into a flat 256-byte memory image ready for execution.
package asm

import (
	"github.com/dextercai/assembler-simulator/arch"
	"github.com/dextercai/assembler-simulator/asm/parser"
)

// StatementMap maps an image address to the statement assembled there.
// Editors use it to highlight the source line for the executing address.
type StatementMap map[int]*parser.Statement

// Assemble translates the given source into a zero-initialised
// 256-byte image and a statement map. Errors abort the whole assembly;
// no partial results are returned.
func Assemble(source string) ([]byte, StatementMap, error) {
	statements, err := parser.Parse(source)
	if err != nil {
		return nil, nil, err
	}

	labels, err := assignAddresses(statements)
	if err != nil {
		return nil, nil, err
	}

	if err := resolveLabels(statements, labels); err != nil {
		return nil, nil, err
	}

	image := make([]byte, arch.MemorySize)
	stmap := make(StatementMap, len(statements))

	for _, s := range statements {
		if s.Instruction.Mnemonic == "ORG" {
			continue
		}
		copy(image[s.Address:], s.MachineCode)
		stmap[s.Address] = s
	}

	return image, stmap, nil
}

// assignAddresses walks the statements in order, assigning each its
// starting address and collecting the label map. ORG moves the cursor
// and contributes no bytes.
func assignAddresses(statements []*parser.Statement) (map[string]int, error) {
	labels := make(map[string]int)
	cursor := 0

	for _, s := range statements {
		if l := s.Label; l != nil {
			if _, ok := labels[l.Identifier]; ok {
				return nil, parser.NewError(parser.ErrDuplicateLabel, l.Token.Pos, l.Token.Len(),
					"duplicate label %q", l.Identifier)
			}
			labels[l.Identifier] = cursor
		}

		if s.Instruction.Mnemonic == "ORG" {
			cursor = s.Operands[0].Value
			continue
		}

		s.Address = cursor
		cursor += s.EncodedLen()

		if cursor > arch.MemorySize {
			return nil, parser.NewError(parser.ErrAssembleOverflow, s.Pos, s.Length,
				"statement does not fit in %d bytes of memory", arch.MemorySize)
		}
	}

	return labels, nil
}

// resolveLabels substitutes every label operand with its signed 8-bit
// distance from the referring statement and rebuilds the machine code.
func resolveLabels(statements []*parser.Statement, labels map[string]int) error {
	for _, s := range statements {
		resolved := false

		for i := range s.Operands {
			op := &s.Operands[i]
			if op.Type != parser.LabelRef {
				continue
			}

			target, ok := labels[op.Token.Value]
			if !ok {
				return parser.NewError(parser.ErrLabelNotExist, op.Token.Pos, op.Token.Len(),
					"label %q does not exist", op.Token.Value)
			}

			distance := target - (s.Address + 1)
			if distance < -128 || distance > 127 {
				return parser.NewError(parser.ErrJumpDistance, op.Token.Pos, op.Token.Len(),
					"label %q is %d bytes away; jumps reach -128 through 127", op.Token.Value, distance)
			}

			op.Value = distance & 0xff
			resolved = true
		}

		if resolved {
			s.Encode()
		}
	}

	return nil
}

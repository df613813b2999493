package arch

import "strings"

// OperandCount returns the number of operands the given mnemonic requires.
// Returns -1 if the mnemonic is not recognized. ORG and DB count as
// mnemonics even though they emit no opcode byte of their own.
func OperandCount(mnemonic string) int {
	switch strings.ToUpper(mnemonic) {
	case "ADD", "SUB", "MUL", "DIV", "MOD", "AND", "OR", "XOR", "MOV", "CMP":
		return 2
	case "INC", "DEC", "NOT", "ROL", "ROR", "SHL", "SHR",
		"JMP", "JZ", "JNZ", "JS", "JNS", "JO", "JNO",
		"PUSH", "POP", "CALL", "INT", "IN", "OUT", "ORG", "DB":
		return 1
	case "END", "HALT", "RET", "IRET", "PUSHF", "POPF", "STI", "CLI", "CLO", "NOP":
		return 0
	}
	return -1
}

// IsMnemonic returns true if the given name is a recognized mnemonic.
func IsMnemonic(name string) bool {
	return OperandCount(name) > -1
}

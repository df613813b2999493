package parser

import "github.com/dextercai/assembler-simulator/arch"

// nullaryOpcode returns the opcode for a mnemonic without operands.
func nullaryOpcode(m string) int {
	switch m {
	case "END":
		return arch.End
	case "HALT":
		return arch.Halt
	case "RET":
		return arch.Ret
	case "IRET":
		return arch.Iret
	case "PUSHF":
		return arch.Pushf
	case "POPF":
		return arch.Popf
	case "STI":
		return arch.Sti
	case "CLI":
		return arch.Cli
	case "CLO":
		return arch.Clo
	case "NOP":
		return arch.Nop
	}
	return -1
}

// unaryExpected returns the acceptable operand types for a
// single-operand mnemonic.
func unaryExpected(m string) []OperandType {
	switch m {
	case "INC", "DEC", "NOT", "ROL", "ROR", "SHL", "SHR", "PUSH", "POP":
		return []OperandType{Register}
	case "JMP", "JZ", "JNZ", "JS", "JNS", "JO", "JNO":
		return []OperandType{Number, LabelRef}
	case "CALL", "INT", "IN", "OUT", "ORG":
		return []OperandType{Number}
	case "DB":
		return []OperandType{Number, String}
	}
	return nil
}

// unaryOpcode returns the opcode for a single-operand mnemonic.
func unaryOpcode(m string) int {
	switch m {
	case "INC":
		return arch.IncReg
	case "DEC":
		return arch.DecReg
	case "NOT":
		return arch.NotReg
	case "ROL":
		return arch.RolReg
	case "ROR":
		return arch.RorReg
	case "SHL":
		return arch.ShlReg
	case "SHR":
		return arch.ShrReg
	case "PUSH":
		return arch.PushFromReg
	case "POP":
		return arch.PopToReg
	case "JMP":
		return arch.Jmp
	case "JZ":
		return arch.Jz
	case "JNZ":
		return arch.Jnz
	case "JS":
		return arch.Js
	case "JNS":
		return arch.Jns
	case "JO":
		return arch.Jo
	case "JNO":
		return arch.Jno
	case "CALL":
		return arch.CallAddr
	case "INT":
		return arch.IntAddr
	case "IN":
		return arch.InFromPortToAl
	case "OUT":
		return arch.OutFromAlToPort
	}
	return -1
}

// firstExpected returns the acceptable types for the first operand of a
// two-operand mnemonic.
func firstExpected(m string) []OperandType {
	if m == "MOV" {
		return []OperandType{Register, Address, RegisterAddress}
	}
	return []OperandType{Register}
}

// secondExpected returns the acceptable types for the second operand,
// which for MOV depend on the first operand's type.
func secondExpected(m string, first OperandType) []OperandType {
	switch m {
	case "MOV":
		if first == Register {
			return []OperandType{Number, Address, RegisterAddress}
		}
		return []OperandType{Register}
	case "CMP":
		return []OperandType{Register, Number, Address}
	}
	return []OperandType{Register, Number}
}

// binaryOpcode returns the opcode for a two-operand mnemonic given its
// operand-type combination.
func binaryOpcode(m string, first, second OperandType) int {
	if m == "MOV" {
		switch {
		case first == Register && second == Number:
			return arch.MovNumToReg
		case first == Register && second == Address:
			return arch.MovAddrToReg
		case first == Register && second == RegisterAddress:
			return arch.MovRegAddrToReg
		case first == Address && second == Register:
			return arch.MovRegToAddr
		case first == RegisterAddress && second == Register:
			return arch.MovRegToRegAddr
		}
		return -1
	}

	if m == "CMP" {
		switch second {
		case Register:
			return arch.CmpRegWithReg
		case Number:
			return arch.CmpRegWithNum
		case Address:
			return arch.CmpRegWithAddr
		}
		return -1
	}

	byReg := second == Register

	switch m {
	case "ADD":
		return pick(byReg, arch.AddRegToReg, arch.AddNumToReg)
	case "SUB":
		return pick(byReg, arch.SubRegFromReg, arch.SubNumFromReg)
	case "MUL":
		return pick(byReg, arch.MulRegByReg, arch.MulRegByNum)
	case "DIV":
		return pick(byReg, arch.DivRegByReg, arch.DivRegByNum)
	case "MOD":
		return pick(byReg, arch.ModRegByReg, arch.ModRegByNum)
	case "AND":
		return pick(byReg, arch.AndRegWithReg, arch.AndRegWithNum)
	case "OR":
		return pick(byReg, arch.OrRegWithReg, arch.OrRegWithNum)
	case "XOR":
		return pick(byReg, arch.XorRegWithReg, arch.XorRegWithNum)
	}
	return -1
}

func pick(byReg bool, regOpcode, numOpcode int) int {
	if byReg {
		return regOpcode
	}
	return numOpcode
}

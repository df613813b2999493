package cpu

import "github.com/dextercai/assembler-simulator/arch"

// Flags defines the status register.
type Flags struct {
	Zero      bool
	Overflow  bool
	Sign      bool
	Interrupt bool
}

// Byte packs the flags into their stack representation: bit i+1
// reflects flag i. Bits 0 and 5 through 7 stay zero.
func (f Flags) Byte() byte {
	var b byte
	if f.Zero {
		b |= 1 << 1
	}
	if f.Overflow {
		b |= 1 << 2
	}
	if f.Sign {
		b |= 1 << 3
	}
	if f.Interrupt {
		b |= 1 << 4
	}
	return b
}

// FlagsFromByte unpacks a stack representation produced by Byte.
// Bits outside the flag range are ignored.
func FlagsFromByte(b byte) Flags {
	return Flags{
		Zero:      b&(1<<1) != 0,
		Overflow:  b&(1<<2) != 0,
		Sign:      b&(1<<3) != 0,
		Interrupt: b&(1<<4) != 0,
	}
}

// Registers defines the machine's register file: four general purpose
// registers, the instruction pointer, the stack pointer and the status
// register.
type Registers struct {
	GPR [arch.RegisterCount]byte
	IP  byte
	SP  byte
	SR  Flags
}

// NewRegisters returns the power-on register file: everything zero
// except the stack pointer, which starts at the top of the stack.
func NewRegisters() Registers {
	return Registers{SP: arch.MaxSP}
}

package cpu

import "github.com/dextercai/assembler-simulator/arch"

// Memory defines the machine's 256-byte memory bank.
type Memory []byte

// NewMemory returns a zeroed memory bank.
func NewMemory() Memory {
	return make(Memory, arch.MemorySize)
}

// FromImage returns a memory bank loaded with the given assembled image.
func FromImage(image []byte) Memory {
	m := NewMemory()
	copy(m, image)
	return m
}

// Clone returns an independent copy of the memory bank.
func (m Memory) Clone() Memory {
	out := make(Memory, len(m))
	copy(out, m)
	return out
}

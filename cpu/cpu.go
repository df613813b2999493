// Package cpu implements the single-step interpreter for the machine.
package cpu

import (
	"errors"

	"github.com/dextercai/assembler-simulator/arch"
)

// Step executes one instruction against the given memory, register
// file and input signals, returning the next machine state and output
// signals. The inputs are never mutated; on error the original memory
// and registers are returned untouched.
func Step(mem Memory, regs Registers, in Input) (Memory, Registers, Output, error) {
	m := &machine{
		mem:  mem.Clone(),
		regs: regs,
		in:   in,
		out:  Output{RequiredInputPort: -1},
	}

	if err := m.step(); err != nil {
		return mem, regs, Output{RequiredInputPort: -1}, err
	}

	return m.mem, m.regs, m.out, nil
}

// Run steps the machine with empty input signals until the program
// halts. It gives up after maxSteps to guard against runaway programs.
func Run(mem Memory, regs Registers, maxSteps int) (Memory, Registers, error) {
	for i := 0; i < maxSteps; i++ {
		var out Output
		var err error

		mem, regs, out, err = Step(mem, regs, NewInput())
		if err != nil {
			return mem, regs, err
		}
		if out.Halted {
			return mem, regs, nil
		}
	}

	return mem, regs, errors.New(f("program did not halt after %d steps", maxSteps))
}

// aluOp computes a raw arithmetic result from two unsigned byte
// values. Returns false when the operation is undefined (division by
// zero).
type aluOp func(a, b int) (int, bool)

// Source kinds for the CMP family.
const (
	cmpReg = iota
	cmpNum
	cmpAddr
)

// machine holds the working state for a single step.
type machine struct {
	mem  Memory
	regs Registers
	in   Input
	out  Output
}

// step fetches and executes one instruction. A pending hardware
// interrupt takes precedence over the instruction at IP.
func (m *machine) step() error {
	if m.in.Interrupt && m.regs.SR.Interrupt {
		return m.trap()
	}

	opcode := int(m.mem[m.regs.IP])

	switch opcode {
	case arch.End, arch.Halt:
		m.out.Halted = true
		return nil

	case arch.AddRegToReg:
		return m.binary(true, func(a, b int) (int, bool) { return a + b, true })
	case arch.AddNumToReg:
		return m.binary(false, func(a, b int) (int, bool) { return a + b, true })
	case arch.SubRegFromReg:
		return m.binary(true, func(a, b int) (int, bool) { return a - b, true })
	case arch.SubNumFromReg:
		return m.binary(false, func(a, b int) (int, bool) { return a - b, true })
	case arch.MulRegByReg:
		return m.binary(true, func(a, b int) (int, bool) { return a * b, true })
	case arch.MulRegByNum:
		return m.binary(false, func(a, b int) (int, bool) { return a * b, true })
	case arch.DivRegByReg:
		return m.binary(true, divide)
	case arch.DivRegByNum:
		return m.binary(false, divide)
	case arch.ModRegByReg:
		return m.binary(true, modulo)
	case arch.ModRegByNum:
		return m.binary(false, modulo)
	case arch.AndRegWithReg:
		return m.binary(true, func(a, b int) (int, bool) { return a & b, true })
	case arch.AndRegWithNum:
		return m.binary(false, func(a, b int) (int, bool) { return a & b, true })
	case arch.OrRegWithReg:
		return m.binary(true, func(a, b int) (int, bool) { return a | b, true })
	case arch.OrRegWithNum:
		return m.binary(false, func(a, b int) (int, bool) { return a | b, true })
	case arch.XorRegWithReg:
		return m.binary(true, func(a, b int) (int, bool) { return a ^ b, true })
	case arch.XorRegWithNum:
		return m.binary(false, func(a, b int) (int, bool) { return a ^ b, true })

	case arch.IncReg:
		return m.unary(func(a int) int { return a + 1 })
	case arch.DecReg:
		return m.unary(func(a int) int { return a - 1 })
	case arch.NotReg:
		return m.unary(func(a int) int { return a ^ 0xff })
	case arch.RolReg:
		return m.unary(func(a int) int { return a<<1 | a>>7 })
	case arch.RorReg:
		return m.unary(func(a int) int { return a>>1 | a<<7 })
	case arch.ShlReg:
		return m.unary(func(a int) int { return a << 1 })
	case arch.ShrReg:
		return m.unary(func(a int) int { return a >> 1 })

	case arch.Jmp:
		return m.jump(true)
	case arch.Jz:
		return m.jump(m.regs.SR.Zero)
	case arch.Jnz:
		return m.jump(!m.regs.SR.Zero)
	case arch.Js:
		return m.jump(m.regs.SR.Sign)
	case arch.Jns:
		return m.jump(!m.regs.SR.Sign)
	case arch.Jo:
		return m.jump(m.regs.SR.Overflow)
	case arch.Jno:
		return m.jump(!m.regs.SR.Overflow)

	case arch.MovNumToReg, arch.MovAddrToReg, arch.MovRegAddrToReg,
		arch.MovRegToAddr, arch.MovRegToRegAddr:
		return m.move(opcode)

	case arch.CmpRegWithReg:
		return m.compare(cmpReg)
	case arch.CmpRegWithNum:
		return m.compare(cmpNum)
	case arch.CmpRegWithAddr:
		return m.compare(cmpAddr)

	case arch.PushFromReg:
		r, err := m.fetch(1)
		if err != nil {
			return err
		}
		v, err := m.reg(r)
		if err != nil {
			return err
		}
		if err := m.push(v); err != nil {
			return err
		}
		return m.advance(2)

	case arch.PopToReg:
		r, err := m.fetch(1)
		if err != nil {
			return err
		}
		if _, err := m.reg(r); err != nil {
			return err
		}
		v, err := m.pop()
		if err != nil {
			return err
		}
		m.regs.GPR[r] = v
		return m.advance(2)

	case arch.Pushf:
		if err := m.push(m.regs.SR.Byte()); err != nil {
			return err
		}
		return m.advance(1)

	case arch.Popf:
		b, err := m.pop()
		if err != nil {
			return err
		}
		m.regs.SR = FlagsFromByte(b)
		return m.advance(1)

	case arch.CallAddr:
		addr, err := m.fetch(1)
		if err != nil {
			return err
		}
		if err := m.push(m.regs.IP + 2); err != nil {
			return err
		}
		return m.setIP(addr)

	case arch.Ret, arch.Iret:
		addr, err := m.pop()
		if err != nil {
			return err
		}
		return m.setIP(int(addr))

	case arch.IntAddr:
		addr, err := m.fetch(1)
		if err != nil {
			return err
		}
		if err := m.push(m.regs.IP + 2); err != nil {
			return err
		}
		return m.setIP(int(m.mem[addr]))

	case arch.InFromPortToAl:
		return m.in2al()

	case arch.OutFromAlToPort:
		port, err := m.port()
		if err != nil {
			return err
		}
		m.out.Data = &OutputData{Content: m.regs.GPR[0], Port: port}
		return m.advance(2)

	case arch.Sti:
		m.regs.SR.Interrupt = true
		return m.advance(1)
	case arch.Cli:
		m.regs.SR.Interrupt = false
		return m.advance(1)
	case arch.Clo:
		m.out.CloseWindows = true
		return m.advance(1)
	case arch.Nop:
		return m.advance(1)
	}

	return NewError(ErrInvalidOpcode, int(m.regs.IP), "invalid opcode %02x", opcode)
}

// trap services a hardware interrupt: the current IP is pushed and
// control transfers to the handler behind the fixed interrupt vector.
func (m *machine) trap() error {
	if err := m.push(m.regs.IP); err != nil {
		return err
	}
	return m.setIP(int(m.mem[arch.InterruptVector]))
}

// push writes the given value at SP and moves SP down.
// Running below the bottom of memory is a stack overflow.
func (m *machine) push(v byte) error {
	sp := int(m.regs.SP)
	m.mem[sp] = v

	sp--
	if sp < 0 {
		return NewError(ErrStackOverflow, int(m.regs.IP), "stack overflow")
	}

	m.regs.SP = byte(sp)
	return nil
}

// pop moves SP up and returns the value there.
// Running past the top of the stack is a stack underflow.
func (m *machine) pop() (byte, error) {
	sp := int(m.regs.SP) + 1
	if sp > arch.MaxSP {
		return 0, NewError(ErrStackUnderflow, int(m.regs.IP), "stack underflow")
	}

	m.regs.SP = byte(sp)
	return m.mem[sp], nil
}

// binary executes a two-operand arithmetic instruction. The second
// operand is a register when byReg is set, a literal byte otherwise.
func (m *machine) binary(byReg bool, op aluOp) error {
	dst, err := m.fetch(1)
	if err != nil {
		return err
	}
	a, err := m.reg(dst)
	if err != nil {
		return err
	}

	v, err := m.fetch(2)
	if err != nil {
		return err
	}
	b := byte(v)
	if byReg {
		if b, err = m.reg(v); err != nil {
			return err
		}
	}

	raw, ok := op(int(a), int(b))
	if !ok {
		return NewError(ErrDivideByZero, int(m.regs.IP), "division by zero")
	}

	m.regs.GPR[dst] = m.result(a, raw)
	return m.advance(3)
}

// unary executes a one-operand arithmetic instruction.
func (m *machine) unary(op func(a int) int) error {
	dst, err := m.fetch(1)
	if err != nil {
		return err
	}
	a, err := m.reg(dst)
	if err != nil {
		return err
	}

	m.regs.GPR[dst] = m.result(a, op(int(a)))
	return m.advance(2)
}

// compare subtracts the source operand from the destination register,
// updating flags without writing the register back.
func (m *machine) compare(src int) error {
	dst, err := m.fetch(1)
	if err != nil {
		return err
	}
	a, err := m.reg(dst)
	if err != nil {
		return err
	}

	v, err := m.fetch(2)
	if err != nil {
		return err
	}

	var b byte
	switch src {
	case cmpReg:
		if b, err = m.reg(v); err != nil {
			return err
		}
	case cmpNum:
		b = byte(v)
	case cmpAddr:
		b = m.mem[v]
	}

	m.result(a, int(a)-int(b))
	return m.advance(3)
}

// move executes one of the MOV forms. MOV never touches the flags.
func (m *machine) move(opcode int) error {
	first, err := m.fetch(1)
	if err != nil {
		return err
	}
	second, err := m.fetch(2)
	if err != nil {
		return err
	}

	switch opcode {
	case arch.MovNumToReg:
		if _, err := m.reg(first); err != nil {
			return err
		}
		m.regs.GPR[first] = byte(second)

	case arch.MovAddrToReg:
		if _, err := m.reg(first); err != nil {
			return err
		}
		m.regs.GPR[first] = m.mem[second]

	case arch.MovRegAddrToReg:
		if _, err := m.reg(first); err != nil {
			return err
		}
		addr, err := m.reg(second)
		if err != nil {
			return err
		}
		m.regs.GPR[first] = m.mem[addr]

	case arch.MovRegToAddr:
		v, err := m.reg(second)
		if err != nil {
			return err
		}
		m.mem[first] = v

	case arch.MovRegToRegAddr:
		addr, err := m.reg(first)
		if err != nil {
			return err
		}
		v, err := m.reg(second)
		if err != nil {
			return err
		}
		m.mem[addr] = v
	}

	return m.advance(3)
}

// jump reads the signed displacement behind the opcode and transfers
// control when the condition holds.
func (m *machine) jump(cond bool) error {
	disp, err := m.fetch(1)
	if err != nil {
		return err
	}

	if !cond {
		return m.advance(2)
	}

	return m.setIP(int(m.regs.IP) + 1 + int(int8(disp)))
}

// in2al performs the IN handshake. When the pending input byte matches
// the required port it is consumed into AL; otherwise the port request
// is raised on the output signals and IP stays put so the instruction
// re-executes once data arrives.
func (m *machine) in2al() error {
	port, err := m.port()
	if err != nil {
		return err
	}

	if m.in.Data.Content > -1 && m.in.Data.Port == port {
		m.regs.GPR[0] = byte(m.in.Data.Content)
		return m.advance(2)
	}

	m.out.RequiredInputPort = port
	return nil
}

// port reads and validates the port operand behind the opcode.
func (m *machine) port() (int, error) {
	port, err := m.fetch(1)
	if err != nil {
		return 0, err
	}
	if port > arch.MaxPort {
		return 0, NewError(ErrInvalidPort, int(m.regs.IP), "invalid port %02x", port)
	}
	return port, nil
}

// fetch returns the byte at IP+n.
func (m *machine) fetch(n int) (int, error) {
	addr := int(m.regs.IP) + n
	if addr >= arch.MemorySize {
		return 0, NewError(ErrRunBeyondEndOfMemory, int(m.regs.IP), "instruction runs beyond the end of memory")
	}
	return int(m.mem[addr]), nil
}

// advance moves IP past the current instruction's encoding.
func (m *machine) advance(n int) error {
	return m.setIP(int(m.regs.IP) + n)
}

// setIP points IP at the given address.
func (m *machine) setIP(addr int) error {
	if addr < 0 || addr >= arch.MemorySize {
		return NewError(ErrRunBeyondEndOfMemory, int(m.regs.IP), "instruction pointer %02x outside memory", addr)
	}
	m.regs.IP = byte(addr)
	return nil
}

// reg validates a register index and returns the register's value.
func (m *machine) reg(index int) (byte, error) {
	if index < 0 || index >= arch.RegisterCount {
		return 0, NewError(ErrInvalidRegister, int(m.regs.IP), "invalid register %02x", index)
	}
	return m.regs.GPR[index], nil
}

// result reduces a raw arithmetic value to a byte and applies the flag
// rule: overflow is set when the sign bit crossed between the previous
// and final value. The interrupt flag is preserved.
func (m *machine) result(prev byte, raw int) byte {
	final := byte(((raw % 0x100) + 0x100) % 0x100)

	sr := &m.regs.SR
	sr.Overflow = (prev < 0x80) != (final < 0x80)
	sr.Zero = final == 0
	sr.Sign = final >= 0x80

	return final
}

func divide(a, b int) (int, bool) {
	if b == 0 {
		return 0, false
	}
	return a / b, true
}

func modulo(a, b int) (int, bool) {
	if b == 0 {
		return 0, false
	}
	return a % b, true
}

package cpu

import (
	"bytes"
	"testing"

	"github.com/dextercai/assembler-simulator/arch"
	"github.com/dextercai/assembler-simulator/asm"
)

func TestMOVNumToReg(t *testing.T) {
	//   MOV al, 7b
	//   END

	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 0x7b)
	ct.emit(arch.End)

	ct.wantGPR[0] = 0x7b
	ct.wantIP = 3
	runTest(t, ct)
}

func TestMOVAddrToReg(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.MovAddrToReg, 1, 0x40)
	ct.emit(arch.End)
	ct.poke(0x40, 0x99)

	ct.wantGPR[1] = 0x99
	runTest(t, ct)
}

func TestMOVRegAddrToReg(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 1, 0x40)
	ct.emit(arch.MovRegAddrToReg, 2, 1)
	ct.emit(arch.End)
	ct.poke(0x40, 0x42)

	ct.wantGPR[2] = 0x42
	runTest(t, ct)
}

func TestMOVRegToAddr(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 0x55)
	ct.emit(arch.MovRegToAddr, 0x80, 0)
	ct.emit(arch.End)

	ct.wantMem[0x80] = 0x55
	runTest(t, ct)
}

func TestMOVRegToRegAddr(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 0x55)
	ct.emit(arch.MovNumToReg, 3, 0x81)
	ct.emit(arch.MovRegToRegAddr, 3, 0)
	ct.emit(arch.End)

	ct.wantMem[0x81] = 0x55
	runTest(t, ct)
}

func TestADD(t *testing.T) {
	//   MOV al, 02
	//   MOV bl, 03
	//   ADD al, bl
	//   END

	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 2)
	ct.emit(arch.MovNumToReg, 1, 3)
	ct.emit(arch.AddRegToReg, 0, 1)
	ct.emit(arch.End)

	ct.wantGPR[0] = 5
	ct.wantSR = &Flags{}
	runTest(t, ct)
}

func TestADDOverflow(t *testing.T) {
	// 0x80 + 0x80 wraps to zero and crosses the sign bit.

	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 0x80)
	ct.emit(arch.AddNumToReg, 0, 0x80)
	ct.emit(arch.End)

	ct.wantGPR[0] = 0
	ct.wantSR = &Flags{Zero: true, Overflow: true}
	runTest(t, ct)
}

func TestSUBSign(t *testing.T) {
	// 1 - 2 stores 0xff and sets the sign and overflow flags.

	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 1)
	ct.emit(arch.SubNumFromReg, 0, 2)
	ct.emit(arch.End)

	ct.wantGPR[0] = 0xff
	ct.wantSR = &Flags{Sign: true, Overflow: true}
	runTest(t, ct)
}

func TestMULDIVMOD(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 7)
	ct.emit(arch.MulRegByNum, 0, 3) // 21
	ct.emit(arch.DivRegByNum, 0, 2) // 10
	ct.emit(arch.ModRegByNum, 0, 4) // 2
	ct.emit(arch.End)

	ct.wantGPR[0] = 2
	runTest(t, ct)
}

func TestBitwise(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 0xf0)
	ct.emit(arch.MovNumToReg, 1, 0x3c)
	ct.emit(arch.AndRegWithReg, 0, 1) // 0x30
	ct.emit(arch.OrRegWithNum, 0, 0x03)
	ct.emit(arch.XorRegWithNum, 0, 0xff)
	ct.emit(arch.End)

	ct.wantGPR[0] = 0xcc
	runTest(t, ct)
}

func TestUnary(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 0x81)
	ct.emit(arch.RolReg, 0)
	ct.emit(arch.End)

	// 0x81 rotated left is 0x03; the sign bit crossing sets overflow.
	ct.wantGPR[0] = 0x03
	ct.wantSR = &Flags{Overflow: true}
	runTest(t, ct)
}

func TestInc(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 0xff)
	ct.emit(arch.IncReg, 0)
	ct.emit(arch.End)

	ct.wantGPR[0] = 0
	ct.wantSR = &Flags{Zero: true, Overflow: true}
	runTest(t, ct)
}

func TestShift(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 0x05)
	ct.emit(arch.ShlReg, 0)
	ct.emit(arch.MovNumToReg, 1, 0x05)
	ct.emit(arch.ShrReg, 1)
	ct.emit(arch.NotReg, 1)
	ct.emit(arch.End)

	ct.wantGPR[0] = 0x0a
	ct.wantGPR[1] = 0xfd
	runTest(t, ct)
}

func TestCMP(t *testing.T) {
	//   CMP leaves the register untouched and only sets flags.

	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 5)
	ct.emit(arch.CmpRegWithNum, 0, 5)
	ct.emit(arch.End)

	ct.wantGPR[0] = 5
	ct.wantSR = &Flags{Zero: true}
	runTest(t, ct)
}

func TestJumpForward(t *testing.T) {
	//   JMP over one END to the second one.

	ct := newCodeTest()
	ct.emit(arch.Jmp, 0x02) // lands at 1+2 = 3
	ct.emit(arch.End)       // at 2, skipped
	ct.emit(arch.End)       // at 3

	ct.wantIP = 3
	runTest(t, ct)
}

func TestJumpBackward(t *testing.T) {
	//   MOV al, 03
	// loop:
	//   DEC al
	//   JNZ loop
	//   END

	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 3)
	ct.emit(arch.DecReg, 0)
	ct.emit(arch.Jnz, 0xfd) // back to 6-3 = 3
	ct.emit(arch.End)

	ct.wantGPR[0] = 0
	ct.wantSR = &Flags{Zero: true}
	ct.wantIP = 7
	runTest(t, ct)
}

func TestConditionalJumps(t *testing.T) {
	// JZ not taken, then taken after CMP sets the zero flag.

	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 1)
	ct.emit(arch.Jz, 0x10) // not taken
	ct.emit(arch.CmpRegWithNum, 0, 1)
	ct.emit(arch.Jz, 0x01) // taken, lands at 9+1 = 10
	ct.emit(arch.Nop)      // at 10
	ct.emit(arch.End)

	ct.wantIP = 11
	runTest(t, ct)
}

func TestStack(t *testing.T) {
	//   MOV al, 11
	//   PUSH al
	//   MOV al, 22
	//   POP al
	//   END

	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 0x11)
	ct.emit(arch.PushFromReg, 0)
	ct.emit(arch.MovNumToReg, 0, 0x22)
	ct.emit(arch.PopToReg, 0)
	ct.emit(arch.End)

	ct.wantGPR[0] = 0x11
	ct.wantSP = arch.MaxSP
	ct.wantMem[arch.MaxSP] = 0x11
	runTest(t, ct)
}

func TestPushfPopf(t *testing.T) {
	// PUSHF directly followed by POPF leaves the flags untouched.

	ct := newCodeTest()
	ct.emit(arch.MovNumToReg, 0, 0x80)
	ct.emit(arch.AddNumToReg, 0, 0x80) // zero + overflow
	ct.emit(arch.Pushf)
	ct.emit(arch.Popf)
	ct.emit(arch.End)

	ct.wantSR = &Flags{Zero: true, Overflow: true}
	ct.wantSP = arch.MaxSP
	runTest(t, ct)
}

func TestCallRet(t *testing.T) {
	//   CALL 04
	//   END
	//   NOP
	// sub:
	//   RET

	ct := newCodeTest()
	ct.emit(arch.CallAddr, 0x04)
	ct.emit(arch.End) // at 2
	ct.emit(arch.Nop) // at 3, never runs
	ct.emit(arch.Ret) // at 4

	ct.wantIP = 2
	ct.wantSP = arch.MaxSP
	ct.wantMem[arch.MaxSP] = 0x02
	runTest(t, ct)
}

func TestSoftwareInterrupt(t *testing.T) {
	//   INT 40 looks the handler up through the vector table.

	ct := newCodeTest()
	ct.emit(arch.IntAddr, 0x40)
	ct.emit(arch.End)  // at 2
	ct.poke(0x40, 0x10) // vector table entry
	ct.poke(0x10, arch.Iret)

	ct.wantIP = 2
	ct.wantSP = arch.MaxSP
	runTest(t, ct)
}

func TestFlagsByteRoundTrip(t *testing.T) {
	want := Flags{Zero: true, Sign: true, Interrupt: true}

	b := want.Byte()
	if b != 2+8+16 {
		t.Fatalf("unexpected flag byte %02x", b)
	}
	if have := FlagsFromByte(b); have != want {
		t.Fatalf("flags mismatch:\nwant: %+v\nhave: %+v", want, have)
	}

	// Bits 0 and 5 through 7 are ignored.
	if have := FlagsFromByte(b | 0xe1); have != want {
		t.Fatalf("stray bits leaked into the flags")
	}
}

func TestInterruptFlagPreserved(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.Sti)
	ct.emit(arch.MovNumToReg, 0, 0x80)
	ct.emit(arch.AddNumToReg, 0, 0x80)
	ct.emit(arch.End)

	ct.wantSR = &Flags{Zero: true, Overflow: true, Interrupt: true}
	runTest(t, ct)
}

func TestStiCli(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.Sti)
	ct.emit(arch.Cli)
	ct.emit(arch.End)

	ct.wantSR = &Flags{}
	runTest(t, ct)
}

func TestClo(t *testing.T) {
	mem, regs := newMachine(arch.Clo, arch.End)

	_, _, out, err := Step(mem, regs, NewInput())
	if err != nil {
		t.Fatal(err)
	}
	if !out.CloseWindows {
		t.Fatal("expected CloseWindows to be raised")
	}
}

func TestInputHandshake(t *testing.T) {
	//   IN 05
	//   END

	mem, regs := newMachine(arch.InFromPortToAl, 0x05, arch.End)

	// No matching input yet: IP stays put and the port request is raised.
	mem, regs, out, err := Step(mem, regs, NewInput())
	if err != nil {
		t.Fatal(err)
	}
	if regs.IP != 0 {
		t.Fatalf("expected IP to stay at 0; have %02x", regs.IP)
	}
	if out.RequiredInputPort != 5 {
		t.Fatalf("expected required input port 5; have %d", out.RequiredInputPort)
	}

	// The device answered: the byte lands in AL and IP advances.
	in := NewInput()
	in.Data = InputData{Content: 0x7f, Port: 5}

	_, regs, out, err = Step(mem, regs, in)
	if err != nil {
		t.Fatal(err)
	}
	if regs.GPR[0] != 0x7f {
		t.Fatalf("expected AL 7f; have %02x", regs.GPR[0])
	}
	if regs.IP != 2 {
		t.Fatalf("expected IP 2; have %02x", regs.IP)
	}
	if out.RequiredInputPort != -1 {
		t.Fatalf("expected no required input port; have %d", out.RequiredInputPort)
	}
}

func TestInputWrongPort(t *testing.T) {
	mem, regs := newMachine(arch.InFromPortToAl, 0x05, arch.End)

	in := NewInput()
	in.Data = InputData{Content: 0x7f, Port: 3}

	_, regs, out, err := Step(mem, regs, in)
	if err != nil {
		t.Fatal(err)
	}
	if regs.IP != 0 || out.RequiredInputPort != 5 {
		t.Fatal("input for another port must not satisfy the handshake")
	}
}

func TestOutput(t *testing.T) {
	mem, regs := newMachine(arch.MovNumToReg, 0, 0x41, arch.OutFromAlToPort, 0x03, arch.End)

	mem, regs, _, err := Step(mem, regs, NewInput())
	if err != nil {
		t.Fatal(err)
	}

	_, regs, out, err := Step(mem, regs, NewInput())
	if err != nil {
		t.Fatal(err)
	}
	if out.Data == nil || out.Data.Content != 0x41 || out.Data.Port != 3 {
		t.Fatalf("unexpected output data %+v", out.Data)
	}
	if regs.IP != 5 {
		t.Fatalf("expected IP 5; have %02x", regs.IP)
	}
}

func TestHardwareInterrupt(t *testing.T) {
	// The handler address sits behind the fixed interrupt vector. The
	// instruction at IP never executes; the trap takes precedence.

	mem, regs := newMachine(arch.Nop, arch.End)
	mem[arch.InterruptVector] = 0x40
	regs.SR.Interrupt = true

	in := NewInput()
	in.Interrupt = true

	mem, regs, _, err := Step(mem, regs, in)
	if err != nil {
		t.Fatal(err)
	}
	if regs.IP != 0x40 {
		t.Fatalf("expected IP 40; have %02x", regs.IP)
	}
	if regs.SP != arch.MaxSP-1 {
		t.Fatalf("expected SP %02x; have %02x", arch.MaxSP-1, regs.SP)
	}
	if mem[arch.MaxSP] != 0 {
		t.Fatalf("expected pushed return address 0; have %02x", mem[arch.MaxSP])
	}
}

func TestHardwareInterruptMasked(t *testing.T) {
	// Without the interrupt flag the signal is ignored.

	mem, regs := newMachine(arch.End)
	mem[arch.InterruptVector] = 0x40

	in := NewInput()
	in.Interrupt = true

	_, regs, out, err := Step(mem, regs, in)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Halted || regs.IP != 0 {
		t.Fatal("masked interrupt must not divert execution")
	}
}

func TestStepPurity(t *testing.T) {
	mem, regs := newMachine(arch.MovNumToReg, 0, 0x55, arch.MovRegToAddr, 0x80, 0, arch.End)
	before := mem.Clone()

	next, nregs, _, err := Step(mem, regs, NewInput())
	if err != nil {
		t.Fatal(err)
	}
	final, _, _, err := Step(next, nregs, NewInput())
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(mem, before) {
		t.Fatal("Step mutated its input memory")
	}
	if next[0x80] != 0 {
		t.Fatal("the second step mutated its input memory")
	}
	if final[0x80] != 0x55 {
		t.Fatalf("expected the store to land in the second step's result; have %02x", final[0x80])
	}
	if regs.IP != 0 {
		t.Fatal("Step mutated its input registers")
	}
}

func TestDivideByZero(t *testing.T) {
	mem, regs := newMachine(arch.DivRegByReg, 0, 1, arch.End)
	wantError(t, mem, regs, ErrDivideByZero)
}

func TestInvalidOpcode(t *testing.T) {
	mem, regs := newMachine(0x05)
	wantError(t, mem, regs, ErrInvalidOpcode)
}

func TestInvalidRegister(t *testing.T) {
	mem, regs := newMachine(arch.AddRegToReg, 0x07, 0x00, arch.End)
	wantError(t, mem, regs, ErrInvalidRegister)
}

func TestInvalidPort(t *testing.T) {
	mem, regs := newMachine(arch.OutFromAlToPort, arch.MaxPort+1, arch.End)
	wantError(t, mem, regs, ErrInvalidPort)
}

func TestRunBeyondEndOfMemory(t *testing.T) {
	mem, regs := newMachine()
	mem[0xff] = arch.Nop
	regs.IP = 0xff
	wantError(t, mem, regs, ErrRunBeyondEndOfMemory)
}

func TestStackUnderflow(t *testing.T) {
	mem, regs := newMachine(arch.PopToReg, 0, arch.End)
	wantError(t, mem, regs, ErrStackUnderflow)
}

func TestStackOverflow(t *testing.T) {
	mem, regs := newMachine(arch.PushFromReg, 0, arch.End)
	regs.SP = 0
	wantError(t, mem, regs, ErrStackOverflow)
}

func TestErrorPreservesState(t *testing.T) {
	mem, regs := newMachine(arch.DivRegByReg, 0, 1, arch.End)
	regs.GPR[0] = 9

	outMem, outRegs, _, err := Step(mem, regs, NewInput())
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if !bytes.Equal(outMem, mem) || outRegs != regs {
		t.Fatal("failed step must return the prior state")
	}
}

func TestAddProperty(t *testing.T) {
	// ADD stores (a+b) mod 256 and the zero/sign flags match the result.

	samples := []int{0x00, 0x01, 0x42, 0x7f, 0x80, 0xaa, 0xff}

	for _, a := range samples {
		for _, b := range samples {
			mem, regs := newMachine(
				arch.MovNumToReg, 0, a,
				arch.MovNumToReg, 1, b,
				arch.AddRegToReg, 0, 1,
				arch.End,
			)

			_, regs, err := Run(mem, regs, 100)
			if err != nil {
				t.Fatal(err)
			}

			want := byte((a + b) % 256)
			if regs.GPR[0] != want {
				t.Fatalf("%02x + %02x: want %02x; have %02x", a, b, want, regs.GPR[0])
			}
			if regs.SR.Zero != (want == 0) || regs.SR.Sign != (want >= 0x80) {
				t.Fatalf("%02x + %02x: flag mismatch for result %02x: %+v", a, b, want, regs.SR)
			}
		}
	}
}

func TestRunScenario(t *testing.T) {
	// The assembled hello-world skeleton runs to the halt state.

	image, _, err := asm.Assemble(`
jmp start
db "AB"
db 00
start: mov al, c0
       mov bl, 02
       mov cl, [bl]
       end
`)
	if err != nil {
		t.Fatal(err)
	}

	mem, regs, err := Run(FromImage(image), NewRegisters(), 1000)
	if err != nil {
		t.Fatal(err)
	}

	if regs.GPR[0] != 0xc0 {
		t.Fatalf("expected AL c0; have %02x", regs.GPR[0])
	}
	if regs.GPR[1] != 0x02 {
		t.Fatalf("expected BL 02; have %02x", regs.GPR[1])
	}
	if regs.GPR[2] != mem[2] {
		t.Fatalf("expected CL to hold memory[2] = %02x; have %02x", mem[2], regs.GPR[2])
	}
}

// newMachine builds a memory bank holding the given code and a fresh
// register file.
func newMachine(code ...int) (Memory, Registers) {
	mem := NewMemory()
	for i, v := range code {
		mem[i] = byte(v)
	}
	return mem, NewRegisters()
}

// wantError runs the machine and expects a runtime error of the given kind.
func wantError(t *testing.T, mem Memory, regs Registers, kind ErrorKind) {
	t.Helper()

	_, _, err := Run(mem, regs, 1000)
	rerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error; have %v", err)
	}
	if rerr.Kind != kind {
		t.Fatalf("expected %v; have %v (%s)", kind, rerr.Kind, rerr.Msg)
	}
}

// codeTest describes a program and the machine state expected after it
// runs to the halt state.
type codeTest struct {
	program bytes.Buffer
	memInit map[int]byte
	wantGPR map[int]byte
	wantMem map[int]byte
	wantSR  *Flags
	wantIP  int
	wantSP  int
}

func newCodeTest() *codeTest {
	return &codeTest{
		memInit: make(map[int]byte),
		wantGPR: make(map[int]byte),
		wantMem: make(map[int]byte),
		wantIP:  -1,
		wantSP:  -1,
	}
}

// emit appends instruction bytes to the program.
func (ct *codeTest) emit(code ...int) {
	for _, v := range code {
		ct.program.WriteByte(byte(v))
	}
}

// poke presets a memory byte before the program runs.
func (ct *codeTest) poke(addr int, v byte) {
	ct.memInit[addr] = v
}

func runTest(t *testing.T, ct *codeTest) (Memory, Registers) {
	t.Helper()

	mem := FromImage(ct.program.Bytes())
	for addr, v := range ct.memInit {
		mem[addr] = v
	}

	mem, regs, err := Run(mem, NewRegisters(), 10000)
	if err != nil {
		t.Fatalf("Run failure: %v", err)
	}

	for i, want := range ct.wantGPR {
		if regs.GPR[i] != want {
			t.Fatalf("register %s mismatch:\nwant: %02x\nhave: %02x", arch.RegisterName(i), want, regs.GPR[i])
		}
	}
	for addr, want := range ct.wantMem {
		if mem[addr] != want {
			t.Fatalf("memory mismatch at %02x:\nwant: %02x\nhave: %02x", addr, want, mem[addr])
		}
	}
	if ct.wantSR != nil && regs.SR != *ct.wantSR {
		t.Fatalf("flag mismatch:\nwant: %+v\nhave: %+v", *ct.wantSR, regs.SR)
	}
	if ct.wantIP > -1 && int(regs.IP) != ct.wantIP {
		t.Fatalf("IP mismatch:\nwant: %02x\nhave: %02x", ct.wantIP, regs.IP)
	}
	if ct.wantSP > -1 && int(regs.SP) != ct.wantSP {
		t.Fatalf("SP mismatch:\nwant: %02x\nhave: %02x", ct.wantSP, regs.SP)
	}

	return mem, regs
}

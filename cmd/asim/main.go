package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dextercai/assembler-simulator/asm"
	"github.com/dextercai/assembler-simulator/cpu"
	"github.com/dextercai/assembler-simulator/devices"
	"github.com/dextercai/assembler-simulator/devices/teletype"
)

func main() {
	config := parseArgs()

	source, err := os.ReadFile(config.Input)
	if err != nil {
		log.Fatal(err)
	}

	image, stmap, err := asm.Assemble(string(source))
	if err != nil {
		log.Fatalf("%s: %v", config.Input, err)
	}

	bus := devices.NewBus()
	bus.Connect(teletype.New(config.Port, os.Stdin, os.Stdout))

	if err := bus.Startup(); err != nil {
		log.Fatal(err)
	}
	defer bus.Shutdown()

	if err := run(config, image, stmap, bus); err != nil {
		log.Fatal(err)
	}
}

// run drives the step loop until the program halts.
func run(c *Config, image []byte, stmap asm.StatementMap, bus *devices.Bus) error {
	mem := cpu.FromImage(image)
	regs := cpu.NewRegisters()
	in := cpu.NewInput()

	var tick <-chan time.Time
	if c.Hz > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(c.Hz))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			<-tick
		}

		if c.Trace {
			trace(stmap, int(regs.IP))
		}

		var out cpu.Output
		var err error

		mem, regs, out, err = cpu.Step(mem, regs, in)
		if err != nil {
			return err
		}
		if out.Halted {
			return nil
		}

		if in, err = bus.Next(out); err != nil {
			return err
		}
	}
}

// trace prints the source statement behind the given address, if any.
func trace(stmap asm.StatementMap, address int) {
	if s, ok := stmap[address]; ok {
		fmt.Fprintf(os.Stderr, "%02x %s\n", address, s.Instruction.Mnemonic)
	}
}

// Package devices implements the external collaborators that drive
// the signal bus between CPU steps.
package devices

import (
	"log"

	"github.com/pkg/errors"

	"github.com/dextercai/assembler-simulator/cpu"
)

// RaiseFunc requests a hardware interrupt on the CPU. Devices may call
// it from their own goroutines.
type RaiseFunc func()

// Device represents a peripheral connected to an I/O port.
type Device interface {
	// Name identifies the device in logs.
	Name() string

	// Port yields the I/O port the device is connected to.
	Port() int

	// Startup initializes internal resources. The given RaiseFunc
	// lets the device request hardware interrupts.
	Startup(RaiseFunc) error

	// Shutdown cleans up internal resources.
	Shutdown() error

	// Write accepts one byte emitted by an OUT instruction.
	Write(byte) error

	// Read yields one input byte for an IN instruction.
	// Returns false when no byte is available yet.
	Read() (byte, bool)
}

// Bus wires the output signals of one step into the input signals of
// the next. It owns the connected peripherals.
type Bus struct {
	devices    []Device
	interrupts chan struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		interrupts: make(chan struct{}, 1),
	}
}

// Connect adds the given device to the bus.
// Returns false if its port is already taken.
func (b *Bus) Connect(dev Device) bool {
	if b.Find(dev.Port()) != nil {
		return false
	}

	b.devices = append(b.devices, dev)
	return true
}

// Find returns the device connected to the given port.
// Returns nil if the port is unoccupied.
func (b *Bus) Find(port int) Device {
	for _, dev := range b.devices {
		if dev.Port() == port {
			return dev
		}
	}
	return nil
}

// Startup initializes all connected devices.
func (b *Bus) Startup() error {
	var errorset ErrorSet

	for _, dev := range b.devices {
		log.Println(dev.Name(), "startup")
		if err := dev.Startup(b.raise); err != nil {
			errorset.Append(errors.Wrapf(err, "%s", dev.Name()))
		}
	}

	if errorset.Len() == 0 {
		return nil
	}

	return errorset
}

// Shutdown cleans up all connected devices.
func (b *Bus) Shutdown() error {
	var errorset ErrorSet

	for _, dev := range b.devices {
		log.Println(dev.Name(), "shutdown")
		if err := dev.Shutdown(); err != nil {
			errorset.Append(errors.Wrapf(err, "%s", dev.Name()))
		}
	}

	if errorset.Len() == 0 {
		return nil
	}

	return errorset
}

// Next converts the previous step's output signals into the next
// step's input signals: OUT data is routed to its port device and a
// pending IN request is answered if the device has a byte ready.
func (b *Bus) Next(out cpu.Output) (cpu.Input, error) {
	in := cpu.NewInput()

	select {
	case <-b.interrupts:
		in.Interrupt = true
	default:
	}

	if out.Data != nil {
		if dev := b.Find(out.Data.Port); dev != nil {
			if err := dev.Write(out.Data.Content); err != nil {
				return in, errors.Wrapf(err, "%s", dev.Name())
			}
		}
	}

	if port := out.RequiredInputPort; port > -1 {
		if dev := b.Find(port); dev != nil {
			if v, ok := dev.Read(); ok {
				in.Data = cpu.InputData{Content: int(v), Port: port}
			}
		}
	}

	return in, nil
}

// raise marks a hardware interrupt as pending. Further requests are
// coalesced until the next Next call consumes the pending one.
func (b *Bus) raise() {
	select {
	case b.interrupts <- struct{}{}:
	default:
	}
}

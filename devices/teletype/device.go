// Package teletype implements a byte-oriented console device. Bytes
// written by the program appear on the writer; IN requests are served
// from the reader.
package teletype

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"github.com/dextercai/assembler-simulator/devices"
)

// Device defines the teletype state.
type Device struct {
	port int
	r    *bufio.Reader
	w    io.Writer
}

var _ devices.Device = &Device{}

// New creates a teletype on the given port, bridging the given
// reader/writer pair.
func New(port int, r io.Reader, w io.Writer) *Device {
	return &Device{
		port: port,
		r:    bufio.NewReader(r),
		w:    w,
	}
}

// Name identifies the device in logs.
func (d *Device) Name() string {
	return "teletype"
}

// Port yields the I/O port the device is connected to.
func (d *Device) Port() int {
	return d.port
}

// Startup initializes device resources. The teletype never raises
// hardware interrupts.
func (d *Device) Startup(devices.RaiseFunc) error {
	return nil
}

// Shutdown cleans up device resources.
func (d *Device) Shutdown() error {
	return nil
}

// Write prints one program byte.
func (d *Device) Write(b byte) error {
	_, err := d.w.Write([]byte{b})
	return errors.Wrap(err, "teletype write")
}

// Read yields the next input byte. Returns false once the reader is
// drained.
func (d *Device) Read() (byte, bool) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

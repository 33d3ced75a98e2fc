// Package ptt implements the push-to-talk abstraction every transmitter
// back-end keys through: a single boolean "assert/release" signal realized
// over one of several physical transports.
package ptt

import (
	"fmt"

	"github.com/daedaluz/goserial"
	"github.com/warthog618/go-gpiocdev"
)

// Controller asserts or releases PTT. Set(true) keys the radio; Set(false)
// releases it. Implementations apply their own "inverted" polarity handling
// internally so callers never need to know about it.
type Controller interface {
	Set(assert bool) error
	Close() error
}

// GPIO drives PTT from a single GPIO line via go-gpiocdev.
type GPIO struct {
	line     *gpiocdev.Line
	inverted bool
}

// NewGPIO requests line offset on chip (e.g. "gpiochip0") as an output and
// wraps it as a PTT controller.
func NewGPIO(chip string, offset int, inverted bool) (*GPIO, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("ptt: requesting gpio line %s:%d: %w", chip, offset, err)
	}
	return &GPIO{line: line, inverted: inverted}, nil
}

func (g *GPIO) Set(assert bool) error {
	v := 0
	if assert != g.inverted {
		v = 1
	}
	if err := g.line.SetValue(v); err != nil {
		return fmt.Errorf("ptt: setting gpio line: %w", err)
	}
	return nil
}

func (g *GPIO) Close() error { return g.line.Close() }

// serialLine is which RS-232 control line carries PTT.
type serialLine int

const (
	// LineDTR drives PTT from the DTR control line.
	LineDTR serialLine = iota
	// LineRTS drives PTT from the RTS control line.
	LineRTS
)

// Serial drives PTT from a DTR or RTS control line on an already-open serial port.
type Serial struct {
	port     *serial.Port
	line     serialLine
	inverted bool
}

// NewSerialDTR wraps an open serial port, using its DTR line for PTT.
func NewSerialDTR(port *serial.Port, inverted bool) *Serial {
	return &Serial{port: port, line: LineDTR, inverted: inverted}
}

// NewSerialRTS wraps an open serial port, using its RTS line for PTT.
func NewSerialRTS(port *serial.Port, inverted bool) *Serial {
	return &Serial{port: port, line: LineRTS, inverted: inverted}
}

func (s *Serial) modemBit() serial.ModemLine {
	if s.line == LineDTR {
		return serial.TIOCM_DTR
	}
	return serial.TIOCM_RTS
}

func (s *Serial) Set(assert bool) error {
	bit := s.modemBit()
	var err error
	if assert != s.inverted {
		err = s.port.EnableModemLines(bit)
	} else {
		err = s.port.DisableModemLines(bit)
	}
	if err != nil {
		return fmt.Errorf("ptt: setting serial modem line: %w", err)
	}
	return nil
}

func (s *Serial) Close() error { return nil }

// cm108Pin is the GPIO bit mask within a CM108/CM119 HID output report.
type cm108Pin byte

const (
	CM108Pin1 cm108Pin = 0x01
	CM108Pin2 cm108Pin = 0x02
	CM108Pin3 cm108Pin = 0x04
	CM108Pin4 cm108Pin = 0x08
)

// CM108 drives PTT from a GPIO pin on a CM108/CM119-family USB sound chip,
// addressed directly as a HID output report written to /dev/hidrawN.
type CM108 struct {
	write    func([]byte) error
	pin      cm108Pin
	inverted bool
}

// NewCM108 wraps a write function (typically an open hidraw device file's
// Write method) to drive PTT on the given GPIO pin.
func NewCM108(write func([]byte) error, pin cm108Pin, inverted bool) *CM108 {
	return &CM108{write: write, pin: pin, inverted: inverted}
}

// report builds the 5-byte CM108 HID output report: byte 0 is the report
// ID (unused, always 0), byte 2 sets the level of the GPIO pins, byte 3
// selects which pins are under output control.
func (c *CM108) report(assert bool) []byte {
	if assert != c.inverted {
		return []byte{0x00, 0x00, byte(c.pin), byte(c.pin), 0x00}
	}
	return []byte{0x00, 0x00, 0x00, byte(c.pin), 0x00}
}

func (c *CM108) Set(assert bool) error {
	if err := c.write(c.report(assert)); err != nil {
		return fmt.Errorf("ptt: writing cm108 hid report: %w", err)
	}
	return nil
}

func (c *CM108) Close() error { return nil }

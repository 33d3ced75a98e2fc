// Package uart implements the serial-framed POCSAG transmitter back-ends:
// every codeword goes out as 4 big-endian bytes over a UART running at
// 38400 8N1, with per-back-end framing/flow-control on top.
package uart

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/daedaluz/goserial"
	"github.com/warthog618/go-gpiocdev"

	"github.com/dl1pag/pocsag-transmitter/internal/transmitter"
	"github.com/dl1pag/pocsag-transmitter/internal/transmitter/ptt"
)

// eotByte terminates an RFM69/STM32Pager transmission.
const eotByte = 0x17

// Open opens name at the fixed 38400 8N1 configuration every back-end here uses.
func Open(name string) (*serial.Port, error) {
	port, err := serial.Open(name, nil)
	if err != nil {
		return nil, fmt.Errorf("uart: opening %s: %w", name, err)
	}
	if err := port.MakeRaw(); err != nil {
		port.Close()
		return nil, fmt.Errorf("uart: setting raw mode on %s: %w", name, err)
	}
	attrs, err := port.GetAttr2()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("uart: reading termios for %s: %w", name, err)
	}
	attrs.Cflag &^= serial.CSIZE | serial.PARENB | serial.CSTOPB
	attrs.Cflag |= serial.CS8
	attrs.ISpeed = 38400
	attrs.OSpeed = 38400
	if err := port.SetAttr2(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("uart: configuring %s: %w", name, err)
	}
	return port, nil
}

func writeCodeword(port *serial.Port, w uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], w)
	_, err := port.Write(buf[:])
	return err
}

// RFM69STM32 drives the RFM69 and STM32Pager back-ends, which are
// protocol-identical: 4 bytes per codeword, terminated by a single 0x17
// end-of-transmission byte. Neither gates PTT itself - the board's firmware
// does that internally once it sees traffic.
type RFM69STM32 struct {
	port   *serial.Port
	baud   int
	logger *log.Logger
}

// NewRFM69STM32 wraps an already-configured serial port.
func NewRFM69STM32(port *serial.Port, baud int, logger *log.Logger) *RFM69STM32 {
	if logger == nil {
		logger = log.Default()
	}
	return &RFM69STM32{port: port, baud: baud, logger: logger}
}

func (t *RFM69STM32) Baud() int { return t.baud }

func (t *RFM69STM32) Send(src transmitter.CodewordSource) error {
	for {
		w, ok := src.Next()
		if !ok {
			break
		}
		if err := writeCodeword(t.port, w); err != nil {
			return fmt.Errorf("uart: writing codeword: %w", err)
		}
	}
	if _, err := t.port.Write([]byte{eotByte}); err != nil {
		return fmt.Errorf("uart: writing end-of-transmission byte: %w", err)
	}
	return t.port.Drain()
}

func (t *RFM69STM32) Close() error { return t.port.Close() }

// C9000 drives the GPIO-serial "C9000" back-end: PTT is keyed through a
// ptt.Controller, and the board signals buffer readiness on a GPIO input
// that this back-end polls every 40 codewords, flushing the serial port first.
type C9000 struct {
	port       *serial.Port
	ptt        ptt.Controller
	sendLine   *gpiocdev.Line
	baud       int
	logger     *log.Logger
	pollPeriod time.Duration
}

// handshakeEvery matches the original firmware's buffer depth: it acks once
// per 40 codewords, not once per batch.
const handshakeEvery = 40

// NewC9000 wraps an already-configured serial port and the board's PTT and
// buffer-ready GPIO lines.
func NewC9000(port *serial.Port, pttCtl ptt.Controller, sendLine *gpiocdev.Line, baud int, logger *log.Logger) *C9000 {
	if logger == nil {
		logger = log.Default()
	}
	return &C9000{port: port, ptt: pttCtl, sendLine: sendLine, baud: baud, logger: logger, pollPeriod: time.Millisecond}
}

func (t *C9000) Baud() int { return t.baud }

func (t *C9000) Send(src transmitter.CodewordSource) error {
	return withPTTDelay(t.ptt, func() error {
		i := 0
		for {
			w, ok := src.Next()
			if !ok {
				break
			}
			if i%handshakeEvery == 0 {
				if err := t.port.Drain(); err != nil {
					t.logger.Error("unable to flush serial port", "err", err)
				}
				if err := t.awaitBufferReady(); err != nil {
					return err
				}
			}
			if err := writeCodeword(t.port, w); err != nil {
				return fmt.Errorf("uart: writing codeword: %w", err)
			}
			i++
		}
		return t.port.Drain()
	})
}

func (t *C9000) awaitBufferReady() error {
	for {
		v, err := t.sendLine.Value()
		if err != nil {
			return fmt.Errorf("uart: reading c9000 buffer-ready line: %w", err)
		}
		if v != 0 {
			return nil
		}
		time.Sleep(t.pollPeriod)
	}
}

func (t *C9000) Close() error { return t.port.Close() }

// withPTTDelay keys ptt, waits 1ms (matching the board firmware's settle
// time before it starts reading the UART), runs fn, then always releases
// ptt - even if fn returns an error, PTT must never be left asserted.
func withPTTDelay(p ptt.Controller, fn func() error) error {
	if p != nil {
		if err := p.Set(true); err != nil {
			return fmt.Errorf("uart: keying ptt: %w", err)
		}
	}
	time.Sleep(time.Millisecond)
	err := fn()
	if p != nil {
		if releaseErr := p.Set(false); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}
	return err
}

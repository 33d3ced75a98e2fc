package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/daedaluz/goserial"
	"github.com/warthog618/go-gpiocdev"

	"github.com/dl1pag/pocsag-transmitter/internal/config"
	"github.com/dl1pag/pocsag-transmitter/internal/transmitter"
	"github.com/dl1pag/pocsag-transmitter/internal/transmitter/audio"
	"github.com/dl1pag/pocsag-transmitter/internal/transmitter/ptt"
	"github.com/dl1pag/pocsag-transmitter/internal/transmitter/raspager"
	"github.com/dl1pag/pocsag-transmitter/internal/transmitter/uart"
)

// closers accumulates resources opened while building a back-end, so they
// can all be released together if a later step in the build fails, or when
// the back-end itself is closed down on shutdown/restart.
type closers struct {
	fns []func() error
}

func (c *closers) add(fn func() error) { c.fns = append(c.fns, fn) }

func (c *closers) closeAll() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil {
			log.Default().Warn("error releasing back-end resource", "err", err)
		}
	}
}

// buildPTT constructs the PTT controller cfg selects, or nil for "none".
func buildPTT(cfg config.PTT, openPort func() (*serial.Port, error), c *closers) (ptt.Controller, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil

	case "gpio":
		chip := cfg.Chip
		if chip == "" {
			chip = "gpiochip0"
		}
		g, err := ptt.NewGPIO(chip, cfg.Pin, cfg.Invert)
		if err != nil {
			return nil, err
		}
		c.add(g.Close)
		return g, nil

	case "serial-dtr", "serial-rts":
		port, err := openPort()
		if err != nil {
			return nil, err
		}
		if cfg.Type == "serial-dtr" {
			return ptt.NewSerialDTR(port, cfg.Invert), nil
		}
		return ptt.NewSerialRTS(port, cfg.Invert), nil

	case "cm108":
		write, closeFn, vendor, product, err := ptt.OpenCM108Device(cfg.Device)
		if err != nil {
			return nil, err
		}
		c.add(closeFn)
		if !ptt.IsKnownCM108Device(vendor, product) {
			log.Default().Warn("cm108 device has unrecognized vendor/product id, proceeding anyway", "vendor", vendor, "product", product)
		}
		return ptt.NewCM108(write, ptt.CM108Pin1<<uint(cfg.Pin), cfg.Invert), nil

	default:
		return nil, fmt.Errorf("backend: unknown ptt type %q", cfg.Type)
	}
}

// buildTransmitter constructs the transmitter.Transmitter cfg.Transmitter
// selects. It returns a cleanup function that releases every resource it
// opened (serial ports, GPIO lines, HID device handles); the caller must
// invoke it exactly once, when the back-end is no longer needed.
func buildTransmitter(cfg config.Config, logger *log.Logger) (transmitter.Transmitter, func(), error) {
	c := &closers{}
	cleanup := c.closeAll

	var openedPort *serial.Port
	openPort := func() (*serial.Port, error) {
		if openedPort != nil {
			return openedPort, nil
		}
		port, err := uart.Open(cfg.UART.Device)
		if err != nil {
			return nil, err
		}
		c.add(port.Close)
		openedPort = port
		return port, nil
	}

	pttCtl, err := buildPTT(cfg.PTT, openPort, c)
	if err != nil {
		c.closeAll()
		return nil, func() {}, err
	}

	switch cfg.Transmitter {
	case "", "dummy":
		return transmitter.NewDummy(cfg.Baud, logger), cleanup, nil

	case "audio":
		return audio.New(pttCtl, cfg.Baud, cfg.Audio.Inverted, cfg.Audio.TXDelay(), logger), cleanup, nil

	case "rfm69", "stm32pager":
		port, err := openPort()
		if err != nil {
			c.closeAll()
			return nil, func() {}, err
		}
		return uart.NewRFM69STM32(port, cfg.Baud, logger), cleanup, nil

	case "c9000":
		port, err := openPort()
		if err != nil {
			c.closeAll()
			return nil, func() {}, err
		}
		chip := cfg.PTT.Chip
		if chip == "" {
			chip = "gpiochip0"
		}
		sendLine, err := gpiocdev.RequestLine(chip, cfg.PTT.Pin)
		if err != nil {
			c.closeAll()
			return nil, func() {}, fmt.Errorf("backend: requesting c9000 buffer-ready line: %w", err)
		}
		c.add(sendLine.Close)
		return uart.NewC9000(port, pttCtl, sendLine, cfg.Baud, logger), cleanup, nil

	case "raspager":
		pins, err := buildRaspagerPins(cfg.Raspager, c)
		if err != nil {
			c.closeAll()
			return nil, func() {}, err
		}
		return raspager.New(pins, cfg.Baud, byte(cfg.Raspager.PAOutputLevel), logger), cleanup, nil

	default:
		c.closeAll()
		return nil, func() {}, fmt.Errorf("backend: unknown transmitter type %q", cfg.Transmitter)
	}
}

func buildRaspagerPins(cfg config.Raspager, c *closers) (raspager.Pins, error) {
	chip := cfg.Chip
	if chip == "" {
		chip = "gpiochip0"
	}

	requestOutput := func(offset int) (*gpiocdev.Line, error) {
		line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
		if err != nil {
			return nil, fmt.Errorf("backend: requesting raspager line %s:%d: %w", chip, offset, err)
		}
		c.add(line.Close)
		return line, nil
	}
	requestInput := func(offset int) (*gpiocdev.Line, error) {
		line, err := gpiocdev.RequestLine(chip, offset)
		if err != nil {
			return nil, fmt.Errorf("backend: requesting raspager line %s:%d: %w", chip, offset, err)
		}
		c.add(line.Close)
		return line, nil
	}

	chipEnable, err := requestOutput(cfg.ChipEnableLine)
	if err != nil {
		return raspager.Pins{}, err
	}
	muxOut, err := requestInput(cfg.MuxOutLine)
	if err != nil {
		return raspager.Pins{}, err
	}
	atClock, err := requestOutput(cfg.ATClockLine)
	if err != nil {
		return raspager.Pins{}, err
	}
	atData, err := requestOutput(cfg.ATDataLine)
	if err != nil {
		return raspager.Pins{}, err
	}
	handshake, err := requestInput(cfg.HandshakeLine)
	if err != nil {
		return raspager.Pins{}, err
	}
	pttSense, err := requestInput(cfg.PTTSenseLine)
	if err != nil {
		return raspager.Pins{}, err
	}

	return raspager.Pins{
		ChipEnable: chipEnable,
		MuxOut:     muxOut,
		ATClock:    atClock,
		ATData:     atData,
		Handshake:  handshake,
		PTTSense:   pttSense,
	}, nil
}

// Package transmitter defines the contract a POCSAG back-end satisfies and
// provides the Dummy implementation; the audio, serial-framed and Raspager
// back-ends live in its subpackages.
package transmitter

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/dl1pag/pocsag-transmitter/internal/transmitter/ptt"
)

// CodewordSource is a single-pass iterator of 32-bit codewords, satisfied by
// *pocsag.Generator. A transmitter drains it to completion.
type CodewordSource interface {
	Next() (uint32, bool)
}

// Transmitter consumes a CodewordSource and renders it to air. Send must
// fully drain the source or return only on a hardware failure (which it
// logs; it never re-enqueues the in-flight message). Send keys PTT before
// the first meaningful symbol and releases it after the last, and may block
// the calling goroutine for the whole transmission - callers on the
// scheduler's dedicated goroutine are expected to block here.
type Transmitter interface {
	Send(src CodewordSource) error
	Baud() int
	Close() error
}

// Dummy simulates on-air time without touching any hardware: useful for
// development and for config validation before hardware is wired up.
type Dummy struct {
	baud   int
	logger *log.Logger
}

// NewDummy builds a Dummy transmitter logging at baud for budget calculations.
func NewDummy(baud int, logger *log.Logger) *Dummy {
	if logger == nil {
		logger = log.Default()
	}
	if baud <= 0 {
		baud = 1200
	}
	return &Dummy{baud: baud, logger: logger}
}

func (d *Dummy) Baud() int { return d.baud }

// Send logs every codeword and sleeps roughly 3ms per codeword to simulate
// on-air time, so timing-sensitive callers (the scheduler's budget logic)
// behave the same as with real hardware.
func (d *Dummy) Send(src CodewordSource) error {
	count := 0
	for {
		w, ok := src.Next()
		if !ok {
			break
		}
		d.logger.Debug("codeword", "bits", formatBits(w))
		count++
	}
	time.Sleep(time.Duration(count)*3*time.Millisecond + 50*time.Millisecond)
	return nil
}

func (d *Dummy) Close() error { return nil }

func formatBits(w uint32) string {
	b := make([]byte, 32)
	for i := 0; i < 32; i++ {
		if w&(1<<uint(31-i)) != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

// withPTT keys ptt before running fn and always releases it afterward, even
// if fn returns an error - a back-end must never leave PTT asserted on failure.
func withPTT(p ptt.Controller, fn func() error) error {
	if p != nil {
		if err := p.Set(true); err != nil {
			return err
		}
	}
	err := fn()
	if p != nil {
		if releaseErr := p.Set(false); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}
	return err
}

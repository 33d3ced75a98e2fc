// Package audio implements the baseband-audio POCSAG back-end: codewords
// are rendered as a PCM square wave and streamed to an audio device while a
// PTT controller keys the attached radio's audio input.
package audio

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"github.com/dl1pag/pocsag-transmitter/internal/transmitter"
	"github.com/dl1pag/pocsag-transmitter/internal/transmitter/ptt"
)

const sampleRate = 48000

// Audio renders each codeword bit as samplesPerBit() samples of a square wave
// and plays the whole transmission as one buffer through PortAudio.
type Audio struct {
	ptt      ptt.Controller
	baud     int
	inverted bool
	txDelay  time.Duration
	logger   *log.Logger
}

// New builds an Audio back-end keying pttCtl, at the given baud rate.
// Inverted flips high/low in the rendered waveform (for radios expecting
// the opposite polarity). txDelay is how long to hold PTT before audio starts,
// giving the radio's PA time to come up to full output.
func New(pttCtl ptt.Controller, baud int, inverted bool, txDelay time.Duration, logger *log.Logger) *Audio {
	if logger == nil {
		logger = log.Default()
	}
	if baud <= 0 {
		baud = 1200
	}
	return &Audio{ptt: pttCtl, baud: baud, inverted: inverted, txDelay: txDelay, logger: logger}
}

func (a *Audio) Baud() int { return a.baud }

// samplesPerBit is sampleRate/baud, rendering one bit as that many PCM samples.
func (a *Audio) samplesPerBit() int { return sampleRate / a.baud }

func (a *Audio) render(src transmitter.CodewordSource) []float32 {
	samplesPerBit := a.samplesPerBit()
	var buf []float32
	hi, lo := float32(1), float32(-1)
	if a.inverted {
		hi, lo = lo, hi
	}

	for {
		w, ok := src.Next()
		if !ok {
			break
		}
		for i := 0; i < 32; i++ {
			bit := w & (1 << uint(31-i))
			level := lo
			if bit != 0 {
				level = hi
			}
			for s := 0; s < samplesPerBit; s++ {
				buf = append(buf, level)
			}
		}
	}
	return buf
}

func (a *Audio) Send(src transmitter.CodewordSource) error {
	buf := a.render(src)

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio: initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	out := make([]float32, 2048)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(out), &out)
	if err != nil {
		return fmt.Errorf("audio: opening output stream: %w", err)
	}
	defer stream.Close()

	if a.ptt != nil {
		if err := a.ptt.Set(true); err != nil {
			return fmt.Errorf("audio: keying ptt: %w", err)
		}
	}
	defer func() {
		if a.ptt != nil {
			if releaseErr := a.ptt.Set(false); releaseErr != nil {
				a.logger.Error("unable to release ptt", "err", releaseErr)
			}
		}
	}()

	if a.txDelay > 0 {
		time.Sleep(a.txDelay)
	}

	if err := stream.Start(); err != nil {
		return fmt.Errorf("audio: starting stream: %w", err)
	}
	defer stream.Stop()

	for pos := 0; pos < len(buf); pos += len(out) {
		n := copy(out, buf[pos:])
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("audio: writing samples: %w", err)
		}
	}

	return nil
}

func (a *Audio) Close() error { return nil }

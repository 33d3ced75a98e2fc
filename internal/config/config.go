// Package config loads and persists the node's JSON configuration file:
// master connection settings, PTT wiring, audio parameters, and the
// selected transmitter back-end with its own settings block.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Master holds the upstream dispatcher connection the node authenticates
// and bootstraps against.
type Master struct {
	Call                    string `json:"call"`
	Auth                    string `json:"auth_key"`
	Server                  string `json:"server"`
	Port                    int    `json:"port"`
	ReconnectTimeoutSeconds int    `json:"reconnect_timeout_seconds"`
}

func (m Master) ReconnectTimeout() time.Duration {
	return time.Duration(m.ReconnectTimeoutSeconds) * time.Second
}

// PTT selects how this node asserts push-to-talk.
type PTT struct {
	Type   string `json:"type"` // "gpio" | "serial-dtr" | "serial-rts" | "cm108" | "none"
	Device string `json:"device,omitempty"`
	Chip   string `json:"chip,omitempty"` // gpiochip for Type=="gpio", e.g. "gpiochip0"
	Pin    int    `json:"pin,omitempty"`
	Invert bool   `json:"invert,omitempty"`
}

// Audio configures the baseband-audio back-end.
type Audio struct {
	Inverted      bool `json:"inverted"`
	TXDelayMillis int  `json:"tx_delay_ms"`
}

func (a Audio) TXDelay() time.Duration {
	return time.Duration(a.TXDelayMillis) * time.Millisecond
}

// UART configures the serial-framed back-ends (RFM69/STM32Pager/C9000).
type UART struct {
	Device string `json:"device"`
}

// Raspager configures the ADF7012 co-processor back-end's GPIO wiring.
type Raspager struct {
	Chip           string `json:"chip"` // gpiochip the lines below are requested on, e.g. "gpiochip0"
	ChipEnableLine int    `json:"chip_enable_line"`
	MuxOutLine     int    `json:"muxout_line"`
	ATClockLine    int    `json:"atclock_line"`
	ATDataLine     int    `json:"atdata_line"`
	HandshakeLine  int    `json:"handshake_line"`
	PTTSenseLine   int    `json:"ptt_sense_line"`
	PAOutputLevel  int    `json:"pa_output_level"`
}

// Config is the node's complete persistent state, serialized as config.json.
type Config struct {
	Master      Master   `json:"master"`
	PTT         PTT      `json:"ptt"`
	Audio       Audio    `json:"audio"`
	UART        UART     `json:"uart"`
	Raspager    Raspager `json:"raspager"`
	Transmitter string   `json:"transmitter"` // "dummy" | "audio" | "rfm69" | "stm32pager" | "c9000" | "raspager"
	Baud        int      `json:"baud"`
	Priorities  int      `json:"priorities"`
}

// Default returns the configuration shipped when no config.json exists yet.
func Default() Config {
	return Config{
		Master: Master{
			Server:                  "master.hampager.de",
			Port:                    8080,
			ReconnectTimeoutSeconds: 10,
		},
		PTT:         PTT{Type: "none", Chip: "gpiochip0"},
		Audio:       Audio{TXDelayMillis: 100},
		UART:        UART{Device: "/dev/ttyUSB0"},
		Raspager:    Raspager{Chip: "gpiochip0", PAOutputLevel: 255},
		Transmitter: "dummy",
		Baud:        1200,
		Priorities:  10,
	}
}

// Load reads path, writing and returning Default if it does not yet exist.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if saveErr := Save(path, cfg); saveErr != nil {
			return cfg, fmt.Errorf("config: writing default config to %s: %w", path, saveErr)
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save atomically rewrites path: marshal to path+".tmp", then rename over
// path, so a crash mid-write never leaves a truncated config.json behind.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshaling config: %w", err)
	}

	tmp := path + ".tmp"
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("config: renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}

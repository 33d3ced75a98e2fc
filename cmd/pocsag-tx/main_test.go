package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dl1pag/pocsag-transmitter/internal/config"
)

func TestMustPortParsesAddress(t *testing.T) {
	assert.Equal(t, 8055, mustPort("0.0.0.0:8055"))
	assert.Equal(t, 8073, mustPort("127.0.0.1:8073"))
	assert.Equal(t, 0, mustPort("not-an-address"))
}

func TestBuildTransmitterDummyNeedsNoHardware(t *testing.T) {
	cfg := config.Default()
	cfg.Transmitter = "dummy"

	tx, cleanup, err := buildTransmitter(cfg, nil)
	assert.NoError(t, err)
	assert.NotNil(t, tx)
	assert.Equal(t, cfg.Baud, tx.Baud())
	cleanup()
}

func TestBuildTransmitterRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Transmitter = "nonexistent"

	_, _, err := buildTransmitter(cfg, nil)
	assert.Error(t, err)
}

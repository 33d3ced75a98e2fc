package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk Config
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, Default(), onDisk)
}

func TestLoadRoundTripsSavedConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Master.Call = "DB0ABC"
	cfg.Master.Auth = "secret"
	cfg.Transmitter = "audio"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	require.NoError(t, Save(path, Default()))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not survive a successful save")
}

func TestReconnectTimeoutAndTXDelayConversions(t *testing.T) {
	m := Master{ReconnectTimeoutSeconds: 10}
	assert.EqualValues(t, 10, m.ReconnectTimeout().Seconds())

	a := Audio{TXDelayMillis: 250}
	assert.EqualValues(t, 250, a.TXDelay().Milliseconds())
}

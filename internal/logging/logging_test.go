package logging

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevelRecognizesKnownNames(t *testing.T) {
	assert.Equal(t, log.DebugLevel, parseLevel("debug"))
	assert.Equal(t, log.WarnLevel, parseLevel("warn"))
	assert.Equal(t, log.ErrorLevel, parseLevel("error"))
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, log.InfoLevel, parseLevel(""))
	assert.Equal(t, log.InfoLevel, parseLevel("bogus"))
}

func TestNewAppliesConfiguredLevel(t *testing.T) {
	logger := New(Options{Level: "debug"})
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
}

package discovery

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultServiceNameIncludesHostname(t *testing.T) {
	hostname, err := os.Hostname()
	if err != nil {
		t.Skip("hostname unavailable in this environment")
	}
	hostname, _, _ = strings.Cut(hostname, ".")

	name := defaultServiceName()
	assert.Contains(t, name, hostname)
	assert.Contains(t, name, "POCSAG transmitter")
}

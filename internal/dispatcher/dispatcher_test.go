package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dl1pag/pocsag-transmitter/internal/event"
)

func TestNextBackoffDoublesUntilCapped(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(1*time.Second, 60*time.Second))
	assert.Equal(t, 4*time.Second, nextBackoff(2*time.Second, 60*time.Second))
	assert.Equal(t, 60*time.Second, nextBackoff(40*time.Second, 60*time.Second))
	assert.Equal(t, 60*time.Second, nextBackoff(60*time.Second, 60*time.Second))
}

func TestNewBuildsLowercaseRoutingKeys(t *testing.T) {
	bus := event.New(nil)
	d := New(Config{Server: "master.example", Port: 5672, Call: "DB0ABC", Auth: "secret"}, bus, nil, nil)
	assert.Equal(t, "db0abc", d.routingKey)
	assert.Equal(t, "transmitter.db0abc", d.telemetryRouting)
	assert.Contains(t, d.url, "tx-db0abc:secret@master.example:5672")
}

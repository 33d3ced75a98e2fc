package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl1pag/pocsag-transmitter/internal/pocsag"
)

func TestDecodeMessageParsesAlphaNum(t *testing.T) {
	body := []byte(`{"id":"m1","priority":2,"ric":74565,"func":3,"type":"alphanum","data":"hello","speed":1200}`)

	msg, err := decodeMessage(body)
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, 2, msg.Priority)
	assert.Equal(t, uint32(74565), msg.RIC)
	assert.Equal(t, pocsag.FuncAlpha, msg.Func)
	assert.Equal(t, pocsag.AlphaNum, msg.Type)
	assert.Equal(t, []byte("hello"), msg.Data)
}

func TestDecodeMessageDefaultsMissingTypeToAlphaNum(t *testing.T) {
	msg, err := decodeMessage([]byte(`{"id":"m2","ric":1,"data":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, pocsag.AlphaNum, msg.Type)
}

func TestDecodeMessageRejectsUnknownType(t *testing.T) {
	_, err := decodeMessage([]byte(`{"id":"m3","type":"bogus"}`))
	assert.Error(t, err)
}

func TestDecodeMessageRejectsMalformedJSON(t *testing.T) {
	_, err := decodeMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeMessageParsesExpiresOn(t *testing.T) {
	body := []byte(`{"id":"m4","ric":1,"type":"numeric","data":"123","expires_on":"2026-08-01T12:00:00Z"}`)
	msg, err := decodeMessage(body)
	require.NoError(t, err)
	assert.Equal(t, 2026, msg.ExpiresOn.Year())
	assert.False(t, msg.ExpiresOn.Before(time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)))
}

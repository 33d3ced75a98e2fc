package dispatcher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dl1pag/pocsag-transmitter/internal/pocsag"
)

// wireMessage is the JSON shape of one incoming paging message from the
// upstream dispatcher - the body of an AMQP delivery on dapnet.local_calls.
type wireMessage struct {
	ID        string `json:"id"`
	Priority  int    `json:"priority"`
	RIC       uint32 `json:"ric"`
	Func      uint8  `json:"func"`
	Type      string `json:"type"` // "numeric" | "alphanum"
	Data      string `json:"data"`
	Speed     int    `json:"speed"`
	ExpiresOn *time.Time `json:"expires_on,omitempty"`
}

func decodeMessage(body []byte) (pocsag.Message, error) {
	var w wireMessage
	if err := json.Unmarshal(body, &w); err != nil {
		return pocsag.Message{}, fmt.Errorf("dispatcher: decoding message body: %w", err)
	}

	var mtype pocsag.MType
	switch w.Type {
	case "numeric":
		mtype = pocsag.Numeric
	case "alphanum", "":
		mtype = pocsag.AlphaNum
	default:
		return pocsag.Message{}, fmt.Errorf("dispatcher: unknown message type %q", w.Type)
	}

	msg := pocsag.Message{
		ID:       w.ID,
		Priority: w.Priority,
		RIC:      w.RIC,
		Func:     pocsag.Func(w.Func & 0b11),
		Type:     mtype,
		Data:     []byte(w.Data),
		Speed:    w.Speed,
	}
	if w.ExpiresOn != nil {
		msg.ExpiresOn = *w.ExpiresOn
	}
	return msg, nil
}

package dispatcher

import "encoding/json"

// marshalTelemetry serializes whichever telemetry event payload was handed
// to publishTelemetry - either a full snapshot or a single changed field.
func marshalTelemetry(payload any) ([]byte, error) {
	return json.Marshal(payload)
}

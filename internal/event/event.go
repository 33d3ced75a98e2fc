// Package event implements the process-wide typed event bus: every
// published event is fanned out to every registered subscriber, each
// through its own unbounded queue, never blocking a publisher.
package event

import (
	"github.com/dl1pag/pocsag-transmitter/internal/pocsag"
)

// Event is the marker interface every bus payload implements.
type Event interface {
	eventName() string
}

// MessageReceived carries one freshly-ingested message into the scheduler.
type MessageReceived struct {
	Message pocsag.Message
}

// TimeslotsUpdate replaces the transmitter's permitted time-slot bitmap
// wholesale; there is no incremental update.
type TimeslotsUpdate struct {
	Slots pocsag.TimeSlotSet
}

// ConfigUpdate signals that persistent configuration has been rewritten and
// should be reloaded by anything that cached values from it.
type ConfigUpdate struct {
	Path string
}

// Test requests a test transmission: 1125 preamble codewords and nothing else.
type Test struct{}

// Restart asks the scheduler to tear down and rebuild its transmitter
// back-end from current configuration (e.g. after a back-end config change).
type Restart struct{}

// Shutdown asks every long-lived task to stop. The scheduler finishes its
// current transmission (send is non-cancellable) before observing it.
type Shutdown struct {
	Reason string
}

// TelemetryUpdate carries a full telemetry snapshot, published periodically.
type TelemetryUpdate struct {
	Snapshot any
}

// TelemetryPartialUpdate carries one changed telemetry field, published
// immediately on change.
type TelemetryPartialUpdate struct {
	Field string
	Value any
}

func (MessageReceived) eventName() string        { return "MessageReceived" }
func (TimeslotsUpdate) eventName() string         { return "TimeslotsUpdate" }
func (ConfigUpdate) eventName() string            { return "ConfigUpdate" }
func (Test) eventName() string                    { return "Test" }
func (Restart) eventName() string                 { return "Restart" }
func (Shutdown) eventName() string                { return "Shutdown" }
func (TelemetryUpdate) eventName() string         { return "TelemetryUpdate" }
func (TelemetryPartialUpdate) eventName() string  { return "TelemetryPartialUpdate" }

// Name returns the event's stable type name, useful for logging.
func Name(e Event) string { return e.eventName() }

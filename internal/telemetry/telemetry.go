// Package telemetry holds the process-wide, read-mostly state snapshot
// describing this node's health: connection state, queue depths, on-air
// status, and software identity. Writes diff against the previous value and
// publish a partial update event only when something actually changed.
package telemetry

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"

	"github.com/dl1pag/pocsag-transmitter/internal/event"
	"github.com/dl1pag/pocsag-transmitter/internal/pocsag"
)

// defaultTimestampFormat mirrors the strftime pattern UniPager-derived tools
// use for their own periodic log lines.
const defaultTimestampFormat = "%Y-%m-%d %H:%M:%S"

// Node describes the upstream dispatcher connection.
type Node struct {
	Name          string
	Address       string
	Port          uint16
	Connected     bool
	ConnectedSince time.Time
}

// NTP describes local clock-sync health, which matters here because every
// scheduling decision is derived from wall-clock time.
type NTP struct {
	Synced  bool
	OffsetMS int64
	Servers []string
}

// Messages holds cumulative per-priority queue depth and sent counters.
type Messages struct {
	Queued []int
	Sent   []int
}

// Software identifies this transmitter implementation for upstream display.
type Software struct {
	Name    string
	Version string
}

// Snapshot is the full telemetry record at a point in time. Safe to copy.
type Snapshot struct {
	OnAir    bool
	Node     Node
	NTP      NTP
	Messages Messages
	Slots    pocsag.TimeSlotSet
	Software Software
}

// Store is the process-wide telemetry record. The zero value is not usable;
// construct with New.
type Store struct {
	mu              sync.RWMutex
	snap            Snapshot
	bus             *event.Bus
	logger          *log.Logger
	timestampFormat string
}

// New creates a Store reporting itself under the given software identity,
// publishing partial/full updates onto bus.
func New(bus *event.Bus, numPriorities int, software Software) *Store {
	return &Store{
		bus:             bus,
		timestampFormat: defaultTimestampFormat,
		snap: Snapshot{
			Messages: Messages{
				Queued: make([]int, numPriorities),
				Sent:   make([]int, numPriorities),
			},
			Software: software,
		},
	}
}

// SetLogger attaches a logger and a strftime timestamp pattern for the
// periodic log line RunPeriodicUpdates emits alongside each bus publish. A
// zero-value format keeps defaultTimestampFormat.
func (s *Store) SetLogger(logger *log.Logger, timestampFormat string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
	if timestampFormat != "" {
		s.timestampFormat = timestampFormat
	}
}

// Get returns an independent copy of the current snapshot: slice fields are
// cloned so a caller mutating the result can never corrupt the store.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snap
	snap.Messages.Queued = append([]int(nil), s.snap.Messages.Queued...)
	snap.Messages.Sent = append([]int(nil), s.snap.Messages.Sent...)
	snap.NTP.Servers = append([]string(nil), s.snap.NTP.Servers...)
	return snap
}

// SetOnAir updates the on-air flag, publishing a partial update iff it changed.
func (s *Store) SetOnAir(onAir bool) {
	s.mu.Lock()
	changed := s.snap.OnAir != onAir
	s.snap.OnAir = onAir
	s.mu.Unlock()

	if changed {
		s.publishPartial("onair", onAir)
	}
}

// SetNode replaces the upstream connection record.
func (s *Store) SetNode(n Node) {
	s.mu.Lock()
	changed := s.snap.Node != n
	s.snap.Node = n
	s.mu.Unlock()

	if changed {
		s.publishPartial("node", n)
	}
}

// SetNTP replaces the clock-sync record.
func (s *Store) SetNTP(n NTP) {
	s.mu.Lock()
	old := s.snap.NTP
	changed := old.Synced != n.Synced || old.OffsetMS != n.OffsetMS || !slices.Equal(old.Servers, n.Servers)
	s.snap.NTP = n
	s.mu.Unlock()

	if changed {
		s.publishPartial("ntp", n)
	}
}

// SetMessageCounters replaces the per-priority queued/sent counters.
func (s *Store) SetMessageCounters(m Messages) {
	clone := Messages{
		Queued: append([]int(nil), m.Queued...),
		Sent:   append([]int(nil), m.Sent...),
	}
	s.mu.Lock()
	changed := !slices.Equal(s.snap.Messages.Queued, clone.Queued) || !slices.Equal(s.snap.Messages.Sent, clone.Sent)
	s.snap.Messages = clone
	s.mu.Unlock()

	if changed {
		s.publishPartial("messages", clone)
	}
}

// SetSlots replaces the permitted time-slot bitmap.
func (s *Store) SetSlots(slots pocsag.TimeSlotSet) {
	s.mu.Lock()
	changed := s.snap.Slots != slots
	s.snap.Slots = slots
	s.mu.Unlock()

	if changed {
		s.publishPartial("slots", slots.ToHexChars())
	}
}

func (s *Store) publishPartial(field string, value any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.TelemetryPartialUpdate{Field: field, Value: value})
}

// RunPeriodicUpdates publishes a full TelemetryUpdate every interval until
// ctx is cancelled. Intended to run as its own goroutine in the I/O task group.
func (s *Store) RunPeriodicUpdates(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.Get()
			if s.bus != nil {
				s.bus.Publish(event.TelemetryUpdate{Snapshot: snap})
			}
			s.logPeriodic(snap)
		}
	}
}

// logPeriodic writes one line summarizing snap, timestamped with the
// configured strftime pattern. A nil logger (the default, until SetLogger is
// called) makes this a no-op.
func (s *Store) logPeriodic(snap Snapshot) {
	s.mu.RLock()
	logger, format := s.logger, s.timestampFormat
	s.mu.RUnlock()

	if logger == nil {
		return
	}

	ts, err := strftime.Format(format, time.Now())
	if err != nil {
		ts = time.Now().Format(time.RFC3339)
	}
	logger.Info("telemetry",
		"time", ts,
		"on_air", snap.OnAir,
		"node_connected", snap.Node.Connected,
	)
}

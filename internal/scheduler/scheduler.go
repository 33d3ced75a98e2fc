// Package scheduler runs the node's hard-real-time core: it owns the
// priority queue, the permitted time-slot set, and the bound transmitter,
// and drives the codeword generator across one dequeued message at a time.
package scheduler

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/dl1pag/pocsag-transmitter/internal/event"
	"github.com/dl1pag/pocsag-transmitter/internal/pocsag"
	"github.com/dl1pag/pocsag-transmitter/internal/queue"
	"github.com/dl1pag/pocsag-transmitter/internal/telemetry"
	"github.com/dl1pag/pocsag-transmitter/internal/transmitter"
)

// minUsableBudget is the threshold below which the scheduler refuses to
// start a new transmission and waits for the next allowed slot instead.
const minUsableBudget = 30

// testPreambleLength is how many preamble-only codewords a Test event
// transmits - enough to let a receiver confirm the link is keying cleanly
// without queuing a real page.
const testPreambleLength = 1125

// Clock abstracts wall-clock reads so tests can inject a fixed or
// step-advancing time source without sleeping in real time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Scheduler owns the queue, slot set, and transmitter back-end, and runs
// the main dispatch loop described in the component design.
type Scheduler struct {
	sub         event.Subscription
	bus         *event.Bus
	queue       *queue.Queue
	telemetry   *telemetry.Store
	transmitter transmitter.Transmitter
	clock       Clock
	logger      *log.Logger
	baud        int

	slots  pocsag.TimeSlotSet
	budget int

	testMode bool
	stop     bool
	restart  bool
}

// New builds a Scheduler bound to tx, subscribed to bus under RoleScheduler.
func New(bus *event.Bus, q *queue.Queue, tel *telemetry.Store, tx transmitter.Transmitter, baud int, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		sub:         bus.Register(event.RoleScheduler),
		bus:         bus,
		queue:       q,
		telemetry:   tel,
		transmitter: tx,
		clock:       realClock{},
		logger:      logger,
		baud:        baud,
	}
}

// SetTransmitter swaps the back-end Run() drives on its next iteration.
// Used by the caller after Run() returns restart=true: Restart and
// ConfigUpdate tear down and rebuild the transmitter without losing the
// scheduler's queue, slot set, or pending testMode flag.
func (s *Scheduler) SetTransmitter(tx transmitter.Transmitter) {
	s.transmitter = tx
}

// SetBaud updates the budget calculation's baud rate, for when a
// ConfigUpdate changes it across a restart.
func (s *Scheduler) SetBaud(baud int) {
	s.baud = baud
}

// Run executes the main loop until a Shutdown event is observed. It returns
// restart=true if a ConfigUpdate or Restart event asked the caller to
// rebuild the scheduler's transmitter and run again.
func (s *Scheduler) Run() (restart bool) {
	s.stop = false
	s.restart = false

	for !s.stop {
		if s.testMode {
			s.runTest()
			s.testMode = false
			continue
		}

		if s.queue.IsEmpty() {
			s.waitForEvent()
			continue
		}

		if !s.waitForUsableSlot() {
			continue
		}

		s.transmitOne()
	}

	return s.restart
}

// waitForEvent blocks until one event arrives, then applies it. Used when
// the queue is empty - there is nothing to do until something changes.
func (s *Scheduler) waitForEvent() {
	e, ok := <-s.sub.Recv()
	if !ok {
		s.stop = true
		return
	}
	s.handleEvent(e)
}

// waitForUsableSlot blocks (while still processing events) until the
// current slot is allowed and its budget exceeds minUsableBudget. Returns
// false if a stop/restart was requested during the wait, so the caller
// should re-evaluate the loop instead of proceeding to dequeue.
func (s *Scheduler) waitForUsableSlot() bool {
	for {
		now := s.clock.Now()
		s.budget = s.slots.CalculateBudget(now, s.baud)
		if s.budget > minUsableBudget {
			return true
		}

		timer := time.NewTimer(s.slotWaitDuration(now))
		select {
		case e, chOk := <-s.sub.Recv():
			timer.Stop()
			if !chOk {
				s.stop = true
				return false
			}
			s.handleEvent(e)
			if s.stop || s.restart {
				return false
			}
		case <-timer.C:
		}
	}
}

// slotWaitDuration picks how long to sleep before re-checking the budget.
// NextAllowed reports a zero wait whenever the current slot is itself
// allowed - including when we only got here because that same slot's
// budget is exhausted. Leaning on that zero wait would busy-spin the timer
// until the slot actually rolls over, so that one case instead waits out
// the remainder of the current slot.
func (s *Scheduler) slotWaitDuration(now time.Time) time.Duration {
	next, wait, ok := s.slots.NextAllowed(now)
	if !ok {
		return time.Second
	}
	if wait == 0 && next == pocsag.CurrentTimeSlot(now) {
		return pocsag.TimeUntilSlotEnd(now)
	}
	return wait
}

// transmitOne dequeues the highest-priority message and sends it, chaining
// in further messages via MessageProvider until the batch or budget runs out.
func (s *Scheduler) transmitOne() {
	now := s.clock.Now()
	msg, ok := s.queue.Dequeue(now)
	if !ok {
		return
	}

	s.telemetry.SetOnAir(true)
	gen := pocsag.NewGenerator(&msg, s)
	if err := s.transmitter.Send(gen); err != nil {
		s.logger.Error("transmit failed", "err", err)
	}
	s.telemetry.SetOnAir(false)
}

// Next implements pocsag.MessageProvider. It is called by the generator
// mid-batch, from the scheduler's own goroutine - there is no concurrent
// access to the queue here.
func (s *Scheduler) Next(emitted int) *pocsag.Message {
	if emitted+pocsag.TailGuardCodewords > s.budget {
		return nil
	}

	s.drainEventsNonBlocking()
	if s.stop || s.restart {
		return nil
	}

	msg, ok := s.queue.Dequeue(s.clock.Now())
	if !ok {
		return nil
	}
	return &msg
}

// drainEventsNonBlocking applies every event already queued, without
// blocking, so a pending ConfigUpdate/Shutdown/enqueue is observed the
// instant the generator asks for more work - never mid-send.
func (s *Scheduler) drainEventsNonBlocking() {
	for {
		select {
		case e, ok := <-s.sub.Recv():
			if !ok {
				s.stop = true
				return
			}
			s.handleEvent(e)
		default:
			return
		}
	}
}

func (s *Scheduler) handleEvent(e event.Event) {
	switch ev := e.(type) {
	case event.MessageReceived:
		s.queue.Enqueue(ev.Message)
		s.telemetry.SetMessageCounters(s.queueCounters())

	case event.TimeslotsUpdate:
		s.slots = ev.Slots
		s.telemetry.SetSlots(ev.Slots)

	case event.ConfigUpdate:
		s.stop = true
		s.restart = true

	case event.Test:
		s.testMode = true

	case event.Restart:
		s.stop = true
		s.restart = true

	case event.Shutdown:
		s.stop = true
		s.restart = false

	default:
		// Events not relevant to the scheduler (telemetry updates it
		// itself published, for instance) are simply ignored.
	}
}

func (s *Scheduler) queueCounters() telemetry.Messages {
	c := s.queue.Snapshot()
	return telemetry.Messages{Queued: c.Queued, Sent: c.Sent}
}

// runTest drives the transmitter with a fixed-length preamble-only
// generator, bypassing the queue entirely.
func (s *Scheduler) runTest() {
	s.telemetry.SetOnAir(true)
	if err := s.transmitter.Send(&preambleSource{remaining: testPreambleLength}); err != nil {
		s.logger.Error("test transmission failed", "err", err)
	}
	s.telemetry.SetOnAir(false)
}

// preambleSource is a transmitter.CodewordSource emitting a fixed number of
// POCSAG preamble words and nothing else.
type preambleSource struct {
	remaining int
}

func (p *preambleSource) Next() (uint32, bool) {
	if p.remaining <= 0 {
		return 0, false
	}
	p.remaining--
	return 0xAAAAAAAA, true
}

// Package queue implements the priority-ordered holding queue a scheduler
// dequeues messages from before handing them to the codeword generator.
package queue

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dl1pag/pocsag-transmitter/internal/pocsag"
)

// Counters tracks cumulative per-priority activity for telemetry reporting.
type Counters struct {
	Queued  []int
	Sent    []int
	Dropped []int
}

// Queue is a set of P FIFOs, one per priority level. The highest-numbered
// priority with a non-empty FIFO is served first; ties within one priority
// are served FIFO. Not safe for concurrent use - callers serialize access
// (the scheduler owns the only reference).
type Queue struct {
	lanes   [][]pocsag.Message
	sent    []int
	dropped []int
	logger  *log.Logger
}

// New builds a Queue with numPriorities FIFOs (priority values 0..numPriorities-1).
func New(numPriorities int, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.Default()
	}
	return &Queue{
		lanes:   make([][]pocsag.Message, numPriorities),
		sent:    make([]int, numPriorities),
		dropped: make([]int, numPriorities),
		logger:  logger,
	}
}

// Enqueue appends msg to its priority's FIFO. A message whose priority is
// out of range is logged and dropped rather than rejected with an error -
// the queue is the last line of defense against malformed upstream input.
func (q *Queue) Enqueue(msg pocsag.Message) {
	if msg.Priority < 0 || msg.Priority >= len(q.lanes) {
		q.logger.Error("dropping message with out-of-range priority", "id", msg.ID, "priority", msg.Priority)
		return
	}
	q.lanes[msg.Priority] = append(q.lanes[msg.Priority], msg)
}

// Dequeue pops the front message of the highest non-empty priority lane,
// silently discarding any expired messages it encounters along the way.
// It returns false once every lane is empty.
func (q *Queue) Dequeue(now time.Time) (pocsag.Message, bool) {
	for p := len(q.lanes) - 1; p >= 0; p-- {
		for len(q.lanes[p]) > 0 {
			msg := q.lanes[p][0]
			q.lanes[p] = q.lanes[p][1:]
			if msg.Expired(now) {
				q.dropped[p]++
				q.logger.Debug("dropping expired message", "id", msg.ID, "priority", p)
				continue
			}
			q.sent[p]++
			return msg, true
		}
	}
	return pocsag.Message{}, false
}

// IsEmpty reports whether every priority lane is empty.
func (q *Queue) IsEmpty() bool {
	for _, lane := range q.lanes {
		if len(lane) > 0 {
			return false
		}
	}
	return true
}

// Len returns the total number of messages queued across all priorities.
func (q *Queue) Len() int {
	n := 0
	for _, lane := range q.lanes {
		n += len(lane)
	}
	return n
}

// Snapshot fills out a Counters with the current queued depth and the
// cumulative sent/dropped counts per priority, for telemetry reporting.
func (q *Queue) Snapshot() Counters {
	c := Counters{
		Queued:  make([]int, len(q.lanes)),
		Sent:    make([]int, len(q.lanes)),
		Dropped: make([]int, len(q.lanes)),
	}
	for p, lane := range q.lanes {
		c.Queued[p] = len(lane)
		c.Sent[p] = q.sent[p]
		c.Dropped[p] = q.dropped[p]
	}
	return c
}

func (q *Queue) String() string {
	return fmt.Sprintf("Queue{lanes=%d, depth=%d}", len(q.lanes), q.Len())
}

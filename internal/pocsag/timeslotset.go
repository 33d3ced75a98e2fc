package pocsag

import (
	"strconv"
	"strings"
	"time"
)

// TailGuardCodewords is subtracted from every slot budget calculation, and
// added back on the provider side when deciding whether to chain one more
// message, as a safety margin against clock skew and link startup latency.
const TailGuardCodewords = 8

// TimeSlotSet is a bitmap over the 16 cyclic time slots, marking which ones
// this transmitter is permitted to key up in. Overwritten wholesale on
// every dispatcher push; there is no incremental update.
type TimeSlotSet uint16

// AllTimeSlots permits transmission in every slot.
const AllTimeSlots TimeSlotSet = 0xFFFF

// IsAllowed reports whether slot s is set in the bitmap.
func (ts TimeSlotSet) IsAllowed(s TimeSlot) bool {
	return ts&(1<<uint(s&0xF)) != 0
}

// NextAllowed returns the next allowed slot at or after the one active at
// now, searching cyclically. ok is false if the set is empty.
func (ts TimeSlotSet) NextAllowed(now time.Time) (slot TimeSlot, wait time.Duration, ok bool) {
	if ts == 0 {
		return 0, 0, false
	}
	cur := CurrentTimeSlot(now)
	for i := 0; i < 16; i++ {
		s := TimeSlot((int(cur) + i) % 16)
		if ts.IsAllowed(s) {
			return s, s.DurationUntil(now), true
		}
	}
	return 0, 0, false
}

// CalculateBudget returns how many codewords may still be transmitted
// before the slot active at now ends, minus the tail guard - or 0 if the
// current slot isn't in the set at all.
func (ts TimeSlotSet) CalculateBudget(now time.Time, baud int) int {
	cur := CurrentTimeSlot(now)
	if !ts.IsAllowed(cur) {
		return 0
	}
	n := nowDecis(now)
	slotStart := n &^ (slotLengthDecis - 1)
	remainingDecis := slotLengthDecis - (n - slotStart)
	budget := int(remainingDecis)*baud/320 - TailGuardCodewords
	if budget < 0 {
		budget = 0
	}
	return budget
}

// FromHexChars builds a TimeSlotSet by treating every hex digit found in s
// as a slot number to mark allowed; any other character is ignored.
func FromHexChars(s string) TimeSlotSet {
	var ts TimeSlotSet
	for _, c := range s {
		n, err := strconv.ParseUint(string(c), 16, 8)
		if err != nil {
			continue
		}
		ts |= 1 << uint(n)
	}
	return ts
}

// ToHexChars renders the set's allowed slots as their hex digits in
// ascending order, e.g. a set allowing slots 3, 9, 10 and 12 becomes "39ac".
func (ts TimeSlotSet) ToHexChars() string {
	var b strings.Builder
	for i := 0; i < 16; i++ {
		if ts.IsAllowed(TimeSlot(i)) {
			b.WriteString(strconv.FormatUint(uint64(i), 16))
		}
	}
	return b.String()
}

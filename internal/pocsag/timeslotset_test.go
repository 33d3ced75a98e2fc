package pocsag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFromHexCharsSetsNamedSlots(t *testing.T) {
	ts := FromHexChars("AC39")
	for _, s := range []TimeSlot{0xA, 0xC, 0x3, 0x9} {
		assert.True(t, ts.IsAllowed(s), "slot %X should be allowed", s)
	}
	for _, s := range []TimeSlot{0x0, 0x1, 0x5, 0xF} {
		assert.False(t, ts.IsAllowed(s), "slot %X should not be allowed", s)
	}
}

func TestFromHexCharsIgnoresJunk(t *testing.T) {
	ts := FromHexChars("a, z! 7")
	assert.True(t, ts.IsAllowed(0xA))
	assert.True(t, ts.IsAllowed(0x7))
}

func TestToHexCharsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.Uint16Range(0, 0xFFFF).Draw(t, "bits")
		ts := TimeSlotSet(bits)
		reparsed := FromHexChars(ts.ToHexChars())
		assert.Equal(t, ts, reparsed)
	})
}

func TestNextAllowedEmptySet(t *testing.T) {
	_, _, ok := TimeSlotSet(0).NextAllowed(time.Unix(1_700_000_000, 0))
	assert.False(t, ok)
}

func TestNextAllowedReturnsCurrentWhenAllowed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	cur := CurrentTimeSlot(now)
	ts := TimeSlotSet(1 << uint(cur))
	slot, wait, ok := ts.NextAllowed(now)
	assert.True(t, ok)
	assert.Equal(t, cur, slot)
	assert.Zero(t, wait)
}

func TestNextAllowedWrapsAround(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	cur := CurrentTimeSlot(now)
	only := TimeSlot((int(cur) + 1) % 16)
	ts := TimeSlotSet(1 << uint(only))
	slot, wait, ok := ts.NextAllowed(now)
	assert.True(t, ok)
	assert.Equal(t, only, slot)
	assert.Greater(t, wait, time.Duration(0))
}

func TestCalculateBudgetZeroWhenSlotNotAllowed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	cur := CurrentTimeSlot(now)
	ts := AllTimeSlots &^ (1 << uint(cur))
	assert.Zero(t, ts.CalculateBudget(now, 1200))
}

func TestCalculateBudgetNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secs := rapid.Int64Range(0, 1<<34).Draw(t, "secs")
		baud := rapid.SampledFrom([]int{512, 1200, 2400}).Draw(t, "baud")
		now := time.Unix(secs, 0).UTC()
		budget := AllTimeSlots.CalculateBudget(now, baud)
		assert.GreaterOrEqual(t, budget, 0)
	})
}

func TestCalculateBudgetDecreasesThroughSlot(t *testing.T) {
	// Pin to the very start of a slot boundary and check the budget falls
	// monotonically as we advance through it.
	now := time.Unix(1_700_000_000, 0).UTC()
	n := nowDecis(now)
	slotStart := n &^ (slotLengthDecis - 1)
	start := now.Add(-time.Duration(n-slotStart) * 100 * time.Millisecond)

	first := AllTimeSlots.CalculateBudget(start, 1200)
	later := AllTimeSlots.CalculateBudget(start.Add(3*time.Second), 1200)
	assert.Greater(t, first, later)
}

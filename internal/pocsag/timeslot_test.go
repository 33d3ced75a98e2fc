package pocsag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCurrentTimeSlotRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secs := rapid.Int64Range(0, 1<<34).Draw(t, "secs")
		now := time.Unix(secs, 0).UTC()
		s := CurrentTimeSlot(now)
		assert.GreaterOrEqual(t, int(s), 0)
		assert.LessOrEqual(t, int(s), 15)
	})
}

func TestTimeSlotActiveMatchesCurrent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	cur := CurrentTimeSlot(now)
	assert.True(t, cur.Active(now))
	other := TimeSlot((int(cur) + 1) % 16)
	assert.False(t, other.Active(now))
}

func TestDurationUntilCurrentSlotIsZero(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	cur := CurrentTimeSlot(now)
	assert.Zero(t, cur.DurationUntil(now))
}

func TestDurationUntilNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secs := rapid.Int64Range(0, 1<<34).Draw(t, "secs")
		slot := rapid.IntRange(0, 15).Draw(t, "slot")
		now := time.Unix(secs, 0).UTC()
		d := TimeSlot(slot).DurationUntil(now)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 1024*100*time.Millisecond)
	})
}

func TestDurationUntilCurrentSlotIsZeroMidSlot(t *testing.T) {
	// Pick a moment partway through the slot, not just on its boundary, to
	// pin down that "current" means "active right now", not "at the exact
	// instant the slot started".
	now := time.Unix(1_700_000_000, 0).UTC()
	mid := now.Add(3 * time.Second)
	cur := CurrentTimeSlot(mid)
	assert.Zero(t, cur.DurationUntil(mid))
}

func TestTimeUntilSlotEndNeverExceedsSlotLength(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secs := rapid.Int64Range(0, 1<<34).Draw(t, "secs")
		now := time.Unix(secs, 0).UTC()
		d := TimeUntilSlotEnd(now)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, slotLengthDecis*100*time.Millisecond)
	})
}

func TestDurationUntilLandsOnTargetSlot(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secs := rapid.Int64Range(0, 1<<34).Draw(t, "secs")
		slot := rapid.IntRange(0, 15).Draw(t, "slot")
		now := time.Unix(secs, 0).UTC()
		d := TimeSlot(slot).DurationUntil(now)
		landed := CurrentTimeSlot(now.Add(d))
		assert.Equal(t, TimeSlot(slot), landed)
	})
}

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl1pag/pocsag-transmitter/internal/event"
	"github.com/dl1pag/pocsag-transmitter/internal/pocsag"
)

func TestSetOnAirPublishesOnlyOnChange(t *testing.T) {
	bus := event.New(nil)
	sub := bus.Register(event.RoleMain)
	store := New(bus, 4, Software{Name: "test", Version: "0"})

	store.SetOnAir(true)
	select {
	case e := <-sub.Recv():
		assert.Equal(t, "TelemetryPartialUpdate", event.Name(e))
	case <-time.After(time.Second):
		t.Fatal("expected a partial update")
	}

	store.SetOnAir(true) // no change, should not publish again

	select {
	case e := <-sub.Recv():
		t.Fatalf("unexpected second event: %v", e)
	case <-time.After(100 * time.Millisecond):
	}

	assert.True(t, store.Get().OnAir)
}

func TestSetSlotsUpdatesSnapshot(t *testing.T) {
	store := New(nil, 2, Software{})
	store.SetSlots(pocsag.AllTimeSlots)
	assert.Equal(t, pocsag.AllTimeSlots, store.Get().Slots)
}

func TestRunPeriodicUpdatesPublishesFullSnapshot(t *testing.T) {
	bus := event.New(nil)
	sub := bus.Register(event.RoleMain)
	store := New(bus, 2, Software{Name: "test"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.RunPeriodicUpdates(ctx, 10*time.Millisecond)

	select {
	case e := <-sub.Recv():
		require.Equal(t, "TelemetryUpdate", event.Name(e))
		upd, ok := e.(event.TelemetryUpdate)
		require.True(t, ok)
		snap, ok := upd.Snapshot.(Snapshot)
		require.True(t, ok)
		assert.Equal(t, "test", snap.Software.Name)
	case <-time.After(time.Second):
		t.Fatal("expected a periodic full update")
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	store := New(nil, 2, Software{})
	store.SetMessageCounters(Messages{Queued: []int{1, 2}, Sent: []int{0, 0}})

	snap := store.Get()
	snap.Messages.Queued[0] = 99

	assert.Equal(t, 1, store.Get().Messages.Queued[0], "mutating a returned snapshot must not affect the store")
}

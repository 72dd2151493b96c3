package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatdeck/chatdeck/internal/shared/types"
)

func event(account, old, new string) types.StatusEvent {
	return types.StatusEvent{
		AccountID: account,
		Field:     types.FieldConnection,
		Old:       old,
		New:       new,
		At:        time.Now(),
	}
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch1, cancel1 := bus.Subscribe()
	ch2, cancel2 := bus.Subscribe()
	defer cancel1()
	defer cancel2()

	bus.Publish(event("acct-1", "online", "offline"))

	for _, ch := range []<-chan types.StatusEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "acct-1", ev.AccountID)
			assert.Equal(t, "offline", ev.New)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBusCancelStopsDelivery(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open, "channel should be closed after cancel")
	assert.Equal(t, 0, bus.SubscriberCount())

	// Publishing after cancel must not panic.
	bus.Publish(event("acct-1", "online", "offline"))
}

func TestBusSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			bus.Publish(event("acct-1", "a", "b"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	// The subscriber sees at most its buffer worth of events.
	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			assert.LessOrEqual(t, count, subscriberBuffer)
			return
		}
	}
}

func TestBusCloseClosesSubscribers(t *testing.T) {
	bus := NewBus()
	ch, _ := bus.Subscribe()

	bus.Close()
	bus.Close() // safe twice

	_, open := <-ch
	require.False(t, open)

	ch2, cancel2 := bus.Subscribe()
	defer cancel2()
	_, open = <-ch2
	assert.False(t, open, "subscribing after close yields a closed channel")
}

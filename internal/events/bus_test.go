package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishFiltersByAccount(t *testing.T) {
	bus := NewBus()
	mine := bus.Subscribe("0xABC")
	other := bus.Subscribe("0xdef")
	all := bus.Subscribe("")
	defer bus.Unsubscribe(mine)
	defer bus.Unsubscribe(other)
	defer bus.Unsubscribe(all)

	bus.Publish(Event{Type: TypeSubmissionState, Account: "0xabc", Data: "validating"})

	require.Equal(t, "validating", (<-mine).Data)
	require.Equal(t, "validating", (<-all).Data)
	require.Empty(t, other)
}

func TestPublishDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("")
	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(Event{Type: TypeSubmissionState, Data: i})
	}
	require.Len(t, ch, subscriberBuffer)
	require.Equal(t, 0, (<-ch).Data)
}

func TestUnsubscribeClosesOnce(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("")
	require.Equal(t, 1, bus.Subscribers())
	bus.Unsubscribe(ch)
	bus.Unsubscribe(ch)
	_, open := <-ch
	require.False(t, open)
	require.Zero(t, bus.Subscribers())
}

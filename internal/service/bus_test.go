package service

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusKeepsNewestWhenFull(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	n := subscriberBuffer + 5
	for i := range n {
		bus.Publish(Event{Resource: ResourceLayers, Action: "updated", ID: strconv.Itoa(i)})
	}
	require.Len(t, ch, subscriberBuffer)

	var last Event
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, strconv.Itoa(n-1), last.ID)
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)
	bus.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)
	bus.Publish(Event{Resource: ResourceState})
}

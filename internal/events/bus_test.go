package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversByType(t *testing.T) {
	bus := NewBus()
	timeSub := bus.Subscribe(EventTimeChanged)
	allSub := bus.Subscribe()

	bus.Publish(EventTimeChanged, TimeChanged{Time: "t1", Index: 1, Count: 3})
	bus.Publish(EventNoLayersActive, NoLayersActive{})

	require.Len(t, timeSub, 1)
	ev := <-timeSub
	assert.Equal(t, EventTimeChanged, ev.Type)
	assert.Equal(t, TimeChanged{Time: "t1", Index: 1, Count: 3}, ev.Payload)

	require.Len(t, allSub, 2)
	assert.Equal(t, EventTimeChanged, (<-allSub).Type)
	assert.Equal(t, EventNoLayersActive, (<-allSub).Type)
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventTimeChanged)
	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(EventTimeChanged, TimeChanged{Index: i})
	}
	assert.Len(t, sub, subscriberBuffer)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventTimeChanged, EventLayerChanged)
	bus.Unsubscribe(sub)

	_, ok := <-sub
	assert.False(t, ok)

	// publishing after unsubscribe must not panic on the closed channel
	bus.Publish(EventTimeChanged, TimeChanged{})
	bus.Publish(EventLayerChanged, LayerChanged{})
}

func TestFanoutPreservesOrder(t *testing.T) {
	var got []string
	first := EmitterFunc(func(ev Event) { got = append(got, "first:"+string(ev.Type)) })
	second := EmitterFunc(func(ev Event) { got = append(got, "second:"+string(ev.Type)) })

	Fanout(first, second).Emit(Event{Type: EventNoLayersActive})

	assert.Equal(t, []string{"first:layers.none", "second:layers.none"}, got)
}

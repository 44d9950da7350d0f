package status

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndPublish(t *testing.T) {
	h := NewHub()

	var wg sync.WaitGroup
	var subs []<-chan Event
	for i := 0; i < 100; i++ {
		subs = append(subs, h.Subscribe(1))
	}

	for _, s := range subs {
		wg.Add(1)
		go func(s <-chan Event) {
			defer wg.Done()
			e, ok := <-s
			assert.True(t, ok)
			assert.Equal(t, "Stream started", e.Text)
		}(s)
	}

	h.Publish(Event{Kind: Notification, Text: "Stream started"})
	wg.Wait()
}

func TestPublishDropsOldest(t *testing.T) {
	h := NewHub()
	s := h.Subscribe(2)

	for v := uint64(1); v <= 4; v++ {
		h.Publish(Event{Kind: Throughput, Value: v})
	}

	assert.EqualValues(t, 3, (<-s).Value)
	assert.EqualValues(t, 4, (<-s).Value)
}

func TestPublishSetsTime(t *testing.T) {
	h := NewHub()
	s := h.Subscribe(2)

	at := time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)
	h.Publish(Event{Kind: Throughput, Time: at})
	h.Publish(Event{Kind: Throughput})

	assert.Equal(t, at, (<-s).Time)
	assert.False(t, (<-s).Time.IsZero())
}

func TestLatestPerKind(t *testing.T) {
	h := NewHub()
	h.Publish(Event{Kind: Notification, Text: "Stream connection started"})
	h.Publish(Event{Kind: Throughput, Value: 10})
	h.Publish(Event{Kind: Notification, Text: "Stream started"})

	latest := h.Latest()
	require.Len(t, latest, 2)
	assert.Equal(t, "Stream started", latest[Notification].Text)
	assert.EqualValues(t, 10, latest[Throughput].Value)
}

func TestUnsubscribe(t *testing.T) {
	h := NewHub()
	s := h.Subscribe(10)
	require.Equal(t, 1, h.Subscribers())

	require.NoError(t, h.Unsubscribe(s))
	_, ok := <-s
	assert.False(t, ok)
	assert.Zero(t, h.Subscribers())

	assert.Equal(t, errNotFound, h.Unsubscribe(s))
}

func TestClose(t *testing.T) {
	h := NewHub()
	s := h.Subscribe(4)
	h.Publish(Event{Kind: Throughput, Value: 1})
	require.NoError(t, h.Close())

	e, ok := <-s
	assert.True(t, ok)
	assert.EqualValues(t, 1, e.Value)
	_, ok = <-s
	assert.False(t, ok)

	h.Publish(Event{Kind: Throughput, Value: 2})
	_, ok = <-h.Subscribe(1)
	assert.False(t, ok)
	assert.NoError(t, h.Close())
}

func TestSubscribeCapacity(t *testing.T) {
	assert.Panics(t, func() { NewHub().Subscribe(0) })
}

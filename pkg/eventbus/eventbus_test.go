package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testEvent struct {
	Message string
}

func TestBus_Publish(t *testing.T) {
	bus := New[testEvent]()

	var wg sync.WaitGroup
	wg.Add(1)
	var received testEvent
	bus.Subscribe(func(e testEvent) {
		received = e
		wg.Done()
	})

	bus.Publish(testEvent{Message: "hello"})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		assert.Equal(t, "hello", received.Message)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_PublishSyncKeepsOrder(t *testing.T) {
	bus := New[int]()

	var got []string
	bus.Subscribe(func(v int) { got = append(got, "a") })
	bus.Subscribe(func(v int) { got = append(got, "b") })

	bus.PublishSync(1)
	bus.PublishSync(2)

	assert.Equal(t, []string{"a", "b", "a", "b"}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New[int]()

	calls := 0
	unsubscribe := bus.Subscribe(func(int) { calls++ })
	assert.Equal(t, 1, bus.SubscriberCount())

	bus.PublishSync(1)
	unsubscribe()
	unsubscribe()
	bus.PublishSync(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.SubscriberCount())
}

package identity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_SubscribePublishUnsubscribe(t *testing.T) {
	bus := NewBus()

	var a, b []EventKind
	unsubA := bus.Subscribe(func(e Event) { a = append(a, e.Kind) })
	unsubB := bus.Subscribe(func(e Event) { b = append(b, e.Kind) })
	assert.Equal(t, 2, bus.Len())

	bus.Publish(Event{Kind: SignedIn, UserID: "u1"})
	unsubA()
	unsubA() // idempotent
	bus.Publish(Event{Kind: SignedOut, UserID: "u1"})
	unsubB()

	assert.Equal(t, []EventKind{SignedIn}, a)
	assert.Equal(t, []EventKind{SignedIn, SignedOut}, b)
	assert.Zero(t, bus.Len())
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var (
		mu    sync.Mutex
		count int
	)
	defer bus.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(Event{Kind: SignedIn})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, count)
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "signed_up", SignedUp.String())
	assert.Equal(t, "deleted", Deleted.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}

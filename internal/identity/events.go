package identity

import (
	"sync"

	"github.com/sakif/dreamways/internal/model"
)

// EventKind says what happened to an account.
type EventKind int

const (
	SignedUp EventKind = iota + 1
	SignedIn
	SignedOut
	Deleted
)

func (k EventKind) String() string {
	switch k {
	case SignedUp:
		return "signed_up"
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

// Event is a change in account state. User is set for SignedUp and SignedIn.
type Event struct {
	Kind   EventKind
	UserID string
	User   *model.User
}

// Bus fans identity events out to subscribers.
//
// Publish calls every subscriber synchronously before returning, so once an
// identity operation returns, every subscriber has already seen its event.
// Subscribers must not call Subscribe or the returned unsubscribe func from
// inside their callback.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a func that removes it. The returned
// func is idempotent.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every current subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(e)
	}
}

// Len reports the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

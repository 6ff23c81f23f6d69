package gateway

import (
	"context"
	"sync"

	"github.com/scythe504/hangparty-backend/internal"
)

// Broker is the in-process change feed. Subscribers get a buffered channel;
// a subscriber that stops draining misses events rather than blocking the
// publisher, which matches the reconnect contract: clients re-fetch full
// state instead of relying on buffered events.
type Broker struct {
	mu     sync.RWMutex
	nextId int
	subs   map[int]*subscription
}

type subscription struct {
	roomId string // "" means all rooms
	events chan internal.ChangeEvent
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[int]*subscription),
	}
}

func (b *Broker) Publish(_ context.Context, event internal.ChangeEvent) {
	roomId := EventRoomId(event)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.roomId != "" && sub.roomId != roomId {
			continue
		}
		select {
		case sub.events <- event:
		default:
			// Slow subscriber, drop. It resyncs on reconnect.
		}
	}
}

func (b *Broker) Subscribe(_ context.Context, roomId string) (<-chan internal.ChangeEvent, func()) {
	sub := &subscription{
		roomId: roomId,
		events: make(chan internal.ChangeEvent, 64),
	}

	b.mu.Lock()
	id := b.nextId
	b.nextId++
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub.events)
		}
		b.mu.Unlock()
	}

	return sub.events, cancel
}

package ws

import (
	"encoding/json"
	"sync"
)

// Bus fans inbound presence messages out to in-process subscribers.
// Slow subscribers lose messages rather than blocking the read loop.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan json.RawMessage
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan json.RawMessage)}
}

// Subscribe returns a channel of raw presence messages and a cancel
// function that closes it.
func (b *Bus) Subscribe() (<-chan json.RawMessage, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan json.RawMessage, 16)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *Bus) Publish(msg json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

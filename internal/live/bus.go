package live

import "sync"

// Handler receives events of the kind it subscribed to.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// bus fans events out to subscribers in subscription order.
type bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[EventKind][]subscription
}

func newBus() *bus {
	return &bus{subs: make(map[EventKind][]subscription)}
}

// subscribe registers h for kind and returns an idempotent disposer.
func (b *bus) subscribe(kind EventKind, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(kind, id) })
	}
}

func (b *bus) unsubscribe(kind EventKind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[kind]
	for i, s := range subs {
		if s.id == id {
			// copy so publishers holding the old slice are unaffected
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			b.subs[kind] = next
			break
		}
	}
	if len(b.subs[kind]) == 0 {
		delete(b.subs, kind)
	}
}

// publish calls every handler for ev.Kind() on the calling goroutine.
func (b *bus) publish(ev Event) {
	b.mu.RLock()
	subs := b.subs[ev.Kind()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(ev)
	}
}

func (b *bus) count(kind EventKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

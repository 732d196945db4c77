package adminkit

import "sync"

// CarouselBroadcast fans published carousel snapshots out to subscribers.
// Delivery is non-blocking: a subscriber that has fallen behind loses older
// snapshots, which is fine since only the latest one matters.
type CarouselBroadcast struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan []CarouselItem
	closed bool
}

func NewCarouselBroadcast() *CarouselBroadcast {
	return &CarouselBroadcast{
		subs: make(map[int]chan []CarouselItem),
	}
}

// Subscribe returns a channel receiving publish snapshots and a cancel
// function. Cancel is idempotent and closes the channel.
func (b *CarouselBroadcast) Subscribe() (<-chan []CarouselItem, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan []CarouselItem, 1)

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// Publish delivers a snapshot to every subscriber, replacing any undelivered
// older snapshot.
func (b *CarouselBroadcast) Publish(items []CarouselItem) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		// Drop the stale pending snapshot so the buffer always holds the
		// newest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- items:
		default:
		}
	}
}

// Close terminates all subscriptions. Further Publish calls are no-ops.
func (b *CarouselBroadcast) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

package eventbus

import "sync"

// Handler receives a published event.
type Handler[T any] func(event T)

// Bus provides in-process pub/sub for a single event type.
type Bus[T any] struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler[T]
	order    []int
}

// New creates an empty Bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{handlers: make(map[int]Handler[T])}
}

// Subscribe registers h and returns a func that removes it again.
func (b *Bus[T]) Subscribe(h Handler[T]) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers event to every subscriber asynchronously.
func (b *Bus[T]) Publish(event T) {
	for _, h := range b.snapshot() {
		go h(event)
	}
}

// PublishSync delivers event to every subscriber in subscription order on the caller's goroutine.
// Handlers must not subscribe or unsubscribe from inside the callback.
func (b *Bus[T]) PublishSync(event T) {
	for _, h := range b.snapshot() {
		h(event)
	}
}

// SubscriberCount returns the number of registered handlers.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *Bus[T]) snapshot() []Handler[T] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler[T], 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.handlers[id])
	}
	return out
}

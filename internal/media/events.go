package media

import "sync"

// emitter is a minimal multi-subscriber event hub. Handlers run on the
// goroutine that emits, outside of the emitter lock.
type emitter[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func (e *emitter[T]) subscribe(fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subs == nil {
		e.subs = make(map[int]func(T))
	}
	id := e.next
	e.next++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

func (e *emitter[T]) emit(v T) {
	e.mu.Lock()
	handlers := make([]func(T), 0, len(e.subs))
	for i := 0; i < e.next; i++ {
		if fn, ok := e.subs[i]; ok {
			handlers = append(handlers, fn)
		}
	}
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(v)
	}
}

func (e *emitter[T]) size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

package surface

import (
	"sync"

	"github.com/google/uuid"
)

// listenerSet fans one underlying event out to removable subscribers.
type listenerSet[T any] struct {
	mu       sync.RWMutex
	handlers map[string]func(T)
}

func newListenerSet[T any]() *listenerSet[T] {
	return &listenerSet[T]{handlers: make(map[string]func(T))}
}

func (s *listenerSet[T]) add(fn func(T)) func() {
	id := uuid.New().String()

	s.mu.Lock()
	s.handlers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

func (s *listenerSet[T]) emit(v T) {
	s.mu.RLock()
	handlers := make([]func(T), 0, len(s.handlers))
	for _, fn := range s.handlers {
		handlers = append(handlers, fn)
	}
	s.mu.RUnlock()

	for _, fn := range handlers {
		fn(v)
	}
}

func (s *listenerSet[T]) clear() {
	s.mu.Lock()
	s.handlers = make(map[string]func(T))
	s.mu.Unlock()
}

func (s *listenerSet[T]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

package engine

// Store is an unbounded FIFO mailbox. Put never blocks; Get suspends the
// caller until an item is available. Deliveries happen in their own event at
// the current time, so a getter never runs inline with the putter.
type Store[T any] struct {
	env     *Environment
	items   []T
	getters []func(T) error
}

// NewStore creates an empty mailbox bound to env.
func NewStore[T any](env *Environment) *Store[T] {
	return &Store[T]{env: env}
}

// Put appends item, handing it to the oldest waiting getter if there is one.
func (s *Store[T]) Put(item T) {
	if len(s.getters) > 0 {
		getter := s.getters[0]
		s.getters[0] = nil
		s.getters = s.getters[1:]
		s.env.Process(func() error { return getter(item) })
		return
	}
	s.items = append(s.items, item)
}

// Get delivers the oldest item to fn, waiting for a Put if the store is empty.
func (s *Store[T]) Get(fn func(T) error) {
	if len(s.items) > 0 {
		item := s.items[0]
		var zero T
		s.items[0] = zero
		s.items = s.items[1:]
		s.env.Process(func() error { return fn(item) })
		return
	}
	s.getters = append(s.getters, fn)
}

// Len returns the number of queued items.
func (s *Store[T]) Len() int {
	return len(s.items)
}

// Waiting returns the number of suspended getters.
func (s *Store[T]) Waiting() int {
	return len(s.getters)
}

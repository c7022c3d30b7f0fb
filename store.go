package gateway

import (
	"sync"
)

// Middleware observes and augments dispatches. It must call next
// exactly once to let the action reach the reducer, or swallow it by
// not calling next at all.
type Middleware func(s *Store, next func(Action), a Action)

// Store is the single serialized mutation path for the whole host
// state. Dispatches are processed one at a time, in order; actions
// dispatched re-entrantly (from middleware or subscribers) are queued
// and processed after the current action completes, which mirrors the
// cooperative event-loop ordering the protocol assumes.
type Store struct {
	mu          sync.Mutex
	state       State
	queue       []Action
	dispatching bool

	reducer     *reducer
	middleware  []Middleware
	subscribers map[int]func(State)
	nextSubID   int

	logger Logger
}

// StoreOption customizes store construction.
type StoreOption func(*Store)

// WithStoreLogger overrides the logger used by the store and reducer.
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMiddleware appends middleware, run in registration order.
func WithMiddleware(mw ...Middleware) StoreOption {
	return func(s *Store) {
		for _, m := range mw {
			if m != nil {
				s.middleware = append(s.middleware, m)
			}
		}
	}
}

// NewStore returns a store holding the initial (site loading) state.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		state:       InitialState(),
		logger:      defLogger{},
		subscribers: map[int]func(State){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.reducer = &reducer{logger: s.logger}
	return s
}

// State returns a snapshot of the current state. Slices are shared;
// the reducer copies on write so snapshots stay stable.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a listener invoked with a snapshot after every
// applied action. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Dispatch queues the action and, unless a dispatch is already in
// flight on this or another goroutine, drains the queue. Exactly one
// goroutine drains at a time; a given action is fully processed before
// the next one starts.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	s.queue = append(s.queue, a)
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.process(next)

		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
}

func (s *Store) process(a Action) {
	chain := func(final Action) {
		s.apply(final)
	}

	// Build the chain back to front so middleware run in
	// registration order.
	for i := len(s.middleware) - 1; i >= 0; i-- {
		mw := s.middleware[i]
		inner := chain
		chain = func(act Action) {
			mw(s, inner, act)
		}
	}

	chain(a)
}

func (s *Store) apply(a Action) {
	s.mu.Lock()
	before := s.state
	after := s.reducer.Apply(before, a)
	s.state = after

	listeners := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(after)
	}
}

package studio

import "sync"

// Store is the single writer of a State. Every change goes through Dispatch.
type Store struct {
	mu     sync.Mutex
	state  State
	commit func(prev, next State)

	// notifyMu orders subscriber callbacks the same as dispatches.
	notifyMu sync.Mutex
	subs     map[int]func(State)
	nextSub  int
}

// NewStore creates a store holding initial. commit, when non-nil, runs under
// the store lock after every successful reduction.
func NewStore(initial State, commit func(prev, next State)) *Store {
	return &Store{
		state:  initial,
		commit: commit,
		subs:   make(map[int]func(State)),
	}
}

// Dispatch reduces a into the current state. On success subscribers receive
// the new state, in dispatch order. Subscribers must not call Dispatch.
func (s *Store) Dispatch(a Action) (State, error) {
	s.mu.Lock()
	next, err := Reduce(s.state, a)
	if err != nil {
		current := s.state.clone()
		s.mu.Unlock()
		return current, err
	}
	prev := s.state
	s.state = next
	if s.commit != nil {
		s.commit(prev, next)
	}
	snapshot := next.clone()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.notifyMu.Lock()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	s.notifyMu.Unlock()
	return snapshot, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every committed state. The returned function
// removes it.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

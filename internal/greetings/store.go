package greetings

import "sync/atomic"

// Store publishes the latest collection to the scene loop.
type Store struct {
	cur     atomic.Pointer[Collection]
	updates atomic.Uint64
}

func NewStore() *Store {
	s := &Store{}
	s.cur.Store(NewCollection(nil, 0))
	return s
}

// Current never returns nil.
func (s *Store) Current() *Collection { return s.cur.Load() }

func (s *Store) Set(c *Collection) {
	if c == nil {
		c = NewCollection(nil, 0)
	}
	s.cur.Store(c)
	s.updates.Add(1)
}

// Updates counts Set calls.
func (s *Store) Updates() uint64 { return s.updates.Load() }

package session

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Store keeps live sessions with a sliding TTL. Sessions that expire or are
// deleted have their planner closed.
type Store struct {
	items *cache.Cache
	deps  Deps
}

func NewStore(ttl time.Duration, deps Deps) *Store {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	st := &Store{items: cache.New(ttl, cleanup), deps: deps}
	st.items.OnEvicted(func(id string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Close()
		}
		log.Printf("session %s closed", id)
		st.reportActive()
	})
	return st
}

func (st *Store) Create() *Session {
	s := New(uuid.NewString(), st.deps)
	st.items.SetDefault(s.ID, s)
	if st.deps.Metrics != nil {
		st.deps.Metrics.SessionOpenedInc()
	}
	st.reportActive()
	return s
}

// Get returns a live session and extends its lifetime.
func (st *Store) Get(id string) (*Session, bool) {
	v, ok := st.items.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	st.items.SetDefault(id, s)
	return s, true
}

func (st *Store) Delete(id string) bool {
	if _, ok := st.items.Get(id); !ok {
		return false
	}
	st.items.Delete(id)
	return true
}

func (st *Store) Len() int { return st.items.ItemCount() }

// Close closes every session.
func (st *Store) Close() {
	for id := range st.items.Items() {
		st.items.Delete(id)
	}
}

func (st *Store) reportActive() {
	if st.deps.Metrics != nil {
		st.deps.Metrics.ActiveSessionsSet(st.items.ItemCount())
	}
}

package session

import (
	"sync"
	"time"

	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/google/uuid"
)

// Store keeps live sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
}

func NewStore(opts Options) *Store {
	return &Store{sessions: make(map[string]*Session), opts: opts}
}

func (st *Store) Create() (*Session, error) {
	s, err := New(uuid.New().String(), st.opts)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s, nil
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	s.Touch()
	return s, nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return entity.ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// RemoveIdle deletes sessions unused since before cutoff and returns their ids.
func (st *Store) RemoveIdle(cutoff time.Time) []string {
	st.mu.RLock()
	var idle []string
	for id, s := range st.sessions {
		if s.LastUsed().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	st.mu.RUnlock()

	if len(idle) == 0 {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	var removed []string
	for _, id := range idle {
		// a request may have touched it since the scan
		if s, ok := st.sessions[id]; ok && s.LastUsed().Before(cutoff) {
			delete(st.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed
}

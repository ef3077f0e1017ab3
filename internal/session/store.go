package session

import (
	"sync"
	"time"
)

// RetentionPeriod is how long a session remains queryable after it
// reaches a terminal status, per spec.md §3 ("sessions are purged 5
// minutes after reaching a terminal status"). The purge itself runs
// exactly once per session.
const RetentionPeriod = 5 * time.Minute

// Store is the process-global, in-memory session registry. Unlike the
// teacher's SQLiteStore, nothing here survives a restart — spec.md §1
// lists cross-restart persistence as an explicit non-goal, so the
// CRUD shape is kept but the backing store is a guarded map instead of a
// database.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	timers   map[string]*time.Timer

	// now is overridable in tests.
	now func() time.Time
}

// NewStore creates an empty session registry.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		timers:   make(map[string]*time.Timer),
		now:      time.Now,
	}
}

// Create registers a new session. It fails if id is already in use.
func (s *Store) Create(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return ErrAlreadyExists
	}
	s.sessions[sess.ID] = sess
	return nil
}

// Get returns the session for id, or ErrNotFound.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// List returns a snapshot slice of all currently registered sessions.
func (s *Store) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Len reports the number of sessions currently registered (including
// ones pending purge).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Delete removes a session immediately, canceling any pending purge
// timer.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(id)
}

func (s *Store) deleteLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	delete(s.sessions, id)
}

// SchedulePurge arms a one-shot timer that removes id from the store
// after RetentionPeriod. Calling it twice for the same id replaces the
// pending timer rather than scheduling a second purge, keeping the
// "exactly once" invariant from spec.md §3.
func (s *Store) SchedulePurge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}

	s.timers[id] = time.AfterFunc(RetentionPeriod, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.timers, id)
		delete(s.sessions, id)
	})
}

// CancelPurge stops a pending purge timer for id, if any, without
// deleting the session.
func (s *Store) CancelPurge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

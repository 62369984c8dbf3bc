package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/scrapeform/builder"
)

// Session is one browser's builder state. The state is only ever replaced
// under the session lock, by pure builder transitions; side effects run
// outside the lock.
type Session struct {
	ID string

	mu       sync.Mutex
	state    builder.State
	lastSeen time.Time
}

// State returns a copy of the current state.
func (s *Session) State() builder.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update replaces the state with fn(state) and returns the new state.
func (s *Session) Update(fn func(builder.State) builder.State) builder.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	s.lastSeen = time.Now()
	return s.state
}

// Apply is Update for transitions that also request effects.
func (s *Session) Apply(fn func(builder.State) (builder.State, []builder.Effect)) (builder.State, []builder.Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var effects []builder.Effect
	s.state, effects = fn(s.state)
	s.lastSeen = time.Now()
	return s.state, effects
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Store is an in-memory session store with idle expiry.
// It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	maxEntries int
	idleTTL    time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a Store holding at most maxEntries sessions. A background
// goroutine evicts sessions idle for longer than idleTTL.
func New(maxEntries int, idleTTL time.Duration) *Store {
	st := &Store{
		sessions:   make(map[string]*Session),
		maxEntries: maxEntries,
		idleTTL:    idleTTL,
		done:       make(chan struct{}),
	}

	go st.cleanupLoop()
	return st
}

// Get returns the live session with the given id.
func (st *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if st.idleTTL > 0 && time.Since(s.seen()) > st.idleTTL {
		return nil, false
	}
	s.touch(time.Now())
	return s, true
}

// Create starts a fresh session with an empty builder state. If the store
// is at capacity, the least recently seen session is evicted to make room.
func (st *Store) Create() *Session {
	s := &Session{
		ID:       uuid.NewString(),
		state:    builder.New(),
		lastSeen: time.Now(),
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.maxEntries > 0 && len(st.sessions) >= st.maxEntries {
		var oldestID string
		var oldest time.Time
		for id, cand := range st.sessions {
			if seen := cand.seen(); oldestID == "" || seen.Before(oldest) {
				oldestID, oldest = id, seen
			}
		}
		delete(st.sessions, oldestID)
	}

	st.sessions[s.ID] = s
	return s
}

// GetOrCreate returns the session for id, creating one when id is unknown
// or expired. created reports whether a new session was made.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := st.Get(id); ok {
		return s, false
	}
	return st.Create(), true
}

// Len returns the number of stored sessions, expired ones included until
// the next sweep.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Close stops the background sweeper.
func (st *Store) Close() {
	st.closeOnce.Do(func() { close(st.done) })
}

// evictIdle removes sessions not seen since before now-idleTTL.
func (st *Store) evictIdle(now time.Time) int {
	if st.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-st.idleTTL)
	st.mu.Lock()
	defer st.mu.Unlock()
	evicted := 0
	for id, s := range st.sessions {
		if s.seen().Before(cutoff) {
			delete(st.sessions, id)
			evicted++
		}
	}
	return evicted
}

// cleanupLoop sweeps idle sessions every 5 minutes.
func (st *Store) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-st.done:
			return
		case now := <-ticker.C:
			st.evictIdle(now)
		}
	}
}

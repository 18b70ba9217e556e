package workflow

import (
	"sync"
	"time"

	"github.com/fonpesca/alertbot/internal/domain"
)

// Session is the mutable state of one conversation. It is only touched from
// that conversation's turn.
type Session struct {
	ID    string
	State State
	Draft domain.ReportDraft
	// History holds the question states visited in forward order, used by
	// step back to find the real predecessor on the branch taken.
	History []State
	// EditTarget is set while a field is re-asked from the modification menu.
	EditTarget Field
	// stagedMedia collects uploads while multimedia is being edited. They
	// replace the draft's attachments only when the step is continued.
	stagedMedia *domain.ReportDraft
	UpdatedAt    time.Time
}

func (s *Session) editing() bool {
	return s.EditTarget != ""
}

func (s *Session) push(st State) {
	s.History = append(s.History, st)
}

func (s *Session) pop() (State, bool) {
	if len(s.History) == 0 {
		return StateIdle, false
	}
	last := s.History[len(s.History)-1]
	s.History = s.History[:len(s.History)-1]
	return last, true
}

func (s *Session) clearEdit() {
	s.EditTarget = ""
	s.stagedMedia = nil
}

// restart clears the draft but keeps the verified identity.
func (s *Session) restart() {
	s.Draft.ResetKeepingIdentity()
	s.History = nil
	s.clearEdit()
}

// SessionStore holds the live sessions keyed by conversation id.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore(now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{sessions: make(map[string]*Session), now: now}
}

// Get returns the session for id, creating an idle one if none exists.
func (st *SessionStore) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		s = &Session{ID: id, State: StateIdle, UpdatedAt: st.now()}
		st.sessions[id] = s
	}
	return s
}

// Peek returns the session for id without creating it.
func (st *SessionStore) Peek(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete drops the session for id.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

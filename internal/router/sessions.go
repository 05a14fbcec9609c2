// Package router implements the multi-turn clarification dialogue in front
// of the search engine. A vague first question triggers a short round of
// follow-up questions; the answers are folded back into the query before it
// is classified and routed.
package router

import (
	"strings"
	"sync"
)

// DefaultSessionID is used when the caller supplies no session key.
const DefaultSessionID = "default"

// qa is one answered clarification question. Order of answering matters
// when the resolved query is assembled, so these live in a slice.
type qa struct {
	Question string
	Answer   string
}

// Session holds the clarification state for one conversation.
type Session struct {
	pendingQuestions []string
	answered         []qa
	anchorQuery      string
}

// Empty reports whether the session carries no dialogue state.
func (s *Session) Empty() bool {
	return len(s.pendingQuestions) == 0 && len(s.answered) == 0 && s.anchorQuery == ""
}

func (s *Session) reset() {
	s.pendingQuestions = nil
	s.answered = nil
	s.anchorQuery = ""
}

// SessionStore owns all sessions, keyed by an opaque identifier. Sessions
// are created lazily on first reference. Calls for the same session must
// be serialized by the caller; the store only guards its own map.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Get returns the session for the identifier, creating it if needed.
// A blank identifier maps to DefaultSessionID.
func (st *SessionStore) Get(sessionID string) *Session {
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		sid = DefaultSessionID
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sid]
	if !ok {
		s = &Session{}
		st.sessions[sid] = s
	}
	return s
}

// Reset clears the dialogue state of one session.
func (st *SessionStore) Reset(sessionID string) {
	st.Get(sessionID).reset()
}

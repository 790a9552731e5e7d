package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type exchange struct {
	question string
	answer   string
}

type session struct {
	createdAt time.Time
	exchanges []exchange
}

// Store holds per-session conversation history in process memory. Sessions
// expire TTL after creation and are removed by Sweep; a restart loses
// everything, which is the intended lifecycle.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	maxPairs int
	now      func() time.Time
}

// NewStore creates a session store
func NewStore(ttl time.Duration, maxPairs int) *Store {
	if maxPairs <= 0 {
		maxPairs = 10
	}
	return &Store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		maxPairs: maxPairs,
		now:      time.Now,
	}
}

// GetOrCreate returns the id of an existing session, or creates one under
// the supplied id (or a generated id when none is supplied).
func (s *Store) GetOrCreate(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID != "" {
		if _, ok := s.sessions[sessionID]; ok {
			return sessionID
		}
	}

	id := sessionID
	if id == "" {
		id = uuid.New().String()
	}
	s.sessions[id] = &session{createdAt: s.now()}
	return id
}

// AddExchange appends a question/answer pair to the session history. Unknown
// session ids are ignored.
func (s *Store) AddExchange(sessionID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	sess.exchanges = append(sess.exchanges, exchange{question: question, answer: answer})
}

// FormatForPrompt renders the most recent exchanges as a labeled transcript
// for injection into downstream prompts, with follow-up disambiguation rules.
// Returns an empty string when the session has no history.
func (s *Store) FormatForPrompt(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || len(sess.exchanges) == 0 {
		return ""
	}

	recent := sess.exchanges
	if len(recent) > s.maxPairs {
		recent = recent[len(recent)-s.maxPairs:]
	}

	var b strings.Builder
	b.WriteString("=== PREVIOUS CONVERSATION CONTEXT ===")
	for i, ex := range recent {
		fmt.Fprintf(&b, "\n\n[Exchange %d]\nUser: %s\nAssistant: %s", i+1, ex.question, firstSentence(ex.answer))
	}
	b.WriteString("\n\n=== CONTEXT RULES ===\n")
	b.WriteString("When the user asks follow-up questions:\n")
	b.WriteString("- If they change ONE aspect (e.g. 'what about 2023'), KEEP all other filters from previous questions\n")
	b.WriteString("- If they add a filter (e.g. 'but only Toyota'), COMBINE it with filters from previous questions\n")
	b.WriteString("- Example: Previous='Toyota sales in 2022', Current='what about 2023' -> Use: brand='Toyota' AND year=2023\n")
	b.WriteString("=== END CONTEXT ===\n")
	return b.String()
}

// Sweep removes every session older than the TTL and returns the count. It
// is cheap enough to run on each inbound request.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.createdAt) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// firstSentence keeps the prompt transcript compact; the leading sentence
// carries the figures that matter for follow-ups.
func firstSentence(answer string) string {
	if idx := strings.Index(answer, "."); idx != -1 {
		return answer[:idx]
	}
	return answer
}

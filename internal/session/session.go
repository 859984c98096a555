// Package session keeps per-user conversation state in process memory.
// Nothing here survives a restart.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/b-max/backend/internal/profile"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is one user's ongoing conversation. The instruction message is a
// dedicated field rather than history[0], so "the first message is always
// the system instruction" holds by construction; it is overwritten, never
// appended, when fresh database context is needed.
//
// The embedded mutex serializes whole chat turns for one user id; the store
// hands out the same *Session for concurrent requests.
type Session struct {
	sync.Mutex

	UserID  string
	Profile profile.Profile

	instruction Message
	history     []Message
	totalTurns  int
	window      int

	createdAt time.Time

	// lastActive is read by the store's eviction sweep without taking the
	// turn mutex, so a turn blocked on the completion API never stalls
	// store-wide operations.
	lastActive atomic.Int64 // unix nanos
}

func newSession(userID string, p profile.Profile, window int, now time.Time) *Session {
	s := &Session{
		UserID:    userID,
		Profile:   p,
		window:    window,
		createdAt: now,
	}
	s.lastActive.Store(now.UnixNano())
	return s
}

// SetInstruction replaces the pinned system message.
func (s *Session) SetInstruction(content string) {
	s.instruction = Message{Role: RoleSystem, Content: content}
}

// Append records one turn message and enforces the window: when the full
// list (instruction included) would exceed the bound, the oldest
// non-instruction messages are dropped. A FIFO window, not a summarizer.
func (s *Session) Append(role, content string, now time.Time) {
	s.history = append(s.history, Message{Role: role, Content: content})
	s.totalTurns++
	s.lastActive.Store(now.UnixNano())

	if keep := s.window - 1; keep > 0 && len(s.history) > keep {
		s.history = append(s.history[:0:0], s.history[len(s.history)-keep:]...)
	}
}

// Messages returns the ordered list handed to the completion API:
// instruction first, then the windowed history.
func (s *Session) Messages() []Message {
	out := make([]Message, 0, len(s.history)+1)
	out = append(out, s.instruction)
	out = append(out, s.history...)
	return out
}

func (s *Session) MessageCount() int {
	return len(s.history) + 1
}

func (s *Session) TotalTurns() int {
	return s.totalTurns
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) idleSince(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActive()) > timeout
}

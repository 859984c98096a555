package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/b-max/backend/internal/metrics"
	"github.com/b-max/backend/internal/profile"
	"github.com/b-max/backend/pkg/logger"
)

type ProfileResolver interface {
	Resolve(ctx context.Context, userID string) profile.Profile
}

// Store maps user identifiers to sessions. Eviction is lazy: expired
// sessions leave only when EvictExpired runs as a side effect of another
// request, there is no background sweep.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	resolver    ProfileResolver
	window      int
	idleTimeout time.Duration
	now         func() time.Time
}

func NewStore(resolver ProfileResolver, window int, idleTimeout time.Duration) *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		resolver:    resolver,
		window:      window,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// GetOrCreate returns the live session for the user, creating it (and
// resolving the profile, synchronously) on first contact. When two requests
// race on first contact, one insertion wins and the loser's resolved
// profile is discarded.
func (s *Store) GetOrCreate(ctx context.Context, userID string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return sess, false
	}

	var p profile.Profile
	if s.resolver != nil {
		p = s.resolver.Resolve(ctx, userID)
	} else {
		p = profile.Default()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		return sess, false
	}

	sess = newSession(userID, p, s.window, s.now())
	s.sessions[userID] = sess

	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	logger.Info("Session created",
		zap.String("user_id", userID),
		zap.String("username", p.FirstName),
	)
	return sess, true
}

func (s *Store) Get(userID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Evict removes a session immediately.
func (s *Store) Evict(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; !ok {
		return false
	}
	delete(s.sessions, userID)

	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	metrics.SessionsEvicted.WithLabelValues("manual").Inc()
	return true
}

// EvictExpired drops sessions idle past the timeout and returns how many
// went. The sweep reads each session's atomic last-active stamp and never
// takes a turn mutex, so a turn blocked mid-completion cannot stall it.
func (s *Store) EvictExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for userID, sess := range s.sessions {
		if sess.idleSince(now, s.idleTimeout) {
			delete(s.sessions, userID)
			evicted++
			logger.Debug("Session evicted after inactivity", zap.String("user_id", userID))
		}
	}

	if evicted > 0 {
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
		metrics.SessionsEvicted.WithLabelValues("idle").Add(float64(evicted))
	}
	return evicted
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

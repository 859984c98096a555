// Package chat runs the request pipeline: profile-backed session, snapshot
// ranking, prompt assembly, completion call, history bookkeeping.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/b-max/backend/internal/metrics"
	"github.com/b-max/backend/internal/prompt"
	"github.com/b-max/backend/internal/rank"
	"github.com/b-max/backend/internal/session"
	"github.com/b-max/backend/internal/tender"
	"github.com/b-max/backend/pkg/logger"
)

// ErrCompletionUnavailable is returned before any session work when the
// completion API is not configured; the HTTP layer maps it to 503.
var ErrCompletionUnavailable = errors.New("completion API unavailable")

type Completer interface {
	Available() bool
	Complete(ctx context.Context, messages []session.Message) (string, error)
	Stream(ctx context.Context, messages []session.Message, onDelta func(string)) (string, error)
}

type Service struct {
	sessions  *session.Store
	cache     *tender.Cache
	engine    *rank.Engine
	completer Completer
	now       func() time.Time
}

type Result struct {
	Response      string
	UserID        string
	Username      string
	Timestamp     time.Time
	SessionActive bool
	TotalMessages int
}

func NewService(sessions *session.Store, cache *tender.Cache, engine *rank.Engine, completer Completer) *Service {
	return &Service{
		sessions:  sessions,
		cache:     cache,
		engine:    engine,
		completer: completer,
		now:       time.Now,
	}
}

func (s *Service) Sessions() *session.Store {
	return s.sessions
}

// Chat runs one single-shot turn.
func (s *Service) Chat(ctx context.Context, userID, text string) (*Result, error) {
	return s.run(ctx, userID, text, func(ctx context.Context, messages []session.Message) (string, error) {
		return s.completer.Complete(ctx, messages)
	})
}

// ChatStream runs one turn in streaming mode. History handling is identical
// to Chat: only the assembled final text is appended.
func (s *Service) ChatStream(ctx context.Context, userID, text string, onDelta func(string)) (*Result, error) {
	return s.run(ctx, userID, text, func(ctx context.Context, messages []session.Message) (string, error) {
		return s.completer.Stream(ctx, messages, onDelta)
	})
}

func (s *Service) run(ctx context.Context, userID, text string, complete func(context.Context, []session.Message) (string, error)) (*Result, error) {
	start := s.now()

	if !s.completer.Available() {
		metrics.ChatRequests.WithLabelValues("unavailable").Inc()
		return nil, ErrCompletionUnavailable
	}

	// Lazy maintenance: expired sessions go whenever a chat touches the map.
	s.sessions.EvictExpired(start)

	requestID := uuid.New().String()
	sess, created := s.sessions.GetOrCreate(ctx, userID)

	// Serializes concurrent turns for this user id.
	sess.Lock()
	defer sess.Unlock()

	logger.Info("Chat turn started",
		zap.String("request_id", requestID),
		zap.String("user_id", userID),
		zap.Bool("new_session", created),
	)

	records := s.cache.Snapshot(ctx)
	firstName := sess.Profile.FirstName

	if len(records) == 0 {
		// Degraded but valid: answer without the model rather than error.
		reply := fmt.Sprintf(
			"Sorry %s, there are no tenders in the database right now. Please try again later.",
			firstName,
		)
		sess.SetInstruction(prompt.Instruction(firstName, prompt.Summarize(nil, nil), prompt.Render(nil)))
		sess.Append(session.RoleUser, text, s.now())
		sess.Append(session.RoleAssistant, reply, s.now())

		metrics.ChatRequests.WithLabelValues("no_data").Inc()
		metrics.ChatDuration.Observe(s.now().Sub(start).Seconds())
		return s.result(sess, reply), nil
	}

	prefs := rank.Preferences{
		Categories: sess.Profile.PreferredCategories,
		Sites:      sess.Profile.PreferredSites,
	}

	rankStart := s.now()
	matches := s.engine.Select(text, records, prefs)
	metrics.RankingDuration.Observe(s.now().Sub(rankStart).Seconds())
	metrics.RankedResults.Observe(float64(len(matches)))

	summary := prompt.Summarize(records, sess.Profile.PreferredCategories)
	sess.SetInstruction(prompt.Instruction(firstName, summary, prompt.Render(matches)))
	sess.Append(session.RoleUser, text, s.now())

	reply, err := complete(ctx, sess.Messages())
	status := "ok"
	if err != nil {
		// The turn is still recorded so the conversation keeps its shape.
		logger.Error("Completion call failed",
			zap.String("request_id", requestID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		reply = fmt.Sprintf(
			"Sorry %s, I couldn't process that right now. Please try again in a moment.",
			firstName,
		)
		status = "degraded"
	}
	sess.Append(session.RoleAssistant, reply, s.now())

	metrics.ChatRequests.WithLabelValues(status).Inc()
	metrics.ChatDuration.Observe(s.now().Sub(start).Seconds())

	logger.Info("Chat turn finished",
		zap.String("request_id", requestID),
		zap.String("status", status),
		zap.Int("ranked", len(matches)),
		zap.Int("messages", sess.MessageCount()),
	)

	return s.result(sess, reply), nil
}

func (s *Service) result(sess *session.Session, reply string) *Result {
	return &Result{
		Response:      reply,
		UserID:        sess.UserID,
		Username:      sess.Profile.FirstName,
		Timestamp:     s.now(),
		SessionActive: true,
		TotalMessages: sess.MessageCount(),
	}
}

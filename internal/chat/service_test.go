package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/b-max/backend/internal/rank"
	"github.com/b-max/backend/internal/session"
	"github.com/b-max/backend/internal/tender"
)

type fakeScanner struct {
	items []map[string]any
}

func (f *fakeScanner) ScanTenders(ctx context.Context) ([]map[string]any, error) {
	return f.items, nil
}

type fakeCompleter struct {
	available bool
	reply     string
	err       error
	calls     int
}

func (f *fakeCompleter) Available() bool { return f.available }

func (f *fakeCompleter) Complete(ctx context.Context, messages []session.Message) (string, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeCompleter) Stream(ctx context.Context, messages []session.Message, onDelta func(string)) (string, error) {
	f.calls++
	if f.err == nil && onDelta != nil {
		onDelta(f.reply)
	}
	return f.reply, f.err
}

func newTestService(items []map[string]any, completer Completer) *Service {
	sessions := session.NewStore(nil, 21, 2*time.Hour)
	cache := tender.NewCache(&fakeScanner{items: items}, 30*time.Minute)
	return NewService(sessions, cache, rank.NewEngine(5), completer)
}

func tenderItems() []map[string]any {
	return []map[string]any{
		{
			"title":           "Community Hall Renovation",
			"referenceNumber": "ABC-123-2024",
			"Category":        "Construction",
			"sourceAgency":    "City of Ekurhuleni",
			"status":          "open",
			"link":            "https://docs.example.com/abc-123.pdf",
		},
	}
}

func TestChatUnavailableBeforeSessionWork(t *testing.T) {
	completer := &fakeCompleter{available: false}
	service := newTestService(tenderItems(), completer)

	_, err := service.Chat(context.Background(), "guest", "hello")
	if !errors.Is(err, ErrCompletionUnavailable) {
		t.Fatalf("err = %v, want ErrCompletionUnavailable", err)
	}
	if service.Sessions().Count() != 0 {
		t.Error("no session should exist after an unavailable short-circuit")
	}
}

func TestChatEmptyDatabaseDegradesWithoutModelCall(t *testing.T) {
	completer := &fakeCompleter{available: true, reply: "should not be used"}
	service := newTestService(nil, completer)

	result, err := service.Chat(context.Background(), "guest", "any tenders?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completer.calls != 0 {
		t.Errorf("completion called %d times on empty data, want 0", completer.calls)
	}
	if !strings.Contains(result.Response, "no tenders") {
		t.Errorf("response should explain the empty database: %q", result.Response)
	}
	if !result.SessionActive {
		t.Error("session should be active after a degraded turn")
	}
	// Instruction + user + assistant.
	if result.TotalMessages != 3 {
		t.Errorf("total messages = %d, want 3", result.TotalMessages)
	}
}

func TestChatSuccess(t *testing.T) {
	completer := &fakeCompleter{available: true, reply: "Here is the ABC-123-2024 tender."}
	service := newTestService(tenderItems(), completer)

	result, err := service.Chat(context.Background(), "guest", "tell me about ABC-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Response != completer.reply {
		t.Errorf("response = %q", result.Response)
	}
	if completer.calls != 1 {
		t.Errorf("completion calls = %d, want 1", completer.calls)
	}
	if result.Username != "User" {
		t.Errorf("username = %q, want placeholder", result.Username)
	}

	sess, ok := service.Sessions().Get("guest")
	if !ok {
		t.Fatal("session missing after chat")
	}
	sess.Lock()
	defer sess.Unlock()

	messages := sess.Messages()
	if messages[0].Role != session.RoleSystem {
		t.Errorf("first message role = %q, want system", messages[0].Role)
	}
	if !strings.Contains(messages[0].Content, "ABC-123-2024") {
		t.Error("instruction should carry the ranked tender context")
	}
	if messages[len(messages)-1].Role != session.RoleAssistant {
		t.Errorf("last message role = %q, want assistant", messages[len(messages)-1].Role)
	}
}

func TestChatCompletionFailureRecordsApologyTurn(t *testing.T) {
	completer := &fakeCompleter{available: true, err: errors.New("upstream 500")}
	service := newTestService(tenderItems(), completer)

	result, err := service.Chat(context.Background(), "guest", "anything open?")
	if err != nil {
		t.Fatalf("completion failure should not surface as an error, got %v", err)
	}
	if !strings.Contains(result.Response, "Sorry User") {
		t.Errorf("apology should address the user by name: %q", result.Response)
	}

	sess, _ := service.Sessions().Get("guest")
	sess.Lock()
	defer sess.Unlock()
	if sess.TotalTurns() != 2 {
		t.Errorf("failed turn not recorded: total turns = %d, want 2", sess.TotalTurns())
	}
}

func TestChatStreamForwardsDeltasAndRecordsHistory(t *testing.T) {
	completer := &fakeCompleter{available: true, reply: "streamed answer"}
	service := newTestService(tenderItems(), completer)

	var deltas []string
	result, err := service.ChatStream(context.Background(), "guest", "open tenders", func(delta string) {
		deltas = append(deltas, delta)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deltas) != 1 || deltas[0] != "streamed answer" {
		t.Errorf("deltas = %v", deltas)
	}
	if result.Response != "streamed answer" {
		t.Errorf("response = %q", result.Response)
	}

	sess, _ := service.Sessions().Get("guest")
	sess.Lock()
	defer sess.Unlock()
	messages := sess.Messages()
	if messages[len(messages)-1].Content != "streamed answer" {
		t.Error("streamed reply should land in history")
	}
}

type blockingCompleter struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingCompleter) Available() bool { return true }

func (b *blockingCompleter) Complete(ctx context.Context, messages []session.Message) (string, error) {
	close(b.entered)
	<-b.release
	return "finally", nil
}

func (b *blockingCompleter) Stream(ctx context.Context, messages []session.Message, onDelta func(string)) (string, error) {
	return b.Complete(ctx, messages)
}

func TestStoreOperationsProceedDuringInFlightCompletion(t *testing.T) {
	completer := &blockingCompleter{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	service := newTestService(tenderItems(), completer)

	turnDone := make(chan struct{})
	go func() {
		defer close(turnDone)
		if _, err := service.Chat(context.Background(), "alice", "open tenders"); err != nil {
			t.Errorf("chat turn failed: %v", err)
		}
	}()

	select {
	case <-completer.entered:
	case <-time.After(time.Second):
		t.Fatal("completion call never started")
	}

	// Alice's turn is parked inside the completion call with her session
	// mutex held. Eviction and counting must not wait for it.
	done := make(chan struct{})
	go func() {
		defer close(done)
		service.Sessions().EvictExpired(time.Now())
		service.Sessions().Count()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("store operations stalled behind an in-flight completion")
	}

	if service.Sessions().Count() != 1 {
		t.Errorf("session count = %d, want 1 (alice is active, not idle)", service.Sessions().Count())
	}

	close(completer.release)
	<-turnDone
}

func TestChatTurnsAccumulatePerUser(t *testing.T) {
	completer := &fakeCompleter{available: true, reply: "ok"}
	service := newTestService(tenderItems(), completer)

	for i := 0; i < 3; i++ {
		if _, err := service.Chat(context.Background(), "guest", "hello again"); err != nil {
			t.Fatalf("turn %d failed: %v", i, err)
		}
	}
	if _, err := service.Chat(context.Background(), "other", "hi"); err != nil {
		t.Fatalf("other user failed: %v", err)
	}

	if service.Sessions().Count() != 2 {
		t.Errorf("session count = %d, want 2", service.Sessions().Count())
	}

	sess, _ := service.Sessions().Get("guest")
	sess.Lock()
	defer sess.Unlock()
	if sess.TotalTurns() != 6 {
		t.Errorf("guest total turns = %d, want 6", sess.TotalTurns())
	}
}

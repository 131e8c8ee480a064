package services

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/docqa/docqa-backend/internal/data/repos/testutil"
	"github.com/docqa/docqa-backend/internal/domain"
	"github.com/docqa/docqa-backend/internal/pkg/errors"
	"github.com/docqa/docqa-backend/internal/realtime"
)

type chatFixture struct {
	docs     *fakeDocumentRepo
	sessions *fakeSessionRepo
	llm      *fakeLLM
	pub      *fakePublisher
	sink     *fakeSearchSink
	svc      ChatService
}

func newChatFixture(t *testing.T, cfg ChatConfig) *chatFixture {
	t.Helper()
	f := &chatFixture{
		docs:     newFakeDocumentRepo(),
		sessions: newFakeSessionRepo(),
		llm:      &fakeLLM{},
		pub:      &fakePublisher{},
		sink:     &fakeSearchSink{},
	}
	f.svc = NewChatService(testutil.Logger(t), f.docs, f.sessions, f.llm, f.pub, f.sink, cfg)
	return f
}

func (f *chatFixture) seedDocument(text string) domain.Document {
	now := time.Now().UTC()
	doc := domain.Document{
		ID:            uuid.New(),
		FileName:      "report.pdf",
		MimeType:      "application/pdf",
		FileSize:      int64(len(text)),
		ContentHash:   uuid.NewString(),
		ExtractedText: text,
		UploadedAt:    now,
		UpdatedAt:     now,
	}
	f.docs.put(doc)
	return doc
}

func mustStartSession(t *testing.T, f *chatFixture, docID uuid.UUID) *domain.ChatSession {
	t.Helper()
	session, err := f.svc.StartSession(context.Background(), docID)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return session
}

func TestStartSession_SnapshotsDocument(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	doc := f.seedDocument("quarterly revenue grew 12%")

	session := mustStartSession(t, f, doc.ID)

	if session.DocumentID != doc.ID {
		t.Fatalf("session bound to %s, want %s", session.DocumentID, doc.ID)
	}
	if session.DocumentName != doc.FileName {
		t.Fatalf("document name = %q, want %q", session.DocumentName, doc.FileName)
	}
	if session.ExtractedText != doc.ExtractedText {
		t.Fatalf("extracted text not snapshotted")
	}
	msgs, err := session.MessageList()
	if err != nil {
		t.Fatalf("MessageList: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("new session has %d messages, want 0", len(msgs))
	}
	if f.sink.syncCount() != 1 {
		t.Fatalf("search sink synced %d times, want 1", f.sink.syncCount())
	}
}

func TestStartSession_MissingDocument(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	_, err := f.svc.StartSession(context.Background(), uuid.New())
	if !stderrors.Is(err, errors.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
	_, err = f.svc.StartSession(context.Background(), uuid.Nil)
	if !stderrors.Is(err, errors.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestChat_HappyPath(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	f.llm.reply = func(string) (string, error) { return "revenue grew 12%", nil }
	doc := f.seedDocument("quarterly revenue grew 12%")
	session := mustStartSession(t, f, doc.ID)

	answer, err := f.svc.Chat(context.Background(), session.ID, "how did revenue do?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "revenue grew 12%" {
		t.Fatalf("answer = %q", answer)
	}

	stored, err := f.svc.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	msgs, err := stored.MessageList()
	if err != nil {
		t.Fatalf("MessageList: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[0].Content != "how did revenue do?" {
		t.Fatalf("first message = %+v", msgs[0])
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].Content != answer {
		t.Fatalf("second message = %+v", msgs[1])
	}

	frames := f.pub.published()
	if len(frames) != 2 {
		t.Fatalf("published %d frames, want 2", len(frames))
	}
	wantTopic := realtime.SessionTopic(session.ID)
	if frames[0].Topic != wantTopic || frames[0].Role != domain.RoleUser {
		t.Fatalf("first frame = %+v", frames[0])
	}
	if frames[1].Topic != wantTopic || frames[1].Role != domain.RoleAssistant || frames[1].Content != answer {
		t.Fatalf("second frame = %+v", frames[1])
	}

	// First turn: no prior history, question only in its own section.
	p := f.llm.lastPrompt()
	if strings.Contains(p, "Previous conversation:") {
		t.Fatalf("first-turn prompt carries a conversation section:\n%s", p)
	}
	if !strings.Contains(p, doc.ExtractedText) {
		t.Fatalf("prompt missing document text:\n%s", p)
	}
}

func TestChat_PromptExcludesCurrentQuestionFromHistory(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	f.llm.reply = func(string) (string, error) { return "a", nil }
	doc := f.seedDocument("doc")
	session := mustStartSession(t, f, doc.ID)

	if _, err := f.svc.Chat(context.Background(), session.ID, "first question"); err != nil {
		t.Fatalf("Chat 1: %v", err)
	}
	if _, err := f.svc.Chat(context.Background(), session.ID, "second question"); err != nil {
		t.Fatalf("Chat 2: %v", err)
	}

	p := f.llm.lastPrompt()
	if !strings.Contains(p, "User: first question") {
		t.Fatalf("prior turn missing from history:\n%s", p)
	}
	if strings.Contains(p, "User: second question") {
		t.Fatalf("current question leaked into the history section:\n%s", p)
	}
	if !strings.Contains(p, "Current question:\nsecond question") {
		t.Fatalf("current question section missing:\n%s", p)
	}
}

func TestChat_LLMFailurePersistsUserTurnOnly(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	f.llm.reply = func(string) (string, error) { return "", errors.ErrLLMUnavailable }
	doc := f.seedDocument("doc")
	session := mustStartSession(t, f, doc.ID)

	_, err := f.svc.Chat(context.Background(), session.ID, "q1")
	if !stderrors.Is(err, errors.ErrLLMUnavailable) {
		t.Fatalf("err = %v, want ErrLLMUnavailable", err)
	}

	stored, err := f.svc.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	msgs, err := stored.MessageList()
	if err != nil {
		t.Fatalf("MessageList: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != domain.RoleUser {
		t.Fatalf("failed turn persisted %+v, want single user message", msgs)
	}

	frames := f.pub.published()
	if len(frames) != 1 || frames[0].Role != domain.RoleUser {
		t.Fatalf("failed turn published %+v, want single user frame", frames)
	}

	// A retry picks up the failed question as history and completes.
	f.llm.reply = func(string) (string, error) { return "answer", nil }
	if _, err := f.svc.Chat(context.Background(), session.ID, "q2"); err != nil {
		t.Fatalf("retry Chat: %v", err)
	}
	p := f.llm.lastPrompt()
	if !strings.Contains(p, "User: q1") {
		t.Fatalf("retry prompt missing failed turn:\n%s", p)
	}
	stored, _ = f.svc.GetSession(context.Background(), session.ID)
	msgs, _ = stored.MessageList()
	if len(msgs) != 3 {
		t.Fatalf("after retry persisted %d messages, want 3", len(msgs))
	}
}

func TestChat_RetrySameQuestionKeepsOneCopy(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	f.llm.reply = func(string) (string, error) { return "", errors.ErrLLMTimeout }
	doc := f.seedDocument("doc")
	session := mustStartSession(t, f, doc.ID)

	if _, err := f.svc.Chat(context.Background(), session.ID, "Q"); !stderrors.Is(err, errors.ErrLLMTimeout) {
		t.Fatalf("err = %v, want ErrLLMTimeout", err)
	}

	f.llm.reply = func(string) (string, error) { return "A", nil }
	answer, err := f.svc.Chat(context.Background(), session.ID, "Q")
	if err != nil {
		t.Fatalf("retry Chat: %v", err)
	}
	if answer != "A" {
		t.Fatalf("answer = %q", answer)
	}

	stored, _ := f.svc.GetSession(context.Background(), session.ID)
	msgs, err := stored.MessageList()
	if err != nil {
		t.Fatalf("MessageList: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("retry persisted %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[0].Content != "Q" {
		t.Fatalf("first message = %+v", msgs[0])
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].Content != "A" {
		t.Fatalf("second message = %+v", msgs[1])
	}

	// The dangling question is not also fed back as history.
	p := f.llm.lastPrompt()
	if strings.Contains(p, "Previous conversation:") {
		t.Fatalf("retry prompt duplicated the question into history:\n%s", p)
	}
}

func TestChat_CanceledPersistsNothing(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	f.llm.reply = func(string) (string, error) { return "", context.Canceled }
	doc := f.seedDocument("doc")
	session := mustStartSession(t, f, doc.ID)

	_, err := f.svc.Chat(context.Background(), session.ID, "q")
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	stored, _ := f.svc.GetSession(context.Background(), session.ID)
	msgs, _ := stored.MessageList()
	if len(msgs) != 0 {
		t.Fatalf("canceled turn persisted %d messages, want 0", len(msgs))
	}
	if len(f.pub.published()) != 0 {
		t.Fatalf("canceled turn published frames: %+v", f.pub.published())
	}
}

func TestChat_SecondTurnBusyWhileFirstInFlight(t *testing.T) {
	f := newChatFixture(t, ChatConfig{LeaseTimeout: 50 * time.Millisecond})
	f.llm.block = make(chan struct{})
	doc := f.seedDocument("doc")
	session := mustStartSession(t, f, doc.ID)

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.svc.Chat(context.Background(), session.ID, "slow turn")
		firstDone <- err
	}()

	// Wait for the first turn to reach the LLM and hold the lease.
	deadline := time.After(2 * time.Second)
	for f.llm.calls() == 0 {
		select {
		case <-deadline:
			t.Fatal("first turn never reached the LLM")
		case <-time.After(time.Millisecond):
		}
	}

	_, err := f.svc.Chat(context.Background(), session.ID, "impatient turn")
	if !stderrors.Is(err, errors.ErrSessionBusy) {
		t.Fatalf("err = %v, want ErrSessionBusy", err)
	}

	close(f.llm.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
}

func TestChat_ConcurrentTurnsSerialize(t *testing.T) {
	f := newChatFixture(t, ChatConfig{LeaseTimeout: 5 * time.Second})
	f.llm.reply = func(string) (string, error) { return "ok", nil }
	doc := f.seedDocument("doc")
	session := mustStartSession(t, f, doc.ID)

	const turns = 8
	var wg sync.WaitGroup
	errs := make(chan error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Chat(context.Background(), session.ID, "question")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent chat: %v", err)
		}
	}

	stored, _ := f.svc.GetSession(context.Background(), session.ID)
	msgs, err := stored.MessageList()
	if err != nil {
		t.Fatalf("MessageList: %v", err)
	}
	if len(msgs) != 2*turns {
		t.Fatalf("persisted %d messages, want %d", len(msgs), 2*turns)
	}
	// Serialized turns strictly alternate user/assistant.
	for i, m := range msgs {
		want := domain.RoleUser
		if i%2 == 1 {
			want = domain.RoleAssistant
		}
		if m.Role != want {
			t.Fatalf("message %d role = %s, want %s", i, m.Role, want)
		}
	}
}

func TestChat_MissingSession(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	_, err := f.svc.Chat(context.Background(), uuid.New(), "q")
	if !stderrors.Is(err, errors.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestChat_InvalidArguments(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	if _, err := f.svc.Chat(context.Background(), uuid.Nil, "q"); !stderrors.Is(err, errors.ErrInvalidArgument) {
		t.Fatalf("nil session id: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := f.svc.Chat(context.Background(), uuid.New(), "   "); !stderrors.Is(err, errors.ErrInvalidArgument) {
		t.Fatalf("blank question: err = %v, want ErrInvalidArgument", err)
	}
}

func TestChat_SessionSnapshotUnaffectedByReupload(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	f.llm.reply = func(string) (string, error) { return "ok", nil }
	doc := f.seedDocument("original text")
	session := mustStartSession(t, f, doc.ID)

	// Same document id, new extracted text (e.g. extractor rerun).
	doc.ExtractedText = "replacement text"
	f.docs.put(doc)

	if _, err := f.svc.Chat(context.Background(), session.ID, "q"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	p := f.llm.lastPrompt()
	if !strings.Contains(p, "original text") {
		t.Fatalf("prompt lost the session snapshot:\n%s", p)
	}
	if strings.Contains(p, "replacement text") {
		t.Fatalf("prompt leaked post-session document state:\n%s", p)
	}
}

func TestChat_HistoryWindowApplied(t *testing.T) {
	f := newChatFixture(t, ChatConfig{HistoryWindow: 2})
	f.llm.reply = func(string) (string, error) { return "a", nil }
	doc := f.seedDocument("doc")
	session := mustStartSession(t, f, doc.ID)

	for _, q := range []string{"q1", "q2", "q3"} {
		if _, err := f.svc.Chat(context.Background(), session.ID, q); err != nil {
			t.Fatalf("Chat %s: %v", q, err)
		}
	}

	// Third turn sees only the last two history entries: q2's exchange.
	p := f.llm.lastPrompt()
	if strings.Contains(p, "User: q1") {
		t.Fatalf("window of 2 kept the oldest turn:\n%s", p)
	}
	if !strings.Contains(p, "User: q2") {
		t.Fatalf("window of 2 dropped the newest prior turn:\n%s", p)
	}
}

package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/docqa/docqa-backend/internal/clients/ollama"
	"github.com/docqa/docqa-backend/internal/data/repos"
	"github.com/docqa/docqa-backend/internal/domain"
	"github.com/docqa/docqa-backend/internal/pkg/errors"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
	"github.com/docqa/docqa-backend/internal/prompt"
	"github.com/docqa/docqa-backend/internal/realtime"
)

// FramePublisher delivers role-tagged frames to a session topic. Wired
// to the in-process hub, or to the redis bridge when one is configured.
type FramePublisher interface {
	Publish(ctx context.Context, frame realtime.Frame) error
}

type ChatService interface {
	StartSession(ctx context.Context, documentID uuid.UUID) (*domain.ChatSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.ChatSession, error)
	ListSessions(ctx context.Context) ([]*domain.ChatSession, error)
	// Chat runs one turn: append the user question, build the windowed
	// prompt, call the LLM, append the answer, persist, publish. On LLM
	// failure the session is persisted with only the user turn so a retry
	// continues coherently.
	Chat(ctx context.Context, sessionID uuid.UUID, question string) (string, error)
}

type ChatConfig struct {
	// HistoryWindow caps how many prior messages a prompt carries.
	HistoryWindow int
	// LeaseTimeout bounds how long a turn waits for the per-session
	// lease before failing with ErrSessionBusy.
	LeaseTimeout time.Duration
}

type chatService struct {
	log      *logger.Logger
	docs     repos.DocumentRepo
	sessions repos.SessionRepo
	llm      ollama.Client
	publish  FramePublisher
	sink     SearchSink
	cfg      ChatConfig
	locks    *sessionLocks
}

func NewChatService(
	log *logger.Logger,
	docs repos.DocumentRepo,
	sessions repos.SessionRepo,
	llm ollama.Client,
	publish FramePublisher,
	sink SearchSink,
	cfg ChatConfig,
) ChatService {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = prompt.DefaultHistoryWindow
	}
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = 2 * time.Minute
	}
	if sink == nil {
		sink = NullSearchSink{}
	}
	return &chatService{
		log:      log.With("service", "ChatService"),
		docs:     docs,
		sessions: sessions,
		llm:      llm,
		publish:  publish,
		sink:     sink,
		cfg:      cfg,
		locks:    newSessionLocks(),
	}
}

func (s *chatService) StartSession(ctx context.Context, documentID uuid.UUID) (*domain.ChatSession, error) {
	if documentID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing document id", errors.ErrInvalidArgument)
	}

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.ChatSession{
		ID:            uuid.New(),
		DocumentID:    doc.ID,
		DocumentName:  doc.FileName,
		ExtractedText: doc.ExtractedText,
		Messages:      datatypes.JSON("[]"),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info("chat session started", "session_id", session.ID, "document_id", doc.ID)

	s.syncToSearch(ctx, session)
	return session, nil
}

func (s *chatService) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.ChatSession, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing session id", errors.ErrInvalidArgument)
	}
	return s.sessions.GetByID(ctx, sessionID)
}

func (s *chatService) ListSessions(ctx context.Context) ([]*domain.ChatSession, error) {
	return s.sessions.List(ctx)
}

func (s *chatService) Chat(ctx context.Context, sessionID uuid.UUID, question string) (string, error) {
	if sessionID == uuid.Nil {
		return "", fmt.Errorf("%w: missing session id", errors.ErrInvalidArgument)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: missing question", errors.ErrInvalidArgument)
	}

	leaseCtx, cancelLease := context.WithTimeout(ctx, s.cfg.LeaseTimeout)
	err := s.locks.acquire(leaseCtx, sessionID)
	cancelLease()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: another turn is in progress", errors.ErrSessionBusy)
	}
	defer s.locks.release(sessionID)

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return "", err
	}

	history, err := session.MessageList()
	if err != nil {
		return "", fmt.Errorf("decode session history: %w", err)
	}

	// A dangling user turn with the same content is a retry after an LLM
	// failure: reuse it instead of appending a duplicate question.
	if n := len(history); n > 0 && history[n-1].Role == domain.RoleUser && history[n-1].Content == question {
		history = history[:n-1]
	} else {
		userMsg := domain.NewChatMessage(domain.RoleUser, question)
		if err := session.AddMessage(userMsg); err != nil {
			return "", fmt.Errorf("append user message: %w", err)
		}
	}

	// history still excludes the question just appended; it goes in the
	// dedicated section of the prompt instead.
	p := prompt.Contextual(session.ExtractedText, history, question, s.cfg.HistoryWindow)

	answer, llmErr := s.llm.Generate(ctx, p)
	if llmErr != nil && stderrors.Is(llmErr, context.Canceled) {
		// Caller went away before the turn finished; nothing was persisted.
		return "", llmErr
	}

	if llmErr == nil {
		assistantMsg := domain.NewChatMessage(domain.RoleAssistant, answer)
		if err := session.AddMessage(assistantMsg); err != nil {
			return "", fmt.Errorf("append assistant message: %w", err)
		}
	} else {
		s.log.Warn("llm call failed; persisting user turn only", "session_id", sessionID, "error", llmErr)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return "", err
	}

	topic := realtime.SessionTopic(sessionID)
	s.publishFrame(ctx, realtime.Frame{Topic: topic, Role: domain.RoleUser, Content: question})
	if llmErr == nil {
		s.publishFrame(ctx, realtime.Frame{Topic: topic, Role: domain.RoleAssistant, Content: answer})
	}

	s.syncToSearch(ctx, session)

	if llmErr != nil {
		return "", llmErr
	}
	return answer, nil
}

func (s *chatService) publishFrame(ctx context.Context, frame realtime.Frame) {
	if s.publish == nil {
		return
	}
	if err := s.publish.Publish(ctx, frame); err != nil {
		s.log.Warn("frame publish failed", "topic", frame.Topic, "role", frame.Role, "error", err)
	}
}

func (s *chatService) syncToSearch(ctx context.Context, session *domain.ChatSession) {
	if err := s.sink.SyncSession(ctx, session); err != nil {
		s.log.Warn("search sink sync failed", "session_id", session.ID, "error", err)
	}
}

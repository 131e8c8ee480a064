package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docqa/docqa-backend/internal/domain"
	"github.com/docqa/docqa-backend/internal/pkg/errors"
	"github.com/docqa/docqa-backend/internal/realtime"
)

// In-memory collaborators for service tests. They hold copies so test
// mutations never alias repo state.

type fakeDocumentRepo struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]domain.Document
	byHash map[string]uuid.UUID
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		byID:   make(map[uuid.UUID]domain.Document),
		byHash: make(map[string]uuid.UUID),
	}
}

func (r *fakeDocumentRepo) put(doc domain.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[doc.ID] = doc
	r.byHash[doc.ContentHash] = doc.ID
}

func (r *fakeDocumentRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrDocumentNotFound, id)
	}
	out := doc
	return &out, nil
}

func (r *fakeDocumentRepo) GetByContentHash(_ context.Context, hash string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHash[hash]
	if !ok {
		return nil, fmt.Errorf("%w: content hash %s", errors.ErrDocumentNotFound, hash)
	}
	out := r.byID[id]
	return &out, nil
}

func (r *fakeDocumentRepo) PutIfAbsent(_ context.Context, hash string, factory func() (*domain.Document, error)) (*domain.Document, error) {
	r.mu.Lock()
	if id, ok := r.byHash[hash]; ok {
		out := r.byID[id]
		r.mu.Unlock()
		return &out, nil
	}
	r.mu.Unlock()

	doc, err := factory()
	if err != nil {
		return nil, err
	}
	doc.ContentHash = hash

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byHash[hash]; ok {
		out := r.byID[id]
		return &out, nil
	}
	r.byID[doc.ID] = *doc
	r.byHash[hash] = doc.ID
	out := *doc
	return &out, nil
}

func (r *fakeDocumentRepo) Touch(_ context.Context, id uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrDocumentNotFound, id)
	}
	doc.UpdatedAt = now
	r.byID[id] = doc
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.ChatSession
	order    []uuid.UUID
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]domain.ChatSession)}
}

func cloneSession(s domain.ChatSession) domain.ChatSession {
	out := s
	out.Messages = append([]byte(nil), s.Messages...)
	return out
}

func (r *fakeSessionRepo) Save(_ context.Context, session *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		r.order = append(r.order, session.ID)
	}
	r.sessions[session.ID] = cloneSession(*session)
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, id)
	}
	out := cloneSession(s)
	return &out, nil
}

func (r *fakeSessionRepo) List(_ context.Context) ([]*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ChatSession, 0, len(r.order))
	for _, id := range r.order {
		s := cloneSession(r.sessions[id])
		out = append(out, &s)
	}
	return out, nil
}

// fakeLLM records prompts and answers from a scripted function. block,
// when set, is held inside Generate until released so tests can pin a
// turn in flight.
type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
	block   chan struct{}
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	reply := f.reply
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if reply == nil {
		return "ok", nil
	}
	return reply(prompt)
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakePublisher struct {
	mu     sync.Mutex
	frames []realtime.Frame
}

func (p *fakePublisher) Publish(_ context.Context, frame realtime.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frame)
	return nil
}

func (p *fakePublisher) published() []realtime.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Frame(nil), p.frames...)
}

type fakeSearchSink struct {
	mu    sync.Mutex
	syncs int
}

func (s *fakeSearchSink) SyncSession(_ context.Context, _ *domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++
	return nil
}

func (s *fakeSearchSink) syncCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncs
}

package services

import (
	"context"

	"github.com/docqa/docqa-backend/internal/domain"
)

// SearchSink receives a best-effort mirror of session updates. Failures
// are logged by the caller and never block the chat path.
type SearchSink interface {
	SyncSession(ctx context.Context, session *domain.ChatSession) error
}

// NullSearchSink discards every sync. Used when no search backend is
// configured.
type NullSearchSink struct{}

func (NullSearchSink) SyncSession(context.Context, *domain.ChatSession) error { return nil }

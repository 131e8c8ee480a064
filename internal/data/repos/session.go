package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docqa/docqa-backend/internal/domain"
	pkgerrors "github.com/docqa/docqa-backend/internal/pkg/errors"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
)

type SessionRepo interface {
	// Save replaces the whole record by id. Callers hold the per-session
	// lease across the read-modify-write, so last-writer-wins is safe.
	Save(ctx context.Context, session *domain.ChatSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error)
	List(ctx context.Context) ([]*domain.ChatSession, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, log *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: log.With("repo", "SessionRepo")}
}

func (r *sessionRepo) Save(ctx context.Context, session *domain.ChatSession) error {
	if session == nil || session.ID == uuid.Nil {
		return fmt.Errorf("%w: missing session", pkgerrors.ErrInvalidArgument)
	}
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: missing session id", pkgerrors.ErrInvalidArgument)
	}
	var session domain.ChatSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrStorageUnavailable, err)
	}
	return &session, nil
}

func (r *sessionRepo) List(ctx context.Context) ([]*domain.ChatSession, error) {
	var sessions []*domain.ChatSession
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrStorageUnavailable, err)
	}
	return sessions, nil
}

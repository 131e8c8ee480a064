package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docqa/docqa-backend/internal/domain"
	pkgerrors "github.com/docqa/docqa-backend/internal/pkg/errors"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
)

type DocumentRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	GetByContentHash(ctx context.Context, hash string) (*domain.Document, error)
	// PutIfAbsent returns the existing document with the given content
	// hash, or persists the factory's result. Concurrent callers with the
	// same hash converge on one row: the unique index on content_hash
	// rejects the losers and they re-read the winner.
	PutIfAbsent(ctx context.Context, hash string, factory func() (*domain.Document, error)) (*domain.Document, error)
	Touch(ctx context.Context, id uuid.UUID, now time.Time) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, log *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: log.With("repo", "DocumentRepo")}
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: missing document id", pkgerrors.ErrInvalidArgument)
	}
	var doc domain.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrStorageUnavailable, err)
	}
	return &doc, nil
}

func (r *documentRepo) GetByContentHash(ctx context.Context, hash string) (*domain.Document, error) {
	if hash == "" {
		return nil, fmt.Errorf("%w: missing content hash", pkgerrors.ErrInvalidArgument)
	}
	var doc domain.Document
	err := r.db.WithContext(ctx).First(&doc, "content_hash = ?", hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: content hash %s", pkgerrors.ErrDocumentNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrStorageUnavailable, err)
	}
	return &doc, nil
}

func (r *documentRepo) PutIfAbsent(ctx context.Context, hash string, factory func() (*domain.Document, error)) (*domain.Document, error) {
	existing, err := r.GetByContentHash(ctx, hash)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pkgerrors.ErrDocumentNotFound) {
		return nil, err
	}

	doc, err := factory()
	if err != nil {
		return nil, err
	}
	doc.ContentHash = hash

	createErr := r.db.WithContext(ctx).Create(doc).Error
	if createErr == nil {
		return doc, nil
	}
	if errors.Is(createErr, gorm.ErrDuplicatedKey) {
		// Lost the race: another caller inserted the same hash first.
		r.log.Debug("duplicate content hash on insert, reusing existing row", "content_hash", hash)
		return r.GetByContentHash(ctx, hash)
	}
	return nil, fmt.Errorf("%w: %v", pkgerrors.ErrStorageUnavailable, createErr)
}

func (r *documentRepo) Touch(ctx context.Context, id uuid.UUID, now time.Time) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: missing document id", pkgerrors.ErrInvalidArgument)
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Update("updated_at", now)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrStorageUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", pkgerrors.ErrDocumentNotFound, id)
	}
	return nil
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docqa/docqa-backend/internal/clients/ollama"
	"github.com/docqa/docqa-backend/internal/data/repos"
	"github.com/docqa/docqa-backend/internal/domain"
	"github.com/docqa/docqa-backend/internal/pkg/errors"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
	"github.com/docqa/docqa-backend/internal/prompt"
)

type IngestService interface {
	// Ingest dedupes the upload by content hash, extracting text only for
	// bytes the store has never seen. Re-uploads return the existing
	// document (original metadata kept) with updated_at bumped.
	Ingest(ctx context.Context, data []byte, fileName, mimeType string) (*domain.Document, error)
	// Process ingests the upload and immediately answers the query from
	// the document text, or summarizes the document when query is empty.
	Process(ctx context.Context, data []byte, fileName, mimeType, query string) (*domain.Document, string, error)
}

type ingestService struct {
	log     *logger.Logger
	docs    repos.DocumentRepo
	llm     ollama.Client
	extract TextExtractor
}

func NewIngestService(log *logger.Logger, docs repos.DocumentRepo, llm ollama.Client, extract TextExtractor) IngestService {
	if extract == nil {
		extract = ExtractText
	}
	return &ingestService{
		log:     log.With("service", "IngestService"),
		docs:    docs,
		llm:     llm,
		extract: extract,
	}
}

func (s *ingestService) Ingest(ctx context.Context, data []byte, fileName, mimeType string) (*domain.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", errors.ErrInvalidArgument)
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])
	s.log.Info("ingesting upload", "file_name", fileName, "file_size", len(data), "content_hash", contentHash)

	doc, err := s.docs.PutIfAbsent(ctx, contentHash, func() (*domain.Document, error) {
		text, extractErr := s.extract(fileName, mimeType, data)
		if extractErr != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrExtractionFailed, extractErr)
		}
		now := time.Now().UTC()
		return &domain.Document{
			ID:            uuid.New(),
			FileName:      fileName,
			MimeType:      mimeType,
			FileSize:      int64(len(data)),
			ExtractedText: text,
			UploadedAt:    now,
			UpdatedAt:     now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.docs.Touch(ctx, doc.ID, time.Now().UTC()); err != nil {
		// The document exists; a failed touch only leaves updated_at stale.
		s.log.Warn("touch after ingest failed", "document_id", doc.ID, "error", err)
	}

	return doc, nil
}

func (s *ingestService) Process(ctx context.Context, data []byte, fileName, mimeType, query string) (*domain.Document, string, error) {
	doc, err := s.Ingest(ctx, data, fileName, mimeType)
	if err != nil {
		return nil, "", err
	}

	var p string
	if strings.TrimSpace(query) != "" {
		p = prompt.QuestionAnswering(doc.ExtractedText, query)
	} else {
		p = prompt.Summarization(doc.ExtractedText)
	}

	answer, err := s.llm.Generate(ctx, p)
	if err != nil {
		return doc, "", err
	}
	return doc, answer, nil
}

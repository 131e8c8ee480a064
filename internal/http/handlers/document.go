package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docqa/docqa-backend/internal/http/response"
	pkgerrors "github.com/docqa/docqa-backend/internal/pkg/errors"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
	"github.com/docqa/docqa-backend/internal/services"
)

// maxUploadBytes bounds one multipart upload (32 MiB).
const maxUploadBytes = 32 << 20

type DocumentHandler struct {
	log    *logger.Logger
	ingest services.IngestService
}

func NewDocumentHandler(log *logger.Logger, ingest services.IngestService) *DocumentHandler {
	return &DocumentHandler{log: log.With("handler", "DocumentHandler"), ingest: ingest}
}

// POST /api/v1/documents
// Multipart upload. With a non-empty "query" field the response carries
// an answer grounded in the document; otherwise a short summary.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondDomainError(c, fmt.Errorf("%w: missing file", pkgerrors.ErrInvalidArgument))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.RespondDomainError(c, fmt.Errorf("%w: file too large", pkgerrors.ErrInvalidArgument))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.RespondDomainError(c, fmt.Errorf("%w: open upload", pkgerrors.ErrInvalidArgument))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		response.RespondDomainError(c, fmt.Errorf("%w: read upload", pkgerrors.ErrInvalidArgument))
		return
	}

	query := c.PostForm("query")

	doc, summary, err := h.ingest.Process(
		c.Request.Context(),
		data,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		query,
	)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, DocumentUploadResponse{
		DocumentID: doc.ID.String(),
		Summary:    summary,
	})
}

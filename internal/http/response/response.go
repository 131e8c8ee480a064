package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/docqa/docqa-backend/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError maps the service error kinds onto HTTP statuses.
// Unknown errors become an opaque 500 so internals never leak.
func RespondDomainError(c *gin.Context, err error) {
	status, code := Classify(err)
	if status == http.StatusInternalServerError {
		RespondError(c, status, code, errors.New("internal error"))
		return
	}
	RespondError(c, status, code, err)
}

// Classify returns the HTTP status and machine code for a service error.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, pkgerrors.ErrLLMRejected):
		return http.StatusBadRequest, "llm_rejected"
	case errors.Is(err, pkgerrors.ErrDocumentNotFound):
		return http.StatusNotFound, "document_not_found"
	case errors.Is(err, pkgerrors.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, pkgerrors.ErrSessionBusy):
		return http.StatusConflict, "session_busy"
	case errors.Is(err, pkgerrors.ErrExtractionFailed):
		return http.StatusUnprocessableEntity, "extraction_failed"
	case errors.Is(err, pkgerrors.ErrLLMTimeout):
		return http.StatusServiceUnavailable, "llm_timeout"
	case errors.Is(err, pkgerrors.ErrLLMUnavailable):
		return http.StatusServiceUnavailable, "llm_unavailable"
	case errors.Is(err, pkgerrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

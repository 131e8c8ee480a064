package errors

import "errors"

// Sentinel error kinds for the document QA service. The HTTP layer maps
// these onto status codes; services wrap them with context via %w.
var (
	// ErrInvalidArgument is returned on empty or malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDocumentNotFound is returned when a document id resolves to nothing.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrSessionNotFound is returned when a chat session id resolves to nothing.
	ErrSessionNotFound = errors.New("chat session not found")
	// ErrSessionBusy is returned when the per-session lease cannot be
	// acquired before the lease deadline.
	ErrSessionBusy = errors.New("chat session busy")
	// ErrExtractionFailed is returned when text cannot be extracted from
	// an uploaded file. No document is persisted in that case.
	ErrExtractionFailed = errors.New("text extraction failed")

	// LLM client failures. Timeout and unavailable are retryable with the
	// same input; rejected is not.
	ErrLLMTimeout     = errors.New("llm deadline exceeded")
	ErrLLMRejected    = errors.New("llm rejected prompt")
	ErrLLMUnavailable = errors.New("llm unavailable")

	// ErrStorageUnavailable wraps store-level failures that are neither
	// not-found nor conflicts.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

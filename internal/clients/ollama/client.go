package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/docqa/docqa-backend/internal/pkg/errors"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
	"github.com/docqa/docqa-backend/internal/utils"
)

// Client submits one prompt and returns one completion. No streaming at
// this interface; the wall-clock deadline is enforced per call.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	baseURL := strings.TrimSpace(utils.GetEnv("OLLAMA_BASE_URL", "http://localhost:11434", log))
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(utils.GetEnv("OLLAMA_MODEL", "llama3.2", log))

	timeoutSec := utils.GetEnvAsInt("OLLAMA_TIMEOUT_SECONDS", 60, log)
	if timeoutSec <= 0 {
		timeoutSec = 60
	}

	return &client{
		log:        log.With("service", "OllamaClient"),
		baseURL:    baseURL,
		model:      model,
		timeout:    time.Duration(timeoutSec) * time.Second,
		httpClient: &http.Client{},
	}, nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", pkgerrors.ErrLLMRejected)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", pkgerrors.ErrLLMTimeout, time.Since(started).Round(time.Millisecond))
		}
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", pkgerrors.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return "", fmt.Errorf("%w: status %d: %s", pkgerrors.ErrLLMRejected, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return "", fmt.Errorf("%w: status %d", pkgerrors.ErrLLMUnavailable, resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w while reading response", pkgerrors.ErrLLMTimeout)
		}
		return "", fmt.Errorf("%w: decode response: %v", pkgerrors.ErrLLMUnavailable, err)
	}

	c.log.Debug("generated completion", "model", c.model, "duration_ms", time.Since(started).Milliseconds(), "length", len(out.Response))
	return out.Response, nil
}

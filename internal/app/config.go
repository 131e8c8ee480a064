package app

import (
	"time"

	"github.com/docqa/docqa-backend/internal/pkg/logger"
	"github.com/docqa/docqa-backend/internal/prompt"
	"github.com/docqa/docqa-backend/internal/utils"
)

type Config struct {
	Port string

	// HistoryWindow caps how many prior messages a chat prompt carries.
	HistoryWindow int

	// LeaseTimeout bounds how long a chat turn waits for the per-session
	// lease. Defaults to twice the LLM deadline so a queued turn outlives
	// at most one in-flight LLM call.
	LeaseTimeout time.Duration

	// SearchSyncEnabled mirrors session updates to the redis search sink
	// when redis is configured.
	SearchSyncEnabled bool
}

func LoadConfig(log *logger.Logger) Config {
	port := utils.GetEnv("PORT", "8080", log)
	historyWindow := utils.GetEnvAsInt("CHAT_HISTORY_WINDOW", prompt.DefaultHistoryWindow, log)

	llmTimeoutSeconds := utils.GetEnvAsInt("OLLAMA_TIMEOUT_SECONDS", 60, log)
	leaseSeconds := utils.GetEnvAsInt("CHAT_LEASE_TIMEOUT_SECONDS", 2*llmTimeoutSeconds, log)

	searchSync := utils.GetEnvAsBool("SEARCH_SYNC_ENABLED", true, log)

	return Config{
		Port:              port,
		HistoryWindow:     historyWindow,
		LeaseTimeout:      time.Duration(leaseSeconds) * time.Second,
		SearchSyncEnabled: searchSync,
	}
}

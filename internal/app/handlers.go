package app

import (
	"github.com/gin-gonic/gin"

	internalhttp "github.com/docqa/docqa-backend/internal/http"
	httpH "github.com/docqa/docqa-backend/internal/http/handlers"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
	"github.com/docqa/docqa-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Document *httpH.DocumentHandler
	Chat     *httpH.ChatHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Document: httpH.NewDocumentHandler(log, serviceset.Ingest),
		Chat:     httpH.NewChatHandler(serviceset.Chat),
		Realtime: httpH.NewRealtimeHandler(log, hub, serviceset.Chat, serviceset.Publisher),
	}
}

func wireRouter(log *logger.Logger, handlers Handlers) *gin.Engine {
	return internalhttp.NewRouter(internalhttp.RouterConfig{
		Log:             log,
		HealthHandler:   handlers.Health,
		DocumentHandler: handlers.Document,
		ChatHandler:     handlers.Chat,
		RealtimeHandler: handlers.Realtime,
	})
}

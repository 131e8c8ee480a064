package app

import (
	"github.com/docqa/docqa-backend/internal/pkg/logger"
	"github.com/docqa/docqa-backend/internal/realtime"
	"github.com/docqa/docqa-backend/internal/services"
)

type Services struct {
	Ingest    services.IngestService
	Chat      services.ChatService
	Publisher services.FramePublisher
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos, hub *realtime.Hub) Services {
	log.Info("Wiring services...")

	// With redis the bus carries every publish and the forwarder feeds
	// the local hub, so cross-instance subscribers see the same frames.
	var publisher services.FramePublisher = hubPublisher{hub: hub}
	if clients.FrameBus != nil {
		publisher = clients.FrameBus
	}

	var sink services.SearchSink = services.NullSearchSink{}
	if clients.SearchSink != nil {
		sink = clients.SearchSink
	}

	ingest := services.NewIngestService(log, reposet.Document, clients.LLM, nil)
	chat := services.NewChatService(
		log,
		reposet.Document,
		reposet.Session,
		clients.LLM,
		publisher,
		sink,
		services.ChatConfig{
			HistoryWindow: cfg.HistoryWindow,
			LeaseTimeout:  cfg.LeaseTimeout,
		},
	)

	return Services{
		Ingest:    ingest,
		Chat:      chat,
		Publisher: publisher,
	}
}

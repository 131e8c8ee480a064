package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/docqa/docqa-backend/internal/clients/ollama"
	"github.com/docqa/docqa-backend/internal/clients/redis"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
	"github.com/docqa/docqa-backend/internal/realtime"
	"github.com/docqa/docqa-backend/internal/services"
)

type Clients struct {
	LLM        ollama.Client
	FrameBus   redis.FrameBus
	SearchSink *redis.SearchSink
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	llm, err := ollama.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init ollama client: %w", err)
	}

	// Redis is optional: without it the in-process hub alone carries
	// frames and session search mirroring is disabled.
	var bus redis.FrameBus
	var sink *redis.SearchSink
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		b, err := redis.NewFrameBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis frame bus: %w", err)
		}
		bus = b

		if cfg.SearchSyncEnabled {
			s, err := redis.NewSearchSink(log)
			if err != nil {
				_ = bus.Close()
				return Clients{}, fmt.Errorf("init redis search sink: %w", err)
			}
			sink = s
		}
	}

	return Clients{
		LLM:        llm,
		FrameBus:   bus,
		SearchSink: sink,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.FrameBus != nil {
		_ = c.FrameBus.Close()
	}
	if c.SearchSink != nil {
		_ = c.SearchSink.Close()
	}
}

// hubPublisher broadcasts frames straight into the local hub: the
// single-instance path with no redis in between.
type hubPublisher struct {
	hub *realtime.Hub
}

func (p hubPublisher) Publish(_ context.Context, frame realtime.Frame) error {
	p.hub.Broadcast(frame)
	return nil
}

var _ services.FramePublisher = hubPublisher{}

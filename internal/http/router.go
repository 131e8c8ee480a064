package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/docqa/docqa-backend/internal/http/handlers"
	httpMW "github.com/docqa/docqa-backend/internal/http/middleware"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler   *httpH.HealthHandler
	DocumentHandler *httpH.DocumentHandler
	ChatHandler     *httpH.ChatHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api/v1")
	{
		if cfg.DocumentHandler != nil {
			api.POST("/documents", cfg.DocumentHandler.Upload)
		}

		if cfg.ChatHandler != nil {
			api.POST("/chat/sessions", cfg.ChatHandler.StartSession)
			api.GET("/chat/sessions", cfg.ChatHandler.ListSessions)
			api.GET("/chat/sessions/:id", cfg.ChatHandler.GetSession)
			api.POST("/chat/message", cfg.ChatHandler.SendMessage)
		}

		if cfg.RealtimeHandler != nil {
			api.GET("/ws", cfg.RealtimeHandler.Serve)
		}
	}

	return r
}

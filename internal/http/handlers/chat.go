package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/docqa/docqa-backend/internal/http/response"
	pkgerrors "github.com/docqa/docqa-backend/internal/pkg/errors"
	"github.com/docqa/docqa-backend/internal/services"
)

type ChatHandler struct {
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// POST /api/v1/chat/sessions
func (h *ChatHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondDomainError(c, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err))
		return
	}
	documentID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		response.RespondDomainError(c, fmt.Errorf("%w: invalid document id", pkgerrors.ErrInvalidArgument))
		return
	}

	session, err := h.chat.StartSession(c.Request.Context(), documentID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}

	out, err := toSessionResponse(session, "")
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/v1/chat/sessions
func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.chat.ListSessions(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	out := make([]ChatSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		dto, err := toSessionResponse(s, "")
		if err != nil {
			response.RespondDomainError(c, err)
			return
		}
		out = append(out, dto)
	}
	response.RespondOK(c, gin.H{"sessions": out})
}

// GET /api/v1/chat/sessions/:id
func (h *ChatHandler) GetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondDomainError(c, fmt.Errorf("%w: invalid session id", pkgerrors.ErrInvalidArgument))
		return
	}

	session, err := h.chat.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}

	out, err := toSessionResponse(session, "")
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/v1/chat/message
// REST fallback for one chat turn; WebSocket is the primary channel.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondDomainError(c, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err))
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		response.RespondDomainError(c, fmt.Errorf("%w: invalid session id", pkgerrors.ErrInvalidArgument))
		return
	}

	answer, err := h.chat.Chat(c.Request.Context(), sessionID, req.Question)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}

	session, err := h.chat.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}

	out, err := toSessionResponse(session, answer)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}

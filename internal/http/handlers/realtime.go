package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/docqa/docqa-backend/internal/domain"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
	"github.com/docqa/docqa-backend/internal/realtime"
	"github.com/docqa/docqa-backend/internal/services"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound envelope size.
	maxMessageSize = 16 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Inbound envelope. Address selects the operation: "subscribe" and
// "unsubscribe" manage topic membership, "chat/message" runs a turn.
type wsRequest struct {
	Address   string `json:"address"`
	Topic     string `json:"topic,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Question  string `json:"question,omitempty"`
}

type RealtimeHandler struct {
	log     *logger.Logger
	hub     *realtime.Hub
	chat    services.ChatService
	publish services.FramePublisher
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub, chat services.ChatService, publish services.FramePublisher) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		chat:    chat,
		publish: publish,
	}
}

// GET /api/v1/ws
func (h *RealtimeHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := h.hub.NewClient()
	h.log.Debug("websocket client connected", "clientID", client.ID)

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

func (h *RealtimeHandler) readPump(conn *websocket.Conn, client *realtime.Client) {
	defer func() {
		h.hub.CloseClient(client)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read error", "clientID", client.ID, "error", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			h.sendErrorToClient(client, "invalid message envelope")
			continue
		}

		switch req.Address {
		case "subscribe":
			h.hub.Subscribe(client, req.Topic)
		case "unsubscribe":
			h.hub.Unsubscribe(client, req.Topic)
		case "chat/message":
			h.handleChatMessage(client, req)
		default:
			h.sendErrorToClient(client, "unknown address: "+req.Address)
		}
	}
}

func (h *RealtimeHandler) handleChatMessage(client *realtime.Client, req wsRequest) {
	if req.SessionID == "" {
		h.sendErrorToClient(client, "Session ID is required")
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		h.sendErrorToClient(client, "Session ID is invalid")
		return
	}
	if req.Question == "" {
		h.sendError(sessionID, "Question is required")
		return
	}

	// The turn runs off the read loop so a slow LLM call never stalls
	// pings or further subscribes. Per-session serialization is enforced
	// by the chat service's lease.
	go func() {
		if _, err := h.chat.Chat(context.Background(), sessionID, req.Question); err != nil {
			h.log.Warn("websocket chat turn failed", "session_id", sessionID, "error", err)
			h.sendError(sessionID, "Error processing message: "+err.Error())
		}
	}()
}

// sendError publishes an error frame on the session topic. Error frames
// are transport-only and never persisted.
func (h *RealtimeHandler) sendError(sessionID uuid.UUID, msg string) {
	frame := realtime.Frame{
		Topic:   realtime.SessionTopic(sessionID),
		Role:    domain.RoleError,
		Content: msg,
	}
	if err := h.publish.Publish(context.Background(), frame); err != nil {
		h.log.Warn("error frame publish failed", "topic", frame.Topic, "error", err)
	}
}

// sendErrorToClient delivers an error frame directly to one connection,
// for failures with no usable session topic.
func (h *RealtimeHandler) sendErrorToClient(client *realtime.Client, msg string) {
	select {
	case client.Outbound <- realtime.Frame{Role: domain.RoleError, Content: msg}:
	default:
		h.log.Warn("dropping error frame; outbound buffer full", "clientID", client.ID)
	}
}

func (h *RealtimeHandler) writePump(conn *websocket.Conn, client *realtime.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame := <-client.Outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			dto := ChatMessageDto{Role: string(frame.Role), Content: frame.Content}
			if err := conn.WriteJSON(dto); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.Done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

package realtime

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/docqa/docqa-backend/internal/domain"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
)

// Frame is one role-tagged message on a session topic. Topics are not
// durable: subscribers only see frames published while attached.
type Frame struct {
	Topic   string      `json:"topic"`
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

// SessionTopic names the per-session topic frames are published on.
func SessionTopic(sessionID uuid.UUID) string {
	return "chat/" + sessionID.String()
}

type Client struct {
	ID       uuid.UUID
	Topics   map[string]bool
	Outbound chan Frame
	Done     chan struct{}

	closeOnce sync.Once
}

// Hub fans frames out to every client attached to a topic. Publish order
// is preserved per topic because Broadcast enqueues under the hub lock in
// caller order and each client drains a single FIFO channel.
type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "Hub"),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

func (h *Hub) NewClient() *Client {
	return &Client{
		ID:       uuid.New(),
		Topics:   make(map[string]bool),
		Outbound: make(chan Frame, 16),
		Done:     make(chan struct{}),
	}
}

func (h *Hub) Subscribe(client *Client, topic string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	client.Topics[topic] = true
	clients, exists := h.subscriptions[topic]
	if !exists {
		clients = make(map[*Client]bool)
		h.subscriptions[topic] = clients
	}
	clients[client] = true

	h.log.Debug("client subscribed", "clientID", client.ID, "topic", topic)
}

func (h *Hub) Unsubscribe(client *Client, topic string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delete(client.Topics, topic)
	if subMap, ok := h.subscriptions[topic]; ok {
		delete(subMap, client)
		if len(subMap) == 0 {
			delete(h.subscriptions, topic)
		}
	}
}

// RemoveClient detaches the client from every topic.
func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic := range client.Topics {
		if subMap, ok := h.subscriptions[topic]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(h.subscriptions, topic)
			}
		}
	}
	client.Topics = make(map[string]bool)
}

// CloseClient detaches the client and signals its write loop to stop.
func (h *Hub) CloseClient(client *Client) {
	h.RemoveClient(client)
	client.closeOnce.Do(func() { close(client.Done) })
}

// Broadcast delivers the frame to every live subscriber of its topic.
// A subscriber that cannot keep up has the frame dropped rather than
// stalling the publisher.
func (h *Hub) Broadcast(frame Frame) {
	if frame.Topic == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.subscriptions[frame.Topic]
	if !ok {
		return
	}
	for c := range clients {
		select {
		case c.Outbound <- frame:
		default:
			h.log.Warn("dropping frame; outbound buffer full", "clientID", c.ID, "topic", frame.Topic)
		}
	}
}

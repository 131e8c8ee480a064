package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Role tags a chat message. RoleError is transport-only: it is published
// on a session topic but never persisted in the session history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChatMessage(role Role, content string) ChatMessage {
	return ChatMessage{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// ChatSession is a conversation bound to a single document snapshot.
// DocumentName and ExtractedText are copied at creation time so later
// uploads of the same document never change a running conversation.
type ChatSession struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	DocumentID    uuid.UUID `gorm:"type:uuid;column:document_id;not null;index" json:"document_id"`
	DocumentName  string    `gorm:"column:document_name;not null;default:''" json:"document_name"`
	ExtractedText string    `gorm:"column:extracted_text;type:text;not null;default:''" json:"extracted_text"`

	// Append-only history, stored as a JSON array of ChatMessage.
	Messages datatypes.JSON `gorm:"column:messages;not null;default:'[]'" json:"messages"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

// MessageList decodes the persisted history. A fresh session with no
// messages yields an empty slice.
func (s *ChatSession) MessageList() ([]ChatMessage, error) {
	if len(s.Messages) == 0 {
		return []ChatMessage{}, nil
	}
	var out []ChatMessage
	if err := json.Unmarshal(s.Messages, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddMessage appends to the history and bumps UpdatedAt.
func (s *ChatSession) AddMessage(msg ChatMessage) error {
	msgs, err := s.MessageList()
	if err != nil {
		return err
	}
	msgs = append(msgs, msg)
	raw, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	s.Messages = datatypes.JSON(raw)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

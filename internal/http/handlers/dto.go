package handlers

import (
	"github.com/docqa/docqa-backend/internal/domain"
)

type DocumentUploadResponse struct {
	DocumentID string `json:"documentId"`
	Summary    string `json:"summary,omitempty"`
}

type StartSessionRequest struct {
	DocumentID string `json:"documentId"`
}

type ChatMessageRequest struct {
	SessionID string `json:"sessionId"`
	Question  string `json:"question"`
}

type ChatMessageDto struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatSessionResponse struct {
	SessionID       string           `json:"sessionId"`
	DocumentID      string           `json:"documentId"`
	DocumentName    string           `json:"documentName"`
	Messages        []ChatMessageDto `json:"messages"`
	CurrentResponse string           `json:"currentResponse,omitempty"`
}

func toSessionResponse(session *domain.ChatSession, currentResponse string) (ChatSessionResponse, error) {
	msgs, err := session.MessageList()
	if err != nil {
		return ChatSessionResponse{}, err
	}
	dtos := make([]ChatMessageDto, 0, len(msgs))
	for _, m := range msgs {
		dtos = append(dtos, ChatMessageDto{Role: string(m.Role), Content: m.Content})
	}
	return ChatSessionResponse{
		SessionID:       session.ID.String(),
		DocumentID:      session.DocumentID.String(),
		DocumentName:    session.DocumentName,
		Messages:        dtos,
		CurrentResponse: currentResponse,
	}, nil
}

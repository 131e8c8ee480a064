// Package prompt assembles the text payloads handed to the LLM. All
// functions are pure: they never mutate their inputs.
package prompt

import (
	"fmt"
	"strings"

	"github.com/docqa/docqa-backend/internal/domain"
)

// DefaultHistoryWindow bounds how many prior messages a contextual
// prompt carries (~5 user/assistant exchanges). It is a heuristic, not
// token-budget aware, and is exposed as a tunable via configuration.
const DefaultHistoryWindow = 10

const (
	documentStartMarker = "---DOCUMENT START---"
	documentEndMarker   = "---DOCUMENT END---"

	contextualPreamble = "You are a document assistant. Answer questions about the document below and ground every answer in its text."

	contextualClosing = "Answer the current question using the document and the conversation history above."
)

// Contextual builds the per-turn chat prompt. history is the session's
// persisted messages excluding the just-appended current question; only
// the last window entries are included. window <= 0 falls back to
// DefaultHistoryWindow.
func Contextual(documentText string, history []domain.ChatMessage, question string, window int) string {
	if window <= 0 {
		window = DefaultHistoryWindow
	}

	var b strings.Builder
	b.WriteString(contextualPreamble)
	b.WriteString("\n\n")
	b.WriteString(documentStartMarker)
	b.WriteString("\n")
	b.WriteString(documentText)
	b.WriteString("\n")
	b.WriteString(documentEndMarker)
	b.WriteString("\n")

	recent := history
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}
	if len(recent) > 0 {
		b.WriteString("\nPrevious conversation:\n")
		for _, msg := range recent {
			switch msg.Role {
			case domain.RoleUser:
				b.WriteString("User: ")
			case domain.RoleAssistant:
				b.WriteString("Assistant: ")
			default:
				continue
			}
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nCurrent question:\n")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(contextualClosing)
	b.WriteString("\n")
	return b.String()
}

// Summarization asks for a 3-4 sentence comprehensive summary of the
// whole document.
func Summarization(documentText string) string {
	return fmt.Sprintf(`Analyze the following document and provide a comprehensive summary in 3-4 sentences.
Focus on the main topics, key points, and important information.

Document:
%s

Summary:
`, documentText)
}

// QuestionAnswering answers strictly from the document text, with no
// outside knowledge.
func QuestionAnswering(documentText, question string) string {
	return fmt.Sprintf(`Use ONLY the document text below to answer the question.
Do not use any external knowledge.
If the answer cannot be found in the document, say "I cannot find the answer in the provided document."

Document:
%s

Question:
%s

Answer:
`, documentText, question)
}

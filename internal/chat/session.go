// Package chat owns conversation state and the streaming turn workflow.
package chat

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/00668901/pintar-ai/internal/genai"
	"github.com/00668901/pintar-ai/internal/persona"
	"github.com/00668901/pintar-ai/internal/quiz"
)

// Message is one turn in a session. Immutable once appended, except the
// in-progress model message which the aggregator fills until finalized.
type Message struct {
	ID          string          `json:"id"`
	Role        string          `json:"role"` // "user" or "model"
	Text        string          `json:"text"`
	Attachments []genai.Blob    `json:"attachments,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Usage       *genai.Usage    `json:"usage,omitempty"`
	Quiz        []quiz.Question `json:"quiz,omitempty"`
}

// Session is one conversation. Persisted as a full overwrite after every
// completed turn.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	LastModified time.Time `json:"lastModified"`
}

const titleMaxRunes = 50

// deriveTitle names a fresh session from its first user text, truncated, or
// from an attachment-type label when the text is empty.
func deriveTitle(text string, attachments []genai.Blob) string {
	text = strings.TrimSpace(text)
	if text != "" {
		if utf8.RuneCountInString(text) > titleMaxRunes {
			runes := []rune(text)
			return string(runes[:titleMaxRunes]) + "..."
		}
		return text
	}
	if len(attachments) > 0 {
		if strings.HasPrefix(attachments[0].MIMEType, "image/") {
			return "Percakapan gambar"
		}
		return "Percakapan dokumen"
	}
	return "Percakapan baru"
}

// historyTurns maps persisted messages into prompt-builder turns.
func historyTurns(messages []Message) []persona.Turn {
	turns := make([]persona.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, persona.Turn{Role: m.Role, Text: m.Text, Blobs: m.Attachments})
	}
	return turns
}

// Package notes owns the study-note entity and the two-phase generation
// workflow that produces one from uploaded source material.
package notes

import (
	"time"

	"github.com/00668901/pintar-ai/internal/quiz"
)

// Note is a generated study module. Mutated in place by user edits and quiz
// regeneration; persisted as a full-object overwrite keyed by ID.
type Note struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"` // markdown
	Quiz        []quiz.Question `json:"quiz"`
	SourceBlobs []string        `json:"sourceBlobs"` // base64 payloads
	SourceNames []string        `json:"sourceNames"` // parallel to SourceBlobs
	CreatedAt   time.Time       `json:"createdAt"`
}

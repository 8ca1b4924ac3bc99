package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/00668901/pintar-ai/internal/genai"
)

const (
	// maxSourceChars bounds the excerpt sent upstream; longer note bodies
	// are truncated with an ellipsis to cap token cost.
	maxSourceChars = 30000

	mcqQuota   = 5
	essayQuota = 3
)

const quizPromptFmt = `Buat kuis dari materi belajar berikut untuk menguji pemahaman pembaca.

Hasilkan objek JSON dengan dua array:
- "mcq_questions": tepat %d soal pilihan ganda, masing-masing dengan 4 pilihan pada "options", jawaban benar pada "answer", dan penjelasan pada "explanation".
- "essay_questions": tepat %d soal esai atau lengkapi-kode yang menuntut penalaran, dengan poin-poin kunci jawaban pada "answer".

PENTING: isi "answer" pada setiap soal pilihan ganda HARUS sama persis, karakter demi karakter, dengan salah satu isi "options".
Seluruh soal dan penjelasan dalam Bahasa Indonesia.

Materi:
%s`

// ModelCaller is the slice of the model client the engine needs.
type ModelCaller interface {
	GenerateOnce(ctx context.Context, model string, contents []genai.Content, cfg genai.RequestConfig) (genai.Result, error)
	NoteModel() string
}

// Engine generates quizzes over note content and scores submitted answers.
type Engine struct {
	client ModelCaller
}

// NewEngine creates an Engine. A nil client means generation is disabled;
// Generate then returns an empty set, matching the feature-disabled policy.
func NewEngine(client ModelCaller) *Engine {
	return &Engine{client: client}
}

// Generate builds a quiz from sourceText. Question quotas are fixed in the
// prompt, not caller-configurable. On any failure (transport error or a
// payload that both parse stages reject) it returns an empty set and logs;
// quiz failure must never discard already-generated note content upstream.
func (e *Engine) Generate(ctx context.Context, sourceText string) []Question {
	if e.client == nil || sourceText == "" {
		return []Question{}
	}

	excerpt := sourceText
	if len(excerpt) > maxSourceChars {
		excerpt = excerpt[:maxSourceChars] + "..."
	}

	prompt := fmt.Sprintf(quizPromptFmt, mcqQuota, essayQuota, excerpt)
	res, err := e.client.GenerateOnce(ctx, e.client.NoteModel(),
		[]genai.Content{{Role: "user", Parts: []genai.Part{{Text: prompt}}}},
		genai.RequestConfig{
			Temperature:      0.7,
			ResponseMIMEType: "application/json",
			ResponseSchema:   payloadSchema(),
		},
	)
	if err != nil {
		slog.Warn("quiz generation failed", "error", err)
		return []Question{}
	}

	questions := ParsePayload(res.Text)
	if len(questions) == 0 {
		slog.Warn("quiz payload unparsable", "response_len", len(res.Text))
	}
	return questions
}

var (
	schemaOnce   sync.Once
	cachedSchema *jsonschema.Schema
)

// payloadSchema derives the responseSchema from the payload structs. The
// reflector inlines everything: the generative API accepts a plain
// OpenAPI-style object schema, not one built from $defs references.
func payloadSchema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		r := jsonschema.Reflector{
			DoNotReference: true,
			ExpandedStruct: true,
		}
		s := r.Reflect(&payload{})
		s.Version = ""
		cachedSchema = s
	})
	return cachedSchema
}

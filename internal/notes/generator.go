package notes

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/00668901/pintar-ai/internal/extract"
	"github.com/00668901/pintar-ai/internal/genai"
	"github.com/00668901/pintar-ai/internal/quiz"
)

const (
	// defaultMaxNoteTokens is the raised output ceiling for the content
	// phase. Truncation is the primary observed failure mode, so the
	// ceiling is always set explicitly instead of trusting the default.
	defaultMaxNoteTokens = 65536

	// degradedExcerptCap bounds how much raw extracted text is inlined
	// into a degraded note so the user's upload is not entirely lost.
	degradedExcerptCap = 4000
)

// User-facing copy for failure notes.
const (
	msgNoAPIKey = "Kunci API belum diatur. Buka Pengaturan lalu masukkan kunci API untuk mengaktifkan pembuatan catatan."
	msgGenFailed = "Maaf, catatan tidak dapat dibuat secara otomatis dari materi ini. Coba lagi beberapa saat lagi."
	msgRawHeader = "Berikut cuplikan materi yang berhasil dibaca:"
)

const notePromptFmt = `Buat catatan belajar yang lengkap dan mendalam dari materi berikut.

Aturan keluaran:
- Baris PERTAMA wajib berformat: JUDUL: <judul catatan yang deskriptif>
- Setelah baris judul, tulis isi catatan dalam markdown: heading per sub-topik, penjelasan naratif yang utuh (bukan sekadar poin), contoh konkret, dan rangkuman di akhir.
- Untuk materi teknis/pemrograman, sertakan contoh kode dalam DUA bahasa berbeda dari daftar ini: Go, JavaScript, Java, C++, Rust — masing-masing diikuti blok keluaran eksekusinya. JANGAN gunakan Python.
- Seluruh catatan dalam Bahasa Indonesia.

%s`

// Source is one uploaded study material.
type Source struct {
	Name string
	MIME string
	Data []byte
}

// QuizGenerator is the quiz phase entry point.
type QuizGenerator interface {
	Generate(ctx context.Context, sourceText string) []quiz.Question
}

// ModelCaller is the slice of the model client the content phase needs.
type ModelCaller interface {
	GenerateOnce(ctx context.Context, model string, contents []genai.Content, cfg genai.RequestConfig) (genai.Result, error)
	NoteModel() string
}

// Generator runs the two-phase note workflow: content first, quiz second.
type Generator struct {
	client    ModelCaller // nil means the feature is disabled
	quizzer   QuizGenerator
	maxTokens int
}

// NewGenerator creates a Generator. maxTokens <= 0 selects the default
// content-phase output ceiling.
func NewGenerator(client ModelCaller, quizzer QuizGenerator, maxTokens int) *Generator {
	if maxTokens <= 0 {
		maxTokens = defaultMaxNoteTokens
	}
	return &Generator{client: client, quizzer: quizzer, maxTokens: maxTokens}
}

// Generate produces a complete Note, unconditionally. Every failure mode is
// encoded as degraded-but-valid data: a date-stamped title, explanatory
// body, empty quiz. Callers have no error channel to check.
func (g *Generator) Generate(ctx context.Context, topic string, sources []Source) Note {
	blobs, extracted := g.prepareSources(ctx, sources)
	rawText := strings.TrimSpace(strings.Join(extracted, "\n\n"))

	if g.client == nil {
		return g.degraded(msgNoAPIKey, rawText, sources)
	}

	prompt := buildNotePrompt(topic, rawText)
	contents := []genai.Content{userContent(blobs, prompt)}

	res, err := g.client.GenerateOnce(ctx, g.client.NoteModel(), contents, genai.RequestConfig{
		Temperature:     0.7,
		MaxOutputTokens: g.maxTokens,
	})
	if err != nil {
		slog.Warn("note content generation failed", "error", err)
		return g.degraded(msgGenFailed, rawText, sources)
	}
	if strings.TrimSpace(res.Text) == "" {
		slog.Warn("note content generation returned empty text")
		return g.degraded(msgGenFailed, rawText, sources)
	}

	title, body := ParseContent(res.Text)

	// Quiz phase runs only over successfully generated content; its
	// failure degrades to an empty quiz without touching the content.
	questions := g.quizzer.Generate(ctx, body)

	return g.assemble(title, body, questions, sources)
}

// prepareSources splits uploads into model-attachable blobs (images, PDFs)
// and locally extracted text (office documents, HTML, plain files).
// Extraction runs in parallel; results keep source order.
func (g *Generator) prepareSources(ctx context.Context, sources []Source) ([]genai.Blob, []string) {
	var blobs []genai.Blob
	extracted := make([]string, len(sources))

	var eg errgroup.Group
	for i, src := range sources {
		if attachable(src) {
			blobs = append(blobs, genai.Blob{
				MIMEType: src.MIME,
				Data:     base64.StdEncoding.EncodeToString(src.Data),
			})
			continue
		}
		eg.Go(func() error {
			extracted[i] = extract.Text(src.Data, nameOrMIME(src))
			return nil
		})
	}
	eg.Wait()

	var nonEmpty []string
	for _, t := range extracted {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	return blobs, nonEmpty
}

func attachable(src Source) bool {
	return strings.HasPrefix(src.MIME, "image/") || src.MIME == "application/pdf"
}

func nameOrMIME(src Source) string {
	if src.Name != "" {
		return src.Name
	}
	return src.MIME
}

func buildNotePrompt(topic, rawText string) string {
	var sb strings.Builder
	if topic != "" {
		sb.WriteString("Topik yang diminta pengguna: ")
		sb.WriteString(topic)
		sb.WriteString("\n\n")
	}
	if rawText != "" {
		sb.WriteString("Materi:\n")
		sb.WriteString(rawText)
	} else if topic == "" {
		sb.WriteString("Materi terlampir sebagai berkas.")
	}
	return fmt.Sprintf(notePromptFmt, sb.String())
}

func userContent(blobs []genai.Blob, text string) genai.Content {
	parts := make([]genai.Part, 0, len(blobs)+1)
	for i := range blobs {
		b := blobs[i]
		parts = append(parts, genai.Part{InlineData: &b})
	}
	parts = append(parts, genai.Part{Text: text})
	return genai.Content{Role: "user", Parts: parts}
}

// degraded builds the short-circuit note for a failed or disabled content
// phase: date title, explanation, bounded excerpt of whatever text made it
// out of the uploads, empty quiz.
func (g *Generator) degraded(reason, rawText string, sources []Source) Note {
	var sb strings.Builder
	sb.WriteString(reason)
	if rawText != "" {
		excerpt := rawText
		if len(excerpt) > degradedExcerptCap {
			excerpt = excerpt[:degradedExcerptCap] + "..."
		}
		sb.WriteString("\n\n")
		sb.WriteString(msgRawHeader)
		sb.WriteString("\n\n")
		sb.WriteString(excerpt)
	}
	return g.assemble(dateTitle(time.Now()), sb.String(), []quiz.Question{}, sources)
}

func (g *Generator) assemble(title, body string, questions []quiz.Question, sources []Source) Note {
	blobs := make([]string, len(sources))
	names := make([]string, len(sources))
	for i, src := range sources {
		blobs[i] = base64.StdEncoding.EncodeToString(src.Data)
		names[i] = src.Name
	}
	return Note{
		ID:          uuid.New().String(),
		Title:       title,
		Content:     body,
		Quiz:        questions,
		SourceBlobs: blobs,
		SourceNames: names,
		CreatedAt:   time.Now().UTC(),
	}
}

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

func dateTitle(t time.Time) string {
	return fmt.Sprintf("Catatan %d %s %d", t.Day(), monthNames[t.Month()-1], t.Year())
}

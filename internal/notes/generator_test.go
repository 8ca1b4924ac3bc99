package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/00668901/pintar-ai/internal/genai"
	"github.com/00668901/pintar-ai/internal/quiz"
)

type fakeModel struct {
	lastContents []genai.Content
	lastConfig   genai.RequestConfig
	text         string
	err          error
}

func (f *fakeModel) GenerateOnce(_ context.Context, _ string, contents []genai.Content, cfg genai.RequestConfig) (genai.Result, error) {
	f.lastContents = contents
	f.lastConfig = cfg
	if f.err != nil {
		return genai.Result{}, f.err
	}
	return genai.Result{Text: f.text}, nil
}

func (f *fakeModel) NoteModel() string { return "fast-model" }

type fakeQuizzer struct {
	gotSource string
	questions []quiz.Question
}

func (f *fakeQuizzer) Generate(_ context.Context, sourceText string) []quiz.Question {
	f.gotSource = sourceText
	return f.questions
}

func TestGenerate_TwoPhases(t *testing.T) {
	model := &fakeModel{text: "JUDUL: Fotosintesis\nIsi bab satu..."}
	quizzer := &fakeQuizzer{questions: []quiz.Question{
		{Kind: quiz.MultipleChoice, Question: "q", Options: []string{"a"}, Answer: "a"},
	}}
	g := NewGenerator(model, quizzer, 0)

	note := g.Generate(context.Background(), "fotosintesis", nil)

	if note.Title != "Fotosintesis" {
		t.Errorf("title = %q", note.Title)
	}
	if note.Content != "Isi bab satu..." {
		t.Errorf("content = %q", note.Content)
	}
	if len(note.Quiz) != 1 {
		t.Errorf("quiz len = %d, want 1", len(note.Quiz))
	}
	// Quiz phase input is the parsed body, not the raw marker text.
	if quizzer.gotSource != "Isi bab satu..." {
		t.Errorf("quiz source = %q", quizzer.gotSource)
	}
	if note.ID == "" || note.CreatedAt.IsZero() {
		t.Error("note identity fields not set")
	}
	if model.lastConfig.MaxOutputTokens != defaultMaxNoteTokens {
		t.Errorf("maxOutputTokens = %d, want the raised ceiling", model.lastConfig.MaxOutputTokens)
	}
}

func TestGenerate_QuizFailureKeepsContent(t *testing.T) {
	model := &fakeModel{text: "JUDUL: Osmosis\nMateri lengkap."}
	g := NewGenerator(model, &fakeQuizzer{questions: []quiz.Question{}}, 0)

	note := g.Generate(context.Background(), "", []Source{
		{Name: "bab.txt", MIME: "text/plain", Data: []byte("materi osmosis")},
	})

	if note.Title != "Osmosis" {
		t.Errorf("title = %q, quiz failure must not discard content", note.Title)
	}
	if len(note.Quiz) != 0 {
		t.Errorf("quiz len = %d, want 0", len(note.Quiz))
	}
}

func TestGenerate_ContentFailureDegrades(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	g := NewGenerator(model, &fakeQuizzer{}, 0)

	long := strings.Repeat("x", degradedExcerptCap+100)
	note := g.Generate(context.Background(), "", []Source{
		{Name: "materi.txt", MIME: "text/plain", Data: []byte(long)},
	})

	wantTitle := fmt.Sprintf("%d", time.Now().Year())
	if !strings.Contains(note.Title, wantTitle) {
		t.Errorf("degraded title %q missing current year", note.Title)
	}
	if !strings.Contains(note.Content, msgGenFailed) {
		t.Errorf("degraded body missing failure copy: %q", note.Content[:80])
	}
	// The extracted upload survives as a bounded excerpt.
	if !strings.Contains(note.Content, strings.Repeat("x", degradedExcerptCap)+"...") {
		t.Error("degraded body missing capped raw-text excerpt")
	}
	if strings.Contains(note.Content, strings.Repeat("x", degradedExcerptCap+1)) {
		t.Error("raw-text excerpt not capped")
	}
	if len(note.Quiz) != 0 {
		t.Errorf("degraded note has %d quiz questions", len(note.Quiz))
	}
}

func TestGenerate_EmptyResponseDegrades(t *testing.T) {
	model := &fakeModel{text: "   \n"}
	g := NewGenerator(model, &fakeQuizzer{}, 0)

	note := g.Generate(context.Background(), "topik", nil)
	if !strings.Contains(note.Content, msgGenFailed) {
		t.Errorf("empty response should degrade, got %q", note.Content)
	}
}

func TestGenerate_NoClientUsesConfigMessage(t *testing.T) {
	g := NewGenerator(nil, &fakeQuizzer{}, 0)

	note := g.Generate(context.Background(), "topik", nil)
	if !strings.Contains(note.Content, msgNoAPIKey) {
		t.Errorf("no-key note body = %q", note.Content)
	}
	if len(note.Quiz) != 0 {
		t.Error("no-key note must have an empty quiz")
	}
	if !strings.Contains(note.Title, fmt.Sprintf("%d", time.Now().Year())) {
		t.Errorf("no-key title %q missing current date", note.Title)
	}
}

func TestGenerate_SourceHandling(t *testing.T) {
	model := &fakeModel{text: "JUDUL: T\nisi"}
	g := NewGenerator(model, &fakeQuizzer{}, 0)

	png := []byte{0x89, 'P', 'N', 'G'}
	note := g.Generate(context.Background(), "", []Source{
		{Name: "diagram.png", MIME: "image/png", Data: png},
		{Name: "catatan.txt", MIME: "text/plain", Data: []byte("materi teks")},
	})

	// Image travels as an inline blob ahead of the prompt text.
	parts := model.lastContents[0].Parts
	if parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "image/png" {
		t.Errorf("parts[0] should be the image blob: %+v", parts[0])
	}
	if !strings.Contains(parts[len(parts)-1].Text, "materi teks") {
		t.Error("extracted text missing from prompt")
	}

	// Sources round-trip onto the note, order preserved.
	if len(note.SourceBlobs) != 2 || len(note.SourceNames) != 2 {
		t.Fatalf("sources = %d blobs, %d names", len(note.SourceBlobs), len(note.SourceNames))
	}
	if note.SourceNames[0] != "diagram.png" || note.SourceNames[1] != "catatan.txt" {
		t.Errorf("source names = %v", note.SourceNames)
	}
}

func TestDateTitle(t *testing.T) {
	ts := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	if got := dateTitle(ts); got != "Catatan 30 Agustus 2026" {
		t.Errorf("dateTitle = %q", got)
	}
}

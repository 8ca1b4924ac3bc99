package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/00668901/pintar-ai/internal/notes"
	"github.com/00668901/pintar-ai/internal/quiz"
	"github.com/00668901/pintar-ai/internal/storage"
)

const timeFormat = time.RFC3339

type sourcePayload struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type createNoteRequest struct {
	Topic   string          `json:"topic"`
	Sources []sourcePayload `json:"sources"`
}

// handleCreateNote runs the two-phase note workflow over the uploaded
// sources and persists the result. Generation never fails the request; a
// degraded note comes back 200 like any other.
func handleCreateNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req createNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Topic == "" && len(req.Sources) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "topic or sources required")
			return
		}

		sources := make([]notes.Source, 0, len(req.Sources))
		for _, s := range req.Sources {
			data, err := base64.StdEncoding.DecodeString(s.Data)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "source %q is not valid base64", s.Name)
				return
			}
			sources = append(sources, notes.Source{Name: s.Name, MIME: s.MIMEType, Data: data})
		}

		note := deps.Notes.Generate(r.Context(), req.Topic, sources)
		if err := deps.Store.SaveNote(note); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save note: %v", err)
			return
		}
		writeJSON(w, note)
	}
}

type noteSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	QuizCount int    `json:"quizCount"`
	CreatedAt string `json:"createdAt"`
}

// handleListNotes lists notes newest first. With ?q= it instead returns
// fuzzy matches on the title plus substring matches on the content, best
// title matches first.
func handleListNotes(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := deps.Store.ListNotes()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list notes: %v", err)
			return
		}

		if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
			all = searchNotes(all, q)
		}

		summaries := make([]noteSummary, len(all))
		for i, n := range all {
			summaries[i] = noteSummary{
				ID:        n.ID,
				Title:     n.Title,
				QuizCount: len(n.Quiz),
				CreatedAt: n.CreatedAt.UTC().Format(timeFormat),
			}
		}
		writeJSON(w, summaries)
	}
}

// searchNotes ranks title matches by fuzzy distance, then appends notes
// whose content contains the query verbatim (case-insensitive).
func searchNotes(all []notes.Note, q string) []notes.Note {
	titles := make([]string, len(all))
	for i, n := range all {
		titles[i] = n.Title
	}

	ranks := fuzzy.RankFindNormalizedFold(q, titles)
	sort.Sort(ranks)

	seen := make(map[int]bool, len(ranks))
	matched := make([]notes.Note, 0, len(ranks))
	for _, rank := range ranks {
		matched = append(matched, all[rank.OriginalIndex])
		seen[rank.OriginalIndex] = true
	}

	lower := strings.ToLower(q)
	for i, n := range all {
		if !seen[i] && strings.Contains(strings.ToLower(n.Content), lower) {
			matched = append(matched, n)
		}
	}
	return matched
}

func handleGetNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		note, err := deps.Store.GetNote(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get note: %v", err)
			return
		}
		writeJSON(w, note)
	}
}

type updateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// handleUpdateNote applies user edits. Only the provided fields change; the
// quiz and sources stay as generated.
func handleUpdateNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req updateNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		note, err := deps.Store.GetNote(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get note: %v", err)
			return
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				title = notes.PlaceholderTitle
			}
			note.Title = title
		}
		if req.Content != nil {
			note.Content = *req.Content
		}

		if err := deps.Store.SaveNote(note); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save note: %v", err)
			return
		}
		writeJSON(w, note)
	}
}

func handleDeleteNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteNote(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete note: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

// handleRegenerateQuiz rebuilds the quiz from the note's current content and
// replaces the stored one. A generation failure yields an empty quiz, not an
// error.
func handleRegenerateQuiz(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		note, err := deps.Store.GetNote(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get note: %v", err)
			return
		}

		note.Quiz = deps.Quiz.Generate(r.Context(), note.Content)
		if err := deps.Store.SaveNote(note); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save note: %v", err)
			return
		}
		writeJSON(w, note)
	}
}

type scoreRequest struct {
	NoteID  string         `json:"noteId"`
	Answers map[int]string `json:"answers"` // question index -> chosen option
}

type scoreResponse struct {
	Score          int `json:"score"`
	MultipleChoice int `json:"multipleChoice"`
	TotalQuestions int `json:"totalQuestions"`
}

// handleScoreQuiz grades submitted answers against the note's stored quiz.
func handleScoreQuiz(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		note, err := deps.Store.GetNote(req.NoteID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get note: %v", err)
			return
		}

		mc := 0
		for _, question := range note.Quiz {
			if question.Kind == quiz.MultipleChoice {
				mc++
			}
		}
		writeJSON(w, scoreResponse{
			Score:          quiz.Score(note.Quiz, req.Answers),
			MultipleChoice: mc,
			TotalQuestions: len(note.Quiz),
		})
	}
}

// Package api exposes the app over a local HTTP API and an MCP server.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/00668901/pintar-ai/internal/chat"
	"github.com/00668901/pintar-ai/internal/notes"
	"github.com/00668901/pintar-ai/internal/quiz"
	"github.com/00668901/pintar-ai/internal/storage"
)

const maxRequestBodySize = 25 << 20 // 25MB, attachments arrive base64-inline

// Deps holds the wired services the HTTP layer dispatches to.
type Deps struct {
	Store *storage.Store
	Chat  *chat.Service
	Notes *notes.Generator
	Quiz  *quiz.Engine
	Token string

	// AIReady reports whether a model client is configured. The app runs
	// without one; generation endpoints then return degraded results.
	AIReady bool
}

// NewHandler returns the app's HTTP API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/v1/chat", handleChat(deps))
		r.Get("/v1/sessions", handleListSessions(deps))
		r.Get("/v1/sessions/{id}", handleGetSession(deps))
		r.Delete("/v1/sessions/{id}", handleDeleteSession(deps))

		r.Post("/v1/notes", handleCreateNote(deps))
		r.Get("/v1/notes", handleListNotes(deps))
		r.Get("/v1/notes/{id}", handleGetNote(deps))
		r.Put("/v1/notes/{id}", handleUpdateNote(deps))
		r.Delete("/v1/notes/{id}", handleDeleteNote(deps))
		r.Post("/v1/notes/{id}/quiz", handleRegenerateQuiz(deps))

		r.Post("/v1/quiz/score", handleScoreQuiz(deps))
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ai := "disabled"
		if deps.AIReady {
			ai = "ready"
		}
		writeJSON(w, map[string]string{"status": "ok", "ai": ai})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

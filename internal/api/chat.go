package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/00668901/pintar-ai/internal/chat"
	"github.com/00668901/pintar-ai/internal/genai"
	"github.com/00668901/pintar-ai/internal/persona"
	"github.com/00668901/pintar-ai/internal/storage"
)

type chatRequest struct {
	SessionID   string       `json:"sessionId"`
	Mode        string       `json:"mode"`
	Text        string       `json:"text"`
	Attachments []genai.Blob `json:"attachments"`
}

// chatDone is the terminal SSE event, sent after all deltas.
type chatDone struct {
	Done      bool         `json:"done"`
	SessionID string       `json:"sessionId"`
	Title     string       `json:"title"`
	Message   chat.Message `json:"message"`
}

// handleChat runs one chat turn and streams the reply as SSE. Each delta is
// one `data: {"delta":...}` event; the stream ends with a done event that
// carries the persisted message and session identity.
func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		mode := persona.Mode(req.Mode)
		if req.Mode == "" {
			mode = persona.ModeGeneral
		}
		if !mode.Valid() {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown mode %q", req.Mode)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		onDelta := func(delta string) {
			writeSSE(w, flusher, map[string]string{"delta": delta})
		}

		res, err := deps.Chat.Send(r.Context(), chat.TurnRequest{
			SessionID:   req.SessionID,
			Mode:        mode,
			Text:        req.Text,
			Attachments: req.Attachments,
		}, onDelta)
		switch {
		case errors.Is(err, chat.ErrEmptyTurn):
			// Headers are not committed yet when the turn is empty: the
			// service rejects before streaming starts.
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text or attachments required")
			return
		case errors.Is(err, chat.ErrBusy):
			httpError(w, http.StatusConflict, "conflict", "session already has a response in flight")
			return
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "chat turn failed: %v", err)
			return
		}

		writeSSE(w, flusher, chatDone{
			Done:      true,
			SessionID: res.Session.ID,
			Title:     res.Session.Title,
			Message:   res.Message,
		})
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding sse event", "error", err)
		return
	}
	w.Write([]byte("data: "))
	w.Write(b)
	w.Write([]byte("\n\n"))
	flusher.Flush()
}

type sessionSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	LastModified string `json:"lastModified"`
	MessageCount int    `json:"messageCount"`
}

func handleListSessions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := deps.Store.ListSessions()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list sessions: %v", err)
			return
		}

		summaries := make([]sessionSummary, len(sessions))
		for i, s := range sessions {
			summaries[i] = sessionSummary{
				ID:           s.ID,
				Title:        s.Title,
				LastModified: s.LastModified.UTC().Format(timeFormat),
				MessageCount: len(s.Messages),
			}
		}
		writeJSON(w, summaries)
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := deps.Store.GetSession(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get session: %v", err)
			return
		}
		writeJSON(w, session)
	}
}

func handleDeleteSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteSession(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete session: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

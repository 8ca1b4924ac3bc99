package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/00668901/pintar-ai/internal/genai"
	"github.com/00668901/pintar-ai/internal/persona"
	"github.com/00668901/pintar-ai/internal/stream"
)

// User-facing copy substituted for model output on failure. These are data,
// not errors: a chat turn always completes with a renderable message.
const (
	msgNoAPIKey   = "Kunci API belum diatur. Buka Pengaturan lalu masukkan kunci API untuk mulai mengobrol."
	msgInvalidKey = "Kunci API tidak valid. Periksa kembali kunci API di Pengaturan."
	msgTransport  = "Maaf, terjadi gangguan saat menghubungi server. Coba lagi beberapa saat lagi."
)

// ErrBusy is returned when a send is attempted on a session that already
// has one in flight. The gate is held for the whole duration of a turn.
var ErrBusy = errors.New("chat: send already in progress for this session")

// ErrEmptyTurn is returned when both text and attachments are empty. The
// caller must treat this as a no-op, not a failure.
var ErrEmptyTurn = errors.New("chat: empty turn")

// SessionStore is the persistence slice the service needs.
type SessionStore interface {
	GetSession(id string) (Session, error)
	SaveSession(s Session) error
}

// TurnRequest is one user send.
type TurnRequest struct {
	SessionID   string // empty starts a fresh session
	Mode        persona.Mode
	Text        string
	Attachments []genai.Blob
}

// TurnResult is the completed turn: the updated session and the finalized
// model message.
type TurnResult struct {
	Session Session
	Message Message
}

// Service runs chat turns. client may be nil (feature disabled); every
// failure past the gate is encoded into the model message, never raised.
type Service struct {
	client *genai.Client
	store  SessionStore

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewService creates a chat service.
func NewService(client *genai.Client, store SessionStore) *Service {
	return &Service{
		client:   client,
		store:    store,
		inFlight: make(map[string]struct{}),
	}
}

// Send runs one turn. onDelta receives each streamed text delta in arrival
// order and may be nil. Returned errors are limited to the busy gate, the
// empty-turn no-op, and persistence failures; model-side trouble degrades
// into the message text instead.
func (s *Service) Send(ctx context.Context, req TurnRequest, onDelta func(string)) (TurnResult, error) {
	session, err := s.loadOrCreate(req)
	if err != nil {
		return TurnResult{}, err
	}

	contents := persona.BuildContents(historyTurns(session.Messages), req.Text, req.Attachments)
	if contents == nil {
		return TurnResult{}, ErrEmptyTurn
	}

	if !s.acquire(session.ID) {
		return TurnResult{}, ErrBusy
	}
	defer s.release(session.ID)

	now := time.Now().UTC()
	session.Messages = append(session.Messages, Message{
		ID:          uuid.New().String(),
		Role:        "user",
		Text:        req.Text,
		Attachments: req.Attachments,
		Timestamp:   now,
	})

	reply := s.generateReply(ctx, req.Mode, contents, onDelta)
	session.Messages = append(session.Messages, reply)
	session.LastModified = reply.Timestamp

	if err := s.store.SaveSession(session); err != nil {
		return TurnResult{}, fmt.Errorf("saving session: %w", err)
	}
	return TurnResult{Session: session, Message: reply}, nil
}

// generateReply produces the model message for an already-validated turn.
// It never fails: configuration and transport problems become localized
// message text.
func (s *Service) generateReply(ctx context.Context, mode persona.Mode, contents []genai.Content, onDelta func(string)) Message {
	msg := Message{
		ID:        uuid.New().String(),
		Role:      "model",
		Timestamp: time.Now().UTC(),
	}

	if s.client == nil {
		msg.Text = msgNoAPIKey
		if onDelta != nil {
			onDelta(msg.Text)
		}
		return msg
	}

	agg := stream.New(onDelta)
	err := s.client.GenerateStream(ctx, s.client.ChatModel(string(mode)), contents, genai.RequestConfig{
		SystemInstruction: persona.SystemInstruction(mode),
		Temperature:       0.7,
	}, agg.Consume)

	if err != nil {
		agg.Fail(err)
		slog.Warn("chat stream failed", "error", err)
		msg.Text = agg.Text()
		if msg.Text == "" {
			// Nothing arrived: substitute copy so the turn never renders blank.
			if genai.IsInvalidKey(err) {
				msg.Text = msgInvalidKey
			} else {
				msg.Text = msgTransport
			}
			if onDelta != nil {
				onDelta(msg.Text)
			}
		}
		msg.Timestamp = time.Now().UTC()
		return msg
	}

	agg.Finalize()
	msg.Text = agg.Text()
	msg.Usage = agg.Usage()
	msg.Timestamp = time.Now().UTC()
	return msg
}

func (s *Service) loadOrCreate(req TurnRequest) (Session, error) {
	if req.SessionID == "" {
		return Session{
			ID:    uuid.New().String(),
			Title: deriveTitle(req.Text, req.Attachments),
		}, nil
	}
	session, err := s.store.GetSession(req.SessionID)
	if err != nil {
		return Session{}, fmt.Errorf("loading session %s: %w", req.SessionID, err)
	}
	return session, nil
}

func (s *Service) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *Service) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

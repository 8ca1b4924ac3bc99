package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testModels() Models {
	return Models{Fast: "fast-model", Deep: "deep-model"}
}

// candidateJSON builds a minimal generateContent response carrying text and
// optional usage counts.
func candidateJSON(text string, prompt, response int) []byte {
	body := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	if prompt > 0 || response > 0 {
		body["usageMetadata"] = map[string]any{
			"promptTokenCount":     prompt,
			"candidatesTokenCount": response,
			"totalTokenCount":      prompt + response,
		}
	}
	b, _ := json.Marshal(body)
	return b
}

func TestConfigure_NoKey(t *testing.T) {
	if c := Configure("", testModels()); c != nil {
		t.Error("Configure(\"\") returned non-nil client")
	}
}

func TestGenerateOnce(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Write(candidateJSON("Halo!", 12, 7))
	}))
	defer srv.Close()

	c := ConfigureWithBaseURL("test-key", srv.URL, testModels())
	res, err := c.GenerateOnce(context.Background(), "fast-model", []Content{
		{Role: "user", Parts: []Part{{Text: "halo"}}},
	}, RequestConfig{})
	if err != nil {
		t.Fatalf("GenerateOnce: %v", err)
	}

	if gotPath != "/models/fast-model:generateContent" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if res.Text != "Halo!" {
		t.Errorf("text = %q, want %q", res.Text, "Halo!")
	}
	if res.Usage == nil || res.Usage.TotalTokens != 19 {
		t.Errorf("usage = %+v, want total 19", res.Usage)
	}
}

func TestGenerateOnce_ConfigOnWire(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write(candidateJSON("{}", 0, 0))
	}))
	defer srv.Close()

	c := ConfigureWithBaseURL("k", srv.URL, testModels())
	_, err := c.GenerateOnce(context.Background(), "fast-model", []Content{
		{Role: "user", Parts: []Part{{Text: "soal"}}},
	}, RequestConfig{
		SystemInstruction: "jawab singkat",
		Temperature:       0.4,
		MaxOutputTokens:   8192,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		t.Fatalf("GenerateOnce: %v", err)
	}

	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "jawab singkat" {
		t.Errorf("systemInstruction not sent: %+v", got.SystemInstruction)
	}
	if got.GenerationConfig == nil {
		t.Fatal("generationConfig not sent")
	}
	if got.GenerationConfig.MaxOutputTokens != 8192 {
		t.Errorf("maxOutputTokens = %d", got.GenerationConfig.MaxOutputTokens)
	}
	if got.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("responseMimeType = %q", got.GenerationConfig.ResponseMIMEType)
	}
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", candidateJSON("Foto", 0, 0))
		fmt.Fprintf(w, "data: %s\n\n", candidateJSON("sintesis", 5, 3))
	}))
	defer srv.Close()

	c := ConfigureWithBaseURL("k", srv.URL, testModels())

	var deltas []string
	var lastUsage *Usage
	err := c.GenerateStream(context.Background(), "fast-model", []Content{
		{Role: "user", Parts: []Part{{Text: "jelaskan"}}},
	}, RequestConfig{}, func(ch Chunk) {
		deltas = append(deltas, ch.TextDelta)
		if ch.Usage != nil {
			lastUsage = ch.Usage
		}
	})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	if len(deltas) != 2 || deltas[0] != "Foto" || deltas[1] != "sintesis" {
		t.Errorf("deltas = %v", deltas)
	}
	if lastUsage == nil || lastUsage.TotalTokens != 8 {
		t.Errorf("usage = %+v, want total 8", lastUsage)
	}
}

func TestGenerateStream_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := ConfigureWithBaseURL("bad-key", srv.URL, testModels())
	err := c.GenerateStream(context.Background(), "fast-model", []Content{
		{Role: "user", Parts: []Part{{Text: "halo"}}},
	}, RequestConfig{}, func(Chunk) {
		t.Error("onChunk invoked for failed request")
	})
	if err == nil {
		t.Fatal("expected error for HTTP 400")
	}
	if !IsInvalidKey(err) {
		t.Errorf("IsInvalidKey(%v) = false, want true", err)
	}
}

func TestChatModel_Tiers(t *testing.T) {
	c := Configure("k", testModels())

	cases := []struct {
		mode string
		want string
	}{
		{"math", "deep-model"},
		{"interactive", "deep-model"},
		{"general", "fast-model"},
		{"summarizer", "fast-model"},
		{"writing", "fast-model"},
		{"", "fast-model"},
	}
	for _, tc := range cases {
		if got := c.ChatModel(tc.mode); got != tc.want {
			t.Errorf("ChatModel(%q) = %q, want %q", tc.mode, got, tc.want)
		}
	}

	if got := c.NoteModel(); got != "fast-model" {
		t.Errorf("NoteModel() = %q, want fast-model", got)
	}
}

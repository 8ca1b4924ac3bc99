package genai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Models names the two model tiers the assistant switches between.
type Models struct {
	Fast string
	Deep string
}

// Client communicates with the hosted generative language API. A nil *Client
// is a valid "feature disabled" state: callers must check Ready-ness via nil
// comparison and substitute user-facing copy instead of calling.
type Client struct {
	apiKey     string
	baseURL    string
	models     Models
	httpClient *http.Client
}

// Configure returns a client for the given API key, or nil when the key is
// empty. The adapter never retries; retry policy belongs to callers.
func Configure(apiKey string, models Models) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		models:  models,
		httpClient: &http.Client{
			// No client-side deadline: long generations and streams run
			// until the transport gives up on its own.
			Timeout: 0,
		},
	}
}

// ConfigureWithBaseURL points the client at a custom base URL (for testing).
func ConfigureWithBaseURL(apiKey, baseURL string, models Models) *Client {
	c := Configure(apiKey, models)
	if c != nil {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// GenerateOnce sends a single request and returns the full response text.
// Calling GenerateOnce twice with the same inputs is NOT idempotent: the
// model may produce different output on each call.
func (c *Client) GenerateOnce(ctx context.Context, model string, contents []Content, cfg RequestConfig) (Result, error) {
	body, err := json.Marshal(buildRequest(contents, cfg))
	if err != nil {
		return Result{}, fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.post(ctx, model, ":generateContent", body)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return Result{}, fmt.Errorf("decoding response: %w", err)
	}

	return Result{
		Text:  joinCandidateText(gr),
		Usage: gr.UsageMetadata.usage(),
	}, nil
}

// GenerateStream sends a streaming request and invokes onChunk for each
// received increment, strictly in arrival order. The final chunk usually
// carries the usage report. A transport or decode error aborts the stream
// and is returned; chunks delivered before the error stand.
func (c *Client) GenerateStream(ctx context.Context, model string, contents []Content, cfg RequestConfig, onChunk func(Chunk)) error {
	body, err := json.Marshal(buildRequest(contents, cfg))
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.post(ctx, model, ":streamGenerateContent?alt=sse", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var gr generateResponse
		if err := json.Unmarshal([]byte(payload), &gr); err != nil {
			return fmt.Errorf("decoding stream chunk: %w", err)
		}
		if gr.Error != nil {
			return fmt.Errorf("api error %s: %s", gr.Error.Status, gr.Error.Message)
		}

		onChunk(Chunk{
			TextDelta: joinCandidateText(gr),
			Usage:     gr.UsageMetadata.usage(),
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, model, suffix string, body []byte) (*http.Response, error) {
	url := fmt.Sprintf("%s/models/%s%s", c.baseURL, model, suffix)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return resp, nil
}

func buildRequest(contents []Content, cfg RequestConfig) generateRequest {
	gr := generateRequest{Contents: contents}
	if cfg.SystemInstruction != "" {
		gr.SystemInstruction = &Content{Parts: []Part{{Text: cfg.SystemInstruction}}}
	}
	if cfg.Temperature != 0 || cfg.MaxOutputTokens != 0 || cfg.ResponseMIMEType != "" || cfg.ResponseSchema != nil {
		gr.GenerationConfig = &generationConfig{
			Temperature:      cfg.Temperature,
			MaxOutputTokens:  cfg.MaxOutputTokens,
			ResponseMIMEType: cfg.ResponseMIMEType,
			ResponseSchema:   cfg.ResponseSchema,
		}
	}
	return gr
}

func joinCandidateText(gr generateResponse) string {
	if len(gr.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// IsInvalidKey reports whether err looks like a rejected API key. The API
// signals this as HTTP 400 with an API_KEY_INVALID detail, so the check is
// by substring on the wrapped response body.
func IsInvalidKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "API_KEY_INVALID") || strings.Contains(msg, "API key not valid")
}

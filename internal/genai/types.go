package genai

// Part is a single piece of content: either text or an inline binary blob.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob is an immutable base64-encoded attachment with its MIME type.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Content is one role-tagged block of a conversation. Role is "user" or
// "model"; the API rejects anything else.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Usage holds token counts reported by the API. Accumulated client-side for
// display only; not authoritative billing.
type Usage struct {
	PromptTokens   int `json:"promptTokens"`
	ResponseTokens int `json:"responseTokens"`
	TotalTokens    int `json:"totalTokens"`
}

// Add accumulates another usage report into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.ResponseTokens += other.ResponseTokens
	u.TotalTokens += other.TotalTokens
}

// RequestConfig carries the per-call generation options. Zero values are
// omitted from the wire request so the API applies its own defaults.
type RequestConfig struct {
	SystemInstruction string
	Temperature       float64
	MaxOutputTokens   int
	ResponseMIMEType  string
	ResponseSchema    any
}

// Result is the outcome of a one-shot generation.
type Result struct {
	Text  string
	Usage *Usage
}

// Chunk is one increment of a streamed generation. Usage is nil except on
// the final chunk, whose report is authoritative for the whole response.
type Chunk struct {
	TextDelta string
	Usage     *Usage
}

// generateRequest mirrors the REST request body.
type generateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   any     `json:"responseSchema,omitempty"`
}

// generateResponse mirrors the REST response body. Only the fields the
// adapter consumes are declared; everything else is ignored.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata"`
	Error         *apiError      `json:"error"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func (m *usageMetadata) usage() *Usage {
	if m == nil {
		return nil
	}
	return &Usage{
		PromptTokens:   m.PromptTokenCount,
		ResponseTokens: m.CandidatesTokenCount,
		TotalTokens:    m.TotalTokenCount,
	}
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

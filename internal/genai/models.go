package genai

// Default model tiers. Both are overridable via config.
const (
	DefaultFastModel = "gemini-2.0-flash"
	DefaultDeepModel = "gemini-2.5-pro"
)

// ChatModel selects the tier for a chat turn. The math and interactive-tutor
// personas need multi-step reasoning and get the deep model; every other
// persona runs on the fast tier.
func (c *Client) ChatModel(mode string) string {
	switch mode {
	case "math", "interactive":
		return c.models.Deep
	default:
		return c.models.Fast
	}
}

// NoteModel selects the tier for note content generation. Always the fast
// tier: note quality is carried by prompt detail plus a raised output-token
// ceiling, and the quiz is generated in a separate second call.
func (c *Client) NoteModel() string {
	return c.models.Fast
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/00668901/pintar-ai/internal/notes"
	"github.com/00668901/pintar-ai/internal/quiz"
	"github.com/00668901/pintar-ai/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store *storage.Store
	Notes *notes.Generator
	Quiz  *quiz.Engine
}

// NewMCPServer creates an MCP server exposing the note library and quiz
// workflow to MCP clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"pintar",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("Pintar AI — local study assistant: generated notes, quizzes, and chat history."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_notes",
			mcp.WithDescription("Search stored study notes by title or content and return matching summaries."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpSearchNotes(deps),
	)

	s.AddTool(
		mcp.NewTool("get_note",
			mcp.WithDescription("Fetch one study note in full, including its quiz."),
			mcp.WithString("id", mcp.Description("Note ID"), mcp.Required()),
		),
		mcpGetNote(deps),
	)

	s.AddTool(
		mcp.NewTool("create_note",
			mcp.WithDescription("Generate a new study note (content plus quiz) from the given text material."),
			mcp.WithString("topic", mcp.Description("Optional topic hint for the note")),
			mcp.WithString("material", mcp.Description("Source text to study"), mcp.Required()),
		),
		mcpCreateNote(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_quiz",
			mcp.WithDescription("Regenerate the quiz for an existing note from its current content."),
			mcp.WithString("id", mcp.Description("Note ID"), mcp.Required()),
		),
		mcpGenerateQuiz(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"notes://recent",
			"Recent Notes",
			mcp.WithResourceDescription("The 10 most recent study notes (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecentNotes(deps),
	)

	return s
}

func mcpSearchNotes(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		all, err := deps.Store.ListNotes()
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		matched := searchNotes(all, query)
		if len(matched) > limit {
			matched = matched[:limit]
		}
		if len(matched) == 0 {
			return mcpText("[]"), nil
		}

		type result struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Excerpt   string `json:"excerpt"`
			QuizCount int    `json:"quiz_count"`
			CreatedAt string `json:"created_at"`
		}
		results := make([]result, len(matched))
		for i, n := range matched {
			results[i] = result{
				ID:        n.ID,
				Title:     n.Title,
				Excerpt:   truncateRunes(n.Content, 200),
				QuizCount: len(n.Quiz),
				CreatedAt: n.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		note, err := deps.Store.GetNote(id)
		if err != nil {
			return mcpError(fmt.Sprintf("note %s not found", id)), nil
		}

		// Source blobs can be megabytes of base64; MCP clients want the
		// study content, not the uploads.
		note.SourceBlobs = nil

		b, err := json.Marshal(note)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal note: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCreateNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		material, err := req.RequireString("material")
		if err != nil {
			return mcpError("material is required"), nil
		}
		topic := req.GetString("topic", "")

		note := deps.Notes.Generate(ctx, topic, []notes.Source{
			{Name: "material.txt", MIME: "text/plain", Data: []byte(material)},
		})
		if err := deps.Store.SaveNote(note); err != nil {
			return mcpError(fmt.Sprintf("failed to save note: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Created note %s: %s (%d quiz questions)", note.ID, note.Title, len(note.Quiz))), nil
	}
}

func mcpGenerateQuiz(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		note, err := deps.Store.GetNote(id)
		if err != nil {
			return mcpError(fmt.Sprintf("note %s not found", id)), nil
		}

		note.Quiz = deps.Quiz.Generate(ctx, note.Content)
		if err := deps.Store.SaveNote(note); err != nil {
			return mcpError(fmt.Sprintf("quiz generated but failed to save: %v", err)), nil
		}

		b, err := json.Marshal(note.Quiz)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal quiz: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecentNotes(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		all, err := deps.Store.ListNotes()
		if err != nil {
			return nil, fmt.Errorf("failed to list notes: %w", err)
		}
		if len(all) > 10 {
			all = all[:10]
		}

		type summary struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			CreatedAt string `json:"created_at"`
		}
		summaries := make([]summary, len(all))
		for i, n := range all {
			summaries[i] = summary{
				ID:        n.ID,
				Title:     n.Title,
				CreatedAt: n.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notes: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/00668901/pintar-ai/internal/config"
)

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		if key == "genai.api_key" {
			printSuccess("Set %s", key)
		} else {
			printSuccess("Set %s = %s", key, value)
		}
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value (revert to default)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

// --- notes ---

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage generated study notes",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("search")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/v1/notes"
		if query != "" {
			path += "?q=" + url.QueryEscape(query)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		resp, err := client.get(ctx, path)
		if err != nil {
			return err
		}

		var summaries []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			QuizCount int    `json:"quizCount"`
			CreatedAt string `json:"createdAt"`
		}
		if err := decodeJSON(resp, &summaries); err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Println("Belum ada catatan.")
			return nil
		}
		for _, s := range summaries {
			fmt.Printf("%s  %s  %s (%d soal kuis)\n",
				colorize(colorCyan, s.ID[:8]),
				s.CreatedAt,
				s.Title,
				s.QuizCount,
			)
		}
		return nil
	},
}

var notesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single note as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		resp, err := client.get(ctx, "/v1/notes/"+args[0])
		if err != nil {
			return err
		}

		var note any
		if err := decodeJSON(resp, &note); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(note)
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		resp, err := client.delete(ctx, "/v1/notes/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Deleted note %s", args[0])
		return nil
	},
}

var notesCreateCmd = &cobra.Command{
	Use:   "create [file...]",
	Short: "Generate a note (content + quiz) from files or text",
	Long: `Generate a study note from source material.

Examples:
  pintar notes create bab1.pdf
  pintar notes create --topic "Fotosintesis" bab1.pdf gambar.png
  pintar notes create --text "Fotosintesis adalah proses..."`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		text, _ := cmd.Flags().GetString("text")

		if text == "" && len(args) == 0 {
			return fmt.Errorf("provide source files or --text")
		}

		type sourcePayload struct {
			Name     string `json:"name"`
			MIMEType string `json:"mimeType"`
			Data     string `json:"data"`
		}
		var sources []sourcePayload
		if text != "" {
			sources = append(sources, sourcePayload{
				Name:     "materi.txt",
				MIMEType: "text/plain",
				Data:     base64.StdEncoding.EncodeToString([]byte(text)),
			})
		}
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			mimeType := mime.TypeByExtension(filepath.Ext(path))
			if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
				mimeType = mimeType[:idx]
			}
			sources = append(sources, sourcePayload{
				Name:     filepath.Base(path),
				MIMEType: mimeType,
				Data:     base64.StdEncoding.EncodeToString(data),
			})
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Generating note...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		resp, err := client.post(ctx, "/v1/notes", map[string]any{
			"topic":   topic,
			"sources": sources,
		})
		if err != nil {
			return err
		}

		var note struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Quiz  []any  `json:"quiz"`
		}
		if err := decodeJSON(resp, &note); err != nil {
			return err
		}
		printSuccess("Created note %s: %s (%d soal kuis)", note.ID[:8], note.Title, len(note.Quiz))
		return nil
	},
}

func init() {
	notesListCmd.Flags().String("search", "", "filter notes by title or content")
	notesCreateCmd.Flags().String("topic", "", "topic hint for the note")
	notesCreateCmd.Flags().String("text", "", "inline text material")
	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesShowCmd)
	notesCmd.AddCommand(notesDeleteCmd)
	notesCmd.AddCommand(notesCreateCmd)
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant and stream the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		session, err := streamChat(ctx, client, sessionID, mode, strings.Join(args, " "), os.Stdout)
		if err != nil {
			return err
		}

		fmt.Println()
		printStatus("Session", "%s", session)
		return nil
	},
}

// streamChat posts a turn and copies delta events to out as they arrive.
// Returns the session ID from the terminating done event.
func streamChat(ctx context.Context, client *apiClient, sessionID, mode, text string, out io.Writer) (string, error) {
	resp, err := client.post(ctx, "/v1/chat", map[string]any{
		"sessionId": sessionID,
		"mode":      mode,
		"text":      text,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("server: %s", apiErr.Error.Message)
		}
		return "", fmt.Errorf("server returned %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}

		var event struct {
			Delta     string `json:"delta"`
			Done      bool   `json:"done"`
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}
		if event.Done {
			return event.SessionID, nil
		}
		fmt.Fprint(out, event.Delta)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("stream ended without a done event")
}

func init() {
	askCmd.Flags().String("mode", "general", "persona mode: general, math, interactive, summarizer, writing")
	askCmd.Flags().String("session", "", "continue an existing session by ID")
}

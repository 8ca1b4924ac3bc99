package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/00668901/pintar-ai/internal/api"
	"github.com/00668901/pintar-ai/internal/chat"
	"github.com/00668901/pintar-ai/internal/config"
	"github.com/00668901/pintar-ai/internal/genai"
	"github.com/00668901/pintar-ai/internal/notes"
	"github.com/00668901/pintar-ai/internal/quiz"
	"github.com/00668901/pintar-ai/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Pintar AI server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "pintar.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "pintar version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	apiToken, err := config.GetAPIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	// Refuse to start twice. The health endpoint is the authority; the PID
	// file just names the culprit.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("pintar is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("pintar is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Configure the model client. A missing key is not fatal: the app runs
	// with AI features disabled until a key is added.
	client := genai.Configure(cfg.GenAI.APIKey, genai.Models{
		Fast: cfg.GenAI.FastModel,
		Deep: cfg.GenAI.DeepModel,
	})
	if client == nil {
		slog.Warn("no API key configured, AI features disabled",
			"hint", "pintar config set genai.api_key <key>")
	} else {
		slog.Info("model client ready",
			"fast_model", cfg.GenAI.FastModel, "deep_model", cfg.GenAI.DeepModel)
	}

	quizEngine, noteGen, chatSvc := buildServices(client, store, cfg.GenAI.MaxNoteTokens)

	handler := api.NewHandler(api.Deps{
		Store:   store,
		Chat:    chatSvc,
		Notes:   noteGen,
		Quiz:    quizEngine,
		Token:   apiToken,
		AIReady: client != nil,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store: store,
		Notes: noteGen,
		Quiz:  quizEngine,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()

	// SSE transport on the dedicated MCP port for hosts that speak HTTP.
	mcpAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.MCPPort)
	sseSrv := server.NewSSEServer(mcpSrv)
	go func() {
		if err := sseSrv.Start(mcpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("MCP SSE server error", "error", err)
		}
	}()
	slog.Info("MCP server started", "transports", "stdio,sse", "sse_addr", mcpAddr)

	// Start HTTP server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "pintar listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sseSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("MCP SSE shutdown", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}

// buildServices wires the generation stack. A nil *genai.Client must stay a
// nil interface inside the services, otherwise their disabled checks never
// fire.
func buildServices(client *genai.Client, store *storage.Store, maxNoteTokens int) (*quiz.Engine, *notes.Generator, *chat.Service) {
	var quizEngine *quiz.Engine
	var noteGen *notes.Generator
	if client == nil {
		quizEngine = quiz.NewEngine(nil)
		noteGen = notes.NewGenerator(nil, quizEngine, maxNoteTokens)
	} else {
		quizEngine = quiz.NewEngine(client)
		noteGen = notes.NewGenerator(client, quizEngine, maxNoteTokens)
	}
	return quizEngine, noteGen, chat.NewService(client, store)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("pintar is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop pintar (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to pintar (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	serverUp := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		defer resp.Body.Close()
		if resp.StatusCode == 200 {
			serverUp = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if cfg.GenAI.APIKey == "" {
		printStatus("AI", "disabled (no API key)")
	} else {
		printStatus("AI", "configured")
	}
	printStatus("Fast model", "%s", cfg.GenAI.FastModel)
	printStatus("Deep model", "%s", cfg.GenAI.DeepModel)

	// Show library counts if the server is running.
	if serverUp {
		if apiClient, err := newAPIClient(); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			var noteList []struct {
				ID string `json:"id"`
			}
			if resp, err := apiClient.get(ctx, "/v1/notes"); err == nil {
				if decodeJSON(resp, &noteList) == nil {
					printStatus("Notes", "%d", len(noteList))
				}
			}
			var sessionList []struct {
				ID string `json:"id"`
			}
			if resp, err := apiClient.get(ctx, "/v1/sessions"); err == nil {
				if decodeJSON(resp, &sessionList) == nil {
					printStatus("Sessions", "%d", len(sessionList))
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

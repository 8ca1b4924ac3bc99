package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mapBackend is an in-memory ConfigBackend for tests.
type mapBackend map[string]any

func (m mapBackend) GetString(key string) (string, bool, error) {
	v, ok := m[key]
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (m mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := m[key]
	if !ok {
		return 0, false, nil
	}
	return v.(int), true, nil
}

func (m mapBackend) SetString(key, val string) error  { m[key] = val; return nil }
func (m mapBackend) SetInt(key string, val int) error { m[key] = val; return nil }
func (m mapBackend) Delete(key string) error          { delete(m, key); return nil }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
	t.Setenv("GEMINI_API_KEY", "")
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 4800 {
		t.Errorf("Server.Port = %d, want 4800", cfg.Server.Port)
	}
	if cfg.Server.MCPPort != 4801 {
		t.Errorf("Server.MCPPort = %d, want 4801", cfg.Server.MCPPort)
	}
	if cfg.GenAI.FastModel != "gemini-2.0-flash" {
		t.Errorf("GenAI.FastModel = %q", cfg.GenAI.FastModel)
	}
	if cfg.GenAI.DeepModel != "gemini-2.5-pro" {
		t.Errorf("GenAI.DeepModel = %q", cfg.GenAI.DeepModel)
	}
	if cfg.GenAI.MaxNoteTokens != 65536 {
		t.Errorf("GenAI.MaxNoteTokens = %d", cfg.GenAI.MaxNoteTokens)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

// TestMissingAPIKeyIsNotAnError: the app must start without a key and run
// with AI features disabled.
func TestMissingAPIKeyIsNotAnError(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{})
	if err != nil {
		t.Fatalf("loadWith with no key: %v", err)
	}
	if cfg.GenAI.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.GenAI.APIKey)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := mapBackend{
		"server.port":           5000,
		"genai.api_key":         "file-key",
		"genai.fast_model":      "custom-fast",
		"genai.max_note_tokens": 1024,
		"storage.data_dir":      "/tmp/pintar-test",
	}
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.GenAI.APIKey != "file-key" {
		t.Errorf("APIKey = %q", cfg.GenAI.APIKey)
	}
	if cfg.GenAI.FastModel != "custom-fast" {
		t.Errorf("FastModel = %q", cfg.GenAI.FastModel)
	}
	if cfg.GenAI.MaxNoteTokens != 1024 {
		t.Errorf("MaxNoteTokens = %d", cfg.GenAI.MaxNoteTokens)
	}
	if cfg.Storage.DataDir != "/tmp/pintar-test" {
		t.Errorf("DataDir = %q", cfg.Storage.DataDir)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("PINTAR_GENAI_API_KEY", "env-key")
	t.Setenv("PINTAR_SERVER_PORT", "6000")

	cfg, err := loadWith(mapBackend{"genai.api_key": "file-key", "server.port": 5000})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.GenAI.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.GenAI.APIKey)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
}

func TestLegacyGeminiEnvFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "legacy-key")

	cfg, err := loadWith(mapBackend{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.GenAI.APIKey != "legacy-key" {
		t.Errorf("APIKey = %q, want legacy-key", cfg.GenAI.APIKey)
	}

	// The file backend still wins over the legacy env.
	cfg, err = loadWith(mapBackend{"genai.api_key": "file-key"})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.GenAI.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file-key", cfg.GenAI.APIKey)
	}
}

func TestShowAllRedactsSecret(t *testing.T) {
	cfg := defaults()
	cfg.GenAI.APIKey = "super-secret"

	for _, info := range ShowAll(cfg) {
		if info.Key == "genai.api_key" {
			if info.Value != "(set)" {
				t.Errorf("api_key shown as %q, want (set)", info.Value)
			}
			return
		}
	}
	t.Error("genai.api_key missing from ShowAll")
}

func TestSetKey(t *testing.T) {
	b := mapBackend{}
	if err := setKeyOn(b, "server.port", "7000"); err != nil {
		t.Fatalf("setKeyOn: %v", err)
	}
	if b["server.port"] != 7000 {
		t.Errorf("stored %v, want int 7000", b["server.port"])
	}

	if err := setKeyOn(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyOn(b, "nope.nope", "x"); err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("unknown key error = %v", err)
	}

	// Secrets are settable, the Settings page persists the key this way.
	if err := setKeyOn(b, "genai.api_key", "k"); err != nil {
		t.Errorf("setting api_key: %v", err)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	b := &fileBackend{path: path, data: make(map[string]any)}

	if err := b.SetString("genai.api_key", "k1"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := b.SetInt("server.port", 5001); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %o, want 600", info.Mode().Perm())
	}

	// Reload from disk.
	b2 := &fileBackend{path: path, data: make(map[string]any)}
	b2.load()
	if v, ok, _ := b2.GetString("genai.api_key"); !ok || v != "k1" {
		t.Errorf("GetString = %q, %v", v, ok)
	}
	if v, ok, _ := b2.GetInt("server.port"); !ok || v != 5001 {
		t.Errorf("GetInt = %d, %v", v, ok)
	}
}

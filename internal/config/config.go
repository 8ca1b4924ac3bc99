// Package config loads runtime configuration from a JSON file backend with
// PINTAR_* environment overrides.
package config

import "os"

// embeddedAPIKey can be baked in at build time:
//
//	go build -ldflags "-X github.com/00668901/pintar-ai/internal/config.embeddedAPIKey=..."
//
// It ranks below the config file and environment so users can rotate keys
// without rebuilding.
var embeddedAPIKey string

type Config struct {
	Server  ServerConfig
	GenAI   GenAIConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
}

type GenAIConfig struct {
	APIKey        string
	FastModel     string
	DeepModel     string
	MaxNoteTokens int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4800,
			MCPPort: 4801,
		},
		GenAI: GenAIConfig{
			FastModel:     "gemini-2.0-flash",
			DeepModel:     "gemini-2.5-pro",
			MaxNoteTokens: 65536,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/pintar/config.json, then applies PINTAR_* environment
// overrides.
//
// A missing API key is not an error. The app starts with AI features
// disabled and tells the user to add a key.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.GenAI.APIKey == "" {
		cfg.GenAI.APIKey = embeddedAPIKey
	}
	if cfg.GenAI.APIKey == "" {
		// Legacy name kept for early installs configured before the
		// PINTAR_ prefix existed.
		cfg.GenAI.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return cfg, nil
}

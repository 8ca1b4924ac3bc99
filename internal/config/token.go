package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const tokenKey = "server.api_token"

// GetAPIToken returns the bearer token protecting the local API, generating
// and persisting one on first use. The token lives in the config file, not
// in the key-spec table, so `config show` never prints it.
func GetAPIToken() (string, error) {
	return getAPITokenFrom(newFileBackend())
}

func getAPITokenFrom(b ConfigBackend) (string, error) {
	token, ok, err := b.GetString(tokenKey)
	if err != nil {
		return "", fmt.Errorf("reading api token: %w", err)
	}
	if ok && token != "" {
		return token, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating api token: %w", err)
	}
	token = hex.EncodeToString(buf)
	if err := b.SetString(tokenKey, token); err != nil {
		return "", fmt.Errorf("persisting api token: %w", err)
	}
	return token, nil
}

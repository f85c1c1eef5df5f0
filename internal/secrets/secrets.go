// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files and
// from a .env file. Each file in the directory represents one secret: the
// filename is the key name and the file contents (trimmed) are the value.
// .env entries are mapped to the same key names (OPENAI_API_KEY becomes
// openai-api-key).
//
// Supported keys: openai-api-key.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// OpenAIKey is the key name of the summarizer API key.
const OpenAIKey = "openai-api-key"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadDotEnv reads a .env file and returns its entries under key names.
// A missing file is not an error.
func LoadDotEnv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	secrets := make(map[string]string, len(env))
	for k, v := range env {
		if v = strings.TrimSpace(v); v != "" {
			secrets[KeyName(k)] = v
		}
	}
	return secrets, nil
}

// LoadAll merges the .env file at envPath with the files in dir. Files in
// dir win over .env entries.
func LoadAll(dir, envPath string) (map[string]string, error) {
	secrets, err := LoadDotEnv(envPath)
	if err != nil {
		return nil, err
	}
	files, err := Load(dir)
	if err != nil {
		return nil, err
	}
	for k, v := range files {
		secrets[k] = v
	}
	return secrets, nil
}

// Get returns the secret for key. The environment variable named by
// EnvName(key) overrides the loaded value.
func Get(secrets map[string]string, key string) string {
	if v := strings.TrimSpace(os.Getenv(EnvName(key))); v != "" {
		return v
	}
	return secrets[key]
}

// KeyName maps an environment variable name to a key name:
// OPENAI_API_KEY -> openai-api-key.
func KeyName(env string) string {
	return strings.ReplaceAll(strings.ToLower(env), "_", "-")
}

// EnvName maps a key name to its environment variable name:
// openai-api-key -> OPENAI_API_KEY.
func EnvName(key string) string {
	return strings.ReplaceAll(strings.ToUpper(key), "-", "_")
}

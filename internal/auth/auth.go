// Package auth stores hosted-backend API keys in the OS keychain.
package auth

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const serviceName = "tdocs"

// Source names where a key was found.
const (
	SourceKeychain = "Keychain"
	SourceEnv      = "Environment Variable"
	SourcePrompt   = "Terminal Prompt"
)

type provider struct {
	label   string
	account string
	envVar  string
}

var providers = map[string]provider{
	"gemini": {label: "Gemini", account: "gemini-api-key", envVar: "GEMINI_API_KEY"},
	"openai": {label: "OpenAI", account: "openai-api-key", envVar: "OPENAI_API_KEY"},
}

// lookupEnv is swapped in tests.
var lookupEnv = os.LookupEnv

func providerFor(backend string) (provider, error) {
	p, ok := providers[strings.ToLower(strings.TrimSpace(backend))]
	if !ok {
		return provider{}, fmt.Errorf("invalid service %q: must be 'gemini' or 'openai'", backend)
	}
	return p, nil
}

// Label returns the display name of a backend, or the input when unknown.
func Label(backend string) string {
	if p, err := providerFor(backend); err == nil {
		return p.label
	}
	return backend
}

// EnvVar returns the environment variable a backend key may be read from.
func EnvVar(backend string) string {
	if p, err := providerFor(backend); err == nil {
		return p.envVar
	}
	return ""
}

// GetKey returns the key for backend and where it came from. The keychain is
// tried first; the environment only when allowEnv is set. An empty key means
// none was found.
func GetKey(backend string, allowEnv bool) (string, string) {
	p, err := providerFor(backend)
	if err != nil {
		return "", ""
	}
	if key, err := keyring.Get(serviceName, p.account); err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), SourceKeychain
	}
	if allowEnv {
		if key, ok := GetEnvKey(backend); ok {
			return key, SourceEnv
		}
	}
	return "", ""
}

// GetEnvKey reads the key from the environment only.
func GetEnvKey(backend string) (string, bool) {
	p, err := providerFor(backend)
	if err != nil {
		return "", false
	}
	raw, _ := lookupEnv(p.envVar)
	key := strings.TrimSpace(raw)
	return key, key != ""
}

// SaveKey stores key in the keychain.
func SaveKey(backend, key string) error {
	p, err := providerFor(backend)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key is empty")
	}
	return keyring.Set(serviceName, p.account, key)
}

// DeleteKey removes the keychain entry.
func DeleteKey(backend string) error {
	p, err := providerFor(backend)
	if err != nil {
		return err
	}
	return keyring.Delete(serviceName, p.account)
}

// GetStatus reports whether the keychain holds a key for backend.
func GetStatus(backend string) bool {
	p, err := providerFor(backend)
	if err != nil {
		return false
	}
	key, err := keyring.Get(serviceName, p.account)
	return err == nil && strings.TrimSpace(key) != ""
}

// PromptForAPIKey reads a key from the terminal without echo.
func PromptForAPIKey(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

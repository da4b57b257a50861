// Package config resolves tdocs settings from defaults, the optional
// .tdocs.yaml project file and the environment. Command-line flags are
// applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/invoker"
	"github.com/oukeidos/tdocs/internal/language"
)

// FileName is the project settings file looked up in the project root.
const FileName = ".tdocs.yaml"

const (
	DefaultManifest = "translations/targets.csv"
	DefaultCache    = ".translations.json"
)

// Backend names.
const (
	BackendCommand = "command"
	BackendGemini  = "gemini"
	BackendOpenAI  = "openai"
)

// Environment variables read by ApplyEnv.
const (
	EnvManifest         = "TRANSLATION_CSV"
	EnvCache            = "TRANSLATION_METADATA"
	EnvAllowedLanguages = "TRANSLATION_ALLOWED_LANGUAGES"
	EnvCommand          = "GEMINI_TRANSLATION_CLI"
	EnvBackend          = "TDOCS_BACKEND"
	EnvModel            = "TDOCS_MODEL"
	EnvConcurrency      = "TDOCS_CONCURRENCY"
)

type Invoker struct {
	Backend string   `yaml:"backend" validate:"oneof=command gemini openai"`
	Command []string `yaml:"command,omitempty"`
	Model   string   `yaml:"model,omitempty"`
	TempDir string   `yaml:"temp_dir,omitempty"`
}

type Settings struct {
	Manifest         string   `yaml:"manifest" validate:"required"`
	Cache            string   `yaml:"cache" validate:"required"`
	AllowedLanguages []string `yaml:"allowed_languages" validate:"min=1,dive,required"`
	Concurrency      int      `yaml:"concurrency" validate:"min=1,max=20"`
	Invoker          Invoker  `yaml:"invoker"`
}

var validate = validator.New()

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Manifest:         DefaultManifest,
		Cache:            DefaultCache,
		AllowedLanguages: []string{"en", "ja"},
		Concurrency:      1,
		Invoker: Invoker{
			Backend: BackendCommand,
			Command: append([]string(nil), invoker.DefaultTemplate...),
		},
	}
}

// Load returns the defaults overlaid with root/.tdocs.yaml. found is false
// when the file does not exist.
func Load(root string) (Settings, bool, error) {
	s := Defaults()
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, false, nil
		}
		return s, false, apperrors.Config(fmt.Sprintf("failed to read %s", path), err)
	}
	if err := s.decode(data); err != nil {
		return s, true, apperrors.Config(fmt.Sprintf("invalid %s: %v", path, err), err)
	}
	return s, true, nil
}

func (s *Settings) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays the environment variables that are set and non-empty.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(EnvManifest); ok {
		s.Manifest = v
	}
	if v, ok := get(EnvCache); ok {
		s.Cache = v
	}
	if v, ok := get(EnvAllowedLanguages); ok {
		s.AllowedLanguages = language.SplitList(v)
	}
	if v, ok := get(EnvCommand); ok {
		tmpl, err := invoker.ParseTemplate(v)
		if err != nil {
			return apperrors.Config(fmt.Sprintf("invalid %s: %v", EnvCommand, err), err)
		}
		s.Invoker.Command = tmpl
	}
	if v, ok := get(EnvBackend); ok {
		s.Invoker.Backend = strings.ToLower(v)
	}
	if v, ok := get(EnvModel); ok {
		s.Invoker.Model = v
	}
	if v, ok := get(EnvConcurrency); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.Config(fmt.Sprintf("invalid %s: %q is not a number", EnvConcurrency, v), err)
		}
		s.Concurrency = n
	}
	return nil
}

// Validate checks field bounds and, for the command backend, the template.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return apperrors.Config(fmt.Sprintf("invalid settings: %v", err), err)
	}
	if s.Invoker.Backend == BackendCommand {
		if err := invoker.ValidateTemplate(s.Invoker.Command); err != nil {
			return apperrors.Config(fmt.Sprintf("invalid command template: %v", err), err)
		}
	}
	return nil
}

// AllowedSet returns the allow-list as a set.
func (s Settings) AllowedSet() language.Set {
	return language.NewSet(s.AllowedLanguages...)
}

// ResolvePath joins a relative settings path onto root.
func ResolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, filepath.FromSlash(p))
}

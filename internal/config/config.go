// Package config loads service configuration from config.yaml and the
// environment. These are process-level knobs; the per-user settings
// (project ID, playbook URL) live in storage and are read fresh per request.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Vertex   VertexConfig   `koanf:"vertex"`
	Extract  ExtractConfig  `koanf:"extract"`
	Playbook PlaybookConfig `koanf:"playbook"`
	Storage  StorageConfig  `koanf:"storage"`
	Auth     AuthConfig     `koanf:"auth"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type VertexConfig struct {
	Region string `koanf:"region"`
	Model  string `koanf:"model"`

	// AnalyzeMaxChars and SummarizeMaxChars are the excerpt character
	// budgets for the two operations.
	AnalyzeMaxChars   int `koanf:"analyze_max_chars"`
	SummarizeMaxChars int `koanf:"summarize_max_chars"`
}

type ExtractConfig struct {
	// Strategy selects the extraction strategy: "visible" or "readability".
	Strategy string `koanf:"strategy"`
}

type PlaybookConfig struct {
	// ProblemSelector and SolutionSelector, when both set, enable the
	// CSS-selector rule extractor. Left empty, rule extraction is a no-op.
	ProblemSelector  string `koanf:"problem_selector"`
	SolutionSelector string `koanf:"solution_selector"`
}

type StorageConfig struct {
	Path string `koanf:"path"`
}

type AuthConfig struct {
	// StaticToken bypasses the Google credential flow when set. Meant for
	// local development against a proxy or emulator.
	StaticToken string `koanf:"static_token"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars and defaults.
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("PAGELENS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PAGELENS_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	defaults := map[string]interface{}{
		"server.port":                8080,
		"vertex.region":              "us-central1",
		"vertex.model":               "gemini-2.0-flash",
		"vertex.analyze_max_chars":   8000,
		"vertex.summarize_max_chars": 18000,
		"extract.strategy":           "visible",
		"storage.path":               "./data/pagelens.db",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

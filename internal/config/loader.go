package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"transcriber": {"openai"},
	"structurer":  {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings":  {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Transcription is the one stage Notewisp cannot do without.
	if cfg.Providers.Transcriber.Name == "" {
		errs = append(errs, errors.New("providers.transcriber.name is required"))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("transcriber", cfg.Providers.Transcriber.Name)
	validateProviderName("structurer", cfg.Providers.Structurer.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	// Degraded-mode warnings for optional stages.
	if cfg.Providers.Structurer.Name == "" {
		slog.Warn("no structurer configured; notes will carry the raw transcript without summaries, tags, or diagrams")
	}
	if cfg.Providers.Embeddings.Name == "" {
		slog.Warn("no embeddings provider configured; search falls back to substring matching")
	}

	// Embeddings ↔ storage dimensions
	if cfg.Providers.Embeddings.Name != "" && cfg.Storage.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but storage.embedding_dimensions is not set; defaulting to 1536")
	}

	// Storage availability
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; notes are kept in memory and lost on restart")
	}

	// Cleaner tuning
	if cfg.Cleaner.MaxRepetitions < 0 {
		errs = append(errs, fmt.Errorf("cleaner.max_repetitions %d is negative", cfg.Cleaner.MaxRepetitions))
	}
	if cfg.Cleaner.HallucinationThreshold < 0 || cfg.Cleaner.HallucinationThreshold >= 1 {
		if cfg.Cleaner.HallucinationThreshold != 0 {
			errs = append(errs, fmt.Errorf("cleaner.hallucination_threshold %.2f is out of range (0, 1)", cfg.Cleaner.HallucinationThreshold))
		}
	}

	// Vocabulary duplicate detection (case-insensitive; the corrector matches
	// case-insensitively, so duplicates differing only in case are conflicts).
	termsSeen := make(map[string]int, len(cfg.Vocabulary))
	for i, term := range cfg.Vocabulary {
		key := strings.ToLower(strings.TrimSpace(term))
		if key == "" {
			errs = append(errs, fmt.Errorf("vocabulary[%d] is empty", i))
			continue
		}
		if prev, ok := termsSeen[key]; ok {
			errs = append(errs, fmt.Errorf("vocabulary[%d] %q is a duplicate of vocabulary[%d]", i, term, prev))
		}
		termsSeen[key] = i
	}

	// TLS needs both halves.
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

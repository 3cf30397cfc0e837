package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/ppiankov/qaforge/internal/llm"
	"github.com/ppiankov/qaforge/internal/logging"
	"github.com/ppiankov/qaforge/internal/model"
	"github.com/spf13/viper"
)

// envKeys lists every config key that may come from QAFORGE_* variables.
// AutomaticEnv only resolves keys viper already knows about, so they are
// bound explicitly before unmarshalling.
var envKeys = []string{
	"llm.provider", "llm.model", "llm.api_key", "llm.base_url", "llm.timeout", "llm.max_tokens",
	"llm.http_proxy", "llm.https_proxy", "llm.no_proxy",
	"extract.max_items", "extract.retry_backoff",
	"concurrency.workers",
	"rate_limiting.requests_per_second", "rate_limiting.burst_size",
	"logging.level", "logging.format",
}

// loadConfig layers defaults, config file and environment into a Config
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

// resolveCredentials fills provider credentials from the conventional
// environment variables when the configuration leaves them empty
func resolveCredentials(cfg *model.Config) error {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai", "siliconflow":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OPENAI_BASE_URL")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
	return nil
}

func newProvider(cfg *model.Config) (llm.Provider, error) {
	if err := resolveCredentials(cfg); err != nil {
		return nil, err
	}
	return llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
}

// newLogger builds the run logger with a fresh run id attached
func newLogger(cfg *model.Config, w io.Writer) (*slog.Logger, string, error) {
	level := cfg.Logging.Level
	if verbose && (level == "" || level == "info") {
		level = "debug"
	}

	logger, err := logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		Writer: w,
	})
	if err != nil {
		return nil, "", err
	}

	runID := uuid.NewString()
	return logger.With("run_id", runID), runID, nil
}

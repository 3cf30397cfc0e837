package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/qaforge/internal/llm"
	"github.com/ppiankov/qaforge/internal/model"
	"github.com/spf13/cobra"
)

// serviceCheckTimeout bounds the pre-flight availability check
const serviceCheckTimeout = 15 * time.Second

// generationFlags are shared by the stages that call a generation service
type generationFlags struct {
	output      string
	failures    string
	provider    string
	model       string
	baseURL     string
	maxItems    int
	concurrency int
	rps         float64
	skipCheck   bool
}

func (f *generationFlags) register(cmd *cobra.Command, defaultOutput string) {
	cmd.Flags().StringVarP(&f.output, "output", "o", defaultOutput, "output JSON path")
	cmd.Flags().StringVar(&f.failures, "failures", "", "write records whose units failed to this path (segmenter format)")
	cmd.Flags().StringVar(&f.provider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&f.model, "llm-model", "", "LLM model name")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "generation service base URL (OpenAI-compatible or Ollama)")
	cmd.Flags().IntVar(&f.maxItems, "max-items", 0, "maximum records to process (0 = config default)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "concurrent units (0 = config default)")
	cmd.Flags().Float64Var(&f.rps, "rps", -1, "requests per second to the service (0 = unlimited, -1 = config default)")
	cmd.Flags().BoolVar(&f.skipCheck, "skip-check", false, "skip the service availability check before the batch starts")
}

func (f *generationFlags) apply(cfg *model.Config) {
	if f.provider != "" {
		cfg.LLM.Provider = f.provider
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if f.baseURL != "" {
		cfg.LLM.BaseURL = f.baseURL
	}
	if f.maxItems > 0 {
		cfg.Extract.MaxItems = f.maxItems
	}
	if f.concurrency > 0 {
		cfg.Concurrency.Workers = f.concurrency
	}
	if f.rps >= 0 {
		cfg.RateLimiting.RequestsPerSecond = f.rps
	}
}

// checkService fails fast when the generation service cannot be reached,
// before any record is dispatched
func checkService(ctx context.Context, provider llm.Provider) error {
	ctx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	if !provider.IsAvailable(ctx) {
		return fmt.Errorf("generation service %s is not available (check the API key, --base-url and network, or pass --skip-check)", provider.Name())
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ppiankov/qaforge/internal/pipeline"
	"github.com/ppiankov/qaforge/internal/worker"
	"github.com/spf13/cobra"
)

var triplesFlags generationFlags

// triplesCmd represents the triples command
var triplesCmd = &cobra.Command{
	Use:   "triples <records.json>",
	Short: "Extract knowledge-graph triples from QA records",
	Long: `Triples asks the generation service for (head, relation, tail) triples
for every QA record, recovers JSON from chatty responses, retries failed
units, and keeps only triples that pass the entity quality rules.

Example:
  qaforge triples cleaned_data.json -o kg/knowledge_graph.json
  qaforge triples cleaned_data.json --llm-provider ollama --llm-model qwen2.5:7b
  qaforge triples cleaned_data.json --failures failed.json`,
	Args: cobra.ExactArgs(1),
	RunE: runTriples,
}

func init() {
	triplesFlags.register(triplesCmd, "knowledge_graph.json")
	rootCmd.AddCommand(triplesCmd)
}

func runTriples(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	triplesFlags.apply(cfg)

	records, err := pipeline.ReadRecords(args[0])
	if err != nil {
		return err
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("configure LLM provider: %w", err)
	}

	logger, runID, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !triplesFlags.skipCheck {
		if err := checkService(ctx, provider); err != nil {
			return err
		}
	}

	p := pipeline.NewPipeline(cfg, pipeline.Options{
		Provider: provider,
		Limiter:  worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		Logger:   logger,
		Progress: newProgress(os.Stderr),
		RunID:    runID,
	})

	if verbose {
		fmt.Fprintf(os.Stderr, "Extracting triples from %d records with %s/%s\n", len(records), provider.Name(), cfg.LLM.Model)
	}

	out, err := p.ExtractTriples(ctx, records)
	if err != nil {
		return err
	}

	if err := pipeline.WriteTriples(triplesFlags.output, out.Triples); err != nil {
		return fmt.Errorf("write triples: %w", err)
	}
	if err := writeFailures(triplesFlags.failures, out.Failed); err != nil {
		return err
	}

	printSummary(os.Stderr, p.Summary(), rowsTriples)
	fmt.Fprintf(os.Stderr, "✓ Wrote %d triples: %s\n", len(out.Triples), triplesFlags.output)
	return nil
}

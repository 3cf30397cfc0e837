package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ppiankov/qaforge/internal/model"
	"github.com/ppiankov/qaforge/internal/pipeline"
	"github.com/ppiankov/qaforge/internal/worker"
	"github.com/spf13/cobra"
)

var dialoguesFlags generationFlags

// dialoguesCmd represents the dialogues command
var dialoguesCmd = &cobra.Command{
	Use:   "dialogues <records.json>",
	Short: "Synthesize multi-turn interview dialogues from QA records",
	Long: `Dialogues turns every QA record into one scored mock interview per
configured scenario (by default a strong candidate and a weak one), in the
human/gpt conversation format used for supervised fine-tuning.

Example:
  qaforge dialogues cleaned_data.json -o finetune_data/interview.json
  qaforge dialogues failed.json --failures still_failed.json`,
	Args: cobra.ExactArgs(1),
	RunE: runDialogues,
}

func init() {
	dialoguesFlags.register(dialoguesCmd, "interview_finetune_data.json")
	rootCmd.AddCommand(dialoguesCmd)
}

func runDialogues(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dialoguesFlags.apply(cfg)

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

	if !dialoguesFlags.skipCheck {
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
		fmt.Fprintf(os.Stderr, "Synthesizing dialogues for %d records with %s/%s\n", len(records), provider.Name(), cfg.LLM.Model)
	}

	out, err := p.SynthesizeDialogues(ctx, records)
	if err != nil {
		return err
	}

	if err := pipeline.WriteDialogues(dialoguesFlags.output, out.Dialogues); err != nil {
		return fmt.Errorf("write dialogues: %w", err)
	}
	if err := writeFailures(dialoguesFlags.failures, out.Failed); err != nil {
		return err
	}

	printSummary(os.Stderr, p.Summary(), rowsDialogues)
	fmt.Fprintf(os.Stderr, "✓ Wrote %d dialogues: %s\n", len(out.Dialogues), dialoguesFlags.output)
	return nil
}

// writeFailures saves failed records for a later re-run; no path means skip
func writeFailures(path string, failed []model.QARecord) error {
	if path == "" {
		return nil
	}
	if err := pipeline.WriteRecords(path, failed); err != nil {
		return fmt.Errorf("write failures: %w", err)
	}
	if len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "⚠ %d records failed, saved for re-run: %s\n", len(failed), path)
	}
	return nil
}

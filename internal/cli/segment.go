package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ppiankov/qaforge/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	segmentOut         string
	segmentMaxFiles    int
	segmentMaxRecords  int
	segmentConcurrency int
)

// segmentCmd represents the segment command
var segmentCmd = &cobra.Command{
	Use:   "segment <dir>",
	Short: "Split Markdown notes into QA records",
	Long: `Segment walks a directory of Markdown interview notes and splits each
document into (topic, content) records. Headings always start a record;
short numbered lines start one only outside a heading-opened record; fenced
code is never split.

Example:
  qaforge segment ./notes -o cleaned_data/cleaned_data.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

func init() {
	segmentCmd.Flags().StringVarP(&segmentOut, "output", "o", "cleaned_data.json", "output JSON path")
	segmentCmd.Flags().IntVar(&segmentMaxFiles, "max-files", 0, "maximum documents to read (0 = config default)")
	segmentCmd.Flags().IntVar(&segmentMaxRecords, "max-records", 0, "maximum records kept per document (0 = config default)")
	segmentCmd.Flags().IntVar(&segmentConcurrency, "concurrency", 0, "documents segmented in parallel (0 = config default)")
	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if segmentMaxFiles > 0 {
		cfg.Segment.MaxFiles = segmentMaxFiles
	}
	if segmentMaxRecords > 0 {
		cfg.Segment.MaxRecordsPerDocument = segmentMaxRecords
	}
	if segmentConcurrency > 0 {
		cfg.Concurrency.Workers = segmentConcurrency
	}

	logger, runID, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := pipeline.NewPipeline(cfg, pipeline.Options{
		Logger:   logger,
		Progress: newProgress(os.Stderr),
		RunID:    runID,
	})

	if verbose {
		fmt.Fprintf(os.Stderr, "Segmenting: %s\n", args[0])
	}

	records, err := p.Segment(ctx, args[0])
	if err != nil {
		return fmt.Errorf("segment failed: %w", err)
	}

	if err := pipeline.WriteRecords(segmentOut, records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	printSummary(os.Stderr, p.Summary(), rowsSegment)
	fmt.Fprintf(os.Stderr, "✓ Wrote %d records: %s\n", len(records), segmentOut)
	return nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/qaforge/internal/extract"
	"github.com/ppiankov/qaforge/internal/llm"
	"github.com/ppiankov/qaforge/internal/model"
	"github.com/ppiankov/qaforge/internal/segment"
	"github.com/ppiankov/qaforge/internal/validate"
	"github.com/ppiankov/qaforge/internal/worker"
)

// Progress receives stage progress. Step is called from a single goroutine.
type Progress interface {
	Begin(stage string, total int)
	Step()
	End()
}

type nopProgress struct{}

func (nopProgress) Begin(string, int) {}
func (nopProgress) Step()             {}
func (nopProgress) End()              {}

// Options carries the collaborators of a Pipeline
type Options struct {
	Provider llm.Provider    // required for ExtractTriples and SynthesizeDialogues
	Limiter  extract.Limiter // nil disables rate limiting
	Logger   *slog.Logger
	Progress Progress
	RunID    string
}

// Pipeline drives the three batch stages. Per-document and per-unit
// failures are counted in the summary and never returned.
type Pipeline struct {
	config   *model.Config
	provider llm.Provider
	limiter  extract.Limiter
	logger   *slog.Logger
	progress Progress
	summary  model.RunSummary
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, opts Options) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progress := opts.Progress
	if progress == nil {
		progress = nopProgress{}
	}

	return &Pipeline{
		config:   cfg,
		provider: opts.Provider,
		limiter:  opts.Limiter,
		logger:   logger,
		progress: progress,
		summary: model.RunSummary{
			RunID:     opts.RunID,
			StartedAt: time.Now().UTC(),
		},
	}
}

// Summary returns the counters accumulated so far
func (p *Pipeline) Summary() model.RunSummary {
	s := p.summary
	s.Duration = time.Since(s.StartedAt)
	return s
}

type segmentOutcome struct {
	ran    bool
	result segment.Result
	err    error
}

// Segment reads every document in dir and returns their records in file
// order. Unreadable documents are skipped. Only a missing or unreadable
// directory is an error.
func (p *Pipeline) Segment(ctx context.Context, dir string) ([]model.QARecord, error) {
	logger := p.logger.With("comp", "segment")

	paths, err := segment.ListDocuments(dir, p.config.Segment)
	if err != nil {
		return nil, err
	}

	p.progress.Begin("segment", len(paths))
	outcomes := worker.Map(ctx, p.config.Concurrency.Workers, paths, func(ctx context.Context, path string) segmentOutcome {
		doc, err := segment.ReadDocument(path)
		if err != nil {
			return segmentOutcome{ran: true, err: err}
		}
		return segmentOutcome{ran: true, result: segment.SegmentText(p.config.Segment, doc.OriginID, doc.Text)}
	}, p.progress.Step)
	p.progress.End()

	records := []model.QARecord{}
	for i, out := range outcomes {
		if !out.ran {
			p.summary.DocumentsSkipped++
			continue
		}
		if out.err != nil {
			p.summary.DocumentsSkipped++
			logger.Warn("document skipped", "path", paths[i], "error", out.err)
			continue
		}
		p.summary.DocumentsRead++
		p.summary.RecordsCapped += out.result.Capped
		records = append(records, out.result.Records...)

		logger.Debug("document segmented",
			"path", paths[i],
			"records", len(out.result.Records),
			"invalid", out.result.Invalid,
			"capped", out.result.Capped)
	}
	p.summary.RecordsSegmented += len(records)

	return records, nil
}

// TripleOutput is the result of the triple stage
type TripleOutput struct {
	Triples []model.Triple
	Failed  []model.QARecord // records whose unit exhausted its retries
}

type tripleOutcome struct {
	ran     bool
	triples []model.Triple
	err     error
}

// ExtractTriples runs knowledge-triple extraction over records. Accepted
// triples keep the input record order.
func (p *Pipeline) ExtractTriples(ctx context.Context, records []model.QARecord) (*TripleOutput, error) {
	if p.provider == nil {
		return nil, errors.New("no generation service configured")
	}

	records = limitRecords(records, p.config.Extract.MaxItems)
	orch := p.newOrchestrator()
	task := extract.TripleTask(p.config.Extract)
	validator := validate.NewValidator(p.config.Validate)

	p.progress.Begin("triples", len(records))
	outcomes := worker.Map(ctx, p.config.Concurrency.Workers, records, func(ctx context.Context, rec model.QARecord) tripleOutcome {
		triples, err := extract.Execute(ctx, orch, task, extract.Unit{Record: rec})
		return tripleOutcome{ran: true, triples: triples, err: err}
	}, p.progress.Step)
	p.progress.End()

	out := &TripleOutput{Triples: []model.Triple{}, Failed: []model.QARecord{}}
	for i, o := range outcomes {
		if !o.ran || o.err != nil {
			out.Failed = append(out.Failed, records[i])
			continue
		}
		for _, candidate := range o.triples {
			accepted, reason := validator.Accept(records[i].OriginID, candidate)
			if reason != validate.ReasonNone {
				p.summary.AddReject(string(reason))
				continue
			}
			out.Triples = append(out.Triples, accepted)
		}
	}
	p.summary.TriplesAccepted += len(out.Triples)
	p.addStats(orch.Stats())
	p.logger.Debug("triples validated",
		"comp", "validate",
		"accepted", len(out.Triples),
		"distinct", validator.Distinct(),
		"rejected", p.summary.TriplesRejected)

	return out, nil
}

// DialogueOutput is the result of the dialogue stage
type DialogueOutput struct {
	Dialogues []model.DialogueExample
	Failed    []model.QARecord // each record listed once if any scenario failed
}

type dialogueUnit struct {
	index int
	unit  extract.Unit
}

type dialogueOutcome struct {
	ran       bool
	index     int
	dialogues []model.DialogueExample
	err       error
}

// SynthesizeDialogues runs every configured scenario for every record.
// Output order is record order, then scenario order.
func (p *Pipeline) SynthesizeDialogues(ctx context.Context, records []model.QARecord) (*DialogueOutput, error) {
	if p.provider == nil {
		return nil, errors.New("no generation service configured")
	}

	scenarios := p.config.Extract.Scenarios
	if len(scenarios) == 0 {
		scenarios = model.DefaultScenarios()
	}
	for _, s := range scenarios {
		if s.Type == "" {
			return nil, fmt.Errorf("scenario without type: %q", s.Desc)
		}
	}

	records = limitRecords(records, p.config.Extract.MaxItems)
	orch := p.newOrchestrator()
	task := extract.DialogueTask(p.config.Extract)

	units := make([]dialogueUnit, 0, len(records)*len(scenarios))
	for i, rec := range records {
		for j := range scenarios {
			units = append(units, dialogueUnit{index: i, unit: extract.Unit{Record: rec, Scenario: &scenarios[j]}})
		}
	}

	p.progress.Begin("dialogues", len(units))
	outcomes := worker.Map(ctx, p.config.Concurrency.Workers, units, func(ctx context.Context, u dialogueUnit) dialogueOutcome {
		dialogues, err := extract.Execute(ctx, orch, task, u.unit)
		return dialogueOutcome{ran: true, index: u.index, dialogues: dialogues, err: err}
	}, p.progress.Step)
	p.progress.End()

	out := &DialogueOutput{Dialogues: []model.DialogueExample{}, Failed: []model.QARecord{}}
	lastFailed := -1
	for i, o := range outcomes {
		if !o.ran {
			// never dispatched because the run was cancelled
			o.index = units[i].index
		}
		if !o.ran || o.err != nil {
			if o.index != lastFailed {
				out.Failed = append(out.Failed, records[o.index])
				lastFailed = o.index
			}
			continue
		}
		out.Dialogues = append(out.Dialogues, o.dialogues...)
	}
	p.summary.DialoguesGenerated += len(out.Dialogues)
	p.addStats(orch.Stats())

	return out, nil
}

func (p *Pipeline) newOrchestrator() *extract.Orchestrator {
	return extract.NewOrchestrator(p.provider, extract.Options{
		Model:   p.config.LLM.Model,
		Limiter: p.limiter,
		Logger:  p.logger,
		Backoff: p.config.Extract.RetryBackoff,
	})
}

func (p *Pipeline) addStats(stats extract.Stats) {
	p.summary.UnitsAttempted += int(stats.UnitsAttempted)
	p.summary.UnitsFailed += int(stats.UnitsFailed)
	p.summary.Attempts += int(stats.Attempts)
}

func limitRecords(records []model.QARecord, max int) []model.QARecord {
	if max > 0 && len(records) > max {
		return records[:max]
	}
	return records
}

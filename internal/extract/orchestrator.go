package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/qaforge/internal/llm"
	"github.com/ppiankov/qaforge/internal/model"
)

// backoffSleep is the sleep function used between attempts (injectable for tests)
var backoffSleep = time.Sleep

// Limiter gates outbound requests per key
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Unit is one (record, task parameters) pair of work
type Unit struct {
	Record   model.QARecord
	Scenario *model.Scenario // nil for triple extraction
}

// Task describes one template family
type Task[T any] struct {
	Name        string
	MaxAttempts int

	// Request builds the prompt for a unit
	Request func(unit Unit) llm.CompletionRequest

	// Decode checks the required field and converts it. Errors must wrap ErrSchema.
	Decode func(fields map[string]json.RawMessage, unit Unit) ([]T, error)
}

// Stats is a snapshot of orchestrator counters
type Stats struct {
	UnitsAttempted int64
	UnitsFailed    int64
	Attempts       int64
}

// Options configures an Orchestrator
type Options struct {
	Model   string
	Limiter Limiter
	Logger  *slog.Logger
	Backoff time.Duration
}

// Orchestrator runs tasks against a provider with bounded retries. Its
// only mutable state is the atomic counters, so one instance can serve
// many concurrent units.
type Orchestrator struct {
	provider llm.Provider
	model    string
	limiter  Limiter
	logger   *slog.Logger
	backoff  time.Duration

	unitsAttempted atomic.Int64
	unitsFailed    atomic.Int64
	attempts       atomic.Int64
}

// NewOrchestrator creates an orchestrator for provider
func NewOrchestrator(provider llm.Provider, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		provider: provider,
		model:    opts.Model,
		limiter:  opts.Limiter,
		logger:   logger.With("comp", "extract"),
		backoff:  opts.Backoff,
	}
}

// Stats returns the current counters
func (o *Orchestrator) Stats() Stats {
	return Stats{
		UnitsAttempted: o.unitsAttempted.Load(),
		UnitsFailed:    o.unitsFailed.Load(),
		Attempts:       o.attempts.Load(),
	}
}

// Execute runs task for unit, retrying up to task.MaxAttempts times with a
// fixed backoff. Each attempt is independent. On exhaustion it returns no
// results and an error wrapping ErrRetriesExhausted and the last cause.
func Execute[T any](ctx context.Context, o *Orchestrator, task Task[T], unit Unit) ([]T, error) {
	o.unitsAttempted.Add(1)

	maxAttempts := task.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		if attempt > 0 && o.backoff > 0 {
			backoffSleep(o.backoff)
		}
		attempt++

		results, err := runAttempt(ctx, o, task, unit)
		if err == nil {
			return results, nil
		}
		lastErr = err
		o.logger.Debug("attempt failed",
			"task", task.Name,
			"origin", unit.Record.OriginID,
			"topic", unit.Record.Topic,
			"attempt", attempt,
			"error", err)
	}

	o.unitsFailed.Add(1)
	o.logger.Warn("unit dropped",
		"task", task.Name,
		"origin", unit.Record.OriginID,
		"topic", unit.Record.Topic,
		"attempts", attempt,
		"error", lastErr)

	return nil, fmt.Errorf("%s %q: %w after %d attempts: %w", task.Name, unit.Record.Topic, ErrRetriesExhausted, attempt, lastErr)
}

func runAttempt[T any](ctx context.Context, o *Orchestrator, task Task[T], unit Unit) ([]T, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx, o.provider.Name()); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %w", ErrService, err)
		}
	}

	req := task.Request(unit)
	if req.Model == "" {
		req.Model = o.model
	}

	o.attempts.Add(1)
	resp, err := o.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrService, err)
	}

	fields, err := parseObject(resp.Text)
	if err != nil {
		return nil, err
	}

	return task.Decode(fields, unit)
}

// truncateRunes cuts s to at most n runes
func truncateRunes(s string, n int) (string, bool) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:n]), true
}

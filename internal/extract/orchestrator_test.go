package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/qaforge/internal/llm"
	"github.com/ppiankov/qaforge/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Disable backoff sleep in all tests for fast execution
	backoffSleep = func(d time.Duration) {}
}

type reply struct {
	text string
	err  error
}

// scriptedProvider returns replies in order, repeating the last one
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []reply
	requests []llm.CompletionRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := len(p.requests)
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}
	p.requests = append(p.requests, req)

	r := p.replies[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.CompletionResponse{Text: r.text}, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type countingLimiter struct {
	waits atomic.Int64
	keys  sync.Map
	err   error
}

func (l *countingLimiter) Wait(ctx context.Context, key string) error {
	l.waits.Add(1)
	l.keys.Store(key, true)
	return l.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(p llm.Provider, limiter Limiter) *Orchestrator {
	return NewOrchestrator(p, Options{
		Model:   "test-model",
		Limiter: limiter,
		Logger:  quietLogger(),
		Backoff: time.Millisecond,
	})
}

func epollUnit() Unit {
	return Unit{Record: model.QARecord{OriginID: "io.md", Topic: "什么是Epoll", Content: "Epoll是Linux的多路复用机制"}}
}

const goodTriples = `{"triples":[{"head":"Epoll","relation":"属于","tail":"多路复用"}]}`

func TestExecute_SuccessFirstAttempt(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{text: goodTriples}}}
	o := newTestOrchestrator(p, nil)

	triples, err := Execute(context.Background(), o, TripleTask(model.DefaultConfig().Extract), epollUnit())
	require.NoError(t, err)

	require.Len(t, triples, 1)
	assert.Equal(t, model.Triple{Head: "Epoll", Relation: "属于", Tail: "多路复用", SourceTopic: "什么是Epoll"}, triples[0])
	assert.Equal(t, 1, p.calls())
	assert.Equal(t, "test-model", p.requests[0].Model)
	assert.Equal(t, Stats{UnitsAttempted: 1, UnitsFailed: 0, Attempts: 1}, o.Stats())
}

func TestExecute_RecoversWrappedJSON(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{text: "Sure! " + goodTriples + " Hope this helps."}}}
	o := newTestOrchestrator(p, nil)

	triples, err := Execute(context.Background(), o, TripleTask(model.DefaultConfig().Extract), epollUnit())
	require.NoError(t, err)
	assert.Len(t, triples, 1)
	assert.Equal(t, 1, p.calls())
}

func TestExecute_RetryExhaustion(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{text: "I am not JSON"}}}
	o := newTestOrchestrator(p, nil)

	cfg := model.DefaultConfig().Extract
	cfg.TripleMaxAttempts = 3

	triples, err := Execute(context.Background(), o, TripleTask(cfg), epollUnit())

	assert.Empty(t, triples)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.True(t, errors.Is(err, ErrParseRecovery))
	assert.Equal(t, 3, p.calls(), "exactly one call per attempt")
	assert.Equal(t, Stats{UnitsAttempted: 1, UnitsFailed: 1, Attempts: 3}, o.Stats())
}

func TestExecute_SchemaFailureRetries(t *testing.T) {
	p := &scriptedProvider{replies: []reply{
		{text: `{"result": "no triples field"}`},
		{text: goodTriples},
	}}
	o := newTestOrchestrator(p, nil)

	triples, err := Execute(context.Background(), o, TripleTask(model.DefaultConfig().Extract), epollUnit())
	require.NoError(t, err)
	assert.Len(t, triples, 1)
	assert.Equal(t, 2, p.calls())
}

func TestExecute_EmptyTriplesIsSchemaFailure(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{text: `{"triples": []}`}}}
	o := newTestOrchestrator(p, nil)

	_, err := Execute(context.Background(), o, TripleTask(model.DefaultConfig().Extract), epollUnit())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))
	assert.Equal(t, 2, p.calls())
}

func TestExecute_ServiceErrorRetries(t *testing.T) {
	p := &scriptedProvider{replies: []reply{
		{err: errors.New("connection reset")},
		{text: goodTriples},
	}}
	o := newTestOrchestrator(p, nil)

	triples, err := Execute(context.Background(), o, TripleTask(model.DefaultConfig().Extract), epollUnit())
	require.NoError(t, err)
	assert.Len(t, triples, 1)
}

func TestExecute_ServiceErrorExhausted(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{err: errors.New("503")}}}
	o := newTestOrchestrator(p, nil)

	_, err := Execute(context.Background(), o, TripleTask(model.DefaultConfig().Extract), epollUnit())
	assert.True(t, errors.Is(err, ErrService))
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
}

func TestExecute_LimiterConsultedPerAttempt(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{text: "garbage"}, {text: "garbage"}, {text: goodTriples}}}
	limiter := &countingLimiter{}
	o := newTestOrchestrator(p, limiter)

	cfg := model.DefaultConfig().Extract
	cfg.TripleMaxAttempts = 3

	_, err := Execute(context.Background(), o, TripleTask(cfg), epollUnit())
	require.NoError(t, err)

	assert.Equal(t, int64(3), limiter.waits.Load())
	_, keyed := limiter.keys.Load("scripted")
	assert.True(t, keyed, "limiter is keyed by provider name")
}

func TestExecute_LimiterErrorSkipsCall(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{text: goodTriples}}}
	limiter := &countingLimiter{err: context.DeadlineExceeded}
	o := newTestOrchestrator(p, limiter)

	_, err := Execute(context.Background(), o, TripleTask(model.DefaultConfig().Extract), epollUnit())
	assert.True(t, errors.Is(err, ErrService))
	assert.Equal(t, 0, p.calls())
}

func TestExecute_BackoffBetweenAttempts(t *testing.T) {
	var sleeps []time.Duration
	backoffSleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	defer func() { backoffSleep = func(time.Duration) {} }()

	p := &scriptedProvider{replies: []reply{{text: "nope"}}}
	o := NewOrchestrator(p, Options{Logger: quietLogger(), Backoff: 500 * time.Millisecond})

	cfg := model.DefaultConfig().Extract
	cfg.TripleMaxAttempts = 3
	_, _ = Execute(context.Background(), o, TripleTask(cfg), epollUnit())

	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, sleeps)
}

func TestExecute_CancelledContext(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{text: goodTriples}}}
	o := newTestOrchestrator(p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, o, TripleTask(model.DefaultConfig().Extract), epollUnit())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, p.calls())
}

func TestExecute_ConcurrentUnitsCountExactly(t *testing.T) {
	p := &scriptedProvider{replies: []reply{{text: goodTriples}}}
	o := newTestOrchestrator(p, nil)
	task := TripleTask(model.DefaultConfig().Extract)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Execute(context.Background(), o, task, epollUnit())
		}()
	}
	wg.Wait()

	assert.Equal(t, Stats{UnitsAttempted: 50, UnitsFailed: 0, Attempts: 50}, o.Stats())
}

package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/qaforge/internal/llm"
	"github.com/ppiankov/qaforge/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topicProvider answers based on the topic found in the prompt
type topicProvider struct {
	mu      sync.Mutex
	answers map[string]string
	calls   int
}

func (p *topicProvider) Name() string                       { return "fake" }
func (p *topicProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *topicProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	prompt := req.Messages[len(req.Messages)-1].Content
	for topic, answer := range p.answers {
		if strings.Contains(prompt, topic) {
			if answer == "" {
				return nil, errors.New("service unavailable")
			}
			return &llm.CompletionResponse{Text: answer}, nil
		}
	}
	return &llm.CompletionResponse{Text: "no idea"}, nil
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Concurrency.Workers = 4
	cfg.Extract.RetryBackoff = 0
	return cfg
}

func testPipeline(cfg *model.Config, provider llm.Provider) *Pipeline {
	return NewPipeline(cfg, Options{
		Provider: provider,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		RunID:    "test-run",
	})
}

func TestPipeline_Segment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("1. 这是答案\n更多内容\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# 什么是Epoll\nEpoll是...\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.md"), []byte{'x', 0, 'y'}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("# 不是文档\n内容内容\n"), 0644))

	p := testPipeline(testConfig(), nil)
	records, err := p.Segment(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, model.QARecord{OriginID: "a.md", Topic: "什么是Epoll", Content: "Epoll是..."}, records[0])
	assert.Equal(t, model.QARecord{OriginID: "b.md", Topic: "这是答案", Content: "更多内容"}, records[1])

	s := p.Summary()
	assert.Equal(t, 2, s.DocumentsRead)
	assert.Equal(t, 1, s.DocumentsSkipped)
	assert.Equal(t, 2, s.RecordsSegmented)
	assert.Equal(t, "test-run", s.RunID)
}

func TestPipeline_SegmentDeterministic(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		name := filepath.Join(dir, string(rune('a'+i))+".md")
		require.NoError(t, os.WriteFile(name, []byte("# 第一个问题标题\n第一段内容\n# 第二个问题标题\n第二段内容\n"), 0644))
	}

	first, err := testPipeline(testConfig(), nil).Segment(context.Background(), dir)
	require.NoError(t, err)
	second, err := testPipeline(testConfig(), nil).Segment(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, first, 24)
	assert.Equal(t, first, second)
}

func TestPipeline_SegmentMissingDir(t *testing.T) {
	_, err := testPipeline(testConfig(), nil).Segment(context.Background(), filepath.Join(t.TempDir(), "none"))
	assert.Error(t, err)
}

func TestPipeline_ExtractTriples(t *testing.T) {
	provider := &topicProvider{answers: map[string]string{
		"什么是Epoll": `{"triples":[
			{"head":"Epoll","relation":"基于","tail":"红黑树"},
			{"head":"Epoll","relation":"基于","tail":"红黑树"},
			{"head":"数据","relation":"存储于","tail":"磁盘"},
			{"head":"HashMap","relation":"属于","tail":"HashMap类"}
		]}`,
		"什么是Select": `Here you go: {"triples":[{"head":"Select","relation":"基于","tail":"轮询"}]}`,
		"什么是Poll":   "",
	}}

	records := []model.QARecord{
		{OriginID: "io.md", Topic: "什么是Epoll", Content: "Epoll是多路复用"},
		{OriginID: "io.md", Topic: "什么是Poll", Content: "Poll基于链表"},
		{OriginID: "io.md", Topic: "什么是Select", Content: "Select基于轮询"},
	}

	p := testPipeline(testConfig(), provider)
	out, err := p.ExtractTriples(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, []model.Triple{
		{Head: "Epoll", Relation: "基于", Tail: "红黑树", SourceTopic: "什么是Epoll"},
		{Head: "Select", Relation: "基于", Tail: "轮询", SourceTopic: "什么是Select"},
	}, out.Triples)
	assert.Equal(t, []model.QARecord{records[1]}, out.Failed)

	s := p.Summary()
	assert.Equal(t, 3, s.UnitsAttempted)
	assert.Equal(t, 1, s.UnitsFailed)
	assert.Equal(t, 4, s.Attempts, "two units succeed first try, the failing one uses both attempts")
	assert.Equal(t, 2, s.TriplesAccepted)
	assert.Equal(t, 3, s.TriplesRejected)
	assert.Equal(t, map[string]int{"duplicate": 1, "stop_entity": 1, "near_duplicate": 1}, s.RejectReasons)
}

func TestPipeline_ExtractTriplesMaxItems(t *testing.T) {
	provider := &topicProvider{answers: map[string]string{
		"问题": `{"triples":[{"head":"Epoll","relation":"基于","tail":"红黑树"}]}`,
	}}
	cfg := testConfig()
	cfg.Extract.MaxItems = 2

	records := make([]model.QARecord, 5)
	for i := range records {
		records[i] = model.QARecord{OriginID: "x.md", Topic: "问题" + string(rune('A'+i)), Content: "内容内容"}
	}

	p := testPipeline(cfg, provider)
	_, err := p.ExtractTriples(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestPipeline_SynthesizeDialogues(t *testing.T) {
	provider := &topicProvider{answers: map[string]string{
		"什么是Epoll": `{"conversations":[{"from":"human","value":"面试官你好，我准备好了。"},{"from":"gpt","value":"你好"}]}`,
		"什么是Poll":  `{"conversations":[{"from":"narrator","value":"?"}]}`,
	}}

	records := []model.QARecord{
		{OriginID: "io.md", Topic: "什么是Epoll", Content: "Epoll是多路复用"},
		{OriginID: "io.md", Topic: "什么是Poll", Content: "Poll基于链表"},
	}

	p := testPipeline(testConfig(), provider)
	out, err := p.SynthesizeDialogues(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, out.Dialogues, 2)
	assert.True(t, strings.HasSuffix(out.Dialogues[0].ID, "_expert"))
	assert.True(t, strings.HasSuffix(out.Dialogues[1].ID, "_struggle"))
	assert.NotEqual(t, out.Dialogues[0].ID, out.Dialogues[1].ID)
	assert.Equal(t, []model.QARecord{records[1]}, out.Failed, "a record is listed once even when both scenarios fail")

	s := p.Summary()
	assert.Equal(t, 4, s.UnitsAttempted)
	assert.Equal(t, 2, s.UnitsFailed)
	assert.Equal(t, 2, s.DialoguesGenerated)
}

func TestPipeline_DialogueTurnWithoutSpeakerIsRetriedAndOutputWritable(t *testing.T) {
	provider := &topicProvider{answers: map[string]string{
		"什么是Epoll": `{"conversations":[{"from":"human","value":"面试官你好"},{"from":"gpt","value":"你好"}]}`,
		"什么是Poll":  `{"conversations":[{"value":"我准备好了"},{"from":"gpt","value":"好"}]}`,
	}}
	cfg := testConfig()
	records := []model.QARecord{
		{OriginID: "io.md", Topic: "什么是Epoll", Content: "Epoll是多路复用"},
		{OriginID: "io.md", Topic: "什么是Poll", Content: "Poll基于链表"},
	}

	p := testPipeline(cfg, provider)
	out, err := p.SynthesizeDialogues(context.Background(), records)
	require.NoError(t, err)

	assert.Len(t, out.Dialogues, 2)
	assert.Equal(t, []model.QARecord{records[1]}, out.Failed)
	s := p.Summary()
	assert.Equal(t, 2+2*cfg.Extract.DialogueMaxAttempts, s.Attempts, "each speakerless reply is retried until exhausted")

	path := filepath.Join(t.TempDir(), "sft.json")
	require.NoError(t, WriteDialogues(path, out.Dialogues))
}

func TestPipeline_RequiresProvider(t *testing.T) {
	p := testPipeline(testConfig(), nil)

	_, err := p.ExtractTriples(context.Background(), nil)
	assert.Error(t, err)

	_, err = p.SynthesizeDialogues(context.Background(), nil)
	assert.Error(t, err)
}

func TestPipeline_CancelledRunListsUndispatched(t *testing.T) {
	provider := &topicProvider{answers: map[string]string{}}
	records := []model.QARecord{
		{OriginID: "x.md", Topic: "问题一", Content: "内容内容"},
		{OriginID: "x.md", Topic: "问题二", Content: "内容内容"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := testPipeline(testConfig(), provider).ExtractTriples(ctx, records)
	require.NoError(t, err)
	assert.Empty(t, out.Triples)
	assert.Len(t, out.Failed, 2)
}

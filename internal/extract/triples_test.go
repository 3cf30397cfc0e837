package extract

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ppiankov/qaforge/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripleTask_Request(t *testing.T) {
	task := TripleTask(model.DefaultConfig().Extract)
	req := task.Request(epollUnit())

	assert.Equal(t, 2, task.MaxAttempts)
	assert.Equal(t, float32(0.1), req.Temperature)
	assert.True(t, req.JSONMode)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, tripleSystemPrompt, req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, "问题：什么是Epoll\n答案：Epoll是Linux的多路复用机制")
}

func TestTriplePrompt_Truncates(t *testing.T) {
	record := model.QARecord{Topic: "长文", Content: strings.Repeat("字", 5000)}

	prompt := TriplePrompt(record, 2000)
	body := strings.Repeat("字", 2000-utf8.RuneCountInString("问题：长文\n答案："))

	assert.Contains(t, prompt, "答案："+body+"\n")
	assert.NotContains(t, prompt, body+"字")
}

func TestDecodeTriples(t *testing.T) {
	unit := epollUnit()

	fields := map[string]json.RawMessage{
		"triples": json.RawMessage(`[{"head":"Epoll","relation":"基于","tail":"红黑树"},{"head":1,"relation":"x","tail":"y"}]`),
	}
	triples, err := decodeTriples(fields, unit)
	require.NoError(t, err)
	require.Len(t, triples, 2)
	assert.Equal(t, "什么是Epoll", triples[0].SourceTopic)
	assert.Equal(t, "", triples[1].Head, "ill-typed element decodes to an empty triple")

	_, err = decodeTriples(map[string]json.RawMessage{}, unit)
	assert.True(t, errors.Is(err, ErrSchema))

	_, err = decodeTriples(map[string]json.RawMessage{"triples": json.RawMessage(`"none"`)}, unit)
	assert.True(t, errors.Is(err, ErrSchema))
}

package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ppiankov/qaforge/internal/llm"
	"github.com/ppiankov/qaforge/internal/model"
)

const dialogueSystemPrompt = "你是一个严谨的数据生成助手，只输出JSON。"

const dialogueTemplate = `你是一个构建微调数据的专家。请将面试题改编成一段【完整的、包含评分环节的】多轮面试对话。

【面试素材】
题目：%s
参考答案：%s

【剧本要求】：%s

【对话结构流程】（请严格遵守）：
1. **开场 (Round 1)**:
   - Human: "面试官你好，我准备好了。"
   - AI: "你好，请简单做一个自我介绍，包括你的目标岗位。"

2. **自我介绍 & 提问 (Round 2)**:
   - Human: (基于题目内容生成简短自我介绍) "我是xx，应聘xx岗位..."
   - AI: "好的。那我们直接开始。请问..." (抛出题目)

3. **追问环节 (Round 3-5)**:
   - 包含 2-5 轮来回。AI 针对 User 的回答进行追问（Socratic Method）。

4. **结束 & 评分 (Final Round)**:
   - AI 必须主动结束面试。
   - **关键要求**：AI 的最后一句回复必须包含【面试总结】。
   - 总结格式要求：
     "好的，今天的面试就到这里。
     【面试评分】：%s（请生成一个具体数字）
     【面试评价】：(一句话点评亮点或不足)
     【最终结果】：%s"

【输出格式】：
直接输出 JSON 对象：
{
    "conversations": [
        {"from": "human", "value": "..."},
        {"from": "gpt", "value": "..."}
    ]
}`

const dialogueMaxTokens = 2500

// DialogueTask builds the interview synthesis task. Units must carry a scenario.
func DialogueTask(cfg model.ExtractConfig) Task[model.DialogueExample] {
	budget := cfg.DialogueCharBudget
	maxAttempts := cfg.DialogueMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return Task[model.DialogueExample]{
		Name:        "dialogues",
		MaxAttempts: maxAttempts,
		Request: func(unit Unit) llm.CompletionRequest {
			return llm.CompletionRequest{
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: dialogueSystemPrompt},
					{Role: llm.RoleUser, Content: DialoguePrompt(unit.Record, scenarioOf(unit), budget)},
				},
				Temperature: 0.7,
				MaxTokens:   dialogueMaxTokens,
				JSONMode:    true,
			}
		},
		Decode: decodeDialogue,
	}
}

// DialoguePrompt renders the interview prompt for one record and scenario
func DialoguePrompt(record model.QARecord, scenario model.Scenario, budget int) string {
	content, cut := truncateRunes(record.Content, budget)
	if cut {
		content += "..."
	}
	return fmt.Sprintf(dialogueTemplate, record.Topic, content, scenario.Desc, scenario.ScoreRange, scenario.Verdict)
}

func scenarioOf(unit Unit) model.Scenario {
	if unit.Scenario != nil {
		return *unit.Scenario
	}
	return model.DefaultScenarios()[0]
}

func decodeDialogue(fields map[string]json.RawMessage, unit Unit) ([]model.DialogueExample, error) {
	raw, ok := fields["conversations"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"conversations\"", ErrSchema)
	}

	var turns []model.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("%w: \"conversations\": %v", ErrSchema, err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: \"conversations\" is empty", ErrSchema)
	}
	for i, turn := range turns {
		if turn.From == model.SpeakerUnknown {
			return nil, fmt.Errorf("%w: turn %d has no speaker", ErrSchema, i)
		}
		if strings.TrimSpace(turn.Value) == "" {
			return nil, fmt.Errorf("%w: turn %d has no value", ErrSchema, i)
		}
	}

	return []model.DialogueExample{{
		ID:            DialogueID(scenarioOf(unit).Type),
		Conversations: turns,
	}}, nil
}

// lastTick holds the most recent id tick in 100ns units since the epoch
var lastTick atomic.Int64

// nextTick returns a strictly increasing high-resolution tick
func nextTick() int64 {
	for {
		now := time.Now().UnixNano() / 100
		prev := lastTick.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastTick.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// DialogueID returns a process-unique id tagged with the scenario type
func DialogueID(scenarioType string) string {
	return fmt.Sprintf("identity_%d_%s", nextTick(), scenarioType)
}

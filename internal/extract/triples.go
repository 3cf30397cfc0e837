package extract

import (
	"encoding/json"
	"fmt"

	"github.com/ppiankov/qaforge/internal/llm"
	"github.com/ppiankov/qaforge/internal/model"
)

const tripleSystemPrompt = "你是一个严谨的知识提取助手，只输出JSON。"

const tripleTemplate = `任务：你是一位精通操作系统、数据库、Java、C++、分布式架构等计算机各个方面的【全栈技术专家】。请从文本中构建高精度的【技术概念知识图谱】。

【待分析文本】：
%s

【提取法则】（违者必究）：
1. **实体必须是具体的计算机方面的专有名词**：
   - 优选：Epoll, 红黑树, 零拷贝, MVCC, HashMap, CAS, 用户态, 页缓存等计算机方面的技术概念名词
   - 剔除：数据, 效率, 方式, 步骤, 事情, 地方, 东西等等

2. **关系必须表达具体的【技术原理】或【架构归属】**：
   - 优选：
     - 属于/分类 (e.g. ArrayList --属于--> List集合)
     - 包含/组成 (e.g. JVM内存 --包含--> 堆区)
     - 底层结构 (e.g. Redis Zset --底层结构--> 跳表)
     - 核心特性 (e.g. TCP --保证--> 可靠性)
     - 导致/解决 (e.g. 死锁 --导致--> 系统卡死)
   - 拒绝【动作描述】：
     - 发送, 接收, 看见, 告诉, 变成, 使得

3. **处理"如何/怎么"类问题**：
   - 遇到 "select如何实现"，请提取 "Select机制" --基于--> "轮询" 或 "Select" --限制--> "1024连接"。

【输出格式】：
{
    "triples": [
        {"head": "实体1", "relation": "关系", "tail": "实体2"}
    ]
}`

// rawTriple tolerates a service that emits the wrong types for one element
type rawTriple struct {
	Head     string `json:"head"`
	Relation string `json:"relation"`
	Tail     string `json:"tail"`
}

// TripleTask builds the knowledge-graph extraction task. Decoded triples
// carry the record topic as provenance and are not yet validated.
func TripleTask(cfg model.ExtractConfig) Task[model.Triple] {
	budget := cfg.TripleCharBudget
	maxAttempts := cfg.TripleMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}

	return Task[model.Triple]{
		Name:        "triples",
		MaxAttempts: maxAttempts,
		Request: func(unit Unit) llm.CompletionRequest {
			return llm.CompletionRequest{
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: tripleSystemPrompt},
					{Role: llm.RoleUser, Content: TriplePrompt(unit.Record, budget)},
				},
				Temperature: 0.1,
				JSONMode:    true,
			}
		},
		Decode: decodeTriples,
	}
}

// TriplePrompt renders the extraction prompt for one record
func TriplePrompt(record model.QARecord, budget int) string {
	text, _ := truncateRunes(fmt.Sprintf("问题：%s\n答案：%s", record.Topic, record.Content), budget)
	return fmt.Sprintf(tripleTemplate, text)
}

func decodeTriples(fields map[string]json.RawMessage, unit Unit) ([]model.Triple, error) {
	raw, ok := fields["triples"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"triples\"", ErrSchema)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: \"triples\" is not an array: %v", ErrSchema, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: \"triples\" is empty", ErrSchema)
	}

	triples := make([]model.Triple, 0, len(items))
	for _, item := range items {
		var rt rawTriple
		// An ill-typed element becomes an empty triple and is rejected downstream
		_ = json.Unmarshal(item, &rt)
		triples = append(triples, model.Triple{
			Head:        rt.Head,
			Relation:    rt.Relation,
			Tail:        rt.Tail,
			SourceTopic: unit.Record.Topic,
		})
	}
	return triples, nil
}

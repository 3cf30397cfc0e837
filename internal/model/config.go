package model

import (
	"runtime"
	"time"
)

// Config holds the complete run configuration
type Config struct {
	Segment      SegmentConfig      `yaml:"segment" mapstructure:"segment"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Extract      ExtractConfig      `yaml:"extract" mapstructure:"extract"`
	Validate     ValidateConfig     `yaml:"validate" mapstructure:"validate"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// SegmentConfig controls document discovery and boundary detection
type SegmentConfig struct {
	Extensions            []string `yaml:"extensions" mapstructure:"extensions"`
	MaxFiles              int      `yaml:"max_files" mapstructure:"max_files"`
	MaxRecordsPerDocument int      `yaml:"max_records_per_document" mapstructure:"max_records_per_document"`
	NumberedTitleMaxLen   int      `yaml:"numbered_title_max_len" mapstructure:"numbered_title_max_len"` // Numbered lines at or above this rune length are prose
	FenceMarker           string   `yaml:"fence_marker" mapstructure:"fence_marker"`
	HeadingMarker         string   `yaml:"heading_marker" mapstructure:"heading_marker"`
	AnswerKeywords        []string `yaml:"answer_keywords" mapstructure:"answer_keywords"`       // Headings folded into content
	DiscardKeywords       []string `yaml:"discard_keywords" mapstructure:"discard_keywords"`     // Headings dropped entirely
	AnswerBoilerplate     []string `yaml:"answer_boilerplate" mapstructure:"answer_boilerplate"` // Removed, in order, from folded answer lines
	TopicLabels           []string `yaml:"topic_labels" mapstructure:"topic_labels"`             // Removed from topic lines
}

// LLMConfig configures the generation service provider
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds per request
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ExtractConfig controls prompt budgets and the retry policy
type ExtractConfig struct {
	MaxItems            int           `yaml:"max_items" mapstructure:"max_items"`
	TripleCharBudget    int           `yaml:"triple_char_budget" mapstructure:"triple_char_budget"`
	DialogueCharBudget  int           `yaml:"dialogue_char_budget" mapstructure:"dialogue_char_budget"`
	TripleMaxAttempts   int           `yaml:"triple_max_attempts" mapstructure:"triple_max_attempts"`
	DialogueMaxAttempts int           `yaml:"dialogue_max_attempts" mapstructure:"dialogue_max_attempts"`
	RetryBackoff        time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	Scenarios           []Scenario    `yaml:"scenarios" mapstructure:"scenarios"`
}

// ValidateConfig holds the triple quality thresholds
type ValidateConfig struct {
	MinEntityLen      int      `yaml:"min_entity_len" mapstructure:"min_entity_len"`
	MaxEntityLen      int      `yaml:"max_entity_len" mapstructure:"max_entity_len"`
	JaccardThreshold  float64  `yaml:"jaccard_threshold" mapstructure:"jaccard_threshold"`
	StopEntities      []string `yaml:"stop_entities" mapstructure:"stop_entities"`
	DedupeWithinTopic bool     `yaml:"dedupe_within_topic" mapstructure:"dedupe_within_topic"`
}

// ConcurrencyConfig sizes the worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig bounds outbound requests to the generation service
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables limiting
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LoggingConfig selects the structured log level and format
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // auto, text, json
}

// DefaultConfig returns the defaults used when nothing else is configured
func DefaultConfig() *Config {
	return &Config{
		Segment: SegmentConfig{
			Extensions:            []string{".md"},
			MaxFiles:              9999,
			MaxRecordsPerDocument: 9999,
			NumberedTitleMaxLen:   50,
			FenceMarker:           "```",
			HeadingMarker:         "#",
			AnswerKeywords:        []string{"答案", "参考", "解析"},
			DiscardKeywords:       []string{"出题人", "专家", "来源", "链接"},
			AnswerBoilerplate:     []string{"**", "参考答案", "答案", "参考", "：", ":"},
			TopicLabels:           []string{"问题：", "题目：", "**"},
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "Qwen/Qwen3-14B",
			Timeout:   60,
			MaxTokens: 0,
		},
		Extract: ExtractConfig{
			MaxItems:            9999,
			TripleCharBudget:    2000,
			DialogueCharBudget:  1500,
			TripleMaxAttempts:   2,
			DialogueMaxAttempts: 3,
			RetryBackoff:        500 * time.Millisecond,
			Scenarios:           DefaultScenarios(),
		},
		Validate: ValidateConfig{
			MinEntityLen:      2,
			MaxEntityLen:      15,
			JaccardThreshold:  0.8,
			StopEntities:      DefaultStopEntities(),
			DedupeWithinTopic: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// DefaultStopEntities returns generic nouns and cross-cutting jargon that
// carry no domain-specific meaning as triple endpoints
func DefaultStopEntities() []string {
	return []string{
		// generic nouns
		"程序", "系统", "软件", "应用", "用户", "客户", "功能", "方法",
		"数据", "信息", "内容", "问题", "答案", "时间", "机器", "设备",
		"它", "他们", "我们", "之一", "一方面", "例子", "优点", "缺点",
		"技术", "环境", "场景", "情况", "部分", "整体", "特点", "原理",

		// actions and processes
		"操作", "通知", "变化", "状态", "结果", "过程", "方式", "步骤",
		"发送", "接收", "读写", "访问", "修改", "删除", "创建", "处理",

		// general programming vocabulary
		"对象", "类", "接口", "变量", "参数", "代码", "函数", "属性", "字段",
		"实现", "继承", "多态", "逻辑", "空", "null", "true", "false",

		// general OS and networking vocabulary
		"空间", "模式", "内核", "文件", "目录", "硬盘", "内存", "网络",
		"连接", "请求", "响应", "协议", "端口", "地址", "消息", "包",
		"性能", "效率", "速度", "开销", "资源", "瓶颈",
	}
}

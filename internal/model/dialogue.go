package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DialogueExample is one synthesized multi-turn interview conversation
type DialogueExample struct {
	ID            string `json:"id"`
	Conversations []Turn `json:"conversations"`
}

// Turn is a single utterance in a dialogue
type Turn struct {
	From  Speaker `json:"from"`
	Value string  `json:"value"`
}

// Speaker identifies who produced a turn
type Speaker int

const (
	SpeakerUnknown   Speaker = iota
	SpeakerHuman             // Candidate side, serialized as "human"
	SpeakerAssistant         // Interviewer side, serialized as "gpt"
)

func (s Speaker) String() string {
	switch s {
	case SpeakerHuman:
		return "human"
	case SpeakerAssistant:
		return "gpt"
	default:
		return "unknown"
	}
}

// ParseSpeaker maps the role names generation services tend to emit
func ParseSpeaker(raw string) (Speaker, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "human", "user":
		return SpeakerHuman, nil
	case "gpt", "assistant":
		return SpeakerAssistant, nil
	default:
		return SpeakerUnknown, fmt.Errorf("unknown speaker %q", raw)
	}
}

// MarshalJSON writes the fine-tuning wire name
func (s Speaker) MarshalJSON() ([]byte, error) {
	if s == SpeakerUnknown {
		return nil, fmt.Errorf("cannot marshal unknown speaker")
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts human/user and gpt/assistant
func (s *Speaker) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSpeaker(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Scenario parameterizes one dialogue synthesis run for a record
type Scenario struct {
	Type       string `json:"type" yaml:"type" mapstructure:"type"`                      // Tag appended to dialogue ids
	ScoreRange string `json:"score_range" yaml:"score_range" mapstructure:"score_range"` // Target score band, e.g. "85-95分"
	Verdict    string `json:"verdict" yaml:"verdict" mapstructure:"verdict"`             // Final interview outcome
	Desc       string `json:"desc" yaml:"desc" mapstructure:"desc"`                      // Narrative rubric for the interview
}

// DefaultScenarios returns the strong-candidate and weak-candidate rubrics
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Type:       "expert",
			ScoreRange: "85-95分",
			Verdict:    "通过",
			Desc:       "【剧本A：高手过招】\n候选人回答准确。面试官进行深度追问后表示满意。\n最后面试官给出高分，并称赞其底层原理扎实。",
		},
		{
			Type:       "struggle",
			ScoreRange: "50-65分",
			Verdict:    "不通过或待定",
			Desc:       "【剧本B：基础薄弱】\n候选人回答吞吞吐吐或有错误。面试官尝试引导但效果一般。\n最后面试官给出低分，并委婉指出其基础概念需要加强。",
		},
	}
}

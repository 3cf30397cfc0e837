package segment

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/qaforge/internal/model"
)

// State is the boundary state machine position
type State int

const (
	StateIdle         State = iota // No record open; lines are discarded
	StateAccumulating              // A record is open and collecting content
)

func (s State) String() string {
	if s == StateAccumulating {
		return "accumulating"
	}
	return "idle"
}

// minFieldLen is the exclusive lower bound on topic and content rune length
const minFieldLen = 2

// Result is the outcome of segmenting one document
type Result struct {
	Records []model.QARecord
	Capped  int // Valid records dropped by the per-document cap
	Invalid int // Records dropped by the length gate
}

// Segmenter recovers QA records from one document, one line at a time.
// It is not safe for concurrent use; create one per document.
type Segmenter struct {
	classifier *Classifier
	cfg        model.SegmentConfig
	originID   string
	maxRecords int

	state            State
	topic            string
	contentLines     []string
	inCodeBlock      bool
	startedByHeading bool

	result Result
}

// NewSegmenter creates a segmenter for the document identified by originID
func NewSegmenter(cfg model.SegmentConfig, originID string) *Segmenter {
	maxRecords := cfg.MaxRecordsPerDocument
	if maxRecords <= 0 {
		maxRecords = 9999
	}
	return &Segmenter{
		classifier: NewClassifier(cfg),
		cfg:        cfg,
		originID:   originID,
		maxRecords: maxRecords,
	}
}

// State returns the current state machine position
func (s *Segmenter) State() State {
	return s.state
}

// InCodeBlock reports whether the last fed line left a code block open
func (s *Segmenter) InCodeBlock() bool {
	return s.inCodeBlock
}

// StartedByHeading reports whether the open record was opened by a heading
func (s *Segmenter) StartedByHeading() bool {
	return s.startedByHeading
}

// Feed advances the state machine by one line. The line keeps its trailing
// newline, if any, so content is reassembled verbatim.
func (s *Segmenter) Feed(line string) Label {
	label, inCode := s.classifier.Classify(line, s.inCodeBlock)
	s.inCodeBlock = inCode
	stripped := strings.TrimSpace(line)

	switch label {
	case LabelHeading:
		s.open(stripped, true)

	case LabelNumberedItem:
		if s.startedByHeading {
			// Enumerated answer content inside a heading-delimited record
			s.appendContent(line)
			return LabelContent
		}
		s.open(stripped, false)

	case LabelAnswerHeading:
		if rest := AnswerRemainder(stripped, s.cfg.AnswerBoilerplate); rest != "" {
			s.appendContent(rest + "\n")
		}

	case LabelAdminHeading:
		// dropped

	default:
		s.appendContent(line)
	}

	return label
}

// Finish flushes the open record and returns everything emitted for the document
func (s *Segmenter) Finish() Result {
	s.flush()
	s.state = StateIdle
	return s.result
}

func (s *Segmenter) open(topicLine string, byHeading bool) {
	s.flush()
	s.state = StateAccumulating
	s.topic = topicLine
	s.contentLines = s.contentLines[:0]
	s.startedByHeading = byHeading
}

func (s *Segmenter) appendContent(line string) {
	if s.state != StateAccumulating {
		return
	}
	s.contentLines = append(s.contentLines, line)
}

func (s *Segmenter) flush() {
	if s.state != StateAccumulating || len(s.contentLines) == 0 {
		return
	}

	topic := CleanTopic(s.topic, s.cfg.TopicLabels)
	body := CleanBody(strings.Join(s.contentLines, ""))
	s.contentLines = s.contentLines[:0]

	if utf8.RuneCountInString(topic) <= minFieldLen || utf8.RuneCountInString(body) <= minFieldLen {
		s.result.Invalid++
		return
	}
	if len(s.result.Records) >= s.maxRecords {
		s.result.Capped++
		return
	}

	s.result.Records = append(s.result.Records, model.QARecord{
		OriginID: s.originID,
		Topic:    topic,
		Content:  body,
	})
}

// SegmentText splits text into lines and runs a fresh segmenter over them
func SegmentText(cfg model.SegmentConfig, originID, text string) Result {
	seg := NewSegmenter(cfg, originID)
	for _, line := range SplitLines(text) {
		seg.Feed(line)
	}
	return seg.Finish()
}

// SplitLines splits text after each newline, keeping the terminators
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

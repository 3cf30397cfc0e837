package segment

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/qaforge/internal/model"
)

// Label is the classification of a single document line
type Label int

const (
	LabelContent       Label = iota // Plain body text, including blank lines
	LabelFence                      // Code fence toggle, kept verbatim as content
	LabelHeading                    // Non-ignorable heading, always a boundary
	LabelAnswerHeading              // Ignorable heading whose remainder is folded into content
	LabelAdminHeading               // Ignorable heading dropped entirely
	LabelNumberedItem               // Short numbered line, a candidate boundary
)

func (l Label) String() string {
	switch l {
	case LabelFence:
		return "fence"
	case LabelHeading:
		return "heading"
	case LabelAnswerHeading:
		return "answer-heading"
	case LabelAdminHeading:
		return "admin-heading"
	case LabelNumberedItem:
		return "numbered-item"
	default:
		return "content"
	}
}

// Ignorable reports whether the label is one of the administrative heading kinds
func (l Label) Ignorable() bool {
	return l == LabelAnswerHeading || l == LabelAdminHeading
}

// numberedPattern matches "<digits><space?><. or 、><space><rest>" on a trimmed line
var numberedPattern = regexp.MustCompile(`^\p{Nd}+[\s\p{Zs}]*[.、][\s\p{Zs}]+.*`)

// Classifier labels lines given the current code-block state
type Classifier struct {
	fence           string
	heading         string
	answerKeywords  []string
	discardKeywords []string
	maxTitleLen     int
}

// NewClassifier creates a classifier from segmentation settings
func NewClassifier(cfg model.SegmentConfig) *Classifier {
	fence := cfg.FenceMarker
	if fence == "" {
		fence = "```"
	}
	heading := cfg.HeadingMarker
	if heading == "" {
		heading = "#"
	}
	maxLen := cfg.NumberedTitleMaxLen
	if maxLen <= 0 {
		maxLen = 50
	}

	return &Classifier{
		fence:           fence,
		heading:         heading,
		answerKeywords:  cfg.AnswerKeywords,
		discardKeywords: cfg.DiscardKeywords,
		maxTitleLen:     maxLen,
	}
}

// Classify returns the label for line and the code-block state after it.
// Inside a code block every line except the closing fence is content.
func (c *Classifier) Classify(line string, inCodeBlock bool) (Label, bool) {
	stripped := strings.TrimSpace(line)

	if strings.HasPrefix(stripped, c.fence) {
		return LabelFence, !inCodeBlock
	}
	if inCodeBlock {
		return LabelContent, true
	}

	if strings.HasPrefix(stripped, c.heading) {
		// Discard wins over answer when a heading carries both
		if containsAny(stripped, c.discardKeywords) {
			return LabelAdminHeading, false
		}
		if containsAny(stripped, c.answerKeywords) {
			return LabelAnswerHeading, false
		}
		return LabelHeading, false
	}

	if c.IsNumberedTitle(stripped) {
		return LabelNumberedItem, false
	}

	return LabelContent, false
}

// IsNumberedTitle reports whether a trimmed line is a numbered item short
// enough to read as a title rather than prose
func (c *Classifier) IsNumberedTitle(stripped string) bool {
	if !numberedPattern.MatchString(stripped) {
		return false
	}
	return utf8.RuneCountInString(stripped) < c.maxTitleLen
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

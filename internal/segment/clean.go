package segment

import (
	"regexp"
	"strings"
)

var (
	topicPrefixPattern   = regexp.MustCompile(`^[#\p{Nd}.\s\p{Zs}]+`)
	headingPrefixPattern = regexp.MustCompile(`^[#\s\p{Zs}]+`)
	breakTagPattern      = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlTagPattern       = regexp.MustCompile(`<[^>]+>`)
	blankRunPattern      = regexp.MustCompile(`\n{3,}`)
)

// CleanTopic strips heading markers, numbering and question labels from a topic line
func CleanTopic(topic string, labels []string) string {
	topic = topicPrefixPattern.ReplaceAllString(topic, "")
	for _, label := range labels {
		if label != "" {
			topic = strings.ReplaceAll(topic, label, "")
		}
	}
	return strings.TrimSpace(topic)
}

// CleanBody removes HTML markup and collapses runs of blank lines to one
func CleanBody(body string) string {
	body = breakTagPattern.ReplaceAllString(body, "\n")
	body = htmlTagPattern.ReplaceAllString(body, "")
	body = blankRunPattern.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}

// AnswerRemainder returns the inline text of an answer heading with the
// marker and boilerplate words removed. Tokens are removed in order, so
// longer tokens must come before their substrings.
func AnswerRemainder(stripped string, boilerplate []string) string {
	line := headingPrefixPattern.ReplaceAllString(stripped, "")
	for _, token := range boilerplate {
		if token != "" {
			line = strings.ReplaceAll(line, token, "")
		}
	}
	return strings.TrimSpace(line)
}

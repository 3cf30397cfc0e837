package model

// QARecord is one (topic, content) unit recovered from a source document
type QARecord struct {
	OriginID string `json:"origin_file"` // Base name of the source document
	Topic    string `json:"topic"`       // Cleaned question/title line
	Content  string `json:"content"`     // Cleaned body, code fences preserved
}

package model

import "fmt"

// Triple is a knowledge-graph edge candidate extracted from a QA record
type Triple struct {
	Head        string `json:"head"`
	Relation    string `json:"relation"`
	Tail        string `json:"tail"`
	SourceTopic string `json:"source_topic,omitempty"` // Topic of the record the triple came from
}

func (t Triple) String() string {
	return fmt.Sprintf("[%s] --(%s)--> [%s]", t.Head, t.Relation, t.Tail)
}

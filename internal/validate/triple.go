package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/qaforge/internal/cache"
	"github.com/ppiankov/qaforge/internal/model"
)

// RejectReason names the rule a candidate triple failed
type RejectReason string

const (
	ReasonNone          RejectReason = ""
	ReasonEmpty         RejectReason = "empty"
	ReasonLength        RejectReason = "length"
	ReasonStopEntity    RejectReason = "stop_entity"
	ReasonSelfLoop      RejectReason = "self_loop"
	ReasonNearDuplicate RejectReason = "near_duplicate"
	ReasonDuplicate     RejectReason = "duplicate"
)

// Rules is the stateless triple quality predicate
type Rules struct {
	minLen    int
	maxLen    int
	threshold float64
	stop      map[string]struct{}
}

// NewRules builds the predicate from configuration, falling back to
// defaults for unset bounds
func NewRules(cfg model.ValidateConfig) *Rules {
	defaults := model.DefaultConfig().Validate

	r := &Rules{
		minLen:    cfg.MinEntityLen,
		maxLen:    cfg.MaxEntityLen,
		threshold: cfg.JaccardThreshold,
		stop:      make(map[string]struct{}),
	}
	if r.minLen <= 0 {
		r.minLen = defaults.MinEntityLen
	}
	if r.maxLen <= 0 {
		r.maxLen = defaults.MaxEntityLen
	}
	if r.threshold <= 0 {
		r.threshold = defaults.JaccardThreshold
	}

	stop := cfg.StopEntities
	if stop == nil {
		stop = defaults.StopEntities
	}
	for _, s := range stop {
		r.stop[s] = struct{}{}
	}
	return r
}

// Reason returns the first rule t violates, or ReasonNone.
// Rules are checked in a fixed order: empty, length, stop entity,
// self loop, near duplicate.
func (r *Rules) Reason(t model.Triple) RejectReason {
	head := strings.TrimSpace(t.Head)
	relation := strings.TrimSpace(t.Relation)
	tail := strings.TrimSpace(t.Tail)

	if head == "" || relation == "" || tail == "" {
		return ReasonEmpty
	}

	if !r.lengthOK(head) || !r.lengthOK(tail) {
		return ReasonLength
	}

	if r.isStop(head) || r.isStop(tail) {
		return ReasonStopEntity
	}

	if head == tail {
		return ReasonSelfLoop
	}

	if (strings.Contains(tail, head) || strings.Contains(head, tail)) && Jaccard(head, tail) > r.threshold {
		return ReasonNearDuplicate
	}

	return ReasonNone
}

// IsValid reports whether t passes every rule
func (r *Rules) IsValid(t model.Triple) bool {
	return r.Reason(t) == ReasonNone
}

func (r *Rules) lengthOK(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= r.minLen && n <= r.maxLen
}

func (r *Rules) isStop(s string) bool {
	_, ok := r.stop[s]
	return ok
}

// Jaccard returns |A∩B| / |A∪B| over the rune sets of a and b
func Jaccard(a, b string) float64 {
	setA := make(map[rune]struct{})
	for _, c := range a {
		setA[c] = struct{}{}
	}
	setB := make(map[rune]struct{})
	for _, c := range b {
		setB[c] = struct{}{}
	}

	union := len(setA)
	inter := 0
	for c := range setB {
		if _, ok := setA[c]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Validator applies the rules plus a per-run duplicate check. It is safe
// for concurrent use.
type Validator struct {
	rules  *Rules
	seen   *cache.SeenSet
	dedupe bool
}

// NewValidator creates a validator with an empty seen-set
func NewValidator(cfg model.ValidateConfig) *Validator {
	return &Validator{
		rules:  NewRules(cfg),
		seen:   cache.NewSeenSet(),
		dedupe: cfg.DedupeWithinTopic,
	}
}

// Accept checks t, extracted from the record originID/t.SourceTopic, and
// returns its trimmed form. The triple is accepted when the returned reason
// is ReasonNone. With deduplication enabled an exact repeat of
// (head, relation, tail) from the same record is rejected as a duplicate.
// The same edge from another record is kept, even under an equal topic.
func (v *Validator) Accept(originID string, t model.Triple) (model.Triple, RejectReason) {
	if reason := v.rules.Reason(t); reason != ReasonNone {
		return t, reason
	}

	trimmed := model.Triple{
		Head:        strings.TrimSpace(t.Head),
		Relation:    strings.TrimSpace(t.Relation),
		Tail:        strings.TrimSpace(t.Tail),
		SourceTopic: t.SourceTopic,
	}

	if v.dedupe {
		key := cache.Key(originID, trimmed.SourceTopic, trimmed.Head, trimmed.Relation, trimmed.Tail)
		if !v.seen.Add(key) {
			return trimmed, ReasonDuplicate
		}
	}

	return trimmed, ReasonNone
}

// Distinct returns how many distinct triples have been accepted
func (v *Validator) Distinct() int {
	return v.seen.Len()
}

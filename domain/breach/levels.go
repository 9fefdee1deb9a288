package breach

import (
	"fmt"
	"sort"
	"strings"
)

// RuleKind selects how the reference cause is chosen
type RuleKind string

const (
	// RuleFirstSeen uses the first cause in encounter order, matching the usual categorical encoding
	RuleFirstSeen RuleKind = "first"
	// RuleAlphabetical sorts causes and uses the first one
	RuleAlphabetical RuleKind = "alphabetical"
	// RuleExplicit names the reference cause directly
	RuleExplicit RuleKind = "explicit"
)

// ReferenceRule decides which cause category is absorbed into the intercept and time terms
type ReferenceRule struct {
	Kind  RuleKind
	Cause string
}

// DefaultReferenceRule is first-seen ordering
var DefaultReferenceRule = ReferenceRule{Kind: RuleFirstSeen}

// ParseReferenceRule accepts "first", "alphabetical" or "explicit:<cause>"
func ParseReferenceRule(s string) (ReferenceRule, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || strings.EqualFold(s, string(RuleFirstSeen)):
		return ReferenceRule{Kind: RuleFirstSeen}, nil
	case strings.EqualFold(s, string(RuleAlphabetical)):
		return ReferenceRule{Kind: RuleAlphabetical}, nil
	case strings.HasPrefix(strings.ToLower(s), string(RuleExplicit)+":"):
		cause := strings.TrimSpace(s[len(RuleExplicit)+1:])
		if cause == "" {
			return ReferenceRule{}, fmt.Errorf("explicit reference rule needs a cause name")
		}
		return ReferenceRule{Kind: RuleExplicit, Cause: cause}, nil
	default:
		return ReferenceRule{}, fmt.Errorf("unknown reference rule %q (use first, alphabetical or explicit:<cause>)", s)
	}
}

func (r ReferenceRule) String() string {
	if r.Kind == RuleExplicit {
		return string(RuleExplicit) + ":" + r.Cause
	}
	if r.Kind == "" {
		return string(RuleFirstSeen)
	}
	return string(r.Kind)
}

// Levels is the ordered list of cause categories used to encode a model.
// Order[0] is always the reference.
type Levels struct {
	Order []string
}

// Reference returns the reference cause
func (l Levels) Reference() string {
	if len(l.Order) == 0 {
		return ""
	}
	return l.Order[0]
}

// NonReference returns the causes that get explicit indicator and interaction terms
func (l Levels) NonReference() []string {
	if len(l.Order) < 2 {
		return nil
	}
	return append([]string(nil), l.Order[1:]...)
}

// Contains reports whether cause is one of the levels
func (l Levels) Contains(cause string) bool {
	return l.Index(cause) >= 0
}

// Index returns the position of cause, or -1
func (l Levels) Index(cause string) int {
	for i, c := range l.Order {
		if c == cause {
			return i
		}
	}
	return -1
}

// Levels resolves the cause categories of the record set under rule.
// Non-reference causes keep encounter order for first-seen and explicit rules.
func (rs *RecordSet) Levels(rule ReferenceRule) (Levels, error) {
	causes := rs.Causes()
	switch rule.Kind {
	case RuleFirstSeen, "":
		return Levels{Order: causes}, nil
	case RuleAlphabetical:
		sort.Strings(causes)
		return Levels{Order: causes}, nil
	case RuleExplicit:
		idx := -1
		for i, c := range causes {
			if c == rule.Cause {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Levels{}, fmt.Errorf("reference cause %q not present in data (causes: %s)",
				rule.Cause, strings.Join(causes, ", "))
		}
		order := make([]string, 0, len(causes))
		order = append(order, causes[idx])
		order = append(order, causes[:idx]...)
		order = append(order, causes[idx+1:]...)
		return Levels{Order: order}, nil
	default:
		return Levels{}, fmt.Errorf("unknown reference rule kind %q", rule.Kind)
	}
}

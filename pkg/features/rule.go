// Package features classifies syntax nodes into language-version buckets.
//
// A Table holds declarative rules, each pairing the node kinds it inspects
// with a predicate and the version that introduced the construct. A Walker
// folds the rule matches of a whole tree into an accumulator.
package features

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/semantic"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

// Sentinel errors for rule table construction.
var (
	// ErrUnknownTag is returned when a rule is tagged with a version outside
	// the known enumeration.
	ErrUnknownTag = errors.New("rule tagged with unknown language version")
	// ErrDuplicateRule is returned when two rules share an ID.
	ErrDuplicateRule = errors.New("duplicate rule id")
	// ErrInvalidRule is returned for rules without kinds or predicate.
	ErrInvalidRule = errors.New("invalid rule")
	// ErrUnknownRule is returned when disabling a rule that does not exist.
	ErrUnknownRule = errors.New("unknown rule id")
)

// Verdict is the outcome of one predicate on one node.
type Verdict int

const (
	// NoMatch means the construct is absent.
	NoMatch Verdict = iota
	// Match counts the node.
	Match
	// MatchPrune counts the node and stops the rule's family from matching
	// anywhere below it.
	MatchPrune
)

// Predicate inspects one node. model is nil when semantics are unavailable.
type Predicate func(n *syntax.Node, model semantic.Model) Verdict

// Rule is one detectable language feature.
type Rule struct {
	ID    string
	Tag   langver.Tag
	Label string
	// Kinds lists the node kinds the predicate is evaluated on.
	Kinds []string
	// Family groups rules whose nested occurrences count once. Defaults to ID.
	Family string
	// NeedsSemantics marks rules that never match without a model.
	NeedsSemantics bool
	Predicate      Predicate
}

func (r Rule) family() string {
	if r.Family != "" {
		return r.Family
	}

	return r.ID
}

func (r Rule) validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidRule)
	case !langver.IsKnown(r.Tag):
		return fmt.Errorf("%w: %s has %s", ErrUnknownTag, r.ID, r.Tag)
	case len(r.Kinds) == 0:
		return fmt.Errorf("%w: %s has no node kinds", ErrInvalidRule, r.ID)
	case r.Predicate == nil:
		return fmt.Errorf("%w: %s has no predicate", ErrInvalidRule, r.ID)
	}

	return nil
}

// Match records that a rule fired on a node.
type Match struct {
	Tag    langver.Tag
	RuleID string
	Label  string
	Node   syntax.NodeID
}

// Option configures NewTable.
type Option func(*tableOptions)

type tableOptions struct {
	disabled []string
}

// WithDisabled removes the named rules from the table.
func WithDisabled(ids ...string) Option {
	return func(o *tableOptions) {
		o.disabled = append(o.disabled, ids...)
	}
}

// Table is an immutable, ordered set of rules.
type Table struct {
	rules  []Rule
	byKind map[string][]int
}

// NewTable validates rules and builds a table. Rules are ordered by version
// and then by their position in rules.
func NewTable(rules []Rule, opts ...Option) (*Table, error) {
	var cfg tableOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	seen := make(map[string]bool, len(rules))

	for _, r := range rules {
		err := r.validate()
		if err != nil {
			return nil, err
		}

		if seen[r.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
		}

		seen[r.ID] = true
	}

	for _, id := range cfg.disabled {
		if !seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, id)
		}
	}

	kept := make([]Rule, 0, len(rules))

	for _, r := range rules {
		if slices.Contains(cfg.disabled, r.ID) {
			continue
		}

		r.Kinds = slices.Clone(r.Kinds)
		kept = append(kept, r)
	}

	slices.SortStableFunc(kept, func(a, b Rule) int { return a.Tag.Compare(b.Tag) })

	t := &Table{rules: kept, byKind: make(map[string][]int)}

	for i, r := range kept {
		for _, kind := range r.Kinds {
			if !slices.Contains(t.byKind[kind], i) {
				t.byKind[kind] = append(t.byKind[kind], i)
			}
		}
	}

	return t, nil
}

// Rules returns a copy of the rules in evaluation order.
func (t *Table) Rules() []Rule {
	return slices.Clone(t.rules)
}

// Len returns the number of rules.
func (t *Table) Len() int {
	return len(t.rules)
}

// Rule looks up a rule by id.
func (t *Table) Rule(id string) (Rule, bool) {
	for _, r := range t.rules {
		if r.ID == id {
			return r, true
		}
	}

	return Rule{}, false
}

// Evaluate runs every rule registered for the node's kind and returns the
// matches in table order. Failed predicates count as no match and are
// reported to sink.
func (t *Table) Evaluate(n *syntax.Node, model semantic.Model, sink EventSink) []Match {
	matches, _ := t.evaluate(n, model, nil, sink)

	return matches
}

// evaluate also returns the families to prune below n. Rules whose family is
// in suppressed are skipped.
func (t *Table) evaluate(
	n *syntax.Node, model semantic.Model, suppressed map[string]int, sink EventSink,
) (matches []Match, prune []string) {
	for _, idx := range t.byKind[n.Kind] {
		rule := &t.rules[idx]

		if suppressed[rule.family()] > 0 {
			continue
		}

		if rule.NeedsSemantics && model == nil {
			continue
		}

		verdict := runPredicate(rule, n, model, sink)
		if verdict == NoMatch {
			continue
		}

		matches = append(matches, Match{Tag: rule.Tag, RuleID: rule.ID, Label: rule.Label, Node: n.ID()})

		if verdict == MatchPrune {
			prune = append(prune, rule.family())
		}
	}

	return matches, prune
}

func runPredicate(rule *Rule, n *syntax.Node, model semantic.Model, sink EventSink) (verdict Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			verdict = NoMatch

			sink.emit(Event{
				Kind:   EventRuleFailure,
				RuleID: rule.ID,
				Tag:    rule.Tag,
				Label:  rule.Label,
				Node:   n.ID(),
				Detail: fmt.Sprint(rec),
			})
		}
	}()

	return rule.Predicate(n, model)
}

package features

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/modernity/pkg/accum"
	"github.com/Sumatoshi-tech/modernity/pkg/semantic"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

// PartialFailure marks a subtree the walker skipped.
type PartialFailure struct {
	Node   syntax.NodeID
	Reason string
}

// Result is the outcome of walking one tree.
type Result struct {
	Counts  accum.Accumulator
	Matches []Match
	Partial []PartialFailure
}

// Walker folds rule matches over a syntax tree.
type Walker struct {
	table *Table
	sink  EventSink
	// RecordMatches keeps every Match in Result.Matches.
	RecordMatches bool
}

// NewWalker creates a walker over table. sink may be nil.
func NewWalker(table *Table, sink EventSink) *Walker {
	return &Walker{table: table, sink: sink}
}

type walkState struct {
	ctx    context.Context
	model  semantic.Model
	path   string
	result Result
}

// Walk visits every node of tree in pre-order, parent before children and
// children in source order. ERROR subtrees and subtrees whose traversal
// panics are skipped and listed in Result.Partial. The context is checked
// between top-level declarations; on cancellation the partial result is
// returned with the context error.
func (w *Walker) Walk(ctx context.Context, tree *syntax.Tree, model semantic.Model) (Result, error) {
	st := &walkState{
		ctx:   ctx,
		model: model,
		path:  tree.Path,
	}

	if tree.Root == nil {
		return st.result, nil
	}

	err := w.visit(st, tree.Root, nil, true)

	return st.result, err
}

// visit handles one subtree. suppressed holds the pruned families active at
// n; it is shared with the caller and never modified.
func (w *Walker) visit(st *walkState, n *syntax.Node, suppressed map[string]int, top bool) (err error) {
	if n.IsError() {
		w.skip(st, n, "syntax error")

		return nil
	}

	savedCounts, savedMatches := st.result.Counts, len(st.result.Matches)

	defer func() {
		if rec := recover(); rec != nil {
			st.result.Counts = savedCounts
			st.result.Matches = st.result.Matches[:savedMatches]
			w.skip(st, n, fmt.Sprint(rec))
			err = nil
		}
	}()

	matches, prune := w.table.evaluate(n, st.model, suppressed, w.sink)

	for _, m := range matches {
		st.result.Counts.Inc(m.Tag)

		if w.RecordMatches {
			st.result.Matches = append(st.result.Matches, m)
		}

		w.sink.emit(Event{Kind: EventMatch, RuleID: m.RuleID, Tag: m.Tag, Label: m.Label, Node: m.Node, Path: st.path})
	}

	if len(prune) > 0 {
		suppressed = withFamilies(suppressed, prune)
	}

	for _, child := range n.Children {
		if top {
			if ctxErr := st.ctx.Err(); ctxErr != nil {
				return fmt.Errorf("walk %s: %w", st.path, ctxErr)
			}
		}

		err = w.visit(st, child, suppressed, false)
		if err != nil {
			return err
		}
	}

	return nil
}

func (w *Walker) skip(st *walkState, n *syntax.Node, reason string) {
	st.result.Partial = append(st.result.Partial, PartialFailure{Node: n.ID(), Reason: reason})
	w.sink.emit(Event{Kind: EventPartial, Node: n.ID(), Path: st.path, Detail: reason})
}

func withFamilies(base map[string]int, families []string) map[string]int {
	out := make(map[string]int, len(base)+len(families))
	for k, v := range base {
		out[k] = v
	}

	for _, fam := range families {
		out[fam]++
	}

	return out
}

// Count walks tree with a background context and returns only the counts.
func Count(table *Table, tree *syntax.Tree, model semantic.Model) accum.Accumulator {
	res, _ := NewWalker(table, nil).Walk(context.Background(), tree, model)

	return res.Counts
}

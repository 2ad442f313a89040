// Package syntax holds the immutable, parser-independent syntax tree the
// classification engine walks.
//
// Trees are produced by a Parser (see package csharp) and never mutated
// afterwards, so they may be shared freely between goroutines.
package syntax

import (
	"context"
	"errors"
	"strings"
)

// ErrParse is returned by parsers when source text cannot be turned into a tree.
var ErrParse = errors.New("parse failure")

// ErrorKind is the node kind parsers use for unparsable regions.
const ErrorKind = "ERROR"

// Parser turns one source file into a Tree.
type Parser interface {
	Parse(ctx context.Context, path string, src []byte) (*Tree, error)
}

// Point is a zero-based row/column position.
type Point struct {
	Row    uint
	Column uint
}

// NodeID identifies a node within one tree.
type NodeID struct {
	Kind  string
	Start uint
	End   uint
}

// Node is one vertex of a syntax tree.
type Node struct {
	Kind       string
	Field      string
	Named      bool
	Missing    bool
	Start      uint
	End        uint
	StartPoint Point
	EndPoint   Point
	Parent     *Node
	Children   []*Node

	tree *Tree
}

// NewNode builds a detached node covering src[start:end]. Trees assembled
// from NewNode must be finished with NewTree before use.
func NewNode(kind string, start, end uint, children ...*Node) *Node {
	return &Node{
		Kind:     kind,
		Named:    kind != "" && !isPunctuation(kind),
		Start:    start,
		End:      end,
		Children: children,
	}
}

// NewToken builds a detached anonymous token node.
func NewToken(kind string, start, end uint) *Node {
	return &Node{Kind: kind, Start: start, End: end}
}

// WithField sets the field name the node occupies in its parent.
func (n *Node) WithField(field string) *Node {
	n.Field = field

	return n
}

// ID returns the node identity used by match records.
func (n *Node) ID() NodeID {
	return NodeID{Kind: n.Kind, Start: n.Start, End: n.End}
}

// Tree returns the tree the node belongs to.
func (n *Node) Tree() *Tree {
	return n.tree
}

// Text returns the source text spanned by the node.
func (n *Node) Text() string {
	if n == nil || n.tree == nil {
		return ""
	}

	src := n.tree.Source
	if n.End > uint(len(src)) || n.Start > n.End {
		return ""
	}

	return string(src[n.Start:n.End])
}

// IsError reports whether the node marks an unparsable region or a token
// the parser had to invent.
func (n *Node) IsError() bool {
	return n.Kind == ErrorKind || n.Missing
}

// Is reports whether the node kind is one of kinds.
func (n *Node) Is(kinds ...string) bool {
	if n == nil {
		return false
	}

	for _, k := range kinds {
		if n.Kind == k {
			return true
		}
	}

	return false
}

// ChildByField returns the first child stored under field, or nil.
func (n *Node) ChildByField(field string) *Node {
	if n == nil {
		return nil
	}

	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}

	return nil
}

// ChildrenByField returns every child stored under field.
func (n *Node) ChildrenByField(field string) []*Node {
	if n == nil {
		return nil
	}

	var out []*Node

	for _, c := range n.Children {
		if c.Field == field {
			out = append(out, c)
		}
	}

	return out
}

// NamedChildren returns the named children in source order.
func (n *Node) NamedChildren() []*Node {
	if n == nil {
		return nil
	}

	out := make([]*Node, 0, len(n.Children))

	for _, c := range n.Children {
		if c.Named {
			out = append(out, c)
		}
	}

	return out
}

// FirstChild returns the first direct child of one of kinds, or nil.
func (n *Node) FirstChild(kinds ...string) *Node {
	if n == nil {
		return nil
	}

	for _, c := range n.Children {
		if c.Is(kinds...) {
			return c
		}
	}

	return nil
}

// ChildrenOf returns every direct child of one of kinds.
func (n *Node) ChildrenOf(kinds ...string) []*Node {
	if n == nil {
		return nil
	}

	var out []*Node

	for _, c := range n.Children {
		if c.Is(kinds...) {
			out = append(out, c)
		}
	}

	return out
}

// HasToken reports whether a direct child is the anonymous token tok or a
// modifier node spelled tok.
func (n *Node) HasToken(tok string) bool {
	if n == nil {
		return false
	}

	for _, c := range n.Children {
		if (!c.Named || c.Kind == "modifier" || c.Kind == "parameter_modifier") && c.Text() == tok {
			return true
		}
	}

	return false
}

// HasModifier reports whether the declaration carries the given modifier.
func (n *Node) HasModifier(mod string) bool {
	return n.HasToken(mod)
}

// TokenIndex returns the index of the first direct child spelled tok, or -1.
func (n *Node) TokenIndex(tok string) int {
	if n == nil {
		return -1
	}

	for i, c := range n.Children {
		if !c.Named && c.Text() == tok {
			return i
		}
	}

	return -1
}

// Operator returns the operator token of a binary, assignment or unary node:
// the "operator" field if present, otherwise the first anonymous child.
func (n *Node) Operator() string {
	if n == nil {
		return ""
	}

	if op := n.ChildByField("operator"); op != nil {
		return op.Text()
	}

	for _, c := range n.Children {
		if !c.Named {
			return c.Text()
		}
	}

	return ""
}

// Index returns the position of n among its parent's children, or -1.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}

	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}

	return -1
}

// NextSibling returns the following sibling, or nil.
func (n *Node) NextSibling() *Node {
	idx := n.Index()
	if idx < 0 || idx+1 >= len(n.Parent.Children) {
		return nil
	}

	return n.Parent.Children[idx+1]
}

// Ancestor returns the nearest proper ancestor of one of kinds, or nil.
func (n *Node) Ancestor(kinds ...string) *Node {
	if n == nil {
		return nil
	}

	for p := n.Parent; p != nil; p = p.Parent {
		if p.Is(kinds...) {
			return p
		}
	}

	return nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the first node in pre-order for which pred holds, or nil.
func (n *Node) Find(pred func(*Node) bool) *Node {
	var found *Node

	n.Walk(func(x *Node) bool {
		if found != nil {
			return false
		}

		if pred(x) {
			found = x

			return false
		}

		return true
	})

	return found
}

// Descendants returns every descendant (excluding n) of one of kinds.
func (n *Node) Descendants(kinds ...string) []*Node {
	var out []*Node

	for _, c := range n.Children {
		c.Walk(func(x *Node) bool {
			if x.Is(kinds...) {
				out = append(out, x)
			}

			return true
		})
	}

	return out
}

// Contains reports whether other lies inside n's byte range.
func (n *Node) Contains(other *Node) bool {
	return other.Start >= n.Start && other.End <= n.End
}

// TextIs compares the node text with s, ignoring surrounding whitespace.
func (n *Node) TextIs(s string) bool {
	return n != nil && strings.TrimSpace(n.Text()) == s
}

func isPunctuation(kind string) bool {
	for _, r := range kind {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return false
		}
	}

	return true
}

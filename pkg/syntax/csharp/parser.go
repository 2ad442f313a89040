// Package csharp parses C# source into syntax trees using the tree-sitter
// C# grammar.
package csharp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/alexaandru/go-sitter-forest/c_sharp"

	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

var (
	errPoolType   = errors.New("csharp parser: unexpected pool entry")
	errNoRootNode = errors.New("csharp parser: no root node")
)

// fieldNames lists every field name the grammar assigns that rules consult.
// Tree-sitter only exposes lookup by name, so each child's field is recovered
// by matching these lookups against the child's span.
var fieldNames = []string{
	"name", "type", "returns", "parameters", "body", "left", "right",
	"operator", "condition", "consequence", "alternative", "expression",
	"pattern", "value", "function", "arguments", "initializer", "accessors",
	"qualifier", "alias", "update", "target", "right_alias", "when",
}

var (
	languageOnce sync.Once
	language     *sitter.Language
)

// Language returns the shared tree-sitter C# language.
func Language() *sitter.Language {
	languageOnce.Do(func() {
		language = sitter.NewLanguage(c_sharp.GetLanguage())
	})

	return language
}

// Parser implements syntax.Parser. It is safe for concurrent use; each call
// borrows a tree-sitter parser from a pool.
type Parser struct {
	pool sync.Pool
}

// NewParser creates a C# parser.
func NewParser() *Parser {
	lang := Language()

	return &Parser{
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}
}

// Parse implements syntax.Parser. Syntax errors do not fail the parse; they
// appear as ERROR nodes and set Tree.HasErrors.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*syntax.Tree, error) {
	tsParser, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer p.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", syntax.ErrParse, path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, fmt.Errorf("%w: %s: %w", syntax.ErrParse, path, errNoRootNode)
	}

	return syntax.NewTree(path, src, convert(root, true)), nil
}

// convert copies a tree-sitter node and its descendants out of C memory.
func convert(tsNode sitter.Node, isRoot bool) *syntax.Node {
	start, end := tsNode.StartPoint(), tsNode.EndPoint()

	out := &syntax.Node{
		Kind:       tsNode.Type(),
		Named:      tsNode.IsNamed(),
		Start:      uint(tsNode.StartByte()),
		End:        uint(tsNode.EndByte()),
		StartPoint: syntax.Point{Row: uint(start.Row), Column: uint(start.Column)},
		EndPoint:   syntax.Point{Row: uint(end.Row), Column: uint(end.Column)},
	}

	count := tsNode.ChildCount()
	if count == 0 {
		out.Missing = !isRoot && out.Start == out.End

		return out
	}

	fields := fieldSpans(tsNode)
	out.Children = make([]*syntax.Node, 0, count)

	for idx := range count {
		child := tsNode.Child(idx)
		if child.IsNull() {
			continue
		}

		converted := convert(child, false)
		converted.Field = fields[spanKey{converted.Kind, converted.Start, converted.End}]
		out.Children = append(out.Children, converted)
	}

	return out
}

type spanKey struct {
	kind       string
	start, end uint
}

func fieldSpans(tsNode sitter.Node) map[spanKey]string {
	fields := make(map[spanKey]string)

	for _, name := range fieldNames {
		child := tsNode.ChildByFieldName(name)
		if child.IsNull() {
			continue
		}

		key := spanKey{child.Type(), uint(child.StartByte()), uint(child.EndByte())}
		if _, taken := fields[key]; !taken {
			fields[key] = name
		}
	}

	return fields
}

package features

import (
	"strings"

	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/semantic"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

const (
	familyRecursivePattern = "recursive-pattern"
	familyLogicalPattern   = "logical-pattern"
	familyListPattern      = "list-pattern"
)

func rulesV8() []Rule {
	return []Rule{
		{
			ID: "readonly-member", Tag: langver.V8_0, Label: "readonly struct member",
			Kinds: []string{"method_declaration", "property_declaration", "indexer_declaration", "accessor_declaration"},
			Predicate: when(func(n *syntax.Node) bool {
				return n.HasModifier("readonly") && enclosingType(n).Is("struct_declaration", "record_struct_declaration", "record_declaration")
			}),
		},
		{
			ID: "static-local-function", Tag: langver.V8_0, Label: "static local function",
			Kinds:     []string{"local_function_statement"},
			Predicate: when(func(n *syntax.Node) bool { return n.HasModifier("static") }),
		},
		{
			ID: "nested-stackalloc", Tag: langver.V8_0, Label: "stackalloc in nested expression",
			Kinds: []string{"stackalloc_expression", "stackalloc_array_creation_expression", "implicit_stackalloc_expression"},
			Predicate: when(func(n *syntax.Node) bool {
				return !n.Parent.Is("variable_declarator", "equals_value_clause")
			}),
		},
		{
			ID: "verbatim-interpolated-string", Tag: langver.V8_0, Label: "@$ interpolated verbatim string",
			Kinds:     []string{"interpolated_string_expression"},
			Predicate: when(func(n *syntax.Node) bool { return strings.HasPrefix(stringPrefix(n), "@$") }),
		},
		{
			ID: "range-expression", Tag: langver.V8_0, Label: "range expression",
			Kinds:     []string{"range_expression"},
			Predicate: when(func(*syntax.Node) bool { return true }),
		},
		{
			ID: "index-from-end", Tag: langver.V8_0, Label: "index from end operator",
			Kinds:     []string{"prefix_unary_expression", "index_expression"},
			Predicate: when(func(n *syntax.Node) bool { return n.Kind == "index_expression" || n.Operator() == "^" }),
		},
		{
			ID: "index-range-type", Tag: langver.V8_0, Label: "System.Index or System.Range type",
			Kinds: []string{"identifier", "qualified_name"},
			Predicate: when(func(n *syntax.Node) bool {
				if n.Kind == "identifier" && n.Parent.Is("qualified_name") {
					return false
				}

				name := semantic.TypeFromNode(n).String()
				switch name {
				case "System.Index", "System.Range":
					return true
				case "Index", "Range":
					return inTypePosition(n)
				}

				return false
			}),
		},
		{
			ID: "using-declaration", Tag: langver.V8_0, Label: "using declaration",
			Kinds:     []string{"local_declaration_statement"},
			Predicate: when(func(n *syntax.Node) bool { return n.HasToken("using") }),
		},
		{
			ID: "await-using", Tag: langver.V8_0, Label: "await using",
			Kinds: []string{"using_statement", "local_declaration_statement"},
			Predicate: when(func(n *syntax.Node) bool {
				return n.HasToken("await") && (n.Kind == "using_statement" || n.HasToken("using"))
			}),
		},
		{
			ID: "await-foreach", Tag: langver.V8_0, Label: "await foreach",
			Kinds:     []string{"foreach_statement"},
			Predicate: when(func(n *syntax.Node) bool { return n.HasToken("await") }),
		},
		{
			ID: "recursive-pattern", Tag: langver.V8_0, Label: "recursive pattern",
			Kinds: []string{"recursive_pattern"}, Family: familyRecursivePattern,
			Predicate: func(*syntax.Node, semantic.Model) Verdict { return MatchPrune },
		},
		{
			ID: "switch-expression", Tag: langver.V8_0, Label: "switch expression",
			Kinds:     []string{"switch_expression"},
			Predicate: when(func(*syntax.Node) bool { return true }),
		},
		{
			ID: "default-interface-method", Tag: langver.V8_0, Label: "default interface member",
			Kinds: []string{"method_declaration", "property_declaration", "indexer_declaration", "event_declaration"},
			Predicate: when(func(n *syntax.Node) bool {
				return enclosingType(n).Is("interface_declaration") && hasBody(n)
			}),
		},
		{
			ID: "null-coalescing-assignment", Tag: langver.V8_0, Label: "??= operator",
			Kinds:     []string{"assignment_expression"},
			Predicate: when(func(n *syntax.Node) bool { return n.Operator() == "??=" }),
		},
		{
			ID: "async-stream", Tag: langver.V8_0, Label: "async stream method",
			Kinds: []string{"method_declaration", "local_function_statement"},
			Predicate: when(func(n *syntax.Node) bool {
				switch semantic.TypeFromNode(semantic.ReturnType(n)).Unqualified() {
				case "IAsyncEnumerable", "IAsyncEnumerator":
					return true
				}

				return false
			}),
		},
		{
			ID: "null-forgiving", Tag: langver.V8_0, Label: "null-forgiving operator",
			Kinds:     []string{"postfix_unary_expression"},
			Predicate: when(func(n *syntax.Node) bool { return n.Operator() == "!" }),
		},
		{
			ID: "nullable-directive", Tag: langver.V8_0, Label: "#nullable directive",
			Kinds:     []string{"nullable_directive", "preproc_nullable"},
			Predicate: when(func(*syntax.Node) bool { return true }),
		},
	}
}

// enclosingType returns the type declaration whose body directly holds n.
func enclosingType(n *syntax.Node) *syntax.Node {
	p := n.Parent
	if p.Is("accessor_list") {
		p = p.Parent.Parent
	}

	if !p.Is("declaration_list") {
		return nil
	}

	return p.Parent
}

// hasBody reports whether a member declares an implementation.
func hasBody(n *syntax.Node) bool {
	if n.FirstChild("block", "arrow_expression_clause") != nil {
		return true
	}

	accessors := n.FirstChild("accessor_list")
	if accessors == nil {
		return false
	}

	for _, acc := range accessors.ChildrenOf("accessor_declaration") {
		if acc.FirstChild("block", "arrow_expression_clause") != nil {
			return true
		}
	}

	return false
}

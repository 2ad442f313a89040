package features

import (
	"strings"

	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/semantic"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

var memberDeclKinds = []string{
	"method_declaration", "property_declaration", "field_declaration", "constructor_declaration",
	"event_field_declaration", "event_declaration", "indexer_declaration", "operator_declaration",
	"conversion_operator_declaration", "delegate_declaration",
}

func rulesV7() []Rule {
	return []Rule{
		// 7.1
		{
			ID: "async-main", Tag: langver.V7_1, Label: "async Main",
			Kinds:     []string{"method_declaration"},
			Predicate: when(isAsyncMain),
		},
		{
			ID: "default-literal", Tag: langver.V7_1, Label: "default literal",
			Kinds:     []string{"default_expression"},
			Predicate: when(func(n *syntax.Node) bool { return !hasDefaultType(n) }),
		},
		{
			ID: "default-expression", Tag: langver.V7_1, Label: "default(T) expression",
			Kinds:     []string{"default_expression"},
			Predicate: when(hasDefaultType),
		},
		{
			ID: "inferred-tuple-names", Tag: langver.V7_1, Label: "inferred tuple element names",
			Kinds:     []string{"tuple_expression"},
			Predicate: when(hasInferredTupleNames),
		},
		{
			ID: "generic-pattern", Tag: langver.V7_1, Label: "pattern matching on generic type parameter",
			Kinds:          []string{"is_pattern_expression"},
			NeedsSemantics: true,
			Predicate:      genericPattern,
		},
		// 7.2
		{
			ID: "private-protected", Tag: langver.V7_2, Label: "private protected modifier",
			Kinds: append(append([]string{}, memberDeclKinds...), typeDeclKinds...),
			Predicate: when(func(n *syntax.Node) bool {
				return n.HasModifier("private") && n.HasModifier("protected")
			}),
		},
		{
			ID: "non-trailing-named-arguments", Tag: langver.V7_2, Label: "non-trailing named arguments",
			Kinds:     []string{"argument_list", "bracketed_argument_list"},
			Predicate: when(hasNonTrailingNamedArgument),
		},
		{
			ID: "leading-digit-separator", Tag: langver.V7_2, Label: "digit separator after 0x or 0b",
			Kinds: []string{"integer_literal"},
			Predicate: when(func(n *syntax.Node) bool {
				lower := strings.ToLower(n.Text())

				return strings.HasPrefix(lower, "0x_") || strings.HasPrefix(lower, "0b_")
			}),
		},
		{
			ID: "ref-conditional", Tag: langver.V7_2, Label: "conditional ref expression",
			Kinds: []string{"conditional_expression"},
			Predicate: when(func(n *syntax.Node) bool {
				return n.ChildByField("consequence").Is("ref_expression") &&
					n.ChildByField("alternative").Is("ref_expression")
			}),
		},
		{
			ID: "in-parameter", Tag: langver.V7_2, Label: "in parameter",
			Kinds:     []string{"parameter"},
			Predicate: when(func(n *syntax.Node) bool { return n.HasToken("in") }),
		},
		{
			ID: "in-argument", Tag: langver.V7_2, Label: "in argument",
			Kinds:     []string{"argument"},
			Predicate: when(func(n *syntax.Node) bool { return n.HasToken("in") }),
		},
		{
			ID: "ref-readonly-return", Tag: langver.V7_2, Label: "ref readonly return",
			Kinds: []string{
				"method_declaration", "local_function_statement", "property_declaration",
				"indexer_declaration", "delegate_declaration",
			},
			Predicate: when(func(n *syntax.Node) bool {
				ret := semantic.ReturnType(n)

				return ret.Is("ref_type") && ret.HasToken("readonly")
			}),
		},
		{
			ID: "readonly-struct", Tag: langver.V7_2, Label: "readonly struct",
			Kinds:     []string{"struct_declaration", "record_struct_declaration", "record_declaration"},
			Predicate: when(func(n *syntax.Node) bool { return isStructDecl(n) && n.HasModifier("readonly") }),
		},
		{
			ID: "ref-struct", Tag: langver.V7_2, Label: "ref struct",
			Kinds:     []string{"struct_declaration", "record_struct_declaration", "record_declaration"},
			Predicate: when(func(n *syntax.Node) bool { return isStructDecl(n) && n.HasModifier("ref") }),
		},
		// 7.3
		{
			ID: "unmanaged-constraint", Tag: langver.V7_3, Label: "unmanaged constraint",
			Kinds:     []string{"type_parameter_constraint"},
			Predicate: when(func(n *syntax.Node) bool { return n.TextIs("unmanaged") }),
		},
		{
			ID: "tuple-equality", Tag: langver.V7_3, Label: "tuple == and !=",
			Kinds:          []string{"binary_expression"},
			NeedsSemantics: true,
			Predicate: func(n *syntax.Node, model semantic.Model) Verdict {
				op := n.Operator()
				if op != "==" && op != "!=" {
					return NoMatch
				}

				return match(model.IsTuple(n.ChildByField("left")) && model.IsTuple(n.ChildByField("right")))
			},
		},
		{
			ID: "field-targeted-attribute", Tag: langver.V7_3, Label: "field-targeted attribute on auto-property",
			Kinds: []string{"attribute_list"},
			Predicate: when(func(n *syntax.Node) bool {
				return attributeTarget(n) == "field" && n.Parent.Is("property_declaration")
			}),
		},
		{
			ID: "stackalloc-initializer", Tag: langver.V7_3, Label: "stackalloc array initializer",
			Kinds: []string{"stackalloc_expression", "stackalloc_array_creation_expression", "implicit_stackalloc_expression"},
			Predicate: when(func(n *syntax.Node) bool {
				return n.FirstChild("initializer_expression") != nil
			}),
		},
		{
			ID: "fixed-size-buffer", Tag: langver.V7_3, Label: "fixed-size buffer field",
			Kinds:     []string{"field_declaration"},
			Predicate: when(func(n *syntax.Node) bool { return n.HasModifier("fixed") }),
		},
		{
			ID: "expression-variable-in-initializer", Tag: langver.V7_3, Label: "expression variable in initializer",
			Kinds:     []string{"declaration_expression", "declaration_pattern"},
			Predicate: when(inMemberInitializer),
		},
	}
}

func isAsyncMain(n *syntax.Node) bool {
	name := n.ChildByField("name")
	if !name.TextIs("Main") || !n.HasModifier("static") {
		return false
	}

	ret := semantic.TypeFromNode(semantic.ReturnType(n))
	if ret.Unqualified() != "Task" {
		return false
	}

	args := ret.Args()

	return len(args) == 0 || (len(args) == 1 && args[0] == "int")
}

func hasDefaultType(n *syntax.Node) bool {
	return n.ChildByField("type") != nil || n.HasToken("(")
}

func hasInferredTupleNames(n *syntax.Node) bool {
	if isDeconstructionSide(n) {
		return false
	}

	for _, arg := range n.ChildrenOf("argument") {
		if argumentName(arg) != nil {
			continue
		}

		expr := expressionOf(arg)
		if expr.Is("identifier", "member_access_expression") {
			return true
		}
	}

	return false
}

// isDeconstructionSide reports whether a tuple literal is either side of a
// deconstructing assignment, where element names are never observable.
func isDeconstructionSide(n *syntax.Node) bool {
	p := n.Parent
	if p == nil || p.Kind != "assignment_expression" {
		return false
	}

	left := p.ChildByField("left")

	return left.Is("tuple_expression", "declaration_expression")
}

func genericPattern(n *syntax.Node, model semantic.Model) Verdict {
	operand := n.ChildByField("expression")
	pattern := n.ChildByField("pattern")

	if operand == nil || pattern == nil || pattern.Is("constant_pattern", "null_literal") {
		return NoMatch
	}

	t, ok := model.TypeOf(operand)

	return match(ok && model.IsTypeParameter(n, t.Name))
}

func hasNonTrailingNamedArgument(n *syntax.Node) bool {
	seenNamed := false

	for _, arg := range n.ChildrenOf("argument") {
		if argumentName(arg) != nil {
			seenNamed = true

			continue
		}

		if seenNamed {
			return true
		}
	}

	return false
}

func isStructDecl(n *syntax.Node) bool {
	return n.Kind == "struct_declaration" || isRecordStruct(n)
}

func inMemberInitializer(n *syntax.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		switch p.Kind {
		case "constructor_initializer", "field_declaration":
			return true
		case "property_declaration":
			return p.Contains(n)
		case "block", "arrow_expression_clause", "accessor_list", "lambda_expression",
			"anonymous_method_expression", "method_declaration", "local_function_statement",
			"global_statement":
			return false
		}
	}

	return false
}

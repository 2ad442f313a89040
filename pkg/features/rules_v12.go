package features

import (
	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/semantic"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

func rulesV12() []Rule {
	return []Rule{
		{
			ID: "ref-readonly-parameter", Tag: langver.V12_0, Label: "ref readonly parameter",
			Kinds: []string{"parameter"},
			Predicate: when(func(n *syntax.Node) bool {
				return n.HasToken("ref") && n.HasToken("readonly")
			}),
		},
		{
			ID: "collection-expression", Tag: langver.V12_0, Label: "collection expression",
			Kinds:     []string{"collection_expression"},
			Predicate: when(func(*syntax.Node) bool { return true }),
		},
		attributeRule("inline-array", langver.V12_0, "[InlineArray]", "InlineArray"),
		{
			ID: "nameof-instance-member-static", Tag: langver.V12_0, Label: "nameof instance member from static context",
			Kinds:          []string{"invocation_expression"},
			NeedsSemantics: true,
			Predicate: func(n *syntax.Node, model semantic.Model) Verdict {
				if !isNameofCall(n) {
					return NoMatch
				}

				operand := nameofOperand(n)
				if !operand.Is("member_access_expression") {
					return NoMatch
				}

				left := leftmostIdentifier(operand)
				if left == nil {
					return NoMatch
				}

				return match(model.IsStaticContext(n) && model.IsInstanceMember(n, left.Text()))
			},
		},
		{
			ID: "alias-any-type", Tag: langver.V12_0, Label: "using alias to any type",
			Kinds:     []string{"using_directive"},
			Predicate: when(aliasesNonNamedType),
		},
		{
			ID: "primary-constructor", Tag: langver.V12_0, Label: "primary constructor on class or struct",
			Kinds: []string{"class_declaration", "struct_declaration"},
			Predicate: when(func(n *syntax.Node) bool {
				return n.FirstChild("parameter_list") != nil
			}),
		},
		{
			ID: "lambda-optional-parameter", Tag: langver.V12_0, Label: "lambda default parameter value",
			Kinds: lambdaKinds,
			Predicate: when(func(n *syntax.Node) bool {
				for _, p := range parameters(n) {
					if hasDefaultValue(p) {
						return true
					}
				}

				return false
			}),
		},
		attributeRule("experimental-attribute", langver.V12_0, "[Experimental]", "Experimental"),
	}
}

// aliasesNonNamedType reports whether a using alias targets a tuple, array,
// pointer, predefined or other non-name type.
func aliasesNonNamedType(n *syntax.Node) bool {
	if n.TokenIndex("=") < 0 {
		return false
	}

	named := n.NamedChildren()
	if len(named) == 0 {
		return false
	}

	target := named[len(named)-1]

	return target.Is("tuple_type", "array_type", "pointer_type", "predefined_type",
		"nullable_type", "function_pointer_type", "ref_type")
}

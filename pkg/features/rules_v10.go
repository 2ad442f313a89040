package features

import (
	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

func rulesV10() []Rule {
	return []Rule{
		{
			ID: "record-struct", Tag: langver.V10_0, Label: "record struct",
			Kinds:     []string{"record_declaration", "record_struct_declaration"},
			Predicate: when(isRecordStruct),
		},
		{
			ID: "global-using", Tag: langver.V10_0, Label: "global using directive",
			Kinds:     []string{"using_directive"},
			Predicate: when(func(n *syntax.Node) bool { return n.HasToken("global") }),
		},
		{
			ID: "const-interpolated-string", Tag: langver.V10_0, Label: "constant interpolated string",
			Kinds:     []string{"interpolated_string_expression"},
			Predicate: when(inConstantContext),
		},
		{
			ID: "extended-property-pattern", Tag: langver.V10_0, Label: "extended property pattern",
			Kinds: []string{"subpattern"},
			Predicate: when(func(n *syntax.Node) bool {
				named := n.NamedChildren()

				return len(named) > 1 && named[0].Is("member_access_expression")
			}),
		},
		{
			ID: "sealed-record-tostring", Tag: langver.V10_0, Label: "sealed ToString in record",
			Kinds: []string{"method_declaration"},
			Predicate: when(func(n *syntax.Node) bool {
				return n.ChildByField("name").TextIs("ToString") &&
					n.HasModifier("sealed") && n.HasModifier("override") &&
					enclosingType(n).Is("record_declaration")
			}),
		},
		{
			ID: "mixed-deconstruction", Tag: langver.V10_0, Label: "mixed declaration and assignment in deconstruction",
			Kinds:     []string{"assignment_expression"},
			Predicate: when(isMixedDeconstruction),
		},
		{
			ID: "async-method-builder-on-method", Tag: langver.V10_0, Label: "[AsyncMethodBuilder] on method",
			Kinds: []string{"attribute"},
			Predicate: when(func(n *syntax.Node) bool {
				if attributeName(n) != "AsyncMethodBuilder" {
					return false
				}

				list := n.Parent

				return list.Is("attribute_list") && list.Parent.Is("method_declaration", "local_function_statement")
			}),
		},
		{
			ID: "lambda-improvements", Tag: langver.V10_0, Label: "lambda with return type or attributes",
			Kinds: lambdaKinds,
			Predicate: when(func(n *syntax.Node) bool {
				return n.ChildByField("type") != nil || n.FirstChild("attribute_list") != nil
			}),
		},
		{
			ID: "file-scoped-namespace", Tag: langver.V10_0, Label: "file-scoped namespace",
			Kinds:     []string{"file_scoped_namespace_declaration"},
			Predicate: when(func(*syntax.Node) bool { return true }),
		},
		{
			ID: "parameterless-struct-constructor", Tag: langver.V10_0, Label: "parameterless struct constructor",
			Kinds: []string{"constructor_declaration"},
			Predicate: when(func(n *syntax.Node) bool {
				owner := enclosingType(n)
				if !owner.Is("struct_declaration") && !(owner != nil && isRecordStruct(owner)) {
					return false
				}

				return !n.HasModifier("static") && len(parameters(n)) == 0
			}),
		},
		attributeRule("caller-argument-expression", langver.V10_0, "[CallerArgumentExpression]", "CallerArgumentExpression"),
	}
}

// inConstantContext reports whether an expression initializes a const local
// or field, or is an attribute argument.
func inConstantContext(n *syntax.Node) bool {
	owner := n.Ancestor("field_declaration", "local_declaration_statement", "attribute_argument",
		"block", "arrow_expression_clause")
	if owner == nil {
		return false
	}

	switch owner.Kind {
	case "attribute_argument":
		return true
	case "field_declaration", "local_declaration_statement":
		return owner.HasModifier("const")
	}

	return false
}

func isMixedDeconstruction(n *syntax.Node) bool {
	if n.Operator() != "=" {
		return false
	}

	left := n.ChildByField("left")
	if !left.Is("tuple_expression") {
		return false
	}

	declared, assigned := 0, 0

	for _, arg := range left.ChildrenOf("argument") {
		if expressionOf(arg).Is("declaration_expression") {
			declared++
		} else {
			assigned++
		}
	}

	return declared > 0 && assigned > 0
}

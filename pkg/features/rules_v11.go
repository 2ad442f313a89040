package features

import (
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/semantic"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

func rulesV11() []Rule {
	return []Rule{
		{
			ID: "file-local-type", Tag: langver.V11_0, Label: "file-local type",
			Kinds:     append([]string{"delegate_declaration"}, typeDeclKinds...),
			Predicate: when(func(n *syntax.Node) bool { return n.HasModifier("file") }),
		},
		{
			ID: "required-member", Tag: langver.V11_0, Label: "required member",
			Kinds:     []string{"property_declaration", "field_declaration"},
			Predicate: when(func(n *syntax.Node) bool { return n.HasModifier("required") }),
		},
		{
			ID: "unsigned-right-shift", Tag: langver.V11_0, Label: ">>> operator",
			Kinds: []string{"binary_expression", "assignment_expression"},
			Predicate: when(func(n *syntax.Node) bool {
				op := n.Operator()

				return op == ">>>" || op == ">>>="
			}),
		},
		{
			ID: "utf8-literal", Tag: langver.V11_0, Label: "UTF-8 string literal",
			Kinds:     []string{"string_literal", "raw_string_literal"},
			Predicate: when(semantic.IsUTF8Literal),
		},
		{
			ID: "span-pattern", Tag: langver.V11_0, Label: "pattern match on Span<char> with string constant",
			Kinds:          []string{"is_pattern_expression", "switch_expression", "switch_statement"},
			NeedsSemantics: true,
			Predicate:      spanPattern,
		},
		{
			ID: "checked-operator", Tag: langver.V11_0, Label: "checked user-defined operator",
			Kinds:     []string{"operator_declaration", "conversion_operator_declaration"},
			Predicate: when(func(n *syntax.Node) bool { return n.HasToken("checked") }),
		},
		{
			ID: "auto-default-struct", Tag: langver.V11_0, Label: "auto-default struct fields",
			Kinds:     []string{"constructor_declaration"},
			Predicate: when(leavesFieldsUnassigned),
		},
		{
			ID: "interpolation-newline", Tag: langver.V11_0, Label: "newline in interpolation hole",
			Kinds: []string{"interpolation"},
			Predicate: when(func(n *syntax.Node) bool {
				str := n.Ancestor("interpolated_string_expression")
				if str == nil || strings.Contains(stringPrefix(str), "@") || isRawString(str) {
					return false
				}

				return strings.ContainsAny(n.Text(), "\r\n")
			}),
		},
		{
			ID: "list-pattern", Tag: langver.V11_0, Label: "list pattern",
			Kinds: []string{"list_pattern"}, Family: familyListPattern,
			Predicate: func(*syntax.Node, semantic.Model) Verdict { return MatchPrune },
		},
		{
			ID: "raw-string-literal", Tag: langver.V11_0, Label: "raw string literal",
			Kinds: []string{"raw_string_literal", "interpolated_string_expression"},
			Predicate: when(func(n *syntax.Node) bool {
				if n.Kind == "raw_string_literal" {
					return !n.Parent.Is("interpolated_string_expression")
				}

				return isRawString(n)
			}),
		},
		{
			ID: "nameof-parameter-in-attribute", Tag: langver.V11_0, Label: "nameof(parameter) in attribute",
			Kinds: []string{"invocation_expression"},
			Predicate: when(func(n *syntax.Node) bool {
				if !isNameofCall(n) {
					return false
				}

				attr := n.Ancestor("attribute")
				operand := nameofOperand(n)

				if attr == nil || !operand.Is("identifier") {
					return false
				}

				return slices.Contains(attributeOwnerParams(attr), operand.Text())
			}),
		},
		{
			ID: "generic-attribute", Tag: langver.V11_0, Label: "generic attribute",
			Kinds: []string{"attribute"},
			Predicate: when(func(n *syntax.Node) bool {
				name := n.ChildByField("name")
				if name == nil {
					name = n.FirstChild("identifier", "generic_name", "qualified_name")
				}

				if name.Is("qualified_name") {
					named := name.NamedChildren()
					name = named[len(named)-1]
				}

				return name.Is("generic_name")
			}),
		},
		{
			ID: "static-abstract-interface-member", Tag: langver.V11_0, Label: "static abstract interface member",
			Kinds: []string{
				"method_declaration", "property_declaration", "event_field_declaration",
				"operator_declaration", "conversion_operator_declaration", "indexer_declaration",
			},
			Predicate: when(func(n *syntax.Node) bool {
				return enclosingType(n).Is("interface_declaration") && n.HasModifier("static") &&
					(n.HasModifier("abstract") || n.HasModifier("virtual"))
			}),
		},
	}
}

func spanPattern(n *syntax.Node, model semantic.Model) Verdict {
	subject := n.ChildByField("expression")
	if subject == nil && n.Kind == "switch_statement" {
		subject = n.ChildByField("value")
	}

	if subject == nil {
		named := n.NamedChildren()
		if len(named) == 0 {
			return NoMatch
		}

		subject = named[0]
	}

	for subject.Is("parenthesized_expression") {
		subject = expressionOf(subject)
	}

	t, ok := model.TypeOf(subject)
	if !ok {
		return NoMatch
	}

	switch t.Unqualified() {
	case "ReadOnlySpan", "Span":
	default:
		return NoMatch
	}

	if args := t.Args(); len(args) != 1 || args[0] != "char" {
		return NoMatch
	}

	found := n.Find(func(d *syntax.Node) bool {
		return d.Kind == "string_literal" && d != subject && !subject.Contains(d) && inPatternPosition(d)
	})

	return match(found != nil)
}

func inPatternPosition(n *syntax.Node) bool {
	if n.Field == "pattern" {
		return true
	}

	return n.Parent.Is("constant_pattern", "case_switch_label", "switch_label", "case_pattern_switch_label",
		"switch_expression_arm", "relational_pattern", "and_pattern", "or_pattern", "negated_pattern")
}

// leavesFieldsUnassigned reports whether a struct instance constructor
// leaves some instance field unassigned.
func leavesFieldsUnassigned(n *syntax.Node) bool {
	owner := enclosingType(n)
	if owner == nil || !isStructDecl(owner) || n.HasModifier("static") {
		return false
	}

	if init := n.FirstChild("constructor_initializer"); init != nil && init.HasToken("this") {
		return false
	}

	fields := instanceFields(owner)
	if len(fields) == 0 {
		return false
	}

	assigned := make(map[string]bool)

	for _, a := range n.Descendants("assignment_expression") {
		left := a.ChildByField("left")

		switch {
		case left.Is("identifier"):
			assigned[left.Text()] = true
		case left.Is("member_access_expression") && left.ChildByField("expression").Is("this_expression", "this"):
			assigned[left.ChildByField("name").Text()] = true
		}
	}

	for _, f := range fields {
		if !assigned[f] {
			return true
		}
	}

	return false
}

func instanceFields(typeDecl *syntax.Node) []string {
	var out []string

	for _, f := range members(typeDecl, "field_declaration") {
		if f.HasModifier("static") || f.HasModifier("const") {
			continue
		}

		decl := f.FirstChild("variable_declaration")
		for _, v := range decl.ChildrenOf("variable_declarator") {
			if semantic.Initializer(v) != nil {
				continue
			}

			name := v.ChildByField("name")
			if name == nil {
				name = v.FirstChild("identifier")
			}

			if name != nil {
				out = append(out, name.Text())
			}
		}
	}

	return out
}

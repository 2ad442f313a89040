package features

import (
	"slices"

	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/semantic"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

func rulesV9() []Rule {
	return []Rule{
		{
			ID: "target-typed-new", Tag: langver.V9_0, Label: "target-typed new()",
			Kinds:     []string{"implicit_object_creation_expression"},
			Predicate: when(func(*syntax.Node) bool { return true }),
		},
		attributeRule("skip-locals-init", langver.V9_0, "[SkipLocalsInit]", "SkipLocalsInit"),
		{
			ID: "lambda-discard-parameters", Tag: langver.V9_0, Label: "lambda discard parameters",
			Kinds: lambdaKinds,
			Predicate: when(func(n *syntax.Node) bool {
				discards := 0

				for _, p := range parameters(n) {
					if parameterName(p) == "_" {
						discards++
					}
				}

				return discards >= 2
			}),
		},
		{
			ID: "native-sized-integer", Tag: langver.V9_0, Label: "nint / nuint",
			Kinds: []string{"identifier", "predefined_type"},
			Predicate: when(func(n *syntax.Node) bool {
				if !n.TextIs("nint") && !n.TextIs("nuint") {
					return false
				}

				return n.Kind == "predefined_type" || inTypePosition(n)
			}),
		},
		{
			ID: "local-function-attributes", Tag: langver.V9_0, Label: "attributes on local function",
			Kinds:     []string{"local_function_statement"},
			Predicate: when(func(n *syntax.Node) bool { return n.FirstChild("attribute_list") != nil }),
		},
		{
			ID: "function-pointer", Tag: langver.V9_0, Label: "function pointer",
			Kinds:     []string{"function_pointer_type"},
			Predicate: when(func(*syntax.Node) bool { return true }),
		},
		{
			ID: "static-lambda", Tag: langver.V9_0, Label: "static anonymous function",
			Kinds:     append([]string{"anonymous_method_expression"}, lambdaKinds...),
			Predicate: when(func(n *syntax.Node) bool { return n.HasModifier("static") }),
		},
		{
			ID: "record-class", Tag: langver.V9_0, Label: "record",
			Kinds:     []string{"record_declaration"},
			Predicate: when(func(n *syntax.Node) bool { return !isRecordStruct(n) }),
		},
		{
			ID: "target-typed-conditional", Tag: langver.V9_0, Label: "target-typed conditional expression",
			Kinds:          []string{"conditional_expression"},
			NeedsSemantics: true,
			Predicate:      targetTypedConditional,
		},
		{
			ID: "covariant-return", Tag: langver.V9_0, Label: "covariant return type",
			Kinds:          []string{"method_declaration", "property_declaration"},
			NeedsSemantics: true,
			Predicate: func(n *syntax.Node, model semantic.Model) Verdict {
				if !n.HasModifier("override") {
					return NoMatch
				}

				base, ok := model.BaseMethod(n)
				if !ok {
					return NoMatch
				}

				own := semantic.TypeFromNode(semantic.ReturnType(n))
				inherited := semantic.TypeFromNode(semantic.ReturnType(base))

				return match(!own.IsZero() && !inherited.IsZero() && own != inherited)
			},
		},
		{
			ID: "extension-get-enumerator", Tag: langver.V9_0, Label: "extension GetEnumerator in foreach",
			Kinds:          []string{"foreach_statement"},
			NeedsSemantics: true,
			Predicate:      extensionGetEnumerator,
		},
		attributeRule("module-initializer", langver.V9_0, "[ModuleInitializer]", "ModuleInitializer"),
		{
			ID: "top-level-statements", Tag: langver.V9_0, Label: "top-level statements",
			Kinds:     []string{"compilation_unit"},
			Predicate: when(func(n *syntax.Node) bool { return n.FirstChild("global_statement") != nil }),
		},
		{
			ID: "logical-pattern", Tag: langver.V9_0, Label: "relational or logical pattern",
			Kinds:  []string{"relational_pattern", "and_pattern", "or_pattern", "negated_pattern"},
			Family: familyLogicalPattern,
			Predicate: func(*syntax.Node, semantic.Model) Verdict {
				return MatchPrune
			},
		},
		{
			ID: "init-accessor", Tag: langver.V9_0, Label: "init accessor",
			Kinds:     []string{"accessor_declaration"},
			Predicate: when(func(n *syntax.Node) bool { return n.HasToken("init") }),
		},
	}
}

// attributeRule matches attribute usages by simple name.
func attributeRule(id string, tag langver.Tag, label string, names ...string) Rule {
	return Rule{
		ID: id, Tag: tag, Label: label,
		Kinds: []string{"attribute"},
		Predicate: when(func(n *syntax.Node) bool {
			return slices.Contains(names, attributeName(n))
		}),
	}
}

func targetTypedConditional(n *syntax.Node, model semantic.Model) Verdict {
	target, ok := conditionalTarget(n)
	if !ok {
		return NoMatch
	}

	a, okA := model.TypeOf(n.ChildByField("consequence"))
	b, okB := model.TypeOf(n.ChildByField("alternative"))

	if !okA || !okB || a == b {
		return NoMatch
	}

	if model.Converts(a, b) || model.Converts(b, a) {
		return NoMatch
	}

	return match(model.Converts(a, target) && model.Converts(b, target))
}

// conditionalTarget returns the explicitly declared type a conditional
// expression is converted to, when it initializes a typed local or field or
// is returned from a method with a declared return type.
func conditionalTarget(n *syntax.Node) (semantic.Type, bool) {
	p := n.Parent
	for p.Is("parenthesized_expression") {
		p = p.Parent
	}

	if p.Is("equals_value_clause") {
		p = p.Parent
	}

	switch {
	case p.Is("variable_declarator"):
		decl := p.Parent
		if !decl.Is("variable_declaration") {
			return semantic.Type{}, false
		}

		typ := decl.ChildByField("type")
		if typ == nil || typ.TextIs("var") {
			return semantic.Type{}, false
		}

		return semantic.TypeFromNode(typ), true
	case p.Is("return_statement", "arrow_expression_clause"):
		owner := p.Ancestor("method_declaration", "local_function_statement", "property_declaration")
		if owner == nil {
			return semantic.Type{}, false
		}

		ret := semantic.TypeFromNode(semantic.ReturnType(owner))

		return ret, !ret.IsZero() && ret.Name != "void"
	}

	return semantic.Type{}, false
}

func extensionGetEnumerator(n *syntax.Node, model semantic.Model) Verdict {
	if n.HasToken("await") {
		return NoMatch
	}

	coll := n.ChildByField("right")
	if coll == nil {
		return NoMatch
	}

	t, ok := model.TypeOf(coll)
	if !ok {
		return NoMatch
	}

	found := false

	for _, ext := range model.ExtensionMethods("GetEnumerator") {
		if ext.Receiver.Base() == t.Base() || model.Converts(t, ext.Receiver) {
			found = true

			break
		}
	}

	if !found {
		return NoMatch
	}

	if t.IsTuple() {
		return Match
	}

	decl, declared := model.TypeDecl(t.Base())
	if !declared {
		return NoMatch
	}

	for _, m := range members(decl, "method_declaration") {
		if m.ChildByField("name").TextIs("GetEnumerator") {
			return NoMatch
		}
	}

	return Match
}

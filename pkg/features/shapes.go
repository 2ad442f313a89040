package features

import (
	"strings"

	"github.com/Sumatoshi-tech/modernity/pkg/semantic"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

// Node kind groups of the tree-sitter C# grammar shared by several rules.
var (
	typeDeclKinds = []string{
		"class_declaration", "struct_declaration", "record_declaration",
		"record_struct_declaration", "interface_declaration", "enum_declaration",
	}
	lambdaKinds    = []string{"lambda_expression"}
	stringLiterals = []string{"string_literal", "verbatim_string_literal", "raw_string_literal"}
	patternKinds   = []string{
		"recursive_pattern", "relational_pattern", "and_pattern", "or_pattern",
		"negated_pattern", "parenthesized_pattern", "list_pattern", "type_pattern",
		"declaration_pattern", "constant_pattern", "var_pattern", "discard",
		"slice_pattern",
	}
	// typeWrapperKinds are nodes whose children are in type position.
	typeWrapperKinds = []string{
		"type_argument_list", "nullable_type", "array_type", "pointer_type",
		"ref_type", "scoped_type", "tuple_element", "base_list", "type_parameter_constraint",
		"function_pointer_parameter",
	}
)

// match converts a boolean into a Verdict.
func match(ok bool) Verdict {
	if ok {
		return Match
	}

	return NoMatch
}

// when adapts a boolean syntax predicate.
func when(fn func(n *syntax.Node) bool) Predicate {
	return func(n *syntax.Node, _ semantic.Model) Verdict {
		return match(fn(n))
	}
}

// attributeNames returns the simple names of the attributes applied to decl,
// without namespace qualifier, generic arguments or "Attribute" suffix.
func attributeNames(decl *syntax.Node) []string {
	var names []string

	for _, list := range decl.ChildrenOf("attribute_list") {
		for _, attr := range list.ChildrenOf("attribute") {
			names = append(names, attributeName(attr))
		}
	}

	return names
}

func attributeName(attr *syntax.Node) string {
	name := attr.ChildByField("name")
	if name == nil {
		named := attr.NamedChildren()
		if len(named) == 0 {
			return ""
		}

		name = named[0]
	}

	text := semantic.TypeFromNode(name).Unqualified()

	return strings.TrimSuffix(text, "Attribute")
}

func hasAttribute(decl *syntax.Node, names ...string) bool {
	for _, got := range attributeNames(decl) {
		for _, want := range names {
			if got == want {
				return true
			}
		}
	}

	return false
}

// attributeTarget returns the explicit target of an attribute list ("field",
// "return", ...) or "".
func attributeTarget(list *syntax.Node) string {
	spec := list.FirstChild("attribute_target_specifier")
	if spec == nil {
		return ""
	}

	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(spec.Text()), ":"))
}

// parameters returns the parameter nodes of a method-like declaration or lambda.
func parameters(n *syntax.Node) []*syntax.Node {
	list := n.ChildByField("parameters")
	if list == nil {
		list = n.FirstChild("parameter_list")
	}

	if list == nil {
		return nil
	}

	return list.ChildrenOf("parameter")
}

func parameterName(p *syntax.Node) string {
	if name := p.ChildByField("name"); name != nil {
		return name.Text()
	}

	if ident := p.FirstChild("identifier"); ident != nil {
		return ident.Text()
	}

	return ""
}

// hasDefaultValue reports whether a parameter declares "= value".
func hasDefaultValue(p *syntax.Node) bool {
	return p.FirstChild("equals_value_clause") != nil || p.TokenIndex("=") >= 0
}

// inTypePosition reports whether n is used as a type rather than an expression.
func inTypePosition(n *syntax.Node) bool {
	switch n.Field {
	case "type", "returns":
		return true
	}

	p := n.Parent
	if p == nil {
		return false
	}

	return p.Is(typeWrapperKinds...) || (p.Kind == "generic_name" && n.Kind != "identifier")
}

// simpleTypeName returns the unqualified type name for identifier-like type nodes.
func simpleTypeName(n *syntax.Node) string {
	switch n.Kind {
	case "identifier", "predefined_type":
		return n.Text()
	case "qualified_name":
		return semantic.TypeFromNode(n).Unqualified()
	case "generic_name":
		if ident := n.FirstChild("identifier"); ident != nil {
			return ident.Text()
		}
	}

	return ""
}

// memberBody returns the declaration_list of a type declaration.
func memberBody(typeDecl *syntax.Node) *syntax.Node {
	if body := typeDecl.ChildByField("body"); body != nil {
		return body
	}

	return typeDecl.FirstChild("declaration_list")
}

func members(typeDecl *syntax.Node, kinds ...string) []*syntax.Node {
	body := memberBody(typeDecl)
	if body == nil {
		return nil
	}

	return body.ChildrenOf(kinds...)
}

// isRecordStruct reports whether a record declaration declares a value type.
func isRecordStruct(n *syntax.Node) bool {
	if n.Kind == "record_struct_declaration" {
		return true
	}

	return n.Kind == "record_declaration" && n.HasToken("struct")
}

// stringPrefix returns the leading sigils of a string-like expression ($, @, """).
func stringPrefix(n *syntax.Node) string {
	text := n.Text()
	end := strings.IndexByte(text, '"')

	if end < 0 {
		return text
	}

	return text[:end]
}

func isRawString(n *syntax.Node) bool {
	text := n.Text()
	prefix := stringPrefix(n)

	return strings.HasPrefix(text[len(prefix):], `"""`)
}

// expressionOf returns the wrapped expression of an argument-like node.
func expressionOf(n *syntax.Node) *syntax.Node {
	if e := n.ChildByField("expression"); e != nil {
		return e
	}

	named := n.NamedChildren()
	if len(named) == 0 {
		return nil
	}

	return named[len(named)-1]
}

// argumentName returns the "name:" part of an argument, or nil.
func argumentName(arg *syntax.Node) *syntax.Node {
	if name := arg.ChildByField("name"); name != nil {
		return name
	}

	if nc := arg.FirstChild("name_colon"); nc != nil {
		return nc
	}

	return nil
}

func isNameofCall(n *syntax.Node) bool {
	if n.Kind != "invocation_expression" {
		return false
	}

	fn := n.ChildByField("function")

	return fn != nil && fn.Kind == "identifier" && fn.Text() == "nameof"
}

// nameofOperand returns the single argument expression of a nameof call.
func nameofOperand(n *syntax.Node) *syntax.Node {
	args := n.ChildByField("arguments")
	if args == nil {
		args = n.FirstChild("argument_list")
	}

	arg := args.FirstChild("argument")
	if arg == nil {
		return nil
	}

	return expressionOf(arg)
}

// leftmostIdentifier returns the first identifier of a dotted member access.
func leftmostIdentifier(n *syntax.Node) *syntax.Node {
	for n != nil && n.Kind == "member_access_expression" {
		n = n.ChildByField("expression")
	}

	if n != nil && n.Kind == "identifier" {
		return n
	}

	return nil
}

// attributeOwnerParams collects parameter names of the method-like node that
// owns an attribute list, including parameters the attribute is applied to.
func attributeOwnerParams(attr *syntax.Node) []string {
	list := attr.Ancestor("attribute_list")
	if list == nil || list.Parent == nil {
		return nil
	}

	owner := list.Parent
	if owner.Kind == "parameter" {
		owner = owner.Ancestor("method_declaration", "constructor_declaration", "local_function_statement",
			"lambda_expression", "delegate_declaration", "operator_declaration")
	}

	if owner == nil {
		return nil
	}

	var names []string
	for _, p := range parameters(owner) {
		names = append(names, parameterName(p))
	}

	return names
}

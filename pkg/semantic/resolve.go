package semantic

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

const maxInferenceDepth = 16

// scopeKinds are the nodes that own local declarations.
var scopeKinds = []string{
	"compilation_unit", "class_declaration", "struct_declaration", "record_declaration",
	"record_struct_declaration", "interface_declaration", "method_declaration",
	"constructor_declaration", "operator_declaration", "conversion_operator_declaration",
	"local_function_statement", "lambda_expression", "anonymous_method_expression",
	"accessor_declaration", "block", "for_statement", "foreach_statement",
	"using_statement", "catch_clause", "switch_section", "global_statement",
}

var typeDeclKinds = []string{
	"class_declaration", "struct_declaration", "record_declaration",
	"record_struct_declaration", "interface_declaration",
}

var memberKinds = []string{
	"method_declaration", "property_declaration", "field_declaration",
	"constructor_declaration", "operator_declaration", "conversion_operator_declaration",
	"event_field_declaration", "event_declaration", "indexer_declaration",
}

// symbol is one declared name. Either typ is known or init holds the
// expression its type is inferred from.
type symbol struct {
	typ  Type
	init *syntax.Node
}

type fileModel struct {
	scopes     map[*syntax.Node]map[string]symbol
	types      map[string]*syntax.Node
	methods    map[string][]*syntax.Node
	extensions map[string][]Extension
}

// Options tunes Resolve.
type Options struct {
	// Disabled makes Resolve always report ErrUnavailable.
	Disabled bool
}

// Resolve builds the model for tree. Trees with syntax errors have no model.
func Resolve(tree *syntax.Tree, opts Options) (Model, error) {
	switch {
	case opts.Disabled:
		return nil, fmt.Errorf("%w: disabled", ErrUnavailable)
	case tree == nil || tree.Root == nil:
		return nil, fmt.Errorf("%w: empty tree", ErrUnavailable)
	case tree.HasErrors:
		return nil, fmt.Errorf("%w: %s has syntax errors", ErrUnavailable, tree.Path)
	}

	m := &fileModel{
		scopes:     make(map[*syntax.Node]map[string]symbol),
		types:      make(map[string]*syntax.Node),
		methods:    make(map[string][]*syntax.Node),
		extensions: make(map[string][]Extension),
	}

	tree.Root.Walk(func(n *syntax.Node) bool {
		m.collect(n)

		return true
	})

	return m, nil
}

func (m *fileModel) collect(n *syntax.Node) {
	switch n.Kind {
	case "class_declaration", "struct_declaration", "record_declaration",
		"record_struct_declaration", "interface_declaration":
		if name := n.ChildByField("name"); name != nil {
			m.types[name.Text()] = n
		}

		if params := n.FirstChild("parameter_list"); params != nil {
			for _, p := range params.ChildrenOf("parameter") {
				m.declareParameter(n, p)
			}
		}
	case "method_declaration", "local_function_statement":
		m.collectMethod(n)
	case "constructor_declaration", "lambda_expression", "anonymous_method_expression",
		"operator_declaration", "conversion_operator_declaration":
		m.collectParameters(n)
	case "variable_declaration":
		m.collectVariables(n)
	case "property_declaration":
		if owner := n.Ancestor(typeDeclKinds...); owner != nil {
			m.declare(owner, n.ChildByField("name"), symbol{typ: TypeFromNode(n.ChildByField("type"))})
		}
	case "declaration_expression":
		m.declare(scopeOf(n), n.ChildByField("name"), symbol{typ: TypeFromNode(n.ChildByField("type"))})
	case "declaration_pattern":
		m.declare(scopeOf(n), designatedName(n), symbol{typ: TypeFromNode(n.ChildByField("type"))})
	case "foreach_statement":
		typeNode := n.ChildByField("type")
		if typeNode != nil && !isVar(typeNode) {
			m.declare(n, n.ChildByField("left"), symbol{typ: TypeFromNode(typeNode)})
		}
	}
}

func (m *fileModel) collectMethod(n *syntax.Node) {
	name := n.ChildByField("name")
	if name != nil {
		m.methods[name.Text()] = append(m.methods[name.Text()], n)
	}

	m.collectParameters(n)

	if name == nil || !n.HasModifier("static") {
		return
	}

	params := n.ChildByField("parameters")
	first := params.FirstChild("parameter")

	if first == nil || !first.HasToken("this") {
		return
	}

	m.extensions[name.Text()] = append(m.extensions[name.Text()], Extension{
		Method:   n,
		Receiver: TypeFromNode(first.ChildByField("type")),
	})
}

func (m *fileModel) collectParameters(n *syntax.Node) {
	params := n.ChildByField("parameters")
	if params == nil {
		params = n.FirstChild("parameter_list")
	}

	if params == nil {
		return
	}

	for _, p := range params.ChildrenOf("parameter") {
		m.declareParameter(n, p)
	}
}

func (m *fileModel) declareParameter(scope, param *syntax.Node) {
	m.declare(scope, param.ChildByField("name"), symbol{typ: TypeFromNode(param.ChildByField("type"))})
}

func (m *fileModel) collectVariables(n *syntax.Node) {
	typeNode := n.ChildByField("type")
	scope := scopeOf(n)

	if field := n.Ancestor("field_declaration"); field != nil && field.Parent != nil {
		if owner := field.Ancestor(typeDeclKinds...); owner != nil {
			scope = owner
		}
	}

	for _, decl := range n.ChildrenOf("variable_declarator") {
		name := decl.ChildByField("name")
		if name == nil {
			name = decl.FirstChild("identifier")
		}

		sym := symbol{typ: TypeFromNode(typeNode)}
		if typeNode == nil || isVar(typeNode) {
			sym = symbol{init: Initializer(decl)}
		}

		m.declare(scope, name, sym)
	}
}

func (m *fileModel) declare(scope, name *syntax.Node, sym symbol) {
	if scope == nil || name == nil {
		return
	}

	names, ok := m.scopes[scope]
	if !ok {
		names = make(map[string]symbol)
		m.scopes[scope] = names
	}

	names[name.Text()] = sym
}

func (m *fileModel) lookup(at *syntax.Node, name string) (symbol, bool) {
	for scope := at; scope != nil; scope = scope.Parent {
		if sym, ok := m.scopes[scope][name]; ok {
			return sym, true
		}
	}

	return symbol{}, false
}

// Initializer returns the expression after "=" in a variable declarator.
func Initializer(decl *syntax.Node) *syntax.Node {
	if clause := decl.FirstChild("equals_value_clause"); clause != nil {
		named := clause.NamedChildren()
		if len(named) > 0 {
			return named[0]
		}
	}

	if v := decl.ChildByField("value"); v != nil {
		return v
	}

	idx := decl.TokenIndex("=")
	if idx < 0 {
		return nil
	}

	for _, c := range decl.Children[idx+1:] {
		if c.Named {
			return c
		}
	}

	return nil
}

func scopeOf(n *syntax.Node) *syntax.Node {
	return n.Ancestor(scopeKinds...)
}

func designatedName(n *syntax.Node) *syntax.Node {
	if name := n.ChildByField("name"); name != nil {
		return name
	}

	if d := n.FirstChild("single_variable_designation"); d != nil {
		return d.FirstChild("identifier")
	}

	return n.FirstChild("identifier")
}

func isVar(typeNode *syntax.Node) bool {
	return typeNode.Kind == "implicit_type" || typeNode.TextIs("var")
}

// TypeOf implements Model.
func (m *fileModel) TypeOf(expr *syntax.Node) (Type, bool) {
	return m.typeOf(expr, 0)
}

//nolint:gocyclo // one case per expression kind.
func (m *fileModel) typeOf(expr *syntax.Node, depth int) (Type, bool) {
	if expr == nil || depth > maxInferenceDepth {
		return Type{}, false
	}

	switch expr.Kind {
	case "parenthesized_expression":
		named := expr.NamedChildren()
		if len(named) == 1 {
			return m.typeOf(named[0], depth+1)
		}
	case "integer_literal":
		return Type{Name: integerLiteralType(expr.Text())}, true
	case "real_literal":
		return Type{Name: realLiteralType(expr.Text())}, true
	case "string_literal", "verbatim_string_literal", "raw_string_literal":
		if IsUTF8Literal(expr) {
			return Type{Name: "ReadOnlySpan<byte>"}, true
		}

		return Type{Name: "string"}, true
	case "interpolated_string_expression":
		return Type{Name: "string"}, true
	case "character_literal":
		return Type{Name: "char"}, true
	case "boolean_literal":
		return Type{Name: "bool"}, true
	case "null_literal":
		return NullType, true
	case "identifier":
		return m.identifierType(expr, depth)
	case "tuple_expression":
		return m.tupleType(expr, depth), true
	case "object_creation_expression", "array_creation_expression", "cast_expression",
		"default_expression", "stackalloc_expression":
		if t := expr.ChildByField("type"); t != nil {
			return TypeFromNode(t), true
		}
	case "as_expression":
		if t := expr.ChildByField("right"); t != nil {
			return TypeFromNode(t), true
		}
	case "this_expression":
		if owner := expr.Ancestor(typeDeclKinds...); owner != nil {
			return TypeFromNode(owner.ChildByField("name")), true
		}
	case "member_access_expression":
		return m.memberAccessType(expr, depth)
	case "invocation_expression":
		return m.invocationType(expr)
	case "conditional_expression":
		a, okA := m.typeOf(expr.ChildByField("consequence"), depth+1)
		b, okB := m.typeOf(expr.ChildByField("alternative"), depth+1)

		if okA && okB && a == b {
			return a, true
		}
	}

	return Type{}, false
}

func (m *fileModel) identifierType(expr *syntax.Node, depth int) (Type, bool) {
	sym, ok := m.lookup(expr, expr.Text())
	if !ok {
		return Type{}, false
	}

	if !sym.typ.IsZero() {
		return sym.typ, true
	}

	if sym.init == nil || sym.init == expr || sym.init.Contains(expr) {
		return Type{}, false
	}

	return m.typeOf(sym.init, depth+1)
}

func (m *fileModel) tupleType(expr *syntax.Node, depth int) Type {
	parts := make([]string, 0, len(expr.Children))

	for _, arg := range expr.ChildrenOf("argument") {
		named := arg.NamedChildren()
		elem := "?"

		if len(named) > 0 {
			if t, ok := m.typeOf(named[len(named)-1], depth+1); ok {
				elem = t.Name
			}
		}

		parts = append(parts, elem)
	}

	return Type{Name: "(" + strings.Join(parts, ",") + ")"}
}

func (m *fileModel) memberAccessType(expr *syntax.Node, depth int) (Type, bool) {
	target := expr.ChildByField("expression")
	name := expr.ChildByField("name")

	if target == nil || name == nil {
		return Type{}, false
	}

	owner, ok := m.typeOf(target, depth+1)
	if !ok {
		return Type{}, false
	}

	decl, ok := m.types[owner.Unqualified()]
	if !ok {
		return Type{}, false
	}

	sym, ok := m.scopes[decl][name.Text()]
	if !ok || sym.typ.IsZero() {
		return Type{}, false
	}

	return sym.typ, true
}

func (m *fileModel) invocationType(expr *syntax.Node) (Type, bool) {
	fn := expr.ChildByField("function")
	if fn == nil || fn.Kind != "identifier" {
		return Type{}, false
	}

	decls := m.methods[fn.Text()]
	if len(decls) != 1 {
		return Type{}, false
	}

	ret := ReturnType(decls[0])
	if ret == nil || ret.TextIs("void") {
		return Type{}, false
	}

	return TypeFromNode(ret), true
}

// ReturnType returns the return type node of a method or local function.
func ReturnType(method *syntax.Node) *syntax.Node {
	if ret := method.ChildByField("returns"); ret != nil {
		return ret
	}

	return method.ChildByField("type")
}

// IsTuple implements Model.
func (m *fileModel) IsTuple(expr *syntax.Node) bool {
	if expr == nil {
		return false
	}

	if expr.Kind == "tuple_expression" {
		return true
	}

	t, ok := m.TypeOf(expr)

	return ok && t.IsTuple()
}

// IsTypeParameter implements Model.
func (m *fileModel) IsTypeParameter(at *syntax.Node, name string) bool {
	for scope := at; scope != nil; scope = scope.Parent {
		list := scope.FirstChild("type_parameter_list")
		if list == nil {
			continue
		}

		for _, tp := range list.ChildrenOf("type_parameter") {
			ident := tp.ChildByField("name")
			if ident == nil {
				ident = tp.FirstChild("identifier")
			}

			if ident.TextIs(name) {
				return true
			}
		}
	}

	return false
}

// BaseMethod implements Model.
func (m *fileModel) BaseMethod(method *syntax.Node) (*syntax.Node, bool) {
	name := method.ChildByField("name")
	owner := method.Ancestor(typeDeclKinds...)

	if name == nil || owner == nil {
		return nil, false
	}

	arity := parameterCount(method)
	seen := map[*syntax.Node]bool{owner: true}

	for base := m.baseType(owner); base != nil && !seen[base]; base = m.baseType(base) {
		seen[base] = true

		for _, candidate := range m.methods[name.Text()] {
			if candidate.Ancestor(typeDeclKinds...) == base && parameterCount(candidate) == arity {
				return candidate, true
			}
		}
	}

	return nil, false
}

func (m *fileModel) baseType(decl *syntax.Node) *syntax.Node {
	bases := decl.FirstChild("base_list")
	if bases == nil {
		return nil
	}

	named := bases.NamedChildren()
	if len(named) == 0 {
		return nil
	}

	first := TypeFromNode(named[0])
	if named[0].Kind == "primary_constructor_base_type" {
		first = TypeFromNode(named[0].ChildByField("type"))
	}

	base, ok := m.types[first.Unqualified()]
	if !ok {
		return nil
	}

	return base
}

func parameterCount(method *syntax.Node) int {
	params := method.ChildByField("parameters")
	if params == nil {
		return 0
	}

	return len(params.ChildrenOf("parameter"))
}

// ExtensionMethods implements Model.
func (m *fileModel) ExtensionMethods(name string) []Extension {
	return m.extensions[name]
}

// TypeDecl implements Model.
func (m *fileModel) TypeDecl(name string) (*syntax.Node, bool) {
	decl, ok := m.types[Type{Name: name}.Unqualified()]

	return decl, ok
}

// IsStaticContext implements Model.
func (m *fileModel) IsStaticContext(at *syntax.Node) bool {
	if at.Ancestor("attribute_list") != nil {
		return true
	}

	member := at.Ancestor(append(memberKinds, "local_function_statement")...)
	for member != nil && member.Kind == "local_function_statement" {
		if member.HasModifier("static") {
			return true
		}

		member = member.Ancestor(memberKinds...)
	}

	if member == nil {
		return false
	}

	return member.HasModifier("static") || member.HasModifier("const")
}

// IsInstanceMember implements Model.
func (m *fileModel) IsInstanceMember(at *syntax.Node, name string) bool {
	owner := at.Ancestor(typeDeclKinds...)
	if owner == nil {
		return false
	}

	body := owner.FirstChild("declaration_list")
	if body == nil {
		return false
	}

	for _, member := range body.ChildrenOf(memberKinds...) {
		if member.HasModifier("static") || member.HasModifier("const") {
			continue
		}

		if memberName(member) == name {
			return true
		}
	}

	return false
}

func memberName(member *syntax.Node) string {
	if name := member.ChildByField("name"); name != nil {
		return name.Text()
	}

	if decl := member.FirstChild("variable_declaration"); decl != nil {
		for _, v := range decl.ChildrenOf("variable_declarator") {
			if name := v.ChildByField("name"); name != nil {
				return name.Text()
			}

			if ident := v.FirstChild("identifier"); ident != nil {
				return ident.Text()
			}
		}
	}

	return ""
}

// Converts implements Model.
func (m *fileModel) Converts(from, to Type) bool {
	switch {
	case from.IsZero() || to.IsZero():
		return false
	case from == to, to.Name == "object", to.Name == "dynamic":
		return true
	case from == NullType:
		return !isValueType(to) || strings.HasSuffix(to.Name, "?")
	case strings.TrimSuffix(to.Name, "?") == from.Name:
		return true
	}

	if targets, ok := numericWidening[from.Name]; ok {
		for _, t := range targets {
			if t == to.Name {
				return true
			}
		}
	}

	decl, ok := m.types[from.Unqualified()]
	seen := map[*syntax.Node]bool{}

	for ok && decl != nil && !seen[decl] {
		seen[decl] = true

		if bases := decl.FirstChild("base_list"); bases != nil {
			for _, b := range bases.NamedChildren() {
				if TypeFromNode(b).Unqualified() == to.Unqualified() {
					return true
				}
			}
		}

		decl = m.baseType(decl)
	}

	return false
}

// numericWidening lists the implicit numeric conversions of the language.
var numericWidening = map[string][]string{
	"sbyte":  {"short", "int", "long", "float", "double", "decimal", "nint"},
	"byte":   {"short", "ushort", "int", "uint", "long", "ulong", "float", "double", "decimal", "nint", "nuint"},
	"short":  {"int", "long", "float", "double", "decimal", "nint"},
	"ushort": {"int", "uint", "long", "ulong", "float", "double", "decimal", "nint", "nuint"},
	"int":    {"long", "float", "double", "decimal", "nint"},
	"uint":   {"long", "ulong", "float", "double", "decimal", "nuint"},
	"long":   {"float", "double", "decimal"},
	"ulong":  {"float", "double", "decimal"},
	"char":   {"ushort", "int", "uint", "long", "ulong", "float", "double", "decimal", "nint", "nuint"},
	"float":  {"double"},
}

func isValueType(t Type) bool {
	switch t.Name {
	case "bool", "char", "decimal", "double", "float", "nint", "nuint":
		return true
	}

	_, numeric := numericWidening[t.Name]

	return numeric || t.IsTuple()
}

func integerLiteralType(text string) string {
	lower := strings.ToLower(text)

	switch {
	case strings.HasSuffix(lower, "ul"), strings.HasSuffix(lower, "lu"):
		return "ulong"
	case strings.HasSuffix(lower, "l"):
		return "long"
	case strings.HasSuffix(lower, "u"):
		return "uint"
	default:
		return "int"
	}
}

func realLiteralType(text string) string {
	switch strings.ToLower(text[len(text)-1:]) {
	case "f":
		return "float"
	case "m":
		return "decimal"
	default:
		return "double"
	}
}

// IsUTF8Literal reports whether a string literal carries the u8 suffix.
func IsUTF8Literal(n *syntax.Node) bool {
	if n.FirstChild("string_literal_encoding") != nil {
		return true
	}

	text := strings.TrimSpace(n.Text())

	return strings.HasSuffix(text, "u8") || strings.HasSuffix(text, "U8")
}

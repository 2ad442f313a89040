// Package semantic provides the per-file symbol and type queries that a few
// feature rules need on top of plain syntax.
//
// The model is deliberately local: it only knows declarations visible in the
// file being analyzed. Queries it cannot answer report "unknown" so that
// rules depending on them fail closed.
package semantic

import (
	"errors"
	"strings"

	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

// ErrUnavailable is returned by Resolve when no model can be built for a tree.
var ErrUnavailable = errors.New("semantic model unavailable")

// Model answers type and symbol questions about one syntax tree.
// A nil Model means semantics are unavailable.
type Model interface {
	// TypeOf returns the static type of an expression when it can be determined.
	TypeOf(expr *syntax.Node) (Type, bool)
	// IsTuple reports whether expr has a tuple type.
	IsTuple(expr *syntax.Node) bool
	// IsTypeParameter reports whether name is a type parameter in scope at node.
	IsTypeParameter(at *syntax.Node, name string) bool
	// BaseMethod returns the method a given override overrides, if declared in the file.
	BaseMethod(method *syntax.Node) (*syntax.Node, bool)
	// ExtensionMethods lists extension methods with the given name.
	ExtensionMethods(name string) []Extension
	// TypeDecl returns the declaration of a type declared in the file.
	TypeDecl(name string) (*syntax.Node, bool)
	// IsStaticContext reports whether code at node runs without an instance.
	IsStaticContext(at *syntax.Node) bool
	// IsInstanceMember reports whether name is a non-static member of the
	// type enclosing node.
	IsInstanceMember(at *syntax.Node, name string) bool
	// Converts reports whether an implicit conversion from one type to the other exists.
	Converts(from, to Type) bool
}

// Extension is an extension method and the receiver type it extends.
type Extension struct {
	Method   *syntax.Node
	Receiver Type
}

// Type is a type as written in source, whitespace-normalized.
type Type struct {
	Name string
}

// NullType is the type of the null literal.
var NullType = Type{Name: "null"}

// TypeFromNode builds a Type from a type node.
func TypeFromNode(n *syntax.Node) Type {
	if n == nil {
		return Type{}
	}

	return Type{Name: normalize(n.Text())}
}

// IsZero reports whether the type is unknown.
func (t Type) IsZero() bool {
	return t.Name == ""
}

// IsTuple reports whether the type is a tuple type.
func (t Type) IsTuple() bool {
	base := t.Base()

	return strings.HasPrefix(t.Name, "(") || base == "ValueTuple" || base == "System.ValueTuple"
}

// Base returns the name without generic arguments or nullable marker.
func (t Type) Base() string {
	name := strings.TrimSuffix(t.Name, "?")
	if idx := strings.IndexByte(name, '<'); idx >= 0 {
		return name[:idx]
	}

	return name
}

// Args returns the top-level generic argument texts.
func (t Type) Args() []string {
	open := strings.IndexByte(t.Name, '<')
	if open < 0 || !strings.HasSuffix(strings.TrimSuffix(t.Name, "?"), ">") {
		return nil
	}

	inner := strings.TrimSuffix(strings.TrimSuffix(t.Name, "?"), ">")[open+1:]

	var (
		args  []string
		depth int
		last  int
	)

	for i, r := range inner {
		switch r {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, inner[last:i])
				last = i + 1
			}
		}
	}

	return append(args, inner[last:])
}

// Unqualified drops a namespace qualifier from the base name.
func (t Type) Unqualified() string {
	base := t.Base()
	if idx := strings.LastIndexByte(base, '.'); idx >= 0 {
		return base[idx+1:]
	}

	return base
}

func (t Type) String() string {
	return t.Name
}

func normalize(s string) string {
	var sb strings.Builder

	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

package semantic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/pkg/semantic"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax/csharp"
)

const modelSource = `class Base {
    public virtual Base Clone() => new Base();
}

class Derived : Base {
    int count;

    public override Derived Clone() => new Derived();

    static string Name() => nameof(count);

    void M() {
        var n = 42L;
        var pair = (1, "a");
        string s = null;
    }
}
`

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()

	tree, err := csharp.NewParser().Parse(context.Background(), "Model.cs", []byte(src))
	require.NoError(t, err)

	return tree
}

func find(t *testing.T, tree *syntax.Tree, pred func(*syntax.Node) bool) *syntax.Node {
	t.Helper()

	n := tree.Root.Find(pred)
	require.NotNil(t, n)

	return n
}

func declarator(name string) func(*syntax.Node) bool {
	return func(n *syntax.Node) bool {
		return n.Kind == "variable_declarator" && n.FirstChild("identifier").TextIs(name)
	}
}

func TestResolve_Unavailable(t *testing.T) {
	t.Parallel()

	_, err := semantic.Resolve(nil, semantic.Options{})
	require.ErrorIs(t, err, semantic.ErrUnavailable)

	_, err = semantic.Resolve(parse(t, modelSource), semantic.Options{Disabled: true})
	require.ErrorIs(t, err, semantic.ErrUnavailable)

	_, err = semantic.Resolve(parse(t, "class { void ( }"), semantic.Options{})
	require.ErrorIs(t, err, semantic.ErrUnavailable)
}

func TestTypeOf_Literals(t *testing.T) {
	t.Parallel()

	tree := parse(t, modelSource)
	model, err := semantic.Resolve(tree, semantic.Options{})
	require.NoError(t, err)

	n := semantic.Initializer(find(t, tree, declarator("n")))
	typ, ok := model.TypeOf(n)
	require.True(t, ok)
	assert.Equal(t, "long", typ.Name)

	pair := semantic.Initializer(find(t, tree, declarator("pair")))
	assert.True(t, model.IsTuple(pair))
}

func TestBaseMethod_CovariantOverride(t *testing.T) {
	t.Parallel()

	tree := parse(t, modelSource)
	model, err := semantic.Resolve(tree, semantic.Options{})
	require.NoError(t, err)

	override := find(t, tree, func(n *syntax.Node) bool {
		return n.Kind == "method_declaration" && n.HasModifier("override")
	})

	base, ok := model.BaseMethod(override)
	require.True(t, ok)
	assert.Equal(t, "Base", semantic.TypeFromNode(semantic.ReturnType(base)).Name)
}

func TestStaticContextAndInstanceMembers(t *testing.T) {
	t.Parallel()

	tree := parse(t, modelSource)
	model, err := semantic.Resolve(tree, semantic.Options{})
	require.NoError(t, err)

	call := find(t, tree, func(n *syntax.Node) bool { return n.Kind == "invocation_expression" })

	assert.True(t, model.IsStaticContext(call))
	assert.True(t, model.IsInstanceMember(call, "count"))
	assert.False(t, model.IsInstanceMember(call, "Name"))
}

func TestConverts(t *testing.T) {
	t.Parallel()

	model, err := semantic.Resolve(parse(t, modelSource), semantic.Options{})
	require.NoError(t, err)

	tests := []struct {
		from, to string
		want     bool
	}{
		{"int", "long", true},
		{"long", "int", false},
		{"int", "int?", true},
		{"null", "string", true},
		{"null", "int", false},
		{"Derived", "Base", true},
		{"Base", "Derived", false},
		{"string", "object", true},
	}

	for _, tt := range tests {
		got := model.Converts(semantic.Type{Name: tt.from}, semantic.Type{Name: tt.to})
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestType_Parts(t *testing.T) {
	t.Parallel()

	typ := semantic.Type{Name: "System.Collections.Generic.Dictionary<string,List<int>>"}

	assert.Equal(t, "Dictionary", typ.Unqualified())
	assert.Equal(t, []string{"string", "List<int>"}, typ.Args())
	assert.False(t, typ.IsTuple())
	assert.True(t, semantic.Type{Name: "(int,string)"}.IsTuple())
}

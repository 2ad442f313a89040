package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

// buildSample models "x ??= y" as an expression statement.
func buildSample() *syntax.Tree {
	src := []byte("x ??= y")

	left := syntax.NewNode("identifier", 0, 1).WithField("left")
	op := syntax.NewToken("??=", 2, 5).WithField("operator")
	right := syntax.NewNode("identifier", 6, 7).WithField("right")
	assign := syntax.NewNode("assignment_expression", 0, 7, left, op, right)
	root := syntax.NewNode("compilation_unit", 0, 7, syntax.NewNode("expression_statement", 0, 7, assign))

	return syntax.NewTree("sample.cs", src, root)
}

func TestNewTree_LinksParentsAndText(t *testing.T) {
	t.Parallel()

	tree := buildSample()
	require.NotNil(t, tree.Root)
	assert.Equal(t, 6, tree.Size())
	assert.False(t, tree.HasErrors)

	assign := tree.Root.Find(func(n *syntax.Node) bool { return n.Kind == "assignment_expression" })
	require.NotNil(t, assign)

	assert.Equal(t, "x ??= y", assign.Text())
	assert.Equal(t, "??=", assign.Operator())
	assert.Equal(t, "y", assign.ChildByField("right").Text())
	assert.Equal(t, "expression_statement", assign.Parent.Kind)
	assert.Equal(t, tree.Root, assign.Ancestor("compilation_unit"))
	assert.Len(t, assign.NamedChildren(), 2)
	assert.Equal(t, syntax.NodeID{Kind: "assignment_expression", Start: 0, End: 7}, assign.ID())
}

func TestNewTree_DetectsErrors(t *testing.T) {
	t.Parallel()

	src := []byte("class {")
	root := syntax.NewNode("compilation_unit", 0, 7, syntax.NewNode(syntax.ErrorKind, 0, 7))
	tree := syntax.NewTree("broken.cs", src, root)

	assert.True(t, tree.HasErrors)
	assert.True(t, root.Children[0].IsError())
}

func TestWalk_PreOrderAndSkip(t *testing.T) {
	t.Parallel()

	tree := buildSample()

	var kinds []string

	tree.Root.Walk(func(n *syntax.Node) bool {
		kinds = append(kinds, n.Kind)

		return n.Kind != "assignment_expression"
	})

	assert.Equal(t, []string{"compilation_unit", "expression_statement", "assignment_expression"}, kinds)
	assert.Len(t, tree.Root.Descendants("identifier"), 2)
}

func TestSiblingsAndTokens(t *testing.T) {
	t.Parallel()

	tree := buildSample()
	assign := tree.Root.Children[0].Children[0]
	left := assign.Children[0]

	assert.Equal(t, 0, left.Index())
	assert.Equal(t, "??=", left.NextSibling().Text())
	assert.True(t, assign.HasToken("??="))
	assert.Equal(t, 1, assign.TokenIndex("??="))
	assert.Nil(t, assign.Children[2].NextSibling())
}

package csharp_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax/csharp"
)

const sampleSource = `namespace Demo
{
    class Greeter
    {
        public string Greet(string name) => "Hello " + name;
    }
}
`

func TestParse_BuildsTree(t *testing.T) {
	t.Parallel()

	tree, err := csharp.NewParser().Parse(context.Background(), "Greeter.cs", []byte(sampleSource))
	require.NoError(t, err)

	assert.Equal(t, "compilation_unit", tree.Root.Kind)
	assert.False(t, tree.HasErrors)
	assert.Equal(t, "Greeter.cs", tree.Path)

	method := tree.Root.Find(func(n *syntax.Node) bool { return n.Kind == "method_declaration" })
	require.NotNil(t, method)

	name := method.ChildByField("name")
	require.NotNil(t, name)
	assert.Equal(t, "Greet", name.Text())
	assert.NotNil(t, method.ChildByField("parameters"))
	assert.True(t, method.HasModifier("public"))
	assert.Equal(t, uint(4), method.StartPoint.Row)

	class := method.Ancestor("class_declaration")
	require.NotNil(t, class)
	assert.Equal(t, "Greeter", class.ChildByField("name").Text())
}

func TestParse_RecordsSyntaxErrors(t *testing.T) {
	t.Parallel()

	tree, err := csharp.NewParser().Parse(context.Background(), "Broken.cs", []byte("class { void ( }"))
	require.NoError(t, err)

	assert.True(t, tree.HasErrors)
}

func TestParse_Concurrent(t *testing.T) {
	t.Parallel()

	parser := csharp.NewParser()

	var wg sync.WaitGroup

	sizes := make([]int, 8)

	for i := range sizes {
		wg.Add(1)

		go func() {
			defer wg.Done()

			tree, err := parser.Parse(context.Background(), "Greeter.cs", []byte(sampleSource))
			if err == nil {
				sizes[i] = tree.Size()
			}
		}()
	}

	wg.Wait()

	for _, size := range sizes {
		assert.Equal(t, sizes[0], size)
		assert.Positive(t, size)
	}
}

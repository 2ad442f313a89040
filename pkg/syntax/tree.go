package syntax

// Tree is a parsed source file.
type Tree struct {
	Root      *Node
	Source    []byte
	Path      string
	HasErrors bool

	size int
}

// NewTree links root and its descendants to a new tree over src: parent
// pointers are set and HasErrors is computed.
func NewTree(path string, src []byte, root *Node) *Tree {
	t := &Tree{Root: root, Source: src, Path: path}

	var link func(n, parent *Node)

	link = func(n, parent *Node) {
		n.tree = t
		n.Parent = parent
		t.size++

		if n.IsError() {
			t.HasErrors = true
		}

		for _, c := range n.Children {
			link(c, n)
		}
	}

	if root != nil {
		link(root, nil)
	}

	return t
}

// Size returns the number of nodes in the tree.
func (t *Tree) Size() int {
	return t.size
}

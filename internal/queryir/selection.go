package queryir

import (
	"fmt"
	"strings"
)

// SelectionTree is an ordered set of wire field names, each either a leaf
// or a nested tree of sub-fields.
//
// Order is the order of first appearance and is preserved by Merge.
// A node with no children is a leaf.
type SelectionTree []SelectionNode

// SelectionNode is one field of a SelectionTree.
type SelectionNode struct {
	Name     string
	Children SelectionTree
}

// IsLeaf reports whether n has no sub-fields.
func (n SelectionNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Leaf builds a leaf node.
func Leaf(name string) SelectionNode {
	return SelectionNode{Name: name}
}

// Branch builds a node with sub-fields.
func Branch(name string, children ...SelectionNode) SelectionNode {
	return SelectionNode{Name: name, Children: SelectionTree(children)}
}

// Select builds a tree from nodes.
func Select(nodes ...SelectionNode) SelectionTree {
	return SelectionTree(nodes)
}

// Fields builds a tree of leaves.
func Fields(names ...string) SelectionTree {
	out := make(SelectionTree, len(names))
	for i, name := range names {
		out[i] = Leaf(name)
	}
	return out
}

// Merge returns the union of a and b.
//
// Fields keep the position of their first appearance. A field present in
// both is merged recursively; a leaf merged with a subtree becomes the
// subtree. Merge never modifies its arguments, and
// Merge(Merge(a, b), b) equals Merge(a, b).
func Merge(a, b SelectionTree) SelectionTree {
	var out SelectionTree
	for _, n := range a {
		out = mergeNode(out, n)
	}
	for _, n := range b {
		out = mergeNode(out, n)
	}
	return out
}

func mergeNode(tree SelectionTree, n SelectionNode) SelectionTree {
	for i := range tree {
		if tree[i].Name != n.Name {
			continue
		}
		if !n.IsLeaf() {
			tree[i].Children = Merge(tree[i].Children, n.Children)
		}
		return tree
	}
	return append(tree, SelectionNode{Name: n.Name, Children: Merge(nil, n.Children)})
}

// Clone returns a deep copy of t.
func (t SelectionTree) Clone() SelectionTree {
	if t == nil {
		return nil
	}
	out := make(SelectionTree, len(t))
	for i, n := range t {
		out[i] = SelectionNode{Name: n.Name, Children: n.Children.Clone()}
	}
	return out
}

// Find returns the node stored under name.
func (t SelectionTree) Find(name string) (SelectionNode, bool) {
	for _, n := range t {
		if n.Name == name {
			return n, true
		}
	}
	return SelectionNode{}, false
}

// String renders t as name,name(child,child) without escaping.
func (t SelectionTree) String() string {
	var b strings.Builder
	writeSelection(&b, t)
	return b.String()
}

func writeSelection(b *strings.Builder, t SelectionTree) {
	for i, n := range t {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(n.Name)
		if !n.IsLeaf() {
			b.WriteByte('(')
			writeSelection(b, n.Children)
			b.WriteByte(')')
		}
	}
}

// ParseSelection parses the textual form produced by String, for example
// "id,kod,polozky(id,cenaMj)". Whitespace around names is ignored.
// The empty string parses to a nil tree.
func ParseSelection(s string) (SelectionTree, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	p := selectionParser{input: s}
	tree, err := p.parseList()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("selection %q: unexpected %q at offset %d", s, p.input[p.pos], p.pos)
	}
	return Merge(nil, tree), nil
}

type selectionParser struct {
	input string
	pos   int
}

func (p *selectionParser) parseList() (SelectionTree, error) {
	var out SelectionTree
	for {
		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		out = append(out, node)
		for p.pos < len(p.input) && p.input[p.pos] == ' ' {
			p.pos++
		}
		if p.pos < len(p.input) && p.input[p.pos] == ',' {
			p.pos++
			continue
		}
		return out, nil
	}
}

func (p *selectionParser) parseNode() (SelectionNode, error) {
	start := p.pos
	for p.pos < len(p.input) && !strings.ContainsRune(",()", rune(p.input[p.pos])) {
		p.pos++
	}
	name := strings.TrimSpace(p.input[start:p.pos])
	if name == "" {
		return SelectionNode{}, fmt.Errorf("selection %q: empty field name at offset %d", p.input, start)
	}
	if p.pos >= len(p.input) || p.input[p.pos] != '(' {
		return Leaf(name), nil
	}

	p.pos++ // (
	children, err := p.parseList()
	if err != nil {
		return SelectionNode{}, err
	}
	if p.pos >= len(p.input) || p.input[p.pos] != ')' {
		return SelectionNode{}, fmt.Errorf("selection %q: missing ')' for %q", p.input, name)
	}
	p.pos++ // )
	return SelectionNode{Name: name, Children: children}, nil
}

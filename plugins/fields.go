package plugins

import "github.com/bawdo/screenq/nodes"

// FieldRef pairs a field name with the comparison node that references it.
type FieldRef struct {
	Node *nodes.Expression
	Name string
}

// CollectFields returns every comparison or reference node in the tree
// whose primary is a field name, in depth-first order. Logical nodes are
// descended into but not reported.
func CollectFields(root *nodes.Expression) []FieldRef {
	var refs []FieldRef
	collect(root, &refs)
	return refs
}

func collect(n *nodes.Expression, refs *[]FieldRef) {
	if n == nil {
		return
	}
	if !n.Operator().IsLogical() {
		if name, ok := n.FieldName(); ok {
			*refs = append(*refs, FieldRef{Node: n, Name: name})
		}
	}
	for _, child := range n.Children() {
		collect(child, refs)
	}
}

// References reports whether any node in the tree compares field.
func References(root *nodes.Expression, field string) bool {
	for _, ref := range CollectFields(root) {
		if ref.Name == field {
			return true
		}
	}
	return false
}

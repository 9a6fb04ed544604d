package visitors

import (
	"fmt"
	"strings"

	"github.com/bawdo/screenq/nodes"
)

// Color constants for DOT node categories.
const (
	colorField      = "#B0D4E8" // light blue: field names, references
	colorComparison = "#FFB347" // orange: EQ, GT, BTWN, ...
	colorLogical    = "#FFEB80" // yellow: AND, OR
	colorLiteral    = "#D3D3D3" // grey: values
	colorUnset      = "#FF6961" // red: missing operands
)

// dotNode represents a single node in the DOT graph.
type dotNode struct {
	id    string
	label string
	color string
}

// dotEdge represents a directed edge between two nodes in the DOT graph.
type dotEdge struct {
	from  string
	to    string
	label string
}

// DotVisitor walks a filter tree and produces Graphviz DOT output.
// It implements nodes.Visitor; each Visit method returns the DOT id of the
// node it created.
type DotVisitor struct {
	nextID    int
	nodes     []dotNode
	edges     []dotEdge
	parentID  string
	edgeLabel string
}

var _ nodes.Visitor = (*DotVisitor)(nil)

// NewDotVisitor creates a new DotVisitor ready to walk a tree.
func NewDotVisitor() *DotVisitor {
	return &DotVisitor{}
}

// Dot renders e as a complete DOT document using a fresh visitor.
func Dot(e *nodes.Expression) string {
	dv := NewDotVisitor()
	e.Accept(dv)
	return dv.ToDot()
}

// addNode creates a new DOT node with the given label and color, returning its ID.
func (dv *DotVisitor) addNode(label, color string) string {
	id := fmt.Sprintf("n%d", dv.nextID)
	dv.nextID++
	dv.nodes = append(dv.nodes, dotNode{id: id, label: label, color: color})
	return id
}

// addEdge records a directed edge from one node to another.
func (dv *DotVisitor) addEdge(from, to, label string) {
	dv.edges = append(dv.edges, dotEdge{from: from, to: to, label: label})
}

// connectToParent adds an edge from the current parentID to nodeID if a parent exists.
func (dv *DotVisitor) connectToParent(nodeID string) {
	if dv.parentID != "" {
		dv.addEdge(dv.parentID, nodeID, dv.edgeLabel)
	}
}

// visitOperand saves and restores the parent context, sets the edge label,
// and renders one operand below parentID.
func (dv *DotVisitor) visitOperand(parentID, label string, o nodes.Operand) string {
	savedParent := dv.parentID
	savedLabel := dv.edgeLabel
	dv.parentID = parentID
	dv.edgeLabel = label
	defer func() {
		dv.parentID = savedParent
		dv.edgeLabel = savedLabel
	}()

	switch o.Kind() {
	case nodes.KindNode:
		child, _ := o.Node()
		return child.Accept(dv)
	case nodes.KindLiteral:
		v, _ := o.Value()
		id := dv.addNode(fmt.Sprintf("Literal\\n%v", v), colorLiteral)
		dv.connectToParent(id)
		return id
	default:
		id := dv.addNode("Unset", colorUnset)
		dv.connectToParent(id)
		return id
	}
}

// NodeCount returns the number of nodes accumulated so far.
func (dv *DotVisitor) NodeCount() int {
	return len(dv.nodes)
}

// ToDot generates the complete DOT graph text.
func (dv *DotVisitor) ToDot() string {
	var sb strings.Builder
	sb.WriteString("digraph Query {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	sb.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n")

	for _, n := range dv.nodes {
		sb.WriteString(fmt.Sprintf("  %s [label=\"%s\", fillcolor=\"%s\"];\n",
			n.id, escapeLabel(n.label), n.color))
	}

	for _, e := range dv.edges {
		if e.label != "" {
			sb.WriteString(fmt.Sprintf("  %s -> %s [label=\"%s\"];\n", e.from, e.to, e.label))
		} else {
			sb.WriteString(fmt.Sprintf("  %s -> %s;\n", e.from, e.to))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// escapeLabel escapes double quotes in DOT labels.
// Backslash sequences like \n are intentional DOT line breaks and are preserved.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}

// --- Visitor interface implementation ---

func (dv *DotVisitor) VisitLogical(n *nodes.Expression) string {
	id := dv.addNode(n.Operator().String(), colorLogical)
	dv.connectToParent(id)
	for i, o := range n.Operands() {
		dv.visitOperand(id, fmt.Sprintf("[%d]", i), o)
	}
	return id
}

func (dv *DotVisitor) VisitComparison(n *nodes.Expression) string {
	id := dv.addNode(n.Operator().String(), colorComparison)
	dv.connectToParent(id)
	dv.visitField(id, n.Primary())

	labels := valueLabels(n)
	for i, o := range n.Rest() {
		label := fmt.Sprintf("VALUE[%d]", i)
		if i < len(labels) {
			label = labels[i]
		}
		dv.visitOperand(id, label, o)
	}
	return id
}

func (dv *DotVisitor) VisitReference(n *nodes.Expression) string {
	id := dv.visitFieldNode(n.Primary())
	dv.connectToParent(id)
	return id
}

// visitField renders the primary of a comparison as a field node.
func (dv *DotVisitor) visitField(parentID string, o nodes.Operand) {
	if !o.IsLiteral() {
		dv.visitOperand(parentID, "FIELD", o)
		return
	}
	dv.addEdge(parentID, dv.visitFieldNode(o), "FIELD")
}

func (dv *DotVisitor) visitFieldNode(o nodes.Operand) string {
	if o.IsUnset() {
		return dv.addNode("Field\\n?", colorUnset)
	}
	return dv.addNode("Field\\n"+o.String(), colorField)
}

func valueLabels(n *nodes.Expression) []string {
	switch n.Operator() {
	case nodes.OpBtwn:
		return []string{"LOW", "HIGH"}
	case nodes.OpEq:
		if len(n.Rest()) > 1 {
			return nil
		}
	}
	return []string{"VALUE"}
}

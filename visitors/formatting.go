package visitors

import (
	"strings"

	"github.com/bawdo/screenq/nodes"
)

// FormattingVisitor wraps a dialect visitor and produces human-readable
// multi-line SQL. Each AND/OR operand goes on its own line and nested groups
// are indented inside parentheses. Comparisons and references are rendered
// by the wrapped visitor.
type FormattingVisitor struct {
	inner  nodes.Visitor
	indent string
}

var _ nodes.Visitor = (*FormattingVisitor)(nil)
var _ nodes.Parameterizer = (*FormattingVisitor)(nil)

// NewFormattingVisitor constructs a FormattingVisitor wrapping the given
// dialect visitor.
func NewFormattingVisitor(inner nodes.Visitor) *FormattingVisitor {
	if inner == nil {
		panic("screenq: FormattingVisitor requires a non-nil inner visitor")
	}
	return &FormattingVisitor{inner: inner, indent: "  "}
}

// Params delegates to the inner visitor if it implements nodes.Parameterizer,
// otherwise returns nil.
func (f *FormattingVisitor) Params() []any {
	if p, ok := f.inner.(nodes.Parameterizer); ok {
		return p.Params()
	}
	return nil
}

// Reset delegates to the inner visitor if it implements nodes.Parameterizer.
func (f *FormattingVisitor) Reset() {
	if p, ok := f.inner.(nodes.Parameterizer); ok {
		p.Reset()
	}
}

func (f *FormattingVisitor) VisitComparison(node *nodes.Expression) string {
	return f.inner.VisitComparison(node)
}

func (f *FormattingVisitor) VisitReference(node *nodes.Expression) string {
	return f.inner.VisitReference(node)
}

// VisitLogical renders one operand per line, prefixing every line after the
// first with the operator keyword.
func (f *FormattingVisitor) VisitLogical(node *nodes.Expression) string {
	var sb strings.Builder
	keyword := node.Operator().String()
	first := true
	for _, o := range node.Operands() {
		if o.Elided() {
			continue
		}
		if !first {
			sb.WriteString("\n")
			sb.WriteString(keyword)
			sb.WriteString(" ")
		}
		first = false
		sb.WriteString(f.operand(o))
	}
	return sb.String()
}

func (f *FormattingVisitor) operand(o nodes.Operand) string {
	child, ok := o.Node()
	if !ok {
		if o.IsUnset() {
			return "NULL"
		}
		return o.String()
	}
	body := child.Accept(f)
	if !child.Operator().IsLogical() {
		return body
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = f.indent + line
	}
	return "(\n" + strings.Join(lines, "\n") + "\n)"
}

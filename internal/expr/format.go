package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders the tree as an infix string for logs and CLI output.
// Arithmetic operators print infix with parentheses, everything else prints
// as a function call. Variables are x0, x1, ...
func Format(reg *Registry, tree *Node) string {
	var sb strings.Builder
	writeNode(&sb, reg, tree)
	return sb.String()
}

func writeNode(sb *strings.Builder, reg *Registry, node *Node) {
	if node == nil {
		sb.WriteString("?")
		return
	}
	switch node.Kind {
	case KindConstant:
		sb.WriteString(strconv.FormatFloat(node.Value, 'g', 6, 64))
	case KindVariable:
		fmt.Fprintf(sb, "x%d", node.Index)
	case KindUnary:
		sb.WriteString(reg.UnaryName(node.Op))
		sb.WriteString("(")
		writeNode(sb, reg, node.Left)
		sb.WriteString(")")
	case KindBinary:
		name := reg.BinaryName(node.Op)
		if isInfix(name) {
			sb.WriteString("(")
			writeNode(sb, reg, node.Left)
			sb.WriteString(" ")
			sb.WriteString(name)
			sb.WriteString(" ")
			writeNode(sb, reg, node.Right)
			sb.WriteString(")")
			return
		}
		sb.WriteString(name)
		sb.WriteString("(")
		writeNode(sb, reg, node.Left)
		sb.WriteString(", ")
		writeNode(sb, reg, node.Right)
		sb.WriteString(")")
	}
}

func isInfix(name string) bool {
	switch name {
	case "+", "-", "*", "/":
		return true
	default:
		return false
	}
}

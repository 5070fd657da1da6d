package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/r3e-network/neo-solc/compiler/ast"
)

// DumpAST renders a tree outline of the unit for --emit ast.
func DumpAST(unit *ast.AST) string {
	var b strings.Builder
	for _, item := range unit.Items {
		dumpNode(&b, item, 0)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func dumpNode(b *strings.Builder, n ast.Node, depth int) {
	indent(b, depth)
	switch node := n.(type) {
	case *ast.Object:
		fmt.Fprintf(b, "Object %q\n", node.Name)
		if node.Code != nil {
			indent(b, depth+1)
			b.WriteString("Code\n")
			for _, stmt := range node.Code.Statements {
				dumpNode(b, stmt, depth+2)
			}
		}
		for _, data := range node.Data {
			indent(b, depth+1)
			fmt.Fprintf(b, "Data %q (%d bytes)\n", data.Name, len(data.Value))
		}
		names := make([]string, 0, len(node.Children))
		for name := range node.Children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			dumpNode(b, node.Children[name], depth+1)
		}
	case *ast.Function:
		fmt.Fprintf(b, "Function %s(%s)", node.Name, typedNames(node.Params))
		if len(node.Returns) > 0 {
			fmt.Fprintf(b, " -> %s", typedNames(node.Returns))
		}
		b.WriteString("\n")
		for _, stmt := range node.Body.Statements {
			dumpNode(b, stmt, depth+1)
		}
	case *ast.Block:
		b.WriteString("Block\n")
		for _, stmt := range node.Statements {
			dumpNode(b, stmt, depth+1)
		}
	case *ast.VariableDeclaration:
		fmt.Fprintf(b, "Let %s", typedNames(node.Vars))
		if node.Init != nil {
			fmt.Fprintf(b, " := %s", exprString(node.Init))
		}
		b.WriteString("\n")
	case *ast.Assignment:
		targets := make([]string, len(node.Targets))
		for i, t := range node.Targets {
			targets[i] = t.Name
		}
		fmt.Fprintf(b, "Assign %s := %s\n", strings.Join(targets, ", "), exprString(node.Value))
	case *ast.If:
		fmt.Fprintf(b, "If %s\n", exprString(node.Cond))
		for _, stmt := range node.Body.Statements {
			dumpNode(b, stmt, depth+1)
		}
	case *ast.Switch:
		fmt.Fprintf(b, "Switch %s\n", exprString(node.Scrutinee))
		for _, c := range node.Cases {
			indent(b, depth+1)
			fmt.Fprintf(b, "Case %s\n", c.Value.Value)
			for _, stmt := range c.Body.Statements {
				dumpNode(b, stmt, depth+2)
			}
		}
		if node.Default != nil {
			indent(b, depth+1)
			b.WriteString("Default\n")
			for _, stmt := range node.Default.Statements {
				dumpNode(b, stmt, depth+2)
			}
		}
	case *ast.ForLoop:
		fmt.Fprintf(b, "For %s\n", exprString(node.Cond))
		for _, stmt := range node.Body.Statements {
			dumpNode(b, stmt, depth+1)
		}
	case *ast.Break:
		b.WriteString("Break\n")
	case *ast.Continue:
		b.WriteString("Continue\n")
	case *ast.Leave:
		b.WriteString("Leave\n")
	case *ast.ExpressionStatement:
		fmt.Fprintf(b, "Expr %s\n", exprString(node.Expr))
	default:
		fmt.Fprintf(b, "%T\n", n)
	}
}

func typedNames(names []ast.TypedName) string {
	parts := make([]string, len(names))
	for i, name := range names {
		if name.Type.Name != ast.Unknown {
			parts[i] = fmt.Sprintf("%s:%s", name.Name, name.Type.Name)
		} else {
			parts[i] = name.Name
		}
	}
	return strings.Join(parts, ", ")
}

func exprString(expr ast.Expression) string {
	switch node := expr.(type) {
	case *ast.Literal:
		if node.Kind == ast.LiteralString {
			return fmt.Sprintf("%q", node.Value)
		}
		return node.Value
	case *ast.Identifier:
		return node.Name
	case *ast.FunctionCall:
		args := make([]string, len(node.Args))
		for i, arg := range node.Args {
			args[i] = exprString(arg)
		}
		return fmt.Sprintf("%s(%s)", node.Callee.Name, strings.Join(args, ", "))
	default:
		return fmt.Sprintf("%T", expr)
	}
}

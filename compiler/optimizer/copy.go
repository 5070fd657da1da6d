package optimizer

import (
	"github.com/r3e-network/neo-solc/compiler/ast"
)

// Deep copies with optional renaming, used by inlining. The rename map
// applies to variable declarations, identifier uses, and assignment targets;
// callee names are function names and are never renamed.

func copyBlock(block *ast.Block, rename map[string]string) *ast.Block {
	if block == nil {
		return nil
	}
	out := &ast.Block{Location: block.Location}
	for _, stmt := range block.Statements {
		out.Statements = append(out.Statements, copyStmt(stmt, rename))
	}
	return out
}

func copyStmt(stmt ast.Statement, rename map[string]string) ast.Statement {
	switch node := stmt.(type) {
	case *ast.Block:
		return copyBlock(node, rename)
	case *ast.VariableDeclaration:
		out := &ast.VariableDeclaration{Location: node.Location}
		for _, v := range node.Vars {
			out.Vars = append(out.Vars, ast.TypedName{
				Name:     renamed(v.Name, rename),
				Type:     v.Type,
				Location: v.Location,
			})
		}
		if node.Init != nil {
			out.Init = copyExpr(node.Init, rename)
		}
		return out
	case *ast.Assignment:
		out := &ast.Assignment{Location: node.Location}
		for _, t := range node.Targets {
			out.Targets = append(out.Targets, &ast.Identifier{
				Name:     renamed(t.Name, rename),
				Type:     t.Type,
				Location: t.Location,
			})
		}
		out.Value = copyExpr(node.Value, rename)
		return out
	case *ast.If:
		return &ast.If{
			Cond:     copyExpr(node.Cond, rename),
			Body:     copyBlock(node.Body, rename),
			Location: node.Location,
		}
	case *ast.Switch:
		out := &ast.Switch{
			Scrutinee: copyExpr(node.Scrutinee, rename),
			Location:  node.Location,
		}
		for _, c := range node.Cases {
			lit := *c.Value
			out.Cases = append(out.Cases, ast.SwitchCase{
				Value:    &lit,
				Body:     copyBlock(c.Body, rename),
				Location: c.Location,
			})
		}
		out.Default = copyBlock(node.Default, rename)
		return out
	case *ast.ForLoop:
		return &ast.ForLoop{
			Init:     copyBlock(node.Init, rename),
			Cond:     copyExpr(node.Cond, rename),
			Post:     copyBlock(node.Post, rename),
			Body:     copyBlock(node.Body, rename),
			Location: node.Location,
		}
	case *ast.Break:
		return &ast.Break{Location: node.Location}
	case *ast.Continue:
		return &ast.Continue{Location: node.Location}
	case *ast.Leave:
		return &ast.Leave{Location: node.Location}
	case *ast.ExpressionStatement:
		return &ast.ExpressionStatement{
			Expr:     copyExpr(node.Expr, rename),
			Location: node.Location,
		}
	default:
		return stmt
	}
}

func copyExpr(expr ast.Expression, rename map[string]string) ast.Expression {
	switch node := expr.(type) {
	case *ast.Literal:
		out := *node
		return &out
	case *ast.Identifier:
		return &ast.Identifier{
			Name:     renamed(node.Name, rename),
			Type:     node.Type,
			Location: node.Location,
		}
	case *ast.FunctionCall:
		out := &ast.FunctionCall{
			Callee: &ast.Identifier{
				Name:     node.Callee.Name,
				Type:     node.Callee.Type,
				Location: node.Callee.Location,
			},
			Location: node.Location,
		}
		for _, arg := range node.Args {
			out.Args = append(out.Args, copyExpr(arg, rename))
		}
		return out
	default:
		return expr
	}
}

func renamed(name string, rename map[string]string) string {
	if rename == nil {
		return name
	}
	if to, ok := rename[name]; ok {
		return to
	}
	return name
}

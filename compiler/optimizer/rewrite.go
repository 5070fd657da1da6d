package optimizer

import (
	"github.com/r3e-network/neo-solc/compiler/ast"
)

// rewriteExpressions applies f bottom-up to every expression in the unit,
// replacing nodes where f reports a change.
func rewriteExpressions(unit *ast.AST, f func(ast.Expression) (ast.Expression, bool)) {
	for _, item := range unit.Items {
		switch node := item.(type) {
		case *ast.Function:
			rewriteBlock(node.Body, f)
		case *ast.Object:
			rewriteObject(node, f)
		case *ast.Block:
			rewriteBlock(node, f)
		}
	}
}

func rewriteObject(obj *ast.Object, f func(ast.Expression) (ast.Expression, bool)) {
	if obj.Code != nil {
		rewriteBlock(obj.Code, f)
	}
	for _, child := range obj.Children {
		rewriteObject(child, f)
	}
}

func rewriteBlock(block *ast.Block, f func(ast.Expression) (ast.Expression, bool)) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		rewriteStatement(stmt, f)
	}
}

func rewriteStatement(stmt ast.Statement, f func(ast.Expression) (ast.Expression, bool)) {
	switch node := stmt.(type) {
	case *ast.Block:
		rewriteBlock(node, f)
	case *ast.Function:
		rewriteBlock(node.Body, f)
	case *ast.VariableDeclaration:
		if node.Init != nil {
			node.Init = rewriteExpr(node.Init, f)
		}
	case *ast.Assignment:
		node.Value = rewriteExpr(node.Value, f)
	case *ast.If:
		node.Cond = rewriteExpr(node.Cond, f)
		rewriteBlock(node.Body, f)
	case *ast.Switch:
		node.Scrutinee = rewriteExpr(node.Scrutinee, f)
		for _, c := range node.Cases {
			rewriteBlock(c.Body, f)
		}
		rewriteBlock(node.Default, f)
	case *ast.ForLoop:
		rewriteBlock(node.Init, f)
		node.Cond = rewriteExpr(node.Cond, f)
		rewriteBlock(node.Post, f)
		rewriteBlock(node.Body, f)
	case *ast.ExpressionStatement:
		node.Expr = rewriteExpr(node.Expr, f)
	}
}

// rewriteExpr rewrites bottom-up: children first, then the node itself,
// repeating while f keeps changing the result.
func rewriteExpr(expr ast.Expression, f func(ast.Expression) (ast.Expression, bool)) ast.Expression {
	if call, ok := expr.(*ast.FunctionCall); ok {
		for i, arg := range call.Args {
			call.Args[i] = rewriteExpr(arg, f)
		}
	}
	for {
		next, changed := f(expr)
		if !changed {
			return expr
		}
		expr = next
		if call, ok := expr.(*ast.FunctionCall); ok {
			for i, arg := range call.Args {
				call.Args[i] = rewriteExpr(arg, f)
			}
		}
	}
}

// forEachBlock visits every statement list in the unit, innermost first,
// letting the callback replace the slice.
func forEachBlock(unit *ast.AST, f func(block *ast.Block)) {
	for _, item := range unit.Items {
		switch node := item.(type) {
		case *ast.Function:
			visitBlocks(node.Body, f)
		case *ast.Object:
			visitObjectBlocks(node, f)
		case *ast.Block:
			visitBlocks(node, f)
		}
	}
}

func visitObjectBlocks(obj *ast.Object, f func(*ast.Block)) {
	if obj.Code != nil {
		visitBlocks(obj.Code, f)
	}
	for _, child := range obj.Children {
		visitObjectBlocks(child, f)
	}
}

func visitBlocks(block *ast.Block, f func(*ast.Block)) {
	if block == nil {
		return
	}
	visitStmts(block.Statements, f)
	f(block)
}

func visitStmts(stmts []ast.Statement, f func(*ast.Block)) {
	for _, stmt := range stmts {
		switch node := stmt.(type) {
		case *ast.Block:
			visitBlocks(node, f)
		case *ast.Function:
			visitBlocks(node.Body, f)
		case *ast.If:
			visitBlocks(node.Body, f)
		case *ast.Switch:
			for _, c := range node.Cases {
				visitBlocks(c.Body, f)
			}
			visitBlocks(node.Default, f)
		case *ast.ForLoop:
			// the init block's declarations stay visible to cond, post, and
			// body, so the init statement list is never offered to f as a
			// standalone block; only blocks nested inside it are
			if node.Init != nil {
				visitStmts(node.Init.Statements, f)
			}
			visitBlocks(node.Post, f)
			visitBlocks(node.Body, f)
		}
	}
}

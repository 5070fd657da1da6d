package optimizer

import (
	"github.com/r3e-network/neo-solc/compiler/ast"
	"github.com/r3e-network/neo-solc/compiler/semantic"
)

// DeadCodeElimination removes statements after a terminator within a block,
// and declarations that are never read when their initializers are pure.
type DeadCodeElimination struct {
	secondSweep bool

	removed int
}

func (p *DeadCodeElimination) Name() string { return "dead-code-elimination" }

func (p *DeadCodeElimination) Description() string {
	return "drops unreachable statements and unread pure declarations"
}

func (p *DeadCodeElimination) ShouldRun(level int) bool {
	if p.secondSweep {
		return level >= 3
	}
	return level >= 1
}

func (p *DeadCodeElimination) Apply(unit *ast.AST) (bool, error) {
	changed := false
	forEachBlock(unit, func(block *ast.Block) {
		if p.truncateAfterTerminator(block) {
			changed = true
		}
		if p.dropUnreadDeclarations(block) {
			changed = true
		}
	})
	return changed, nil
}

func (p *DeadCodeElimination) truncateAfterTerminator(block *ast.Block) bool {
	for i, stmt := range block.Statements {
		if terminates(stmt) && i+1 < len(block.Statements) {
			for _, dead := range block.Statements[i+1:] {
				p.removed += ast.CountNodes(dead)
			}
			block.Statements = block.Statements[:i+1]
			return true
		}
	}
	return false
}

// dropUnreadDeclarations removes a declaration when none of its names are
// referenced anywhere later in the block (including nested statements) and
// its initializer has no side effects. Any later occurrence of the name,
// even a shadowing redeclaration, conservatively counts as a use.
func (p *DeadCodeElimination) dropUnreadDeclarations(block *ast.Block) bool {
	changed := false
	kept := block.Statements[:0]
	for i, stmt := range block.Statements {
		decl, ok := stmt.(*ast.VariableDeclaration)
		if !ok || !isPureExpr(decl.Init) {
			kept = append(kept, stmt)
			continue
		}
		used := false
		for _, name := range decl.Vars {
			if nameOccursIn(block.Statements[i+1:], name.Name) {
				used = true
				break
			}
		}
		if used {
			kept = append(kept, stmt)
			continue
		}
		p.removed += ast.CountNodes(decl)
		changed = true
	}
	block.Statements = kept
	return changed
}

// terminates reports whether control never reaches the statement after s.
func terminates(stmt ast.Statement) bool {
	switch node := stmt.(type) {
	case *ast.Leave, *ast.Break, *ast.Continue:
		return true
	case *ast.ExpressionStatement:
		if call, ok := node.Expr.(*ast.FunctionCall); ok {
			return semantic.IsTerminating(call.Callee.Name)
		}
	}
	return false
}

// isPureExpr reports whether evaluating the expression has no observable
// effect: literals, identifiers, and calls to pure builtins over pure
// arguments. User calls are conservatively impure. A nil expression (a
// declaration without initializer) is pure.
func isPureExpr(expr ast.Expression) bool {
	switch node := expr.(type) {
	case nil:
		return true
	case *ast.Literal, *ast.Identifier:
		return true
	case *ast.FunctionCall:
		if !semantic.IsPureBuiltin(node.Callee.Name) {
			return false
		}
		for _, arg := range node.Args {
			if !isPureExpr(arg) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func nameOccursIn(stmts []ast.Statement, name string) bool {
	for _, stmt := range stmts {
		found := false
		ast.Inspect(stmt, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.Identifier:
				if node.Name == name {
					found = true
				}
			case ast.TypedName:
				if node.Name == name {
					found = true
				}
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

package optimizer

import (
	"math/big"

	"github.com/r3e-network/neo-solc/compiler/ast"
)

// StackOptimization shortens temporary lifetimes: a declaration with a pure
// initializer whose single use is in the immediately following statement is
// substituted into that use and dropped, so the value never occupies a slot.
type StackOptimization struct {
	removed int
}

func (p *StackOptimization) Name() string { return "stack-optimization" }

func (p *StackOptimization) Description() string {
	return "folds single-use temporaries into their use site"
}

func (p *StackOptimization) ShouldRun(level int) bool { return level >= 2 }

func (p *StackOptimization) Apply(unit *ast.AST) (bool, error) {
	changed := false
	forEachBlock(unit, func(block *ast.Block) {
		kept := block.Statements[:0]
		for i := 0; i < len(block.Statements); i++ {
			stmt := block.Statements[i]
			decl, ok := stmt.(*ast.VariableDeclaration)
			if !ok || len(decl.Vars) != 1 || decl.Init == nil || !isPureExpr(decl.Init) {
				kept = append(kept, stmt)
				continue
			}
			name := decl.Vars[0].Name
			if i+1 >= len(block.Statements) ||
				countUses(block.Statements[i+1], name) != 1 ||
				nameOccursIn(block.Statements[i+2:], name) ||
				isNested(block.Statements[i+1]) {
				kept = append(kept, stmt)
				continue
			}
			substituted := false
			rewriteStatement(block.Statements[i+1], func(expr ast.Expression) (ast.Expression, bool) {
				ident, ok := expr.(*ast.Identifier)
				if !ok || ident.Name != name || substituted {
					return expr, false
				}
				substituted = true
				return copyExpr(decl.Init, nil), true
			})
			if !substituted {
				kept = append(kept, stmt)
				continue
			}
			p.removed += ast.CountNodes(decl)
			changed = true
		}
		block.Statements = kept
	})
	return changed, nil
}

func countUses(stmt ast.Statement, name string) int {
	count := 0
	ast.Inspect(stmt, func(n ast.Node) bool {
		if ident, ok := n.(*ast.Identifier); ok && ident.Name == name {
			count++
		}
		return true
	})
	return count
}

// LoopOptimization hoists trivially invariant declarations out of loop
// bodies and unwinds loops whose condition is constant false.
type LoopOptimization struct {
	removed int
}

func (p *LoopOptimization) Name() string { return "loop-optimization" }

func (p *LoopOptimization) Description() string {
	return "hoists invariant declarations and removes never-entered loops"
}

func (p *LoopOptimization) ShouldRun(level int) bool { return level >= 3 }

func (p *LoopOptimization) Apply(unit *ast.AST) (bool, error) {
	changed := false
	forEachBlock(unit, func(block *ast.Block) {
		for i, stmt := range block.Statements {
			loop, ok := stmt.(*ast.ForLoop)
			if !ok {
				continue
			}
			if constantFalse(loop.Cond) && !containsLoopTransfer(loop.Init) {
				// the init block still runs; its scope rules are preserved
				// by keeping it as a nested block
				p.removed += ast.CountNodes(loop) - ast.CountNodes(loop.Init)
				block.Statements[i] = loop.Init
				changed = true
				continue
			}
			if p.hoistInvariants(loop) {
				changed = true
			}
		}
	})
	return changed, nil
}

// hoistInvariants moves `let x := <constant expression>` declarations from
// the body into the init block when the name is not written anywhere in the
// loop.
func (p *LoopOptimization) hoistInvariants(loop *ast.ForLoop) bool {
	changed := false
	kept := loop.Body.Statements[:0]
	for _, stmt := range loop.Body.Statements {
		decl, ok := stmt.(*ast.VariableDeclaration)
		if !ok || decl.Init == nil || !allLiteralArgsOrLiteral(decl.Init) {
			kept = append(kept, stmt)
			continue
		}
		writtenInLoop := false
		for _, v := range decl.Vars {
			if assignedIn(loop, v.Name) || redeclaredElsewhereIn(loop, decl, v.Name) ||
				nameOccursIn(loop.Init.Statements, v.Name) ||
				nameOccursIn(loop.Post.Statements, v.Name) ||
				nameOccursInExpr(loop.Cond, v.Name) {
				writtenInLoop = true
				break
			}
		}
		if writtenInLoop {
			kept = append(kept, stmt)
			continue
		}
		loop.Init.Statements = append(loop.Init.Statements, stmt)
		changed = true
	}
	loop.Body.Statements = kept
	return changed
}

func allLiteralArgsOrLiteral(expr ast.Expression) bool {
	switch node := expr.(type) {
	case *ast.Literal:
		return true
	case *ast.FunctionCall:
		if !isPureExpr(node) {
			return false
		}
		for _, arg := range node.Args {
			if _, ok := arg.(*ast.Literal); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func constantFalse(cond ast.Expression) bool {
	lit, ok := cond.(*ast.Literal)
	if !ok {
		return false
	}
	value, ok := LiteralValue(lit)
	return ok && value.Sign() == 0
}

func assignedIn(n ast.Node, name string) bool {
	found := false
	ast.Inspect(n, func(node ast.Node) bool {
		if assign, ok := node.(*ast.Assignment); ok {
			for _, t := range assign.Targets {
				if t.Name == name {
					found = true
				}
			}
		}
		return !found
	})
	return found
}

func redeclaredElsewhereIn(loop *ast.ForLoop, except *ast.VariableDeclaration, name string) bool {
	found := false
	ast.Inspect(loop, func(node ast.Node) bool {
		if decl, ok := node.(*ast.VariableDeclaration); ok && decl != except {
			for _, v := range decl.Vars {
				if v.Name == name {
					found = true
				}
			}
		}
		return !found
	})
	return found
}

// Peephole applies target-aware algebraic identities: operations the NeoVM
// lowering would spend instructions on for no effect are removed at the AST
// level.
type Peephole struct {
	simplified int
}

func (p *Peephole) Name() string { return "neovm-peephole" }

func (p *Peephole) Description() string {
	return "removes arithmetic identities before instruction selection"
}

func (p *Peephole) ShouldRun(level int) bool { return level >= 3 }

func (p *Peephole) Apply(unit *ast.AST) (bool, error) {
	changed := false
	rewriteExpressions(unit, func(expr ast.Expression) (ast.Expression, bool) {
		call, ok := expr.(*ast.FunctionCall)
		if !ok || len(call.Args) != 2 {
			return expr, false
		}
		a, b := call.Args[0], call.Args[1]
		switch call.Callee.Name {
		case "add":
			if isZero(a) {
				p.simplified++
				changed = true
				return b, true
			}
			if isZero(b) {
				p.simplified++
				changed = true
				return a, true
			}
		case "sub":
			if isZero(b) {
				p.simplified++
				changed = true
				return a, true
			}
		case "mul":
			if isOne(a) {
				p.simplified++
				changed = true
				return b, true
			}
			if isOne(b) {
				p.simplified++
				changed = true
				return a, true
			}
			if (isZero(a) && isPureExpr(b)) || (isZero(b) && isPureExpr(a)) {
				p.simplified++
				changed = true
				return &ast.Literal{
					Kind:     ast.LiteralNumber,
					Value:    "0",
					Type:     ast.TypeInfo{Name: ast.Uint256, Size: 32, IsConstant: true},
					Location: call.Location,
				}, true
			}
		case "div":
			if isOne(b) {
				p.simplified++
				changed = true
				return a, true
			}
		}
		return expr, false
	})
	return changed, nil
}

var oneValue = big.NewInt(1)

func containsLoopTransfer(block *ast.Block) bool {
	found := false
	ast.Inspect(block, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.Break, *ast.Continue:
			found = true
		case *ast.ForLoop, *ast.Function:
			// transfers below here bind to an inner context
			return false
		}
		return !found
	})
	return found
}

func nameOccursInExpr(expr ast.Expression, name string) bool {
	found := false
	ast.Inspect(expr, func(n ast.Node) bool {
		if ident, ok := n.(*ast.Identifier); ok && ident.Name == name {
			found = true
		}
		return !found
	})
	return found
}

func isZero(expr ast.Expression) bool {
	lit, ok := expr.(*ast.Literal)
	if !ok {
		return false
	}
	value, ok := LiteralValue(lit)
	return ok && value.Sign() == 0
}

func isOne(expr ast.Expression) bool {
	lit, ok := expr.(*ast.Literal)
	if !ok {
		return false
	}
	value, ok := LiteralValue(lit)
	return ok && value.Cmp(oneValue) == 0
}

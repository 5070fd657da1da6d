package optimizer

import (
	"fmt"
	"strings"

	"github.com/r3e-network/neo-solc/compiler/ast"
)

// CommonSubexpressionElimination computes structurally identical pure call
// expressions once into a fresh temporary within a block. It never crosses
// loop or function boundaries (forEachBlock hands it one statement list at a
// time), and gives up on a candidate when a name it reads is reassigned or
// redeclared between its occurrences.
type CommonSubexpressionElimination struct {
	reused int
	suffix int
}

func (p *CommonSubexpressionElimination) Name() string { return "common-subexpression-elimination" }

func (p *CommonSubexpressionElimination) Description() string {
	return "reuses repeated pure expressions through a fresh temporary"
}

func (p *CommonSubexpressionElimination) ShouldRun(level int) bool { return level >= 2 }

func (p *CommonSubexpressionElimination) Apply(unit *ast.AST) (bool, error) {
	changed := false
	forEachBlock(unit, func(block *ast.Block) {
		if p.applyToBlock(block) {
			changed = true
		}
	})
	return changed, nil
}

type occurrence struct {
	stmtIndex int
	count     int
	expr      *ast.FunctionCall
}

func (p *CommonSubexpressionElimination) applyToBlock(block *ast.Block) bool {
	// count candidate expressions per statement, top-level statements only
	// (nested blocks were already handled innermost-first)
	seen := make(map[string]*occurrence)
	order := []string{}
	for i, stmt := range block.Statements {
		if isNested(stmt) {
			continue
		}
		eachCandidate(stmt, func(call *ast.FunctionCall) {
			key := exprKey(call)
			occ, ok := seen[key]
			if !ok {
				seen[key] = &occurrence{stmtIndex: i, count: 1, expr: call}
				order = append(order, key)
				return
			}
			occ.count++
		})
	}

	for _, key := range order {
		occ := seen[key]
		if occ.count < 2 {
			continue
		}
		if !p.safeSpan(block, occ, key) {
			continue
		}

		p.suffix++
		temp := fmt.Sprintf("_cse%d", p.suffix)
		replaced := 0
		for _, stmt := range block.Statements[occ.stmtIndex:] {
			if isNested(stmt) {
				continue
			}
			rewriteStatement(stmt, func(expr ast.Expression) (ast.Expression, bool) {
				call, ok := expr.(*ast.FunctionCall)
				if !ok || exprKey(call) != key {
					return expr, false
				}
				replaced++
				return &ast.Identifier{Name: temp, Location: call.Location}, true
			})
		}
		if replaced == 0 {
			continue
		}

		decl := &ast.VariableDeclaration{
			Vars: []ast.TypedName{{
				Name:     temp,
				Type:     ast.TypeInfo{Name: ast.Uint256, Size: 32},
				Location: occ.expr.Location,
			}},
			Init:     copyExpr(occ.expr, nil),
			Location: occ.expr.Location,
		}
		stmts := make([]ast.Statement, 0, len(block.Statements)+1)
		stmts = append(stmts, block.Statements[:occ.stmtIndex]...)
		stmts = append(stmts, decl)
		stmts = append(stmts, block.Statements[occ.stmtIndex:]...)
		block.Statements = stmts
		p.reused += replaced - 1
		return true // indices shifted; the fixpoint loop revisits
	}
	return false
}

// safeSpan verifies no name the expression reads is written between the
// first occurrence and the end of the block, and no side-effecting
// statement could order-depend on the hoisted computation.
func (p *CommonSubexpressionElimination) safeSpan(block *ast.Block, occ *occurrence, key string) bool {
	reads := make(map[string]bool)
	ast.Inspect(occ.expr, func(n ast.Node) bool {
		if ident, ok := n.(*ast.Identifier); ok {
			reads[ident.Name] = true
		}
		return true
	})
	delete(reads, occ.expr.Callee.Name)

	for _, stmt := range block.Statements[occ.stmtIndex:] {
		safe := true
		ast.Inspect(stmt, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.Assignment:
				for _, t := range node.Targets {
					if reads[t.Name] {
						safe = false
					}
				}
			case *ast.VariableDeclaration:
				for _, v := range node.Vars {
					if reads[v.Name] {
						safe = false
					}
				}
			}
			return safe
		})
		if !safe {
			return false
		}
	}
	return true
}

// eachCandidate yields pure builtin calls with identifier or literal
// arguments from the statement's own expressions, without descending into
// nested statement bodies.
func eachCandidate(stmt ast.Statement, f func(*ast.FunctionCall)) {
	var fromExpr func(ast.Expression)
	fromExpr = func(expr ast.Expression) {
		call, ok := expr.(*ast.FunctionCall)
		if !ok {
			return
		}
		for _, arg := range call.Args {
			fromExpr(arg)
		}
		if !isPureExpr(call) {
			return
		}
		for _, arg := range call.Args {
			switch arg.(type) {
			case *ast.Literal, *ast.Identifier:
			default:
				return
			}
		}
		f(call)
	}

	switch node := stmt.(type) {
	case *ast.VariableDeclaration:
		if node.Init != nil {
			fromExpr(node.Init)
		}
	case *ast.Assignment:
		fromExpr(node.Value)
	case *ast.ExpressionStatement:
		fromExpr(node.Expr)
	}
}

func isNested(stmt ast.Statement) bool {
	switch stmt.(type) {
	case *ast.Block, *ast.Function, *ast.If, *ast.Switch, *ast.ForLoop:
		return true
	}
	return false
}

// exprKey renders a structural hash of an expression.
func exprKey(expr ast.Expression) string {
	var b strings.Builder
	writeKey(&b, expr)
	return b.String()
}

func writeKey(b *strings.Builder, expr ast.Expression) {
	switch node := expr.(type) {
	case *ast.Literal:
		fmt.Fprintf(b, "lit:%d:%s", node.Kind, node.Value)
	case *ast.Identifier:
		fmt.Fprintf(b, "id:%s", node.Name)
	case *ast.FunctionCall:
		fmt.Fprintf(b, "call:%s(", node.Callee.Name)
		for i, arg := range node.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			writeKey(b, arg)
		}
		b.WriteByte(')')
	}
}

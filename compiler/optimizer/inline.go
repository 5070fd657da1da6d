package optimizer

import (
	"fmt"

	"github.com/r3e-network/neo-solc/compiler/ast"
)

// DefaultInlineThreshold is the body node-count limit for inlining.
const DefaultInlineThreshold = 100

// FunctionInlining replaces calls to small user functions with a block
// holding renamed copies of the parameters and body. A function is eligible
// when it is not recursive (directly or through other user functions), its
// body is under the size threshold, it declares at most one return value,
// and its body contains no leave and no nested function definitions.
// Renaming uses a globally incrementing suffix so expansions cannot capture
// names from the call site.
type FunctionInlining struct {
	SizeThreshold int

	inlined int
	suffix  int
}

func (p *FunctionInlining) Name() string { return "function-inlining" }

func (p *FunctionInlining) Description() string {
	return "expands calls to small user functions in place"
}

func (p *FunctionInlining) ShouldRun(level int) bool { return level >= 2 }

func (p *FunctionInlining) Apply(unit *ast.AST) (bool, error) {
	functions := collectFunctions(unit)
	eligible := make(map[string]*ast.Function)
	for name, fn := range functions {
		if p.eligible(fn, functions) {
			eligible[name] = fn
		}
	}
	if len(eligible) == 0 {
		return false, nil
	}

	changed := false
	forEachBlock(unit, func(block *ast.Block) {
		var out []ast.Statement
		for _, stmt := range block.Statements {
			replacement, ok := p.inlineStatement(stmt, eligible)
			if ok {
				changed = true
				out = append(out, replacement...)
			} else {
				out = append(out, stmt)
			}
		}
		block.Statements = out
	})
	return changed, nil
}

// inlineStatement handles the three statement shapes an inlinable call can
// appear in: a declaration initializer, a single-target assignment, and a
// bare expression statement. A declaration splits into declare-then-expand
// so the declared name stays visible to the rest of the outer block.
func (p *FunctionInlining) inlineStatement(stmt ast.Statement, eligible map[string]*ast.Function) ([]ast.Statement, bool) {
	switch node := stmt.(type) {
	case *ast.VariableDeclaration:
		call, ok := inlinableCall(node.Init, eligible)
		if !ok || len(node.Vars) != 1 {
			return nil, false
		}
		fn := eligible[call.Callee.Name]
		if len(fn.Returns) != 1 {
			return nil, false
		}
		body := p.expand(fn, call)
		body.block.Statements = append(body.block.Statements, &ast.Assignment{
			Targets:  []*ast.Identifier{{Name: node.Vars[0].Name, Location: node.Location}},
			Value:    &ast.Identifier{Name: body.returnName, Location: node.Location},
			Location: node.Location,
		})
		decl := &ast.VariableDeclaration{Vars: node.Vars, Location: node.Location}
		p.inlined++
		return []ast.Statement{decl, body.block}, true

	case *ast.Assignment:
		call, ok := inlinableCall(node.Value, eligible)
		if !ok || len(node.Targets) != 1 {
			return nil, false
		}
		fn := eligible[call.Callee.Name]
		if len(fn.Returns) != 1 {
			return nil, false
		}
		body := p.expand(fn, call)
		body.block.Statements = append(body.block.Statements, &ast.Assignment{
			Targets:  node.Targets,
			Value:    &ast.Identifier{Name: body.returnName, Location: node.Location},
			Location: node.Location,
		})
		p.inlined++
		return []ast.Statement{body.block}, true

	case *ast.ExpressionStatement:
		call, ok := inlinableCall(node.Expr, eligible)
		if !ok {
			return nil, false
		}
		fn := eligible[call.Callee.Name]
		if len(fn.Returns) != 0 {
			return nil, false
		}
		body := p.expand(fn, call)
		p.inlined++
		return []ast.Statement{body.block}, true
	}
	return nil, false
}

// inlinableCall matches a direct call to an eligible function whose
// arguments are effect-free, so evaluating them as parameter initializers
// cannot change observable behavior.
func inlinableCall(expr ast.Expression, eligible map[string]*ast.Function) (*ast.FunctionCall, bool) {
	call, ok := expr.(*ast.FunctionCall)
	if !ok {
		return nil, false
	}
	fn, ok := eligible[call.Callee.Name]
	if !ok || len(call.Args) != len(fn.Params) {
		return nil, false
	}
	for _, arg := range call.Args {
		if !isPureExpr(arg) {
			return nil, false
		}
	}
	return call, true
}

type expansion struct {
	block      *ast.Block
	returnName string
}

// expand builds the replacement block: renamed parameter declarations
// initialized from the call arguments, a renamed return declaration
// initialized to zero, then the renamed body statements.
func (p *FunctionInlining) expand(fn *ast.Function, call *ast.FunctionCall) expansion {
	p.suffix++
	rename := make(map[string]string)
	newName := func(name string) string {
		return fmt.Sprintf("%s_inl%d", name, p.suffix)
	}
	for _, param := range fn.Params {
		rename[param.Name] = newName(param.Name)
	}
	for _, ret := range fn.Returns {
		rename[ret.Name] = newName(ret.Name)
	}
	collectDeclared(fn.Body, func(name string) {
		if _, seen := rename[name]; !seen {
			rename[name] = newName(name)
		}
	})

	block := &ast.Block{Location: call.Location}
	for i, param := range fn.Params {
		block.Statements = append(block.Statements, &ast.VariableDeclaration{
			Vars: []ast.TypedName{{
				Name:     rename[param.Name],
				Type:     param.Type,
				Location: call.Location,
			}},
			Init:     copyExpr(call.Args[i], nil),
			Location: call.Location,
		})
	}
	returnName := ""
	for _, ret := range fn.Returns {
		returnName = rename[ret.Name]
		block.Statements = append(block.Statements, &ast.VariableDeclaration{
			Vars: []ast.TypedName{{
				Name:     rename[ret.Name],
				Type:     ret.Type,
				Location: call.Location,
			}},
			Init: &ast.Literal{
				Kind:     ast.LiteralNumber,
				Value:    "0",
				Type:     ast.TypeInfo{Name: ast.Uint256, Size: 32, IsConstant: true},
				Location: call.Location,
			},
			Location: call.Location,
		})
	}
	for _, stmt := range fn.Body.Statements {
		block.Statements = append(block.Statements, copyStmt(stmt, rename))
	}
	return expansion{block: block, returnName: returnName}
}

func (p *FunctionInlining) eligible(fn *ast.Function, all map[string]*ast.Function) bool {
	if fn.Body == nil || len(fn.Returns) > 1 {
		return false
	}
	threshold := p.SizeThreshold
	if threshold == 0 {
		threshold = DefaultInlineThreshold
	}
	if ast.CountNodes(fn.Body) > threshold {
		return false
	}
	hasBlocker := false
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.Leave, *ast.Function:
			hasBlocker = true
		}
		return !hasBlocker
	})
	if hasBlocker {
		return false
	}
	return !recursive(fn.Name, all, make(map[string]bool))
}

// recursive walks the user-call graph looking for a cycle back through name.
func recursive(name string, all map[string]*ast.Function, visiting map[string]bool) bool {
	if visiting[name] {
		return true
	}
	fn, ok := all[name]
	if !ok {
		return false
	}
	visiting[name] = true
	defer delete(visiting, name)

	found := false
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		if call, ok := n.(*ast.FunctionCall); ok {
			if _, user := all[call.Callee.Name]; user {
				if recursive(call.Callee.Name, all, visiting) {
					found = true
				}
			}
		}
		return !found
	})
	return found
}

func collectFunctions(unit *ast.AST) map[string]*ast.Function {
	functions := make(map[string]*ast.Function)
	ast.InspectAll(unit, func(n ast.Node) bool {
		if fn, ok := n.(*ast.Function); ok {
			functions[fn.Name] = fn
		}
		return true
	})
	return functions
}

func collectDeclared(block *ast.Block, f func(string)) {
	ast.Inspect(block, func(n ast.Node) bool {
		if decl, ok := n.(*ast.VariableDeclaration); ok {
			for _, v := range decl.Vars {
				f(v.Name)
			}
		}
		return true
	})
}

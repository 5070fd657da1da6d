package optimizer

import (
	"fmt"

	"github.com/r3e-network/neo-solc/compiler/ast"
	"github.com/r3e-network/neo-solc/compiler/token"
)

// validate re-checks tree invariants after a pass: every identifier use and
// every assignment target must still resolve to a declaration in an
// enclosing scope, and every callee must be a known builtin or a declared
// function.
func validate(unit *ast.AST) error {
	v := &validator{}
	v.pushScope(false)

	for _, item := range unit.Items {
		if fn, ok := item.(*ast.Function); ok {
			v.declareFunc(fn.Name)
		}
	}
	for _, item := range unit.Items {
		switch node := item.(type) {
		case *ast.Function:
			if err := v.function(node); err != nil {
				return err
			}
		case *ast.Object:
			if err := v.object(node); err != nil {
				return err
			}
		case *ast.Block:
			if err := v.block(node); err != nil {
				return err
			}
		}
	}
	return nil
}

type vscope struct {
	vars  map[string]bool
	funcs map[string]bool
}

type validator struct {
	scopes []vscope
}

func (v *validator) pushScope(bool) {
	v.scopes = append(v.scopes, vscope{vars: map[string]bool{}, funcs: map[string]bool{}})
}

func (v *validator) popScope() {
	v.scopes = v.scopes[:len(v.scopes)-1]
}

func (v *validator) declareVar(name string)  { v.scopes[len(v.scopes)-1].vars[name] = true }
func (v *validator) declareFunc(name string) { v.scopes[len(v.scopes)-1].funcs[name] = true }

func (v *validator) varResolves(name string) bool {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if v.scopes[i].vars[name] {
			return true
		}
	}
	return false
}

func (v *validator) funcResolves(name string) bool {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if v.scopes[i].funcs[name] {
			return true
		}
	}
	return token.IsBuiltin(name)
}

func (v *validator) object(obj *ast.Object) error {
	if obj.Code != nil {
		if err := v.block(obj.Code); err != nil {
			return err
		}
	}
	for _, child := range obj.Children {
		if err := v.object(child); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) function(fn *ast.Function) error {
	v.pushScope(true)
	defer v.popScope()
	for _, p := range fn.Params {
		v.declareVar(p.Name)
	}
	for _, r := range fn.Returns {
		v.declareVar(r.Name)
	}
	return v.statements(fn.Body)
}

func (v *validator) block(block *ast.Block) error {
	v.pushScope(false)
	defer v.popScope()
	return v.statements(block)
}

func (v *validator) statements(block *ast.Block) error {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Statements {
		if fn, ok := stmt.(*ast.Function); ok {
			v.declareFunc(fn.Name)
		}
	}
	for _, stmt := range block.Statements {
		if err := v.statement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) statement(stmt ast.Statement) error {
	switch node := stmt.(type) {
	case *ast.Block:
		return v.block(node)
	case *ast.Function:
		return v.function(node)
	case *ast.VariableDeclaration:
		if node.Init != nil {
			if err := v.expression(node.Init); err != nil {
				return err
			}
		}
		for _, name := range node.Vars {
			v.declareVar(name.Name)
		}
	case *ast.Assignment:
		for _, target := range node.Targets {
			if !v.varResolves(target.Name) {
				return fmt.Errorf("assignment target %s does not resolve", target.Name)
			}
		}
		return v.expression(node.Value)
	case *ast.If:
		if err := v.expression(node.Cond); err != nil {
			return err
		}
		return v.block(node.Body)
	case *ast.Switch:
		if err := v.expression(node.Scrutinee); err != nil {
			return err
		}
		for _, c := range node.Cases {
			if err := v.block(c.Body); err != nil {
				return err
			}
		}
		if node.Default != nil {
			return v.block(node.Default)
		}
	case *ast.ForLoop:
		v.pushScope(false)
		defer v.popScope()
		if err := v.statements(node.Init); err != nil {
			return err
		}
		if err := v.expression(node.Cond); err != nil {
			return err
		}
		if err := v.statements(node.Body); err != nil {
			return err
		}
		return v.statements(node.Post)
	case *ast.ExpressionStatement:
		return v.expression(node.Expr)
	}
	return nil
}

func (v *validator) expression(expr ast.Expression) error {
	switch node := expr.(type) {
	case *ast.Identifier:
		if !v.varResolves(node.Name) {
			return fmt.Errorf("identifier %s does not resolve", node.Name)
		}
	case *ast.FunctionCall:
		if !v.funcResolves(node.Callee.Name) {
			return fmt.Errorf("callee %s does not resolve", node.Callee.Name)
		}
		for _, arg := range node.Args {
			if err := v.expression(arg); err != nil {
				return err
			}
		}
	}
	return nil
}

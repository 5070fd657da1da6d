package optimizer

import (
	"math/big"

	"github.com/r3e-network/neo-solc/compiler/ast"
)

// foldable lists the callees the folder understands. and/or/not use the
// truthy interpretation, matching the lowering to BOOLAND/BOOLOR/NOT.
var foldable = map[string]bool{
	"add": true, "sub": true, "mul": true, "div": true, "mod": true,
	"lt": true, "gt": true, "eq": true,
	"and": true, "or": true, "not": true,
}

// wordModulus is 2^256; arithmetic wraps to the declared target width.
var wordModulus = new(big.Int).Lsh(big.NewInt(1), 256)

// ConstantFolding replaces pure builtin calls over numeric literals with the
// literal result. Division or modulus by zero is never folded.
type ConstantFolding struct {
	secondSweep bool

	folded   int
	gasSaved uint64
}

func (p *ConstantFolding) Name() string { return "constant-folding" }

func (p *ConstantFolding) Description() string {
	return "evaluates pure builtin calls over constant arguments at compile time"
}

func (p *ConstantFolding) ShouldRun(level int) bool {
	if p.secondSweep {
		return level >= 3
	}
	return level >= 1
}

func (p *ConstantFolding) Apply(unit *ast.AST) (bool, error) {
	changed := p.foldExpressions(unit)
	// propagation can expose new all-literal calls; fold those in the same
	// application so a later pass never sees the half-finished shape
	for p.propagateLiterals(unit) {
		changed = true
		if !p.foldExpressions(unit) {
			break
		}
	}
	return changed, nil
}

func (p *ConstantFolding) foldExpressions(unit *ast.AST) bool {
	changed := false
	rewriteExpressions(unit, func(expr ast.Expression) (ast.Expression, bool) {
		call, ok := expr.(*ast.FunctionCall)
		if !ok || !foldable[call.Callee.Name] {
			return expr, false
		}
		values, ok := literalArgs(call)
		if !ok {
			return expr, false
		}
		result, ok := fold(call.Callee.Name, values)
		if !ok {
			return expr, false
		}
		p.folded++
		p.gasSaved += 3
		changed = true
		return &ast.Literal{
			Kind:     ast.LiteralNumber,
			Value:    result.String(),
			Type:     ast.TypeInfo{Name: ast.Uint256, Size: 32, IsConstant: true},
			Location: call.Location,
		}, true
	})
	return changed
}

// propagateLiterals substitutes uses of a variable bound once to a numeric
// literal with the literal itself, so a later sweep can fold the enclosing
// expression. Propagation stays within the declaring block and gives up on
// names that are ever assigned or redeclared afterwards.
func (p *ConstantFolding) propagateLiterals(unit *ast.AST) bool {
	assigned := assignedNames(unit)
	changed := false

	forEachBlock(unit, func(block *ast.Block) {
		for i, stmt := range block.Statements {
			decl, ok := stmt.(*ast.VariableDeclaration)
			if !ok || len(decl.Vars) != 1 || decl.Init == nil {
				continue
			}
			lit, ok := decl.Init.(*ast.Literal)
			if !ok || (lit.Kind != ast.LiteralNumber && lit.Kind != ast.LiteralHexNumber) {
				continue
			}
			name := decl.Vars[0].Name
			if assigned[name] || redeclaredIn(block.Statements[i+1:], name) {
				continue
			}
			for _, later := range block.Statements[i+1:] {
				rewriteStatement(later, func(expr ast.Expression) (ast.Expression, bool) {
					ident, ok := expr.(*ast.Identifier)
					if !ok || ident.Name != name {
						return expr, false
					}
					changed = true
					clone := *lit
					clone.Location = ident.Location
					return &clone, true
				})
			}
		}
	})
	return changed
}

func assignedNames(unit *ast.AST) map[string]bool {
	names := make(map[string]bool)
	ast.InspectAll(unit, func(n ast.Node) bool {
		if assign, ok := n.(*ast.Assignment); ok {
			for _, target := range assign.Targets {
				names[target.Name] = true
			}
		}
		return true
	})
	return names
}

func redeclaredIn(stmts []ast.Statement, name string) bool {
	for _, stmt := range stmts {
		found := false
		ast.Inspect(stmt, func(n ast.Node) bool {
			if tn, ok := n.(ast.TypedName); ok && tn.Name == name {
				found = true
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

// literalArgs extracts every argument as a numeric constant; hex and boolean
// literals participate, strings do not.
func literalArgs(call *ast.FunctionCall) ([]*big.Int, bool) {
	values := make([]*big.Int, 0, len(call.Args))
	for _, arg := range call.Args {
		lit, ok := arg.(*ast.Literal)
		if !ok {
			return nil, false
		}
		value, ok := LiteralValue(lit)
		if !ok {
			return nil, false
		}
		values = append(values, value)
	}
	return values, true
}

// LiteralValue parses a numeric literal into its big integer value.
func LiteralValue(lit *ast.Literal) (*big.Int, bool) {
	switch lit.Kind {
	case ast.LiteralNumber:
		value, ok := new(big.Int).SetString(lit.Value, 10)
		return value, ok
	case ast.LiteralHexNumber:
		if len(lit.Value) <= 2 {
			return nil, false
		}
		value, ok := new(big.Int).SetString(lit.Value[2:], 16)
		return value, ok
	case ast.LiteralBoolean:
		if lit.Value == "true" {
			return big.NewInt(1), true
		}
		return big.NewInt(0), true
	default:
		return nil, false
	}
}

// fold applies the builtin's mathematical definition. Arithmetic wraps
// modulo 2^256.
func fold(name string, values []*big.Int) (*big.Int, bool) {
	boolInt := func(b bool) *big.Int {
		if b {
			return big.NewInt(1)
		}
		return big.NewInt(0)
	}

	switch name {
	case "not":
		if len(values) != 1 {
			return nil, false
		}
		return boolInt(values[0].Sign() == 0), true
	}

	if len(values) != 2 {
		return nil, false
	}
	a, b := values[0], values[1]

	switch name {
	case "add":
		return wrap(new(big.Int).Add(a, b)), true
	case "sub":
		return wrap(new(big.Int).Sub(a, b)), true
	case "mul":
		return wrap(new(big.Int).Mul(a, b)), true
	case "div":
		if b.Sign() == 0 {
			return nil, false // preserve the runtime's division-by-zero behavior
		}
		return new(big.Int).Quo(a, b), true
	case "mod":
		if b.Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Rem(a, b), true
	case "lt":
		return boolInt(a.Cmp(b) < 0), true
	case "gt":
		return boolInt(a.Cmp(b) > 0), true
	case "eq":
		return boolInt(a.Cmp(b) == 0), true
	case "and":
		return boolInt(a.Sign() != 0 && b.Sign() != 0), true
	case "or":
		return boolInt(a.Sign() != 0 || b.Sign() != 0), true
	}
	return nil, false
}

// wrap reduces into [0, 2^256); big.Int Mod is Euclidean, so negative
// intermediates (sub underflow) land on the wrapped value directly.
func wrap(v *big.Int) *big.Int {
	return v.Mod(v, wordModulus)
}

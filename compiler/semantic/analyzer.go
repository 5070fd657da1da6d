// Package semantic resolves names, infers and checks types, and validates
// control flow over the parsed tree.
//
// The analyzer never mutates the tree shape. It attaches type information to
// identifier nodes, records declaration and use data in the symbol table, and
// reports everything else through the shared ErrorContext. Analysis recovers
// from errors by skipping the offending node so one invocation surfaces as
// many issues as possible.
package semantic

import (
	"github.com/r3e-network/neo-solc/compiler/ast"
	"github.com/r3e-network/neo-solc/compiler/diag"
)

// Diagnostic codes emitted by this package.
const (
	CodeDuplicateDeclaration = "duplicate-declaration"
	CodeUndefinedVariable    = "undefined-variable"
	CodeUndefinedFunction    = "undefined-function"
	CodeTypeMismatch         = "type-mismatch"
	CodeArityMismatch        = "arity-mismatch"
	CodeBreakOutsideLoop     = "break-outside-loop"
	CodeContinueOutsideLoop  = "continue-outside-loop"
	CodeLeaveOutsideFunction = "leave-outside-function"
	CodeDuplicateCase        = "duplicate-case"
	CodeNotAVariable         = "not-a-variable"
	CodeUnusedVariable       = "unused-variable"
	CodeUnreachableCode      = "unreachable-code"
	CodeConditionType        = "condition-type"
	CodeValueDiscarded       = "value-discarded"
)

// HintKind classifies optimization hints handed to the optimizer.
type HintKind int

const (
	HintInlinable HintKind = iota
	HintConstantExpression
	HintLoopInvariant
)

// OptimizationHint marks a site the optimizer may want to revisit.
type OptimizationHint struct {
	Kind     HintKind
	Target   string
	Location ast.SourceLocation
}

// ControlFlowInfo summarizes the control-flow shape of the unit.
type ControlFlowInfo struct {
	LoopCount             int
	MaxLoopDepth          int
	FunctionCount         int
	UnreachableStatements int
}

// Result is the analyzer's output: the symbol table handed read-only to the
// code generator, plus hints and control-flow data.
type Result struct {
	SymbolTable  *SymbolTable
	Hints        []OptimizationHint
	ControlFlow  ControlFlowInfo
	FunctionSigs map[string]*FunctionSignature

	hasErrors bool
}

// Analyze walks the unit in a single depth-first pass (with per-block
// function hoisting) and reports through ectx.
func Analyze(unit *ast.AST, ectx *diag.ErrorContext) *Result {
	a := &analyzer{
		table:        NewSymbolTable(),
		ectx:         ectx,
		functionSigs: make(map[string]*FunctionSignature),
	}

	// top-level hoisting pass: register every item-level function before any
	// body is walked so forward references resolve
	for _, item := range unit.Items {
		if fn, ok := item.(*ast.Function); ok {
			a.declareFunction(fn)
		}
	}

	for _, item := range unit.Items {
		switch node := item.(type) {
		case *ast.Function:
			a.analyzeFunction(node)
		case *ast.Object:
			a.analyzeObject(node)
		case *ast.Block:
			a.analyzeBlock(node, false)
		}
	}

	return &Result{
		SymbolTable:  a.table,
		Hints:        a.hints,
		ControlFlow:  a.flow,
		FunctionSigs: a.functionSigs,
		hasErrors:    ectx.HasErrors(),
	}
}

// HasErrors reports whether analysis produced any Error diagnostics.
func (r *Result) HasErrors() bool { return r.hasErrors }

type analyzer struct {
	table        *SymbolTable
	ectx         *diag.ErrorContext
	hints        []OptimizationHint
	flow         ControlFlowInfo
	loopDepth    int
	functionSigs map[string]*FunctionSignature
}

func (a *analyzer) analyzeObject(obj *ast.Object) {
	if obj.Code != nil {
		a.analyzeBlock(obj.Code, false)
	}
	for _, child := range obj.Children {
		a.analyzeObject(child)
	}
}

func (a *analyzer) declareFunction(fn *ast.Function) *FunctionSignature {
	if _, reserved := a.table.Builtins[fn.Name]; reserved {
		a.ectx.Errorf(CodeDuplicateDeclaration, locPtr(fn), "cannot redeclare builtin %q", fn.Name)
		return nil
	}

	sig := &FunctionSignature{Name: fn.Name, DeclLoc: locPtr(fn)}
	for _, p := range fn.Params {
		sig.Params = append(sig.Params, Param{Name: p.Name, Type: defaulted(p.Type)})
	}
	for _, r := range fn.Returns {
		sig.Returns = append(sig.Returns, Return{Name: r.Name, Type: defaulted(r.Type)})
	}

	if existing, ok := a.table.DeclareFunction(sig); !ok {
		d := diag.Diagnostic{
			Severity: diag.Error,
			Code:     CodeDuplicateDeclaration,
			Message:  "duplicate declaration of function " + fn.Name,
			Location: locPtr(fn),
		}
		if existing.DeclLoc != nil {
			d.Related = []ast.SourceLocation{*existing.DeclLoc}
		}
		a.ectx.Collect(d)
		return nil
	}
	a.functionSigs[fn.Name] = sig
	return sig
}

func (a *analyzer) analyzeFunction(fn *ast.Function) {
	a.flow.FunctionCount++

	a.table.Push(true)
	defer a.popScope()

	for _, p := range fn.Params {
		a.declareVariable(p, true, true)
	}
	for _, r := range fn.Returns {
		// return variables start zero-initialized
		a.declareVariable(r, false, true)
	}
	if fn.Body != nil {
		a.analyzeStatements(fn.Body)
	}

	if fn.Body != nil && ast.CountNodes(fn.Body) <= inlineSizeThreshold && len(fn.Returns) <= 1 {
		a.hints = append(a.hints, OptimizationHint{
			Kind:     HintInlinable,
			Target:   fn.Name,
			Location: fn.Location,
		})
	}
}

// inlineSizeThreshold matches the optimizer's default inlining limit
const inlineSizeThreshold = 100

func (a *analyzer) analyzeBlock(block *ast.Block, isLoopBody bool) {
	scope := a.table.Push(false)
	if isLoopBody {
		scope.CanBreak = true
		scope.CanContinue = true
	}
	defer a.popScope()
	a.analyzeStatements(block)
}

// analyzeStatements hoists nested function declarations, then walks each
// statement, flagging the first statement after a terminator as unreachable.
func (a *analyzer) analyzeStatements(block *ast.Block) {
	for _, stmt := range block.Statements {
		if fn, ok := stmt.(*ast.Function); ok {
			a.declareFunction(fn)
		}
	}

	terminated := false
	for _, stmt := range block.Statements {
		if terminated {
			a.flow.UnreachableStatements++
			a.ectx.Warnf(CodeUnreachableCode, locPtr(stmt), "unreachable code")
			terminated = false // report once per terminator
		}
		a.analyzeStatement(stmt)
		if isTerminator(stmt) {
			terminated = true
		}
	}
}

func (a *analyzer) analyzeStatement(stmt ast.Statement) {
	switch node := stmt.(type) {
	case *ast.Block:
		a.analyzeBlock(node, false)
	case *ast.Function:
		a.analyzeFunction(node)
	case *ast.VariableDeclaration:
		a.analyzeVariableDeclaration(node)
	case *ast.Assignment:
		a.analyzeAssignment(node)
	case *ast.If:
		a.checkCondition(node.Cond, "if")
		a.analyzeExpression(node.Cond)
		a.analyzeBlock(node.Body, false)
	case *ast.Switch:
		a.analyzeSwitch(node)
	case *ast.ForLoop:
		a.analyzeForLoop(node)
	case *ast.Break:
		if !a.table.InLoop() {
			a.ectx.Errorf(CodeBreakOutsideLoop, locPtr(node), "break outside loop")
		}
	case *ast.Continue:
		if !a.table.InLoop() {
			a.ectx.Errorf(CodeContinueOutsideLoop, locPtr(node), "continue outside loop")
		}
	case *ast.Leave:
		if !a.table.InFunction() {
			a.ectx.Errorf(CodeLeaveOutsideFunction, locPtr(node), "leave outside function")
		}
	case *ast.ExpressionStatement:
		returns := a.analyzeExpression(node.Expr)
		if returns > 0 {
			a.ectx.Warnf(CodeValueDiscarded, locPtr(node), "expression result is discarded")
		}
	}
}

func (a *analyzer) analyzeVariableDeclaration(decl *ast.VariableDeclaration) {
	inferred := ast.TypeInfo{Name: ast.Unknown}
	if decl.Init != nil {
		values := a.analyzeExpression(decl.Init)
		if values != len(decl.Vars) {
			a.ectx.Errorf(CodeArityMismatch, locPtr(decl),
				"declaration of %d variable(s) initialized with %d value(s)", len(decl.Vars), values)
		}
		a.checkInitTypes(decl)
		if len(decl.Vars) == 1 {
			inferred = a.expressionType(decl.Init)
		}
	}
	for _, v := range decl.Vars {
		// an unannotated name takes its initializer's type
		if v.Type.Name == ast.Unknown && inferred.Name != ast.Unknown {
			v.Type = inferred
		}
		a.declareVariable(v, false, decl.Init != nil)
	}
}

// checkInitTypes compares a single-value initializer's type against the
// declared type of a single-variable declaration.
func (a *analyzer) checkInitTypes(decl *ast.VariableDeclaration) {
	if len(decl.Vars) != 1 || decl.Init == nil {
		return
	}
	declared := decl.Vars[0].Type
	if declared.Name == ast.Unknown {
		return
	}
	inferred := a.expressionType(decl.Init)
	if !compatible(declared.Name, inferred.Name) {
		a.ectx.Errorf(CodeTypeMismatch, locPtr(decl),
			"cannot initialize %s variable %q with %s value",
			declared.Name, decl.Vars[0].Name, inferred.Name)
	}
}

func (a *analyzer) analyzeAssignment(assign *ast.Assignment) {
	values := a.analyzeExpression(assign.Value)
	if values != len(assign.Targets) {
		a.ectx.Errorf(CodeArityMismatch, locPtr(assign),
			"assignment of %d value(s) to %d target(s)", values, len(assign.Targets))
	}

	for _, target := range assign.Targets {
		v := a.table.LookupVariable(target.Name)
		if v == nil {
			if a.table.LookupFunction(target.Name) != nil {
				a.ectx.Errorf(CodeNotAVariable, locPtr(target), "%q is a function, not a variable", target.Name)
			} else {
				a.ectx.Errorf(CodeUndefinedVariable, locPtr(target), "undefined variable %s", target.Name)
			}
			continue
		}
		if !v.IsMutable {
			a.ectx.Errorf(CodeNotAVariable, locPtr(target), "cannot assign to immutable %q", target.Name)
			continue
		}
		v.IsInitialized = true
		target.Type = v.Type
	}
}

func (a *analyzer) analyzeSwitch(sw *ast.Switch) {
	a.analyzeExpression(sw.Scrutinee)
	scrutineeType := a.expressionType(sw.Scrutinee)

	seen := make(map[string]ast.SourceLocation)
	for _, c := range sw.Cases {
		if prev, dup := seen[c.Value.Value]; dup {
			a.ectx.Collect(diag.Diagnostic{
				Severity: diag.Error,
				Code:     CodeDuplicateCase,
				Message:  "duplicate case value " + c.Value.Value,
				Location: locPtr(c.Value),
				Related:  []ast.SourceLocation{prev},
			})
		} else {
			seen[c.Value.Value] = c.Value.Location
		}
		if !compatible(scrutineeType.Name, c.Value.Type.Name) {
			a.ectx.Errorf(CodeTypeMismatch, locPtr(c.Value),
				"case value type %s is not compatible with switch expression type %s",
				c.Value.Type.Name, scrutineeType.Name)
		}
		a.analyzeBlock(c.Body, false)
	}
	if sw.Default != nil {
		a.analyzeBlock(sw.Default, false)
	}
}

func (a *analyzer) analyzeForLoop(loop *ast.ForLoop) {
	a.flow.LoopCount++
	a.loopDepth++
	if a.loopDepth > a.flow.MaxLoopDepth {
		a.flow.MaxLoopDepth = a.loopDepth
	}
	defer func() { a.loopDepth-- }()

	// the init block's scope encloses cond, post, and body
	scope := a.table.Push(false)
	scope.CanBreak = true
	scope.CanContinue = true
	defer a.popScope()

	a.analyzeStatements(loop.Init)
	a.checkCondition(loop.Cond, "for")
	a.analyzeExpression(loop.Cond)
	a.analyzeStatements(loop.Body)
	a.analyzeStatements(loop.Post)
}

// analyzeExpression resolves names and checks calls; it returns the number
// of values the expression produces.
func (a *analyzer) analyzeExpression(expr ast.Expression) int {
	switch node := expr.(type) {
	case *ast.Literal:
		return 1
	case *ast.Identifier:
		v := a.table.LookupVariable(node.Name)
		if v == nil {
			a.ectx.Errorf(CodeUndefinedVariable, locPtr(node), "undefined variable %s", node.Name)
			return 1
		}
		v.UseCount++
		node.Type = v.Type
		return 1
	case *ast.FunctionCall:
		return a.analyzeCall(node)
	default:
		return 1
	}
}

func (a *analyzer) analyzeCall(call *ast.FunctionCall) int {
	sig := a.table.LookupFunction(call.Callee.Name)
	if sig == nil {
		a.ectx.Errorf(CodeUndefinedFunction, locPtr(call), "undefined function %s", call.Callee.Name)
		// arguments are still analyzed so their names resolve
		for _, arg := range call.Args {
			a.analyzeExpression(arg)
		}
		return 1
	}

	if len(call.Args) != len(sig.Params) {
		a.ectx.Errorf(CodeArityMismatch, locPtr(call),
			"%s expects %d argument(s), got %d", sig.Name, len(sig.Params), len(call.Args))
	}

	for i, arg := range call.Args {
		a.analyzeExpression(arg)
		if i < len(sig.Params) {
			argType := a.expressionType(arg)
			if !compatible(sig.Params[i].Type.Name, argType.Name) {
				a.ectx.Errorf(CodeTypeMismatch, locPtr(arg),
					"argument %d of %s: expected %s, got %s",
					i+1, sig.Name, sig.Params[i].Type.Name, argType.Name)
			}
		}
	}

	if sig.IsPure && allConstant(call.Args) {
		a.hints = append(a.hints, OptimizationHint{
			Kind:     HintConstantExpression,
			Target:   sig.Name,
			Location: call.Location,
		})
	}

	return len(sig.Returns)
}

// expressionType infers without re-reporting resolution errors.
func (a *analyzer) expressionType(expr ast.Expression) ast.TypeInfo {
	switch node := expr.(type) {
	case *ast.Literal:
		return node.Type
	case *ast.Identifier:
		if v := a.table.LookupVariable(node.Name); v != nil {
			return v.Type
		}
		return ast.TypeInfo{Name: ast.Unknown}
	case *ast.FunctionCall:
		if sig := a.table.LookupFunction(node.Callee.Name); sig != nil && len(sig.Returns) == 1 {
			return sig.Returns[0].Type
		}
		return ast.TypeInfo{Name: ast.Unknown}
	default:
		return ast.TypeInfo{Name: ast.Unknown}
	}
}

// checkCondition warns when a condition is neither Bool nor integer-as-truthy.
func (a *analyzer) checkCondition(cond ast.Expression, context string) {
	t := a.expressionType(cond)
	switch t.Name {
	case ast.Bool, ast.Uint256, ast.Unknown:
		return
	}
	a.ectx.Collect(diag.Diagnostic{
		Severity:   diag.Warning,
		Code:       CodeConditionType,
		Message:    context + " condition has type " + t.Name.String(),
		Location:   locPtr(cond),
		Suggestion: "use a comparison such as eq(), lt(), or iszero()",
	})
}

func (a *analyzer) declareVariable(name ast.TypedName, isParameter, initialized bool) {
	v := &VariableInfo{
		Name:          name.Name,
		Type:          defaulted(name.Type),
		IsParameter:   isParameter,
		IsMutable:     true,
		DeclLoc:       name.Location,
		IsInitialized: initialized,
	}
	if existing, ok := a.table.DeclareVariable(v); !ok {
		a.ectx.Collect(diag.Diagnostic{
			Severity: diag.Error,
			Code:     CodeDuplicateDeclaration,
			Message:  "duplicate declaration of " + name.Name,
			Location: &name.Location,
			Related:  []ast.SourceLocation{existing.DeclLoc},
		})
	}
}

// popScope warns about unused variables at scope exit.
func (a *analyzer) popScope() {
	scope := a.table.Pop()
	for _, v := range scope.Variables {
		if v.UseCount == 0 && !v.IsParameter {
			loc := v.DeclLoc
			a.ectx.Collect(diag.Diagnostic{
				Severity: diag.Warning,
				Code:     CodeUnusedVariable,
				Message:  "variable " + v.Name + " is never used",
				Location: &loc,
			})
		}
	}
}

// compatible implements the whitelist rule: Unknown is compatible with
// anything; otherwise same-type, or a width-preserving reinterpretation
// between Uint256 and Address/Bytes32.
func compatible(target, source ast.TypeName) bool {
	if target == ast.Unknown || source == ast.Unknown || target == source {
		return true
	}
	switch {
	case target == ast.Uint256 && (source == ast.Address || source == ast.Bytes32):
		return true
	case source == ast.Uint256 && (target == ast.Address || target == ast.Bytes32):
		return true
	}
	return false
}

func defaulted(t ast.TypeInfo) ast.TypeInfo {
	if t.Name == ast.Unknown {
		return ast.TypeInfo{Name: ast.Uint256, Size: 32}
	}
	return t
}

func allConstant(args []ast.Expression) bool {
	for _, arg := range args {
		if _, ok := arg.(*ast.Literal); !ok {
			return false
		}
	}
	return true
}

func isTerminator(stmt ast.Statement) bool {
	switch node := stmt.(type) {
	case *ast.Leave, *ast.Break, *ast.Continue:
		return true
	case *ast.ExpressionStatement:
		if call, ok := node.Expr.(*ast.FunctionCall); ok {
			return IsTerminating(call.Callee.Name)
		}
	}
	return false
}

func locPtr(n ast.Node) *ast.SourceLocation {
	l := n.Loc()
	return &l
}

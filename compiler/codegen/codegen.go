// Package codegen lowers the optimized tree to NeoVM bytecode.
//
// The generator maintains a virtual stack height per the fixed stack effects
// in the neovm table, allocates argument and local slots per function, and
// reserves 4-byte placeholders for every jump operand, patched to absolute
// little-endian offsets once emission finishes. Errors are fatal on first
// occurrence: partial bytecode is never emitted.
package codegen

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/r3e-network/neo-solc/compiler/ast"
	"github.com/r3e-network/neo-solc/compiler/neovm"
	"github.com/r3e-network/neo-solc/compiler/semantic"
)

// SourceMapEntry traces one emitted site back to the source.
type SourceMapEntry struct {
	Offset      int
	Location    ast.SourceLocation
	Instruction string
}

// VariableDebug describes a variable's slot for debuggers.
type VariableDebug struct {
	Name      string
	Slot      int
	IsArg     bool
	TypeName  string
	ScopeFrom int
}

// DebugInfo is the optional debug payload of a successful generation.
type DebugInfo struct {
	FunctionOffsets map[string]uint32
	VariableMap     map[string]VariableDebug
}

// Result is the generation output bundle.
type Result struct {
	Bytecode    []byte
	Assembly    string
	ABI         []AbiEntry
	GasEstimate uint64
	SourceMap   []SourceMapEntry
	Debug       *DebugInfo
	MaxStack    int
}

// Options controls optional outputs.
type Options struct {
	Debug      bool
	SourceMaps bool
}

// builtinTemplates maps each lowerable builtin to its instruction sequence.
// Arguments are emitted first in source order, producing the stack shape the
// template needs.
var builtinTemplates = map[string][]neovm.Opcode{
	"add":       {neovm.ADD},
	"sub":       {neovm.SUB},
	"mul":       {neovm.MUL},
	"div":       {neovm.DIV},
	"mod":       {neovm.MOD},
	"lt":        {neovm.LT},
	"gt":        {neovm.GT},
	"eq":        {neovm.NUMEQUAL},
	"iszero":    {neovm.PUSH0, neovm.NUMEQUAL},
	"and":       {neovm.BOOLAND},
	"or":        {neovm.BOOLOR},
	"not":       {neovm.NOT},
	"keccak256": {neovm.HASH256},
	"sha256":    {neovm.SHA256},
}

type slotRef struct {
	index int
	isArg bool
}

// funcContext tracks slot allocation for one function (or one top-level
// entry body).
type funcContext struct {
	name    string
	scopes  []map[string]slotRef
	next    int // next local slot
	returns []string
	params  int
}

func (f *funcContext) pushScope() {
	f.scopes = append(f.scopes, make(map[string]slotRef))
}

func (f *funcContext) popScope() {
	f.scopes = f.scopes[:len(f.scopes)-1]
}

func (f *funcContext) declare(name string) int {
	index := f.next
	f.next++
	f.scopes[len(f.scopes)-1][name] = slotRef{index: index}
	return index
}

func (f *funcContext) declareArg(name string, index int) {
	f.scopes[len(f.scopes)-1][name] = slotRef{index: index, isArg: true}
}

func (f *funcContext) lookup(name string) (slotRef, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if ref, ok := f.scopes[i][name]; ok {
			return ref, true
		}
	}
	return slotRef{}, false
}

type loopContext struct {
	breakLabel    int
	continueLabel int
}

// Generator lowers one analyzed unit.
type Generator struct {
	opts     Options
	analysis *semantic.Result

	code      []byte
	instrs    []emitted
	labels    []int
	gas       uint64
	height    int
	maxHeight int

	fn        *funcContext
	loops     []loopContext
	funcLabel map[string]int
	sourceMap []SourceMapEntry
	debug     DebugInfo
}

// New creates a generator over the semantic analysis result.
func New(analysis *semantic.Result, opts Options) *Generator {
	return &Generator{
		opts:      opts,
		analysis:  analysis,
		funcLabel: make(map[string]int),
		debug: DebugInfo{
			FunctionOffsets: make(map[string]uint32),
			VariableMap:     make(map[string]VariableDebug),
		},
	}
}

// Generate emits the unit: top-level blocks and object code first (the
// entry path), then every function, then label resolution.
func (g *Generator) Generate(unit *ast.AST) (*Result, error) {
	var functions []*ast.Function
	collect := func(fn *ast.Function) {
		functions = append(functions, fn)
		g.funcLabel[fn.Name] = g.newLabel()
	}
	for _, item := range unit.Items {
		if fn, ok := item.(*ast.Function); ok {
			collect(fn)
		}
	}
	// nested function declarations are hoisted out of their bodies and
	// emitted as separate code regions
	ast.InspectAll(unit, func(n ast.Node) bool {
		if fn, ok := n.(*ast.Function); ok {
			if _, seen := g.funcLabel[fn.Name]; !seen {
				collect(fn)
			}
		}
		return true
	})

	for _, item := range unit.Items {
		switch node := item.(type) {
		case *ast.Block:
			if err := g.generateEntry("", node); err != nil {
				return nil, err
			}
		case *ast.Object:
			if err := g.generateObject(node); err != nil {
				return nil, err
			}
		}
	}

	for _, fn := range functions {
		if err := g.generateFunction(fn); err != nil {
			return nil, err
		}
	}

	if err := g.resolveLabels(); err != nil {
		return nil, err
	}

	result := &Result{
		Bytecode:    g.code,
		Assembly:    g.renderAssembly(),
		ABI:         g.generateABI(functions),
		GasEstimate: g.gas,
		MaxStack:    g.maxHeight,
	}
	if g.opts.SourceMaps {
		result.SourceMap = g.sourceMap
	}
	if g.opts.Debug {
		debug := g.debug
		result.Debug = &debug
	}
	return result, nil
}

func (g *Generator) generateObject(obj *ast.Object) error {
	if obj.Code != nil {
		if err := g.generateEntry(obj.Name, obj.Code); err != nil {
			return err
		}
	}
	// child objects in deterministic order
	names := make([]string, 0, len(obj.Children))
	for name := range obj.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := g.generateObject(obj.Children[name]); err != nil {
			return err
		}
	}
	return nil
}

// generateEntry lowers a top-level code body: slots but no arguments, a
// terminating RET so control never falls into the next region.
func (g *Generator) generateEntry(name string, block *ast.Block) error {
	g.fn = &funcContext{name: name}
	g.fn.pushScope()
	g.height = 0

	locals := countLocals(block)
	if locals > 0 {
		if err := g.emitWithOperand(neovm.INITSLOT, []byte{byte(locals), 0}); err != nil {
			return err
		}
	}
	if err := g.generateStatements(block); err != nil {
		return err
	}
	return g.emit(neovm.RET)
}

func (g *Generator) generateFunction(fn *ast.Function) error {
	g.setLabel(g.funcLabel[fn.Name])
	g.debug.FunctionOffsets[fn.Name] = uint32(len(g.code))

	g.fn = &funcContext{name: fn.Name, params: len(fn.Params)}
	g.fn.pushScope()
	g.height = 0

	locals := countLocals(fn.Body) + len(fn.Returns)
	if locals > 0 || len(fn.Params) > 0 {
		if err := g.emitWithOperand(neovm.INITSLOT, []byte{byte(locals), byte(len(fn.Params))}); err != nil {
			return err
		}
	}

	for i, param := range fn.Params {
		g.fn.declareArg(param.Name, i)
		g.recordVariable(param.Name, i, true, param.Type)
	}
	for _, ret := range fn.Returns {
		index := g.fn.declare(ret.Name)
		g.fn.returns = append(g.fn.returns, ret.Name)
		g.recordVariable(ret.Name, index, false, ret.Type)
	}

	if err := g.generateStatements(fn.Body); err != nil {
		return err
	}
	return g.emitFunctionExit()
}

// emitFunctionExit loads declared return slots so the stack holds exactly
// the return values at RET.
func (g *Generator) emitFunctionExit() error {
	for _, name := range g.fn.returns {
		ref, ok := g.fn.lookup(name)
		if !ok {
			return g.failf(ErrUndefinedVariable, "return variable %s lost its slot", name)
		}
		if err := g.emitLoadLocal(ref.index); err != nil {
			return err
		}
	}
	return g.emit(neovm.RET)
}

func (g *Generator) generateStatements(block *ast.Block) error {
	for _, stmt := range block.Statements {
		if err := g.generateStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) generateStatement(stmt ast.Statement) error {
	switch node := stmt.(type) {
	case *ast.Block:
		g.fn.pushScope()
		defer g.fn.popScope()
		return g.generateStatements(node)
	case *ast.Function:
		// lowered as its own code region; nothing to emit in line
		return nil
	case *ast.VariableDeclaration:
		g.trace(node.Location, "LET")
		return g.generateDeclaration(node)
	case *ast.Assignment:
		g.trace(node.Location, "ASSIGN")
		return g.generateAssignment(node)
	case *ast.If:
		g.trace(node.Location, "IF")
		return g.generateIf(node)
	case *ast.Switch:
		g.trace(node.Location, "SWITCH")
		return g.generateSwitch(node)
	case *ast.ForLoop:
		g.trace(node.Location, "FOR")
		return g.generateFor(node)
	case *ast.Break:
		g.trace(node.Location, "BREAK")
		if len(g.loops) == 0 {
			return g.failf(ErrUnsupported, "break outside loop")
		}
		return g.emitJump(neovm.JMP, g.loops[len(g.loops)-1].breakLabel)
	case *ast.Continue:
		g.trace(node.Location, "CONTINUE")
		if len(g.loops) == 0 {
			return g.failf(ErrUnsupported, "continue outside loop")
		}
		return g.emitJump(neovm.JMP, g.loops[len(g.loops)-1].continueLabel)
	case *ast.Leave:
		g.trace(node.Location, "LEAVE")
		return g.emitFunctionExit()
	case *ast.ExpressionStatement:
		g.trace(node.Location, "EXPR")
		produced, err := g.generateExpression(node.Expr)
		if err != nil {
			return err
		}
		for i := 0; i < produced; i++ {
			if err := g.emit(neovm.DROP); err != nil {
				return err
			}
		}
		return nil
	default:
		return g.failf(ErrUnsupported, "statement %T", stmt)
	}
}

func (g *Generator) generateDeclaration(decl *ast.VariableDeclaration) error {
	if decl.Init != nil {
		produced, err := g.generateExpression(decl.Init)
		if err != nil {
			return err
		}
		if produced == len(decl.Vars) && produced > 1 {
			// a multi-return call leaves the values in push order; store
			// back-to-front so each target gets its own value
			indexes := make([]int, len(decl.Vars))
			for i, v := range decl.Vars {
				indexes[i] = g.fn.declare(v.Name)
				g.recordVariable(v.Name, indexes[i], false, v.Type)
			}
			for i := len(indexes) - 1; i >= 0; i-- {
				if err := g.emitStoreLocal(indexes[i]); err != nil {
					return err
				}
			}
			return nil
		}
	} else {
		if err := g.emit(neovm.PUSHNULL); err != nil {
			return err
		}
	}

	// single value, one or more targets: DUP for all but the last
	for i, v := range decl.Vars {
		index := g.fn.declare(v.Name)
		g.recordVariable(v.Name, index, false, v.Type)
		if i < len(decl.Vars)-1 {
			if err := g.emit(neovm.DUP); err != nil {
				return err
			}
		}
		if err := g.emitStoreLocal(index); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) generateAssignment(assign *ast.Assignment) error {
	produced, err := g.generateExpression(assign.Value)
	if err != nil {
		return err
	}

	if produced == len(assign.Targets) && produced > 1 {
		for i := len(assign.Targets) - 1; i >= 0; i-- {
			if err := g.storeTo(assign.Targets[i].Name); err != nil {
				return err
			}
		}
		return nil
	}

	for i, target := range assign.Targets {
		if i < len(assign.Targets)-1 {
			if err := g.emit(neovm.DUP); err != nil {
				return err
			}
		}
		if err := g.storeTo(target.Name); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) storeTo(name string) error {
	ref, ok := g.fn.lookup(name)
	if !ok {
		return g.failf(ErrUndefinedVariable, "undefined variable %s", name)
	}
	if ref.isArg {
		return g.emitStoreArg(ref.index)
	}
	return g.emitStoreLocal(ref.index)
}

func (g *Generator) generateIf(node *ast.If) error {
	if _, err := g.generateExpression(node.Cond); err != nil {
		return err
	}
	end := g.newLabel()
	if err := g.emitJump(neovm.JMPIFNOT, end); err != nil {
		return err
	}
	g.fn.pushScope()
	err := g.generateStatements(node.Body)
	g.fn.popScope()
	if err != nil {
		return err
	}
	g.setLabel(end)
	return nil
}

func (g *Generator) generateSwitch(node *ast.Switch) error {
	if _, err := g.generateExpression(node.Scrutinee); err != nil {
		return err
	}

	end := g.newLabel()
	caseLabels := make([]int, len(node.Cases))
	for i, c := range node.Cases {
		caseLabels[i] = g.newLabel()
		if err := g.emit(neovm.DUP); err != nil {
			return err
		}
		if err := g.generateLiteral(c.Value); err != nil {
			return err
		}
		if err := g.emit(neovm.NUMEQUAL); err != nil {
			return err
		}
		if err := g.emitJump(neovm.JMPIF, caseLabels[i]); err != nil {
			return err
		}
	}

	defaultLabel := g.newLabel()
	if err := g.emitJump(neovm.JMP, defaultLabel); err != nil {
		return err
	}

	// every body path starts by dropping its copy of the scrutinee, so all
	// arrivals at the end label agree on stack height
	entryHeight := g.height
	for i, c := range node.Cases {
		g.height = entryHeight
		g.setLabel(caseLabels[i])
		if err := g.emit(neovm.DROP); err != nil {
			return err
		}
		g.fn.pushScope()
		err := g.generateStatements(c.Body)
		g.fn.popScope()
		if err != nil {
			return err
		}
		if err := g.emitJump(neovm.JMP, end); err != nil {
			return err
		}
	}

	g.height = entryHeight
	g.setLabel(defaultLabel)
	if err := g.emit(neovm.DROP); err != nil {
		return err
	}
	if node.Default != nil {
		g.fn.pushScope()
		err := g.generateStatements(node.Default)
		g.fn.popScope()
		if err != nil {
			return err
		}
	}
	g.setLabel(end)
	return nil
}

func (g *Generator) generateFor(node *ast.ForLoop) error {
	g.fn.pushScope()
	defer g.fn.popScope()

	if err := g.generateStatements(node.Init); err != nil {
		return err
	}

	start := g.newLabel()
	end := g.newLabel()
	continueLabel := g.newLabel()

	g.setLabel(start)
	if _, err := g.generateExpression(node.Cond); err != nil {
		return err
	}
	if err := g.emitJump(neovm.JMPIFNOT, end); err != nil {
		return err
	}

	g.loops = append(g.loops, loopContext{breakLabel: end, continueLabel: continueLabel})
	err := g.generateStatements(node.Body)
	g.loops = g.loops[:len(g.loops)-1]
	if err != nil {
		return err
	}

	g.setLabel(continueLabel)
	if err := g.generateStatements(node.Post); err != nil {
		return err
	}
	if err := g.emitJump(neovm.JMP, start); err != nil {
		return err
	}
	g.setLabel(end)
	return nil
}

// generateExpression emits the expression and returns how many values it
// left on the stack.
func (g *Generator) generateExpression(expr ast.Expression) (int, error) {
	switch node := expr.(type) {
	case *ast.Literal:
		return 1, g.generateLiteral(node)
	case *ast.Identifier:
		ref, ok := g.fn.lookup(node.Name)
		if !ok {
			return 0, g.failf(ErrUndefinedVariable, "undefined variable %s", node.Name)
		}
		if ref.isArg {
			return 1, g.emitLoadArg(ref.index)
		}
		return 1, g.emitLoadLocal(ref.index)
	case *ast.FunctionCall:
		return g.generateCall(node)
	default:
		return 0, g.failf(ErrUnsupported, "expression %T", expr)
	}
}

func (g *Generator) generateLiteral(lit *ast.Literal) error {
	switch lit.Kind {
	case ast.LiteralNumber:
		value, ok := new(big.Int).SetString(lit.Value, 10)
		if !ok {
			return g.failf(ErrInvalidOperand, "invalid number %q", lit.Value)
		}
		return g.emitPushInt(value)
	case ast.LiteralHexNumber:
		digits := lit.Value
		if len(digits) >= 2 && (digits[:2] == "0x" || digits[:2] == "0X") {
			digits = digits[2:]
		}
		if len(digits)%2 == 1 {
			// odd-length spellings are numeric, not byte strings
			value, ok := new(big.Int).SetString(digits, 16)
			if !ok {
				return g.failf(ErrInvalidOperand, "invalid hex %q", lit.Value)
			}
			return g.emitPushInt(value)
		}
		data, err := hex.DecodeString(digits)
		if err != nil {
			return g.failf(ErrInvalidOperand, "invalid hex %q", lit.Value)
		}
		return g.emitPushData(data)
	case ast.LiteralString:
		return g.emitPushData([]byte(lit.Value))
	case ast.LiteralBoolean:
		if lit.Value == "true" {
			return g.emit(neovm.PUSH1)
		}
		return g.emit(neovm.PUSH0)
	default:
		return g.failf(ErrInvalidOperand, "literal kind %d", lit.Kind)
	}
}

func (g *Generator) generateCall(call *ast.FunctionCall) (int, error) {
	name := call.Callee.Name

	if template, ok := builtinTemplates[name]; ok {
		for _, arg := range call.Args {
			if _, err := g.generateExpression(arg); err != nil {
				return 0, err
			}
		}
		for _, op := range template {
			if err := g.emit(op); err != nil {
				return 0, err
			}
		}
		sig := semantic.BuiltinSignature(name)
		if sig == nil {
			return 1, nil
		}
		return len(sig.Returns), nil
	}

	if label, ok := g.funcLabel[name]; ok {
		for _, arg := range call.Args {
			if _, err := g.generateExpression(arg); err != nil {
				return 0, err
			}
		}
		sig := g.analysis.FunctionSigs[name]
		if sig == nil {
			return 0, g.failf(ErrUndefinedFunction, "no signature for %s", name)
		}
		if err := g.emitJump(neovm.CALL, label); err != nil {
			return 0, err
		}
		// the callee consumes the arguments and pushes its returns
		if err := g.applyEffect(len(sig.Params), len(sig.Returns)); err != nil {
			return 0, err
		}
		return len(sig.Returns), nil
	}

	if semantic.BuiltinSignature(name) != nil {
		return 0, g.failf(ErrUnsupported, "builtin %s has no lowering on this target", name)
	}
	return 0, g.failf(ErrUndefinedFunction, "undefined function %s", name)
}

func (g *Generator) trace(loc ast.SourceLocation, tag string) {
	if !g.opts.SourceMaps && !g.opts.Debug {
		return
	}
	g.sourceMap = append(g.sourceMap, SourceMapEntry{
		Offset:      len(g.code),
		Location:    loc,
		Instruction: tag,
	})
}

func (g *Generator) recordVariable(name string, slot int, isArg bool, t ast.TypeInfo) {
	if !g.opts.Debug {
		return
	}
	key := name
	if g.fn.name != "" {
		key = g.fn.name + "." + name
	}
	g.debug.VariableMap[key] = VariableDebug{
		Name:      name,
		Slot:      slot,
		IsArg:     isArg,
		TypeName:  t.Name.String(),
		ScopeFrom: len(g.code),
	}
}

// countLocals counts every variable declared in the body, excluding nested
// function bodies, which get their own slot space.
func countLocals(block *ast.Block) int {
	if block == nil {
		return 0
	}
	count := 0
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		ast.Inspect(n, func(inner ast.Node) bool {
			switch node := inner.(type) {
			case *ast.Function:
				return false
			case *ast.VariableDeclaration:
				count += len(node.Vars)
			}
			return true
		})
	}
	walk(block)
	return count
}

func (g *Generator) renderAssembly() string {
	var b strings.Builder
	for _, instr := range g.instrs {
		b.WriteString(renderInstr(instr))
		b.WriteByte('\n')
	}
	return b.String()
}

// renderInstr matches the disassembler's operand formatting so the listing
// and a table-driven disassembly agree.
func renderInstr(instr emitted) string {
	if instr.bare {
		return fmt.Sprintf("PUSHBYTES%d 0x%x", len(instr.operand), instr.operand)
	}
	spec, _ := neovm.Lookup(instr.op)
	data := instr.operand
	switch spec.Operand {
	case neovm.OperandData1:
		data = data[1:]
	case neovm.OperandData2:
		data = data[2:]
	case neovm.OperandData4:
		data = data[4:]
	}
	return neovm.Instruction{Op: instr.op, Operand: data}.Mnemonic()
}

// generateABI emits one entry per user function; all are public at this
// level, uniformly typed uint256, non-payable.
func (g *Generator) generateABI(functions []*ast.Function) []AbiEntry {
	entries := make([]AbiEntry, 0, len(functions))
	for _, fn := range functions {
		entry := AbiEntry{
			Name:            fn.Name,
			Type:            "function",
			Inputs:          []AbiParameter{},
			Outputs:         []AbiParameter{},
			StateMutability: "nonpayable",
		}
		for i := range fn.Params {
			entry.Inputs = append(entry.Inputs, AbiParameter{
				Name: fmt.Sprintf("arg%d", i),
				Type: "uint256",
			})
		}
		for i := range fn.Returns {
			entry.Outputs = append(entry.Outputs, AbiParameter{
				Name: fmt.Sprintf("ret%d", i),
				Type: "uint256",
			})
		}
		entries = append(entries, entry)
	}
	return entries
}

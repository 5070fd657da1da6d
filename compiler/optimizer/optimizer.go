// Package optimizer rewrites the analyzed tree through a fixed pipeline of
// AST-to-AST passes, run to fixpoint or an iteration cap.
//
// Passes form a closed set; the driver iterates over a fixed sequence and
// each pass owns its own counters, aggregated by the driver after each run.
// After every pass an AST-shape validator re-checks that all identifiers
// still resolve; a violation is an internal error and is always fatal.
package optimizer

import (
	"fmt"
	"time"

	"github.com/r3e-network/neo-solc/compiler/ast"
)

// maxIterations caps the fixpoint loop.
const maxIterations = 10

// Pass is one AST-to-AST transformation. Apply reports whether it changed
// the tree.
type Pass interface {
	Name() string
	Description() string
	ShouldRun(level int) bool
	Apply(unit *ast.AST) (bool, error)
}

// Statistics aggregates the work done across all passes of one invocation.
type Statistics struct {
	PassesRun         int
	Iterations        int
	NodesRemoved      int
	ConstantsFolded   int
	FunctionsInlined  int
	ExpressionsReused int
	EstimatedGasSaved uint64
	Elapsed           time.Duration
}

// Error is a fatal optimizer failure naming the pass that caused it.
type Error struct {
	Pass    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("optimizer pass %s: %s", e.Pass, e.Message)
}

// Optimizer drives the pass pipeline at a given level (0 to 3).
type Optimizer struct {
	level  int
	passes []Pass
	stats  Statistics
}

// New creates an optimizer for the given level. Levels enable passes
// cumulatively; level 3 appends a second folding and dead-code sweep.
func New(level int) *Optimizer {
	if level < 0 {
		level = 0
	}
	if level > 3 {
		level = 3
	}
	return &Optimizer{
		level: level,
		passes: []Pass{
			&ConstantFolding{},
			&DeadCodeElimination{},
			&FunctionInlining{SizeThreshold: DefaultInlineThreshold},
			&CommonSubexpressionElimination{},
			&StackOptimization{},
			&LoopOptimization{},
			&Peephole{},
			&ConstantFolding{secondSweep: true},
			&DeadCodeElimination{secondSweep: true},
		},
	}
}

// Optimize runs the pipeline to fixpoint. The tree is mutated in place and
// returned.
func (o *Optimizer) Optimize(unit *ast.AST) (*ast.AST, error) {
	start := time.Now()
	defer func() { o.stats.Elapsed = time.Since(start) }()

	if o.level == 0 {
		return unit, nil
	}

	for iteration := 0; iteration < maxIterations; iteration++ {
		o.stats.Iterations = iteration + 1
		changed := false
		for _, pass := range o.passes {
			if !pass.ShouldRun(o.level) {
				continue
			}
			passChanged, err := pass.Apply(unit)
			if err != nil {
				return nil, &Error{Pass: pass.Name(), Message: err.Error()}
			}
			o.stats.PassesRun++
			if err := validate(unit); err != nil {
				return nil, &Error{Pass: pass.Name(), Message: err.Error()}
			}
			changed = changed || passChanged
		}
		if !changed {
			break
		}
	}

	o.collect()
	return unit, nil
}

// Statistics returns the aggregated counters of the last Optimize call.
func (o *Optimizer) Statistics() Statistics {
	return o.stats
}

func (o *Optimizer) collect() {
	for _, pass := range o.passes {
		switch p := pass.(type) {
		case *ConstantFolding:
			o.stats.ConstantsFolded += p.folded
			o.stats.EstimatedGasSaved += p.gasSaved
		case *DeadCodeElimination:
			o.stats.NodesRemoved += p.removed
		case *FunctionInlining:
			o.stats.FunctionsInlined += p.inlined
		case *CommonSubexpressionElimination:
			o.stats.ExpressionsReused += p.reused
		case *StackOptimization:
			o.stats.NodesRemoved += p.removed
		case *LoopOptimization:
			o.stats.NodesRemoved += p.removed
		case *Peephole:
			o.stats.NodesRemoved += p.simplified
		}
	}
}

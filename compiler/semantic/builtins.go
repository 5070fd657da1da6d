package semantic

import (
	"strconv"

	"github.com/r3e-network/neo-solc/compiler/ast"
)

// builtinSpec is one row of the static builtin description table.
type builtinSpec struct {
	name        string
	params      []ast.TypeName
	returns     []ast.TypeName
	pure        bool
	sideEffects bool
	gas         uint64
}

// The registry covers every spelling the lexer reserves. Arities and result
// types follow the EVM dialect of Yul, adjusted where the target lowers
// differently (the crypto builtins hash a single buffer).
var builtinSpecs = []builtinSpec{
	// arithmetic
	{"add", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 3},
	{"sub", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 3},
	{"mul", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 5},
	{"div", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 5},
	{"sdiv", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 5},
	{"mod", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 5},
	{"smod", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 5},
	{"exp", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 10},
	{"not", []ast.TypeName{ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 3},
	{"addmod", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 8},
	{"mulmod", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 8},
	{"signextend", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 5},

	// comparison
	{"lt", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Bool}, true, false, 3},
	{"gt", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Bool}, true, false, 3},
	{"slt", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Bool}, true, false, 3},
	{"sgt", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Bool}, true, false, 3},
	{"eq", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Bool}, true, false, 3},
	{"iszero", []ast.TypeName{ast.Uint256}, []ast.TypeName{ast.Bool}, true, false, 3},

	// bitwise
	{"and", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 3},
	{"or", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 3},
	{"xor", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 3},
	{"byte", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 3},
	{"shl", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 3},
	{"shr", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 3},
	{"sar", []ast.TypeName{ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, true, false, 3},

	// memory
	{"mload", []ast.TypeName{ast.Uint256}, []ast.TypeName{ast.Uint256}, false, false, 3},
	{"mstore", []ast.TypeName{ast.Uint256, ast.Uint256}, nil, false, true, 3},
	{"mstore8", []ast.TypeName{ast.Uint256, ast.Uint256}, nil, false, true, 3},
	{"msize", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"calldataload", []ast.TypeName{ast.Uint256}, []ast.TypeName{ast.Uint256}, false, false, 3},
	{"calldatasize", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"calldatacopy", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256}, nil, false, true, 3},
	{"codecopy", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256}, nil, false, true, 3},
	{"codesize", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"extcodesize", []ast.TypeName{ast.Address}, []ast.TypeName{ast.Uint256}, false, false, 100},
	{"extcodecopy", []ast.TypeName{ast.Address, ast.Uint256, ast.Uint256, ast.Uint256}, nil, false, true, 100},
	{"returndatasize", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"returndatacopy", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256}, nil, false, true, 3},
	{"mcopy", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256}, nil, false, true, 3},

	// storage
	{"sload", []ast.TypeName{ast.Uint256}, []ast.TypeName{ast.Uint256}, false, false, 800},
	{"sstore", []ast.TypeName{ast.Uint256, ast.Uint256}, nil, false, true, 20000},

	// environment
	{"address", nil, []ast.TypeName{ast.Address}, false, false, 2},
	{"balance", []ast.TypeName{ast.Address}, []ast.TypeName{ast.Uint256}, false, false, 100},
	{"selfbalance", nil, []ast.TypeName{ast.Uint256}, false, false, 5},
	{"caller", nil, []ast.TypeName{ast.Address}, false, false, 2},
	{"callvalue", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"origin", nil, []ast.TypeName{ast.Address}, false, false, 2},
	{"gasprice", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"extcodehash", []ast.TypeName{ast.Address}, []ast.TypeName{ast.Bytes32}, false, false, 100},
	{"gas", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"pc", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"pop", []ast.TypeName{ast.Uint256}, nil, false, true, 2},

	// control
	{"call", []ast.TypeName{ast.Uint256, ast.Address, ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, false, true, 700},
	{"callcode", []ast.TypeName{ast.Uint256, ast.Address, ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, false, true, 700},
	{"delegatecall", []ast.TypeName{ast.Uint256, ast.Address, ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, false, true, 700},
	{"staticcall", []ast.TypeName{ast.Uint256, ast.Address, ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Uint256}, false, true, 700},
	{"return", []ast.TypeName{ast.Uint256, ast.Uint256}, nil, false, true, 0},
	{"revert", []ast.TypeName{ast.Uint256, ast.Uint256}, nil, false, true, 0},
	{"selfdestruct", []ast.TypeName{ast.Address}, nil, false, true, 5000},
	{"invalid", nil, nil, false, true, 0},
	{"log0", []ast.TypeName{ast.Uint256, ast.Uint256}, nil, false, true, 375},
	{"log1", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256}, nil, false, true, 750},
	{"log2", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256}, nil, false, true, 1125},
	{"log3", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256}, nil, false, true, 1500},
	{"log4", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256}, nil, false, true, 1875},
	{"create", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Address}, false, true, 32000},
	{"create2", []ast.TypeName{ast.Uint256, ast.Uint256, ast.Uint256, ast.Uint256}, []ast.TypeName{ast.Address}, false, true, 32000},
	{"stop", nil, nil, false, true, 0},

	// crypto: the target hashes a single buffer argument
	{"keccak256", []ast.TypeName{ast.Bytes}, []ast.TypeName{ast.Bytes32}, true, false, 200},
	{"sha256", []ast.TypeName{ast.Bytes}, []ast.TypeName{ast.Bytes32}, true, false, 200},
	{"ripemd160", []ast.TypeName{ast.Bytes}, []ast.TypeName{ast.Bytes32}, true, false, 200},
	{"ecrecover", []ast.TypeName{ast.Bytes32, ast.Uint256, ast.Bytes32, ast.Bytes32}, []ast.TypeName{ast.Address}, true, false, 3000},

	// block
	{"blockhash", []ast.TypeName{ast.Uint256}, []ast.TypeName{ast.Bytes32}, false, false, 20},
	{"coinbase", nil, []ast.TypeName{ast.Address}, false, false, 2},
	{"timestamp", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"number", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"difficulty", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"gaslimit", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"chainid", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
	{"basefee", nil, []ast.TypeName{ast.Uint256}, false, false, 2},
}

// terminating builtins end control flow in the current block
var terminatingBuiltins = map[string]bool{
	"return":       true,
	"revert":       true,
	"invalid":      true,
	"stop":         true,
	"selfdestruct": true,
}

// IsTerminating reports whether a call to the named builtin never falls
// through to the next statement.
func IsTerminating(name string) bool {
	return terminatingBuiltins[name]
}

// registry is built once and treated as immutable thereafter.
var registry = builtinRegistry()

// IsPureBuiltin reports whether the named builtin is pure (no side effects
// and no dependence on execution environment).
func IsPureBuiltin(name string) bool {
	sig, ok := registry[name]
	return ok && sig.IsPure
}

// BuiltinSignature returns the signature of a builtin, or nil.
func BuiltinSignature(name string) *FunctionSignature {
	return registry[name]
}

func builtinRegistry() map[string]*FunctionSignature {
	registry := make(map[string]*FunctionSignature, len(builtinSpecs))
	for _, spec := range builtinSpecs {
		sig := &FunctionSignature{
			Name:           spec.name,
			IsBuiltin:      true,
			IsPure:         spec.pure,
			HasSideEffects: spec.sideEffects,
			GasCost:        spec.gas,
		}
		for i, t := range spec.params {
			sig.Params = append(sig.Params, Param{Name: argName(i), Type: typeOf(t)})
		}
		for i, t := range spec.returns {
			sig.Returns = append(sig.Returns, Return{Name: retName(i), Type: typeOf(t)})
		}
		registry[spec.name] = sig
	}
	return registry
}

func typeOf(name ast.TypeName) ast.TypeInfo {
	size := 0
	switch name {
	case ast.Uint256, ast.Bytes32:
		size = 32
	case ast.Address:
		size = 20
	case ast.Bool:
		size = 1
	}
	return ast.TypeInfo{Name: name, Size: size}
}

func argName(i int) string {
	return "arg" + strconv.Itoa(i)
}

func retName(i int) string {
	return "ret" + strconv.Itoa(i)
}

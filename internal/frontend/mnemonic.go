package frontend

import (
	"strings"

	"github.com/ethereum/go-ethereum/core/vm"

	"retcheck/internal/cfg"
)

// aliases are the lowercase names a hand-written or compiler-lowered listing may use
var aliases = map[string]cfg.Op{
	"call":         cfg.OpCall,
	"staticcall":   cfg.OpStaticCall,
	"delegatecall": cfg.OpDelegateCall,
	"callcode":     cfg.OpCallCode,
	"send":         cfg.OpSend,
	"store":        cfg.OpStore,
	"sstore":       cfg.OpStore,
	"log":          cfg.OpLog,
	"emit":         cfg.OpLog,
	"require":      cfg.OpRequire,
	"assert":       cfg.OpRequire,
	"not":          cfg.OpNot,
	"iszero":       cfg.OpNot,
	"and":          cfg.OpAnd,
	"or":           cfg.OpOr,
	"eq":           cfg.OpEq,
	"invoke":       cfg.OpInvoke,
	"selfdestruct": cfg.OpSelfDestruct,
	"other":        cfg.OpOther,
}

var evmOps = map[vm.OpCode]cfg.Op{
	vm.CALL:         cfg.OpCall,
	vm.STATICCALL:   cfg.OpStaticCall,
	vm.DELEGATECALL: cfg.OpDelegateCall,
	vm.CALLCODE:     cfg.OpCallCode,
	vm.SSTORE:       cfg.OpStore,
	vm.TSTORE:       cfg.OpStore,
	vm.LOG0:         cfg.OpLog,
	vm.LOG1:         cfg.OpLog,
	vm.LOG2:         cfg.OpLog,
	vm.LOG3:         cfg.OpLog,
	vm.LOG4:         cfg.OpLog,
	vm.ISZERO:       cfg.OpNot,
	vm.NOT:          cfg.OpNot,
	vm.AND:          cfg.OpAnd,
	vm.OR:           cfg.OpOr,
	vm.EQ:           cfg.OpEq,
	vm.SELFDESTRUCT: cfg.OpSelfDestruct,
}

type mnemonicKind int

const (
	mnemonicUnknown mnemonicKind = iota
	mnemonicKnown
	// an EVM opcode that can only end a block
	mnemonicTerminator
)

// resolveMnemonic maps a listing mnemonic onto an instruction tag. Recognized
// EVM opcodes without a role in the analysis become OpOther.
func resolveMnemonic(mnemonic string) (cfg.Op, mnemonicKind) {
	if op, ok := aliases[mnemonic]; ok {
		return op, mnemonicKnown
	}

	upper := strings.ToUpper(mnemonic)
	code := vm.StringToOp(upper)
	// StringToOp yields STOP for names it does not know
	if code.String() != upper {
		return cfg.OpOther, mnemonicUnknown
	}

	switch code {
	case vm.STOP, vm.RETURN, vm.REVERT, vm.JUMP, vm.JUMPI, vm.INVALID:
		return cfg.OpOther, mnemonicTerminator
	}
	if op, ok := evmOps[code]; ok {
		return op, mnemonicKnown
	}
	return cfg.OpOther, mnemonicKnown
}

// Package scripting runs user macros in a sandboxed GopherLua VM. A macro
// receives an actor's roll data and returns a dice formula.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit caps the Lua opcodes one load or macro call may
// execute when no limit is configured.
const DefaultInstructionLimit = 100_000

// strippedGlobals reach the filesystem, the module loader, or the collector.
var strippedGlobals = []string{
	"dofile", "loadfile", "load", "loadstring", "require", "module",
	"collectgarbage", "print",
}

// opBudget is a context that cancels itself after a fixed number of Done
// calls. The GopherLua main loop polls Done once per opcode when a context
// is set, so the count is an opcode budget.
type opBudget struct {
	context.Context
	left   atomic.Int64
	cancel context.CancelFunc
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) < 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// withOpBudget derives a context from parent that is cancelled once ops
// opcodes have run, or when parent ends.
func withOpBudget(parent context.Context, ops int) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(ops))
	return b, cancel
}

func budgetOrDefault(limit int) int {
	if limit > 0 {
		return limit
	}
	return DefaultInstructionLimit
}

// NewSandbox returns a VM with only the base, table, string and math
// libraries and without the loader, filesystem and collector globals. The VM
// starts with an opcode budget of limit; Manager installs a fresh budget for
// every load and call.
//
// Precondition: limit >= 0; 0 selects DefaultInstructionLimit.
// Postcondition: The caller owns the returned state and must Close it.
func NewSandbox(limit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	ctx, _ := withOpBudget(context.Background(), budgetOrDefault(limit)) //nolint:govet // released when the budget is spent
	L.SetContext(ctx)
	return L
}

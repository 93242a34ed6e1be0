// Package scripting runs operator-supplied Lua hooks after rolls. Hooks execute
// in a sandboxed GopherLua VM; all host interactions go through the knw module
// whose callbacks are injected on the Manager.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one hook call when no
// override is configured.
const DefaultInstructionLimit = 100_000

// ErrBudgetExhausted wraps the Lua error of a run that spent its opcode budget.
var ErrBudgetExhausted = errors.New("scripting: instruction budget exhausted")

// unsafeGlobals are base library functions that reach the filesystem or the
// loader.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "module"}

// budget cancels itself once Done has been polled limit times. GopherLua polls
// Done once per opcode while a context is installed.
type budget struct {
	context.Context
	cancel    context.CancelFunc
	remaining atomic.Int64
}

func (b *budget) Done() <-chan struct{} {
	if b.remaining.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// Sandbox is a GopherLua state restricted to the base, table, string and
// math libraries, in which every run is bounded by an opcode budget.
// A Sandbox is not safe for concurrent use.
type Sandbox struct {
	L     *lua.LState
	limit int
}

// NewSandbox creates a restricted state. limit <= 0 selects DefaultInstructionLimit.
//
// Postcondition: The caller must Close the Sandbox.
func NewSandbox(limit int) *Sandbox {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return &Sandbox{L: L, limit: limit}
}

// Limit is the opcode budget of each Run.
func (s *Sandbox) Limit() int { return s.limit }

// Run executes fn with a fresh opcode budget derived from ctx. Lua code run
// by fn fails once the budget is spent or ctx is cancelled.
func (s *Sandbox) Run(ctx context.Context, fn func(L *lua.LState) error) error {
	base, cancel := context.WithCancel(ctx)
	b := &budget{Context: base, cancel: cancel}
	b.remaining.Store(int64(s.limit))
	defer cancel()

	s.L.SetContext(b)
	defer s.L.RemoveContext()
	err := fn(s.L)
	if err != nil && b.remaining.Load() <= 0 {
		return fmt.Errorf("%w: %v", ErrBudgetExhausted, err)
	}
	return err
}

// DoString runs a chunk of Lua source under a fresh budget.
func (s *Sandbox) DoString(ctx context.Context, src string) error {
	return s.Run(ctx, func(L *lua.LState) error { return L.DoString(src) })
}

// Close releases the Lua state.
func (s *Sandbox) Close() {
	s.L.Close()
}

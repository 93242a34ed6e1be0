package scripting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/knw/internal/scripting"
)

func TestSandbox_Globals(t *testing.T) {
	box := scripting.NewSandbox(0)
	defer box.Close()
	assert.Equal(t, scripting.DefaultInstructionLimit, box.Limit())
	for _, name := range []string{"os", "io", "debug", "dofile", "loadfile", "load", "require", "collectgarbage"} {
		assert.Equal(t, lua.LNil, box.L.GetGlobal(name), "%s must not be reachable", name)
	}
	for _, name := range []string{"math", "string", "table", "pairs", "tostring"} {
		assert.NotEqual(t, lua.LNil, box.L.GetGlobal(name), "%s must be available", name)
	}
}

func TestSandbox_SafeLibsWork(t *testing.T) {
	box := scripting.NewSandbox(0)
	defer box.Close()
	require.NoError(t, box.DoString(context.Background(), `
		assert(math.sqrt(4) == 2.0)
		assert(string.upper("veyra") == "VEYRA")
		local t = {3, 1, 2}
		table.sort(t)
		assert(t[1] == 1)
	`))
}

func TestSandbox_BudgetIsPerRun(t *testing.T) {
	box := scripting.NewSandbox(200)
	defer box.Close()
	loop := `local n = 0 for i = 1, 30 do n = n + i end`
	for range 5 {
		require.NoError(t, box.DoString(context.Background(), loop), "each run starts with a full budget")
	}
	err := box.DoString(context.Background(), `while true do end`)
	assert.ErrorIs(t, err, scripting.ErrBudgetExhausted)
	assert.NoError(t, box.DoString(context.Background(), loop), "the state stays usable")
}

func TestSandbox_CancelledContext(t *testing.T) {
	box := scripting.NewSandbox(0)
	defer box.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := box.DoString(ctx, `local x = 1`)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, scripting.ErrBudgetExhausted)
}

func TestProperty_InfiniteLoopAlwaysStopped(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 500).Draw(rt, "limit")
		box := scripting.NewSandbox(limit)
		defer box.Close()
		if err := box.DoString(context.Background(), `while true do end`); err == nil {
			rt.Fatalf("infinite loop completed under limit %d", limit)
		}
	})
}

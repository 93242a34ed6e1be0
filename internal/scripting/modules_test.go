package scripting_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/knw/internal/scripting"
)

func runScript(t *testing.T, mgr *scripting.Manager, luaSrc, hook string, args ...lua.LValue) lua.LValue {
	t.Helper()
	require.NoError(t, mgr.Load(writeTempLua(t, "test.lua", luaSrc), 0))
	ret, err := mgr.CallHook(context.Background(), hook, args...)
	require.NoError(t, err)
	return ret
}

func TestKnwLog_AllLevels(t *testing.T) {
	mgr, logs := newTestManager(t)
	runScript(t, mgr, `
		function do_all_logs()
			knw.log.debug("d")
			knw.log.info("i")
			knw.log.warn("w")
			knw.log.error("e")
		end
	`, "do_all_logs")

	for _, level := range []string{"debug", "info", "warn", "error"} {
		found := false
		for _, e := range logs.FilterMessage("lua").All() {
			if e.Level.String() == level {
				found = true
			}
		}
		assert.True(t, found, "expected %s log", level)
	}
}

func TestKnwDice_Roll_ReturnsTable(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function do_roll()
			local r = knw.dice.roll("1d6")
			if type(r.dice) ~= "number" then error("dice field missing") end
			return r.total
		end
	`, "do_roll")
	n, ok := ret.(lua.LNumber)
	require.True(t, ok, "expected LNumber, got %T", ret)
	assert.GreaterOrEqual(t, int(n), 1)
	assert.LessOrEqual(t, int(n), 6)
}

func TestKnwDice_Roll_BadExpressionReturnsNil(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret := runScript(t, mgr, `
		function do_roll() return knw.dice.roll("banana") == nil end
	`, "do_roll")
	assert.Equal(t, lua.LTrue, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: dice roll failed").Len())
}

func TestProperty_DiceRoll_TotalEqualsDicePlusModifier(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "inv.lua", `
		function check_invariant(expr)
			local r = knw.dice.roll(expr)
			return r.total == r.dice + r.modifier
		end
	`), 0))
	rapid.Check(t, func(rt *rapid.T) {
		expr := rapid.SampledFrom([]string{"1d6", "2d6+1", "1d4-1", "1d20+5"}).Draw(rt, "expr")
		ret, err := mgr.CallHook(context.Background(), "check_invariant", lua.LString(expr))
		require.NoError(rt, err)
		assert.Equal(rt, lua.LTrue, ret, "total must equal dice + modifier for expr %s", expr)
	})
}

func TestKnwChat_Post_CallsCallback(t *testing.T) {
	mgr, _ := newTestManager(t)
	type post struct{ speaker, text string }
	var got []post
	mgr.Post = func(_ context.Context, speaker, text string) error {
		got = append(got, post{speaker, text})
		return nil
	}
	ret := runScript(t, mgr, `
		function do_post() return knw.chat.post("Iron Guard", "Hold the line!") end
	`, "do_post")
	assert.Equal(t, lua.LTrue, ret)
	assert.Equal(t, []post{{"Iron Guard", "Hold the line!"}}, got)
}

func TestKnwChat_Post_NilCallbackReturnsFalse(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function do_post()
			local ok, msg = knw.chat.post("a", "b")
			return tostring(ok) .. ":" .. msg
		end
	`, "do_post")
	assert.Equal(t, lua.LString("false:chat unavailable"), ret)
}

func TestKnwChat_Post_ErrorReturnsMessage(t *testing.T) {
	mgr, logs := newTestManager(t)
	mgr.Post = func(context.Context, string, string) error { return errors.New("store down") }
	ret := runScript(t, mgr, `
		function do_post()
			local ok, msg = knw.chat.post("a", "b")
			if ok then return "ok" end
			return msg
		end
	`, "do_post")
	assert.Equal(t, lua.LString("store down"), ret)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestKnwChat_Post_ReceivesHookContext(t *testing.T) {
	mgr, _ := newTestManager(t)
	type key struct{}
	var seen any
	mgr.Post = func(ctx context.Context, _, _ string) error {
		seen = ctx.Value(key{})
		return nil
	}
	require.NoError(t, mgr.Load(writeTempLua(t, "ctx.lua", `function fire() knw.chat.post("a", "b") end`), 0))
	_, err := mgr.CallHook(context.WithValue(context.Background(), key{}, "session-7"), "fire")
	require.NoError(t, err)
	assert.Equal(t, "session-7", seen)
}

func TestKnwLocalize(t *testing.T) {
	mgr, _ := newTestManager(t)
	src := `function loc() return knw.localize("KNW.Warfare.Commander.None") end`
	assert.Equal(t, lua.LString("KNW.Warfare.Commander.None"), runScript(t, mgr, src, "loc"))

	mgr.Localize = func(key string) string { return "None" }
	assert.Equal(t, lua.LString("None"), runScript(t, mgr, src, "loc"))
}

package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the knw.* Lua tables into L:
//
//	knw.log.debug|info|warn|error(msg)
//	knw.dice.roll(expr) -> {total, dice, modifier} or nil
//	knw.chat.post(speaker, text) -> true, or false and a message
//	knw.localize(key) -> string
//
// Precondition: L must belong to a Sandbox.
// Postcondition: knw global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	knw := L.NewTable()
	L.SetField(knw, "log", m.logModule(L))
	L.SetField(knw, "dice", m.diceModule(L))
	L.SetField(knw, "chat", m.chatModule(L))
	L.SetField(knw, "localize", L.NewFunction(m.luaLocalize))
	L.SetGlobal("knw", knw)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, logf := range levels {
		logf := logf
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			logf("lua", zap.String("msg", L.CheckString(1)))
			return 0
		}))
	}
	return mod
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "roll", L.NewFunction(func(L *lua.LState) int {
		res, err := m.roller.RollExpr(L.CheckString(1))
		if err != nil {
			m.logger.Warn("scripting: dice roll failed", zap.Error(err))
			L.Push(lua.LNil)
			return 1
		}
		sum := 0
		for _, d := range res.Dice {
			sum += d
		}
		t := L.NewTable()
		L.SetField(t, "total", lua.LNumber(res.Total()))
		L.SetField(t, "dice", lua.LNumber(sum))
		L.SetField(t, "modifier", lua.LNumber(res.Modifier))
		L.Push(t)
		return 1
	}))
	return mod
}

func (m *Manager) chatModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "post", L.NewFunction(func(L *lua.LState) int {
		speaker := L.CheckString(1)
		text := L.CheckString(2)
		if m.Post == nil {
			L.Push(lua.LFalse)
			L.Push(lua.LString("chat unavailable"))
			return 2
		}
		if err := m.Post(m.ctx, speaker, text); err != nil {
			m.logger.Warn("scripting: chat post failed", zap.Error(err))
			L.Push(lua.LFalse)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}))
	return mod
}

func (m *Manager) luaLocalize(L *lua.LState) int {
	key := L.CheckString(1)
	if m.Localize == nil {
		L.Push(lua.LString(key))
		return 1
	}
	L.Push(lua.LString(m.Localize(key)))
	return 1
}

package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arianrhod/internal/game/resolver"
)

// RegisterModules registers the arianrhod.* Lua table into L:
//
//	arianrhod.formula(dice, value)  -> "<dice+2>D6+<value>"
//	arianrhod.roll(expr)            -> {total, expression, dice, critical, fumble}
//	arianrhod.log.debug|info|warn|error(msg)
//
// Precondition: L must be from NewSandbox.
// Postcondition: arianrhod global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "formula", L.NewFunction(luaFormula))
	L.SetField(mod, "roll", L.NewFunction(m.luaRoll))

	log := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	} {
		logFn := fn
		L.SetField(log, name, L.NewFunction(func(L *lua.LState) int {
			logFn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	L.SetField(mod, "log", log)
	L.SetGlobal("arianrhod", mod)
}

func luaFormula(L *lua.LState) int {
	L.Push(lua.LString(resolver.Formula(L.CheckInt(1), L.CheckInt(2))))
	return 1
}

func (m *Manager) luaRoll(L *lua.LState) int {
	res, err := m.roller.RollExpr(L.CheckString(1))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	t := L.NewTable()
	t.RawSetString("total", lua.LNumber(res.Total()))
	t.RawSetString("expression", lua.LString(res.Expression))
	t.RawSetString("critical", lua.LBool(res.Critical))
	t.RawSetString("fumble", lua.LBool(res.Fumble))
	diceTbl := L.NewTable()
	for _, d := range res.Dice {
		diceTbl.Append(lua.LNumber(d))
	}
	t.RawSetString("dice", diceTbl)
	L.Push(t)
	return 1
}

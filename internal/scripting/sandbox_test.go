package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arianrhod/internal/scripting"
)

func TestNewSandbox_Globals(t *testing.T) {
	L := scripting.NewSandbox(0)
	defer L.Close()

	for _, name := range []string{"os", "io", "debug", "package", "dofile", "loadfile", "load", "loadstring", "require", "collectgarbage", "print"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "%s must not be reachable", name)
	}
	for _, name := range []string{"math", "string", "table", "pairs", "tostring"} {
		assert.NotEqual(t, lua.LNil, L.GetGlobal(name), "%s must be available", name)
	}
}

func TestNewSandbox_FormulaHelpers(t *testing.T) {
	L := scripting.NewSandbox(0)
	defer L.Close()
	assert.NoError(t, L.DoString(`
		assert(math.floor(7 / 3) == 2)
		assert(string.format("{%d}D6+{%d}", 2, 4) == "{2}D6+{4}")
	`))
}

func TestNewSandbox_OpcodeBudget(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 500).Draw(rt, "limit")
		L := scripting.NewSandbox(limit)
		defer L.Close()
		if err := L.DoString(`while true do end`); err == nil {
			rt.Fatalf("unbounded loop finished under a budget of %d", limit)
		}
	})
}

package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arianrhod/internal/game/dice"
)

// ErrMacroNotFound is returned by Run for an unknown macro name.
var ErrMacroNotFound = errors.New("macro not found")

// Manager owns one sandboxed LState holding every loaded macro.
//
// Manager is safe for concurrent use; calls into the VM are serialized.
type Manager struct {
	mu     sync.Mutex
	state  *lua.LState
	macros map[string]*lua.LFunction
	limit  int
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager with no macros loaded.
//
// Precondition: roller and logger must be non-nil; instLimit >= 0, 0 uses
// DefaultInstructionLimit.
func NewManager(roller *dice.Roller, logger *zap.Logger, instLimit int) *Manager {
	return &Manager{
		macros: make(map[string]*lua.LFunction),
		limit:  budgetOrDefault(instLimit),
		roller: roller,
		logger: logger,
	}
}

// Load replaces the loaded macros with the *.lua files of dir. Each file must
// return a function; the macro is named after the file without extension.
//
// Precondition: dir must be a readable directory.
// Postcondition: On error the previously loaded macros stay in place.
func (m *Manager) Load(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading macro dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	L := NewSandbox(m.limit)
	m.RegisterModules(L)
	macros := make(map[string]*lua.LFunction, len(files))
	for _, path := range files {
		fn, err := m.loadMacro(L, path)
		if err != nil {
			L.Close()
			return err
		}
		macros[strings.TrimSuffix(filepath.Base(path), ".lua")] = fn
	}

	m.mu.Lock()
	old := m.state
	m.state, m.macros = L, macros
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
	m.logger.Info("macros loaded", zap.String("dir", dir), zap.Int("count", len(macros)))
	return nil
}

func (m *Manager) loadMacro(L *lua.LState, path string) (*lua.LFunction, error) {
	ctx, cancel := withOpBudget(context.Background(), m.limit)
	defer cancel()
	L.SetContext(ctx)
	defer L.RemoveContext()

	chunk, err := L.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: loading %q: %w", path, err)
	}
	L.Push(chunk)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, fmt.Errorf("scripting: running %q: %w", path, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	fn, ok := ret.(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("scripting: %q must return a function, got %s", path, ret.Type())
	}
	return fn, nil
}

// Names returns the loaded macro names in sorted order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.macros))
	for n := range m.macros {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run calls macro name with data exposed as a nested table ("str.total"
// becomes data.str.total) and returns the formula it produces.
//
// Postcondition: Returns a non-empty formula, ErrMacroNotFound, or the Lua
// error; cancelling ctx or exhausting the instruction budget aborts the call.
func (m *Manager) Run(ctx context.Context, name string, data map[string]int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn, ok := m.macros[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMacroNotFound, name)
	}
	L := m.state
	callCtx, cancel := withOpBudget(ctx, m.limit)
	defer cancel()
	L.SetContext(callCtx)
	defer L.RemoveContext()

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, dataTable(L, data)); err != nil {
		m.logger.Warn("scripting: Lua runtime error", zap.String("macro", name), zap.Error(err))
		return "", fmt.Errorf("scripting: macro %q: %w", name, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	formula, ok := ret.(lua.LString)
	if !ok || strings.TrimSpace(string(formula)) == "" {
		return "", fmt.Errorf("scripting: macro %q must return a formula string, got %s", name, ret.Type())
	}
	return string(formula), nil
}

// dataTable nests flat dotted keys into Lua tables.
func dataTable(L *lua.LState, data map[string]int) *lua.LTable {
	root := L.NewTable()
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts := strings.Split(k, ".")
		t := root
		for _, p := range parts[:len(parts)-1] {
			next, ok := t.RawGetString(p).(*lua.LTable)
			if !ok {
				next = L.NewTable()
				t.RawSetString(p, next)
			}
			t = next
		}
		t.RawSetString(parts[len(parts)-1], lua.LNumber(data[k]))
	}
	return root
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		m.state.Close()
		m.state = nil
	}
	m.macros = map[string]*lua.LFunction{}
}

package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/game/dice"
)

// Manager owns the Sandbox that runs hook scripts.
//
// An LState is single-threaded, so hook calls are serialized. Each call gets
// its own instruction budget.
type Manager struct {
	mu     sync.Mutex
	box    *Sandbox
	roller *dice.Roller
	logger *zap.Logger
	// ctx is the context of the hook call in progress; read by knw.* callbacks.
	ctx context.Context

	// Injected after construction. nil = no-op in knw.* modules.
	Post     func(ctx context.Context, speaker, text string) error
	Localize func(key string) string
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{
		roller: roller,
		logger: logger,
		ctx:    context.Background(),
	}
}

// Load creates a fresh VM, registers the knw module, then executes every *.lua
// file in scriptDir in lexicographic order. A previously loaded VM is replaced
// only when every file loads.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Returns an error naming the file on Lua load failure.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	box := NewSandbox(instLimit)
	m.RegisterModules(box.L)
	for _, path := range luaFiles {
		err := box.Run(context.Background(), func(L *lua.LState) error { return L.DoFile(path) })
		if err != nil {
			box.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.box != nil {
		m.box.Close()
	}
	m.box = box
	m.logger.Info("scripts loaded",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
		zap.Int("instruction_limit", box.Limit()),
	)
	return nil
}

// Loaded reports whether a VM is installed.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.box != nil
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.box != nil {
		m.box.Close()
		m.box = nil
	}
}

// CallHook calls the named Lua global function. Returns (LNil, nil) if no
// scripts are loaded or the hook is not defined. Lua runtime errors, including
// an exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(ctx context.Context, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.box == nil {
		m.logger.Debug("scripting: no scripts loaded", zap.String("hook", hook))
		return lua.LNil, nil
	}
	fn := m.box.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	m.ctx = ctx
	defer func() { m.ctx = context.Background() }()

	ret := lua.LValue(lua.LNil)
	err := m.box.Run(ctx, func(L *lua.LState) error {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret = L.Get(-1)
		L.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Bool("budget_exhausted", errors.Is(err, ErrBudgetExhausted)),
			zap.Error(err),
		)
		return lua.LNil, nil
	}
	return ret, nil
}

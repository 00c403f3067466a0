// Package script runs Lua configuration scripts against the classification
// settings.
//
// Scripts get a restricted standard library (base, package, table, string,
// math) and a module named italics:
//
//	local italics = require("italics")
//	italics.set({"comment", "keyword.control"})
//	italics.add("type")
//	if italics.contains("comment") then italics.remove("comment") end
//	italics.save()
//
// italics.get() returns the current names as a sorted array. set accepts an
// array or a comma-separated string. Nothing is persisted until save().
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/italics/internal/classification"
	"github.com/dshills/italics/internal/logging"
	"github.com/dshills/italics/internal/settings"
)

// ModuleName is the name scripts require.
const ModuleName = "italics"

// DefaultTimeout bounds a single script execution.
const DefaultTimeout = 5 * time.Second

// ErrClosed is returned when running a script on a closed Runner.
var ErrClosed = errors.New("script: runner is closed")

// Runner owns one Lua state bound to a settings store.
//
// gopher-lua states are not goroutine-safe; Runner serializes calls.
type Runner struct {
	L *lua.LState

	mu      sync.Mutex
	store   *settings.Store
	logger  *zap.Logger
	out     io.Writer
	timeout time.Duration
	closed  bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logging.OrNop(l)
	}
}

// WithOutput sets where Lua's print writes. The default is stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// WithTimeout sets the per-execution timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// New creates a Runner with the italics module installed.
func New(store *settings.Store, opts ...Option) *Runner {
	r := &Runner{
		store:   store,
		logger:  zap.NewNop(),
		out:     os.Stdout,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("script")

	r.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(r.L)
	restrict(r.L)
	r.L.SetGlobal("print", r.L.NewFunction(r.print))
	r.L.PreloadModule(ModuleName, r.loader)
	return r
}

// openSafeLibraries opens the libraries scripts may use. io, os and debug
// stay closed.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// restrict removes ways to load code from outside the runner.
func restrict(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
		L.SetField(pkg, "path", lua.LString(""))
		L.SetField(pkg, "cpath", lua.LString(""))
	}
}

// DoString runs a chunk of Lua.
func (r *Runner) DoString(ctx context.Context, code string) error {
	return r.run(ctx, "string", func() error { return r.L.DoString(code) })
}

// DoFile runs a Lua file.
func (r *Runner) DoFile(ctx context.Context, path string) error {
	// Read here so loadfile can stay disabled inside the sandbox.
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	return r.run(ctx, path, func() error { return r.L.DoString(string(code)) })
}

func (r *Runner) run(ctx context.Context, source string, fn func() error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()

	r.logger.Debug("running script", zap.String("source", source))
	if err := fn(); err != nil {
		return fmt.Errorf("running %s: %w", source, err)
	}
	return nil
}

// Close releases the Lua state.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.L.Close()
	r.closed = true
}

func (r *Runner) loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get":      r.get,
		"set":      r.set,
		"add":      r.add,
		"remove":   r.remove,
		"contains": r.contains,
		"save":     r.save,
		"reload":   r.reload,
	})
	L.Push(mod)
	return 1
}

// get() -> {names...}
func (r *Runner) get(L *lua.LState) int {
	L.Push(namesTable(L, r.store.Current()))
	return 1
}

// set(names) -> count
// names is an array of strings or a comma-separated string.
func (r *Runner) set(L *lua.LState) int {
	switch v := L.Get(1).(type) {
	case lua.LString:
		r.store.UpdateList(string(v))
	case *lua.LTable:
		var raw []string
		v.ForEach(func(_, value lua.LValue) {
			if s, ok := value.(lua.LString); ok {
				raw = append(raw, string(s))
			}
		})
		r.store.Update(raw)
	case *lua.LNilType:
		r.store.Update(nil)
	default:
		L.ArgError(1, "expected table or string")
		return 0
	}
	L.Push(lua.LNumber(r.store.Current().Len()))
	return 1
}

// add(name) -> bool
// Returns false when the name was already present or is blank.
func (r *Runner) add(L *lua.LState) int {
	name := strings.TrimSpace(L.CheckString(1))
	current := r.store.Current()
	if name == "" || current.Contains(name) {
		L.Push(lua.LFalse)
		return 1
	}
	r.store.Update(current.With(name).Names())
	L.Push(lua.LTrue)
	return 1
}

// remove(name) -> bool
func (r *Runner) remove(L *lua.LState) int {
	name := strings.TrimSpace(L.CheckString(1))
	current := r.store.Current()
	if !current.Contains(name) {
		L.Push(lua.LFalse)
		return 1
	}
	r.store.Update(current.Without(name).Names())
	L.Push(lua.LTrue)
	return 1
}

// contains(name) -> bool
func (r *Runner) contains(L *lua.LState) int {
	name := strings.TrimSpace(L.CheckString(1))
	L.Push(lua.LBool(r.store.Current().Contains(name)))
	return 1
}

// save()
func (r *Runner) save(L *lua.LState) int {
	r.store.Save()
	return 0
}

// reload()
func (r *Runner) reload(L *lua.LState) int {
	r.store.Reload()
	return 0
}

func (r *Runner) print(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(r.out, strings.Join(parts, "\t"))
	return 0
}

func namesTable(L *lua.LState, set classification.Set) *lua.LTable {
	tbl := L.CreateTable(set.Len(), 0)
	for _, name := range set.Names() {
		tbl.Append(lua.LString(name))
	}
	return tbl
}

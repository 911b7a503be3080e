package action

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// BuiltinOptions carries runtime settings needed by built-in runner factories.
type BuiltinOptions struct {
	Workdir        string
	ShellTimeout   time.Duration
	MaxOutputBytes int
}

const (
	DefaultBuiltinShellTimeout   = 30 * time.Second
	DefaultBuiltinMaxOutputBytes = 16 * 1024
)

type BuiltinFactory func(options BuiltinOptions) (Runner, error)

var builtinCatalog = struct {
	mu        sync.RWMutex
	factories map[string]BuiltinFactory
}{
	factories: map[string]BuiltinFactory{},
}

// RegisterBuiltin registers a built-in runner factory under an action kind.
// Intended to be called in init() from built-in runner files.
func RegisterBuiltin(kind string, factory BuiltinFactory) {
	normalized := NormalizeKind(kind)
	if normalized == "" {
		panic("action: built-in kind cannot be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("action: built-in factory cannot be nil (%s)", normalized))
	}

	builtinCatalog.mu.Lock()
	defer builtinCatalog.mu.Unlock()

	if _, exists := builtinCatalog.factories[normalized]; exists {
		panic(fmt.Sprintf("action: built-in already registered: %s", normalized))
	}
	builtinCatalog.factories[normalized] = factory
}

// BuiltinKinds lists registered built-in kinds in sorted order.
func BuiltinKinds() []string {
	builtinCatalog.mu.RLock()
	defer builtinCatalog.mu.RUnlock()

	kinds := make([]string, 0, len(builtinCatalog.factories))
	for kind := range builtinCatalog.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// LoadBuiltins instantiates every registered built-in into r.
func (r *Registry) LoadBuiltins(options BuiltinOptions) error {
	if options.ShellTimeout <= 0 {
		options.ShellTimeout = DefaultBuiltinShellTimeout
	}
	if options.MaxOutputBytes <= 0 {
		options.MaxOutputBytes = DefaultBuiltinMaxOutputBytes
	}
	if options.Workdir == "" {
		options.Workdir = "."
	}

	for _, kind := range BuiltinKinds() {
		builtinCatalog.mu.RLock()
		factory := builtinCatalog.factories[kind]
		builtinCatalog.mu.RUnlock()

		runner, err := factory(options)
		if err != nil {
			return fmt.Errorf("build built-in runner %s: %w", kind, err)
		}
		r.Register(runner)
	}
	return nil
}

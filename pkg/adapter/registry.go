package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Factory builds an adapter. A nil logger means discard.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes a target type available to NewAdapter. Names are case
// insensitive. Registering the same name twice panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	key := strings.ToLower(name)
	if factory == nil {
		panic("adapter: Register factory is nil for " + key)
	}
	if _, dup := factories[key]; dup {
		panic("adapter: Register called twice for " + key)
	}
	factories[key] = factory
}

// Get returns the factory registered for name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[strings.ToLower(name)]
	return f, ok
}

// DialectOf reports the dialect a target type compiles with. DuckDB, for
// one, speaks postgres. Unknown types report themselves.
func DialectOf(name string) string {
	if factory, ok := Get(name); ok {
		if a := factory(nil); a != nil {
			return a.DialectName()
		}
	}
	return strings.ToLower(name)
}

// NewAdapter builds an unconnected adapter for cfg.Type.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered target types in sorted order.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether name has a factory.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError names a target type no adapter registered.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("no adapter for target type %q (registered: %s)\nHint: set target.type in leapquery.yaml",
		e.Type, strings.Join(e.Available, ", "))
}

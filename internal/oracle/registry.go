package oracle

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrUnknownOracle is returned by New for unregistered names.
var ErrUnknownOracle = errors.New("unknown oracle")

// Params carries everything a Factory may need. Kinds ignore the
// fields they do not use.
type Params struct {
	Requester Requester
	Param     string            // query parameter carrying the condition
	Fixed     map[string]string // sent with every request
	Success   string            // marker meaning true
	Match     MatchMode
	Policy    FailurePolicy
	Logger    *zap.Logger
}

// Factory builds an Oracle.
type Factory func(p Params) (Oracle, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func init() {
	Register("boolean", func(p Params) (Oracle, error) {
		return NewBoolean(p)
	})
}

// Register adds or replaces a named oracle kind.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New builds the oracle registered under name.
func New(name string, p Params) (Oracle, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownOracle, name, Names())
	}
	return f(p)
}

// Names lists registered oracle kinds in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package component holds the registries of named training components a run
// config may reference: model architectures, optimizers, LR schedulers,
// callbacks, loggers, loss functions, attention layers, normalizations,
// activations, and numeric precisions. Components register themselves in
// init() functions; validation looks names up here instead of hard-coding
// string comparisons.
package component

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind groups component names into independent namespaces.
type Kind string

const (
	KindModel         Kind = "model"
	KindOptimizer     Kind = "optimizer"
	KindScheduler     Kind = "scheduler"
	KindCallback      Kind = "callback"
	KindLogger        Kind = "logger"
	KindLoss          Kind = "loss"
	KindAttention     Kind = "attention"
	KindNormalization Kind = "normalization"
	KindActivation    Kind = "activation"
	KindPrecision     Kind = "precision"
)

// Spec describes a registered component.
type Spec struct {
	// Name is the config-facing identifier, e.g. "decoupled_adamw".
	Name string
	// Kind is the namespace the component belongs to.
	Kind Kind
	// Summary is a one-line description used by schema output.
	Summary string
	// Validate checks the component's hyperparameter block. May be nil when
	// the component takes no parameters worth checking.
	Validate func(params map[string]any) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[Kind]map[string]*Spec)
)

// Register adds a component spec to the global registry.
// Called by component definitions in their init() functions.
func Register(s *Spec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	kind := registry[s.Kind]
	if kind == nil {
		kind = make(map[string]*Spec)
		registry[s.Kind] = kind
	}
	kind[strings.ToLower(s.Name)] = s
}

// Get returns a component spec by kind and name.
func Get(kind Kind, name string) (*Spec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[kind][strings.ToLower(name)]
	return s, ok
}

// IsRegistered reports whether a name is registered under the given kind.
func IsRegistered(kind Kind, name string) bool {
	_, ok := Get(kind, name)
	return ok
}

// List returns all registered names for a kind (sorted).
func List(kind Kind) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry[kind]))
	for name := range registry[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Kinds returns all kinds that have at least one registered component (sorted).
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]Kind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// UnknownComponentError is returned when a config names a component that is
// not registered.
type UnknownComponentError struct {
	Kind      Kind
	Name      string
	Available []string
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("unknown %s %q (available: %s)",
		e.Kind, e.Name, strings.Join(e.Available, ", "))
}

// Lookup returns the spec for kind/name, or an UnknownComponentError listing
// the registered alternatives.
func Lookup(kind Kind, name string) (*Spec, error) {
	s, ok := Get(kind, name)
	if !ok {
		return nil, &UnknownComponentError{Kind: kind, Name: name, Available: List(kind)}
	}
	return s, nil
}

// ValidateParams runs the component's parameter validation, if any.
func ValidateParams(kind Kind, name string, params map[string]any) error {
	s, err := Lookup(kind, name)
	if err != nil {
		return err
	}
	if s.Validate == nil {
		return nil
	}
	if err := s.Validate(params); err != nil {
		return fmt.Errorf("%s %s: %w", kind, name, err)
	}
	return nil
}

package command

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrDuplicateName  = errors.New("command: name already registered")
	ErrRegistrySealed = errors.New("command: registry is sealed")
)

// Registry stores definitions in registration order, unique by folded name.
// Order is the resolution precedence and is never re-sorted.
type Registry struct {
	mu     sync.RWMutex
	defs   []*Definition
	byKey  map[string]*Definition
	sealed bool
	log    zerolog.Logger
}

// NewRegistry creates an empty, unsealed registry reporting through logger.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		byKey: make(map[string]*Definition),
		log:   logger.With().Str("component", "command.registry").Logger(),
	}
}

// Add appends def. The first definition registered under a name is kept.
func (r *Registry) Add(def *Definition) error {
	if def == nil {
		return ErrNilDefinition
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%w: cannot add %q", ErrRegistrySealed, def.name)
	}
	if _, ok := r.byKey[def.key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, def.name)
	}
	r.defs = append(r.defs, def)
	r.byKey[def.key] = def
	return nil
}

// Register is Add for start-up code: a rejected definition is logged and
// reported as false, never raised.
func (r *Registry) Register(def *Definition) bool {
	if err := r.Add(def); err != nil {
		name := ""
		if def != nil {
			name = def.name
		}
		r.log.Warn().Err(err).Str("command", name).Msg("command registration rejected")
		return false
	}
	r.log.Debug().
		Str("command", def.name).
		Stringer("kind", def.kind).
		Msg("command registered")
	return true
}

// Seal ends the build phase. It is one-way and idempotent.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return
	}
	r.sealed = true
	r.log.Debug().Int("commands", len(r.defs)).Msg("command registry sealed")
}

func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Lookup returns the earliest-registered definition that answers to name,
// by primary name or alias, case-insensitively. This is the same precedence
// Resolve applies, so help text always describes the command that runs.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	key := foldName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, def := range r.defs {
		if def.answersTo(key) {
			return def, true
		}
	}
	return nil, false
}

// All returns the definitions in registration order.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def.name)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

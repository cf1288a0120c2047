package metadata

import (
	"errors"
	"fmt"
	"sync"
)

// ErrEntityNotFound marks a lookup for a name no entity is registered under.
// Any other error from Get means the metadata source itself failed to load.
var ErrEntityNotFound = errors.New("entity not found")

// ValidatorFunc is a named custom validator. It returns an error message for
// the submitted value, or "" when the value passes.
type ValidatorFunc func(field *Field, value any, record map[string]any) string

// PredicateFunc is a named custom forbidden-action predicate. Returning true
// forbids the action for this request.
type PredicateFunc func(user *UserContext, action string, req RequestContext) bool

// Registry owns the allow-listed mapping from entity name to descriptor, plus
// the process-wide custom validator and predicate registries. Entity lookup
// never resolves names dynamically: an unregistered name is simply not found.
//
// When a loader is set the entity set is computed once and cached until
// Invalidate (fired on login) clears it; with caching disabled every access
// reloads, which is the development behavior.
type Registry struct {
	mu         sync.RWMutex
	entities   map[string]*Entity
	loaded     bool
	loader     func() ([]*Entity, error)
	cache      bool
	validators map[string]ValidatorFunc
	predicates map[string]PredicateFunc
}

func NewRegistry() *Registry {
	return &Registry{
		entities:   make(map[string]*Entity),
		cache:      true,
		validators: make(map[string]ValidatorFunc),
		predicates: make(map[string]PredicateFunc),
	}
}

// SetLoader installs the entity source. cache=false reloads on every access.
func (r *Registry) SetLoader(loader func() ([]*Entity, error), cache bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loader = loader
	r.cache = cache
	r.loaded = false
}

// Register adds or replaces a single entity descriptor.
func (r *Registry) Register(e *Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[e.Name] = e
}

// Load replaces the whole entity set.
func (r *Registry) Load(entities []*Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replace(entities)
}

func (r *Registry) replace(entities []*Entity) {
	r.entities = make(map[string]*Entity, len(entities))
	for _, e := range entities {
		r.entities[e.Name] = e
	}
	r.loaded = true
}

// Get returns the descriptor for an entity name. A failing loader surfaces
// as its own error, never as ErrEntityNotFound: a broken metadata directory
// is a configuration fault, not a missing entity.
func (r *Registry) Get(name string) (*Entity, error) {
	if err := r.ensure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, name)
	}
	return e, nil
}

// All returns every registered entity.
func (r *Registry) All() ([]*Entity, error) {
	if err := r.ensure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entities := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		entities = append(entities, e)
	}
	return entities, nil
}

// Invalidate drops the cached entity set so the next access reloads it.
// Called synchronously on login events.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loader != nil {
		r.loaded = false
	}
}

// ensure populates the entity set from the loader if needed. Double-checked
// so concurrent readers only block behind the first populating request.
func (r *Registry) ensure() error {
	r.mu.RLock()
	ready := r.loader == nil || (r.loaded && r.cache)
	r.mu.RUnlock()
	if ready {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loader == nil || (r.loaded && r.cache) {
		return nil
	}
	entities, err := r.loader()
	if err != nil {
		return fmt.Errorf("load entities: %w", err)
	}
	r.replace(entities)
	return nil
}

// RegisterValidator installs a named custom validator.
func (r *Registry) RegisterValidator(name string, fn ValidatorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[name] = fn
}

// Validator looks up a named custom validator.
func (r *Registry) Validator(name string) (ValidatorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.validators[name]
	return fn, ok
}

// RegisterPredicate installs a named custom forbidden-action predicate.
func (r *Registry) RegisterPredicate(name string, fn PredicateFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[name] = fn
}

// Predicate looks up a named custom predicate.
func (r *Registry) Predicate(name string) (PredicateFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.predicates[name]
	return fn, ok
}

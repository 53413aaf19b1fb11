package revision

import (
	"strings"
	"sync"
	"unicode"
)

const (
	relationSuffix  = "_id"
	displayerSuffix = "Displayer"
)

// DisplayerFactory builds a displayer for a single render.
type DisplayerFactory func() Displayer

// Resolver finds the displayer factory for a revisionable type and key.
type Resolver interface {
	Resolve(entityType, key string) (DisplayerFactory, error)
}

// NormalizeField strips the relation suffix from a revision key,
// so group_id becomes group. Keys without the suffix are returned as is.
func NormalizeField(key string) string {
	if strings.Contains(key, relationSuffix) {
		return strings.Replace(key, relationSuffix, "", 1)
	}
	return key
}

// DisplayerName returns the identifier used to describe the displayer
// for a key, e.g. suspended_at becomes SuspendedAtDisplayer.
func DisplayerName(key string) string {
	return studly(NormalizeField(key)) + displayerSuffix
}

func studly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upper := true
	for _, r := range s {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type registryKey struct {
	entityType string
	field      string
}

type resolution struct {
	factory DisplayerFactory
}

// Registry maps (type, field) pairs to displayer factories. Types form an
// explicit parent table; lookups walk it most specific first and the outcome
// is memoized per pair.
type Registry struct {
	mu         sync.RWMutex
	parents    map[string]string
	displayers map[registryKey]DisplayerFactory
	cache      sync.Map
}

var _ Resolver = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		parents:    map[string]string{},
		displayers: map[registryKey]DisplayerFactory{},
	}
}

// DefineType declares entityType and its parent. Use an empty parent for roots.
func (r *Registry) DefineType(entityType, parent string) *Registry {
	r.mu.Lock()
	r.parents[entityType] = parent
	r.mu.Unlock()
	r.invalidate()
	return r
}

// Register binds a displayer factory to a type and field.
func (r *Registry) Register(entityType, field string, factory DisplayerFactory) *Registry {
	if factory == nil {
		return r
	}
	r.mu.Lock()
	r.displayers[registryKey{entityType: entityType, field: NormalizeField(field)}] = factory
	r.mu.Unlock()
	r.invalidate()
	return r
}

// Chain returns entityType followed by its ancestors.
func (r *Registry) Chain(entityType string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chainLocked(entityType)
}

func (r *Registry) chainLocked(entityType string) []string {
	chain := []string{}
	seen := map[string]struct{}{}
	for current := entityType; current != ""; current = r.parents[current] {
		if _, ok := seen[current]; ok {
			break
		}
		seen[current] = struct{}{}
		chain = append(chain, current)
	}
	return chain
}

// Resolve implements Resolver.
func (r *Registry) Resolve(entityType, key string) (DisplayerFactory, error) {
	field := NormalizeField(key)
	ck := registryKey{entityType: entityType, field: field}

	cached, ok := r.cache.Load(ck)
	if !ok {
		cached = r.resolve(entityType, field)
		r.cache.Store(ck, cached)
	}

	if res := cached.(resolution); res.factory != nil {
		return res.factory, nil
	}

	return nil, &NoDisplayerFoundError{
		Type:      entityType,
		Field:     key,
		Displayer: DisplayerName(key),
	}
}

func (r *Registry) resolve(entityType, field string) resolution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.chainLocked(entityType) {
		if factory, ok := r.displayers[registryKey{entityType: t, field: field}]; ok {
			return resolution{factory: factory}
		}
	}

	return resolution{}
}

func (r *Registry) invalidate() {
	r.cache.Range(func(k, _ any) bool {
		r.cache.Delete(k)
		return true
	})
}

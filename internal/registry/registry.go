// Package registry implements the definition registry (C3): a
// name-keyed store of bean definitions with a configurable duplicate
// policy, type/annotation lookups, and copy-on-write snapshots so
// enumeration during mutation is deterministic.
package registry

import (
	"reflect"
	"sync"

	"github.com/AtsushiSuzuki/go-ioc/internal/beandef"
	"github.com/AtsushiSuzuki/go-ioc/internal/ioerr"
)

// `DuplicatePolicy` governs what happens when `Register` is called with
// a name that already has a definition.
type DuplicatePolicy int

const (
	PolicyReplace DuplicatePolicy = iota
	PolicyReject
	PolicyKeepFirst
)

// `Registry` stores bean definitions keyed by canonical name.
//
// The default duplicate policy is `PolicyReplace` for application-role
// definitions and `PolicyReject` for infrastructure-role definitions,
// matching spec §4.3. `SetDefaultPolicy` changes the application-role
// policy only; infrastructure-role definitions always reject duplicates.
type Registry struct {
	lock sync.RWMutex

	// defs is replaced wholesale on every mutation (copy-on-write) so a
	// snapshot handed to an enumerator is never mutated underneath it.
	defs map[string]*beandef.BeanDefinition

	order         []string // registration order, for destruction/determinism
	defaultPolicy DuplicatePolicy
	frozen        bool
}

func New() *Registry {
	return &Registry{
		defs:          make(map[string]*beandef.BeanDefinition),
		defaultPolicy: PolicyReplace,
	}
}

// SetDefaultPolicy overrides the role-based default for application-role
// definitions (infrastructure-role definitions always reject duplicates).
func (this *Registry) SetDefaultPolicy(p DuplicatePolicy) {
	this.lock.Lock()
	defer this.lock.Unlock()
	this.defaultPolicy = p
}

// `Register` stores `def` under `name`. `def.SetName(name)` is called as
// part of registration.
func (this *Registry) Register(name string, def *beandef.BeanDefinition) error {
	this.lock.Lock()
	defer this.lock.Unlock()

	if this.frozen {
		return ioerr.ErrConfigurationFrozen
	}

	if existing, ok := this.defs[name]; ok {
		policy := this.defaultPolicy
		if existing.Role == beandef.RoleInfrastructure || def.Role == beandef.RoleInfrastructure {
			policy = PolicyReject
		}
		switch policy {
		case PolicyReject:
			return ioerr.ErrNameConflict
		case PolicyKeepFirst:
			return nil
		case PolicyReplace:
			// fall through to overwrite
		}
	} else {
		this.order = append(this.order, name)
	}

	def.SetName(name)
	this.invalidateMergeCachesLocked()

	next := copyDefs(this.defs)
	next[name] = def
	this.defs = next
	return nil
}

// `Remove` deletes the definition registered under `name`.
func (this *Registry) Remove(name string) error {
	this.lock.Lock()
	defer this.lock.Unlock()

	if this.frozen {
		return ioerr.ErrConfigurationFrozen
	}
	if _, ok := this.defs[name]; !ok {
		return ioerr.ErrNoSuchBean
	}

	next := copyDefs(this.defs)
	delete(next, name)
	this.defs = next

	for i, n := range this.order {
		if n == name {
			this.order = append(this.order[:i], this.order[i+1:]...)
			break
		}
	}
	this.invalidateMergeCachesLocked()
	return nil
}

// `Get` returns the raw (unmerged) definition registered under `name`.
func (this *Registry) Get(name string) (*beandef.BeanDefinition, bool) {
	this.lock.RLock()
	defer this.lock.RUnlock()
	d, ok := this.defs[name]
	return d, ok
}

// `Merged` returns `name`'s definition merged with its parent chain,
// consulting and populating the merge cache carried on the definition
// itself.
func (this *Registry) Merged(name string) (*beandef.BeanDefinition, error) {
	this.lock.RLock()
	def, ok := this.defs[name]
	this.lock.RUnlock()
	if !ok {
		return nil, ioerr.ErrNoSuchBean
	}
	if cached := def.Merged(); cached != nil {
		return cached, nil
	}
	return this.mergeChain(name, map[string]bool{})
}

func (this *Registry) mergeChain(name string, visiting map[string]bool) (*beandef.BeanDefinition, error) {
	this.lock.RLock()
	def, ok := this.defs[name]
	this.lock.RUnlock()
	if !ok {
		return nil, ioerr.ErrNoSuchBean
	}

	if def.Parent == "" {
		def.SetName(name)
		return def, nil
	}

	if visiting[name] {
		return nil, ioerr.ErrUnresolvableDependency
	}
	visiting[name] = true

	parentMerged, err := this.mergeChain(def.Parent, visiting)
	if err != nil {
		return nil, err
	}

	merged := parentMerged.MergeWith(def)
	def.SetMerged(merged)
	return merged, nil
}

func (this *Registry) invalidateMergeCachesLocked() {
	for _, d := range this.defs {
		d.SetMerged(nil)
	}
}

// `Contains` reports whether a definition is registered under `name`.
func (this *Registry) Contains(name string) bool {
	this.lock.RLock()
	defer this.lock.RUnlock()
	_, ok := this.defs[name]
	return ok
}

// `Names` returns every registered canonical name, in registration
// order. Never includes aliases (the registry does not know about
// them).
func (this *Registry) Names() []string {
	this.lock.RLock()
	defer this.lock.RUnlock()
	return append([]string(nil), this.order...)
}

// `Count` returns the number of registered definitions.
func (this *Registry) Count() int {
	this.lock.RLock()
	defer this.lock.RUnlock()
	return len(this.defs)
}

// `Freeze` makes every subsequent mutator fail with
// `ioerr.ErrConfigurationFrozen`.
func (this *Registry) Freeze() {
	this.lock.Lock()
	defer this.lock.Unlock()
	this.frozen = true
}

func (this *Registry) IsFrozen() bool {
	this.lock.RLock()
	defer this.lock.RUnlock()
	return this.frozen
}

// `TypeResolver` lets `NamesByType` discover the type a factory-bean
// definition would actually produce. It is only called for definitions
// with no statically-known `Type` (i.e. `FactoryBean`+`FactoryMethod`
// definitions); `allowEagerInit` is forwarded unchanged so the resolver
// can decide whether discovering the type is worth actually
// instantiating the bean (per spec §4.3 and §9's factory-bean-type open
// question). Returning `ok == false` excludes the definition from the
// result regardless of `t`.
type TypeResolver func(name string, def *beandef.BeanDefinition, allowEagerInit bool) (reflect.Type, bool)

// `NamesByType` returns every name whose declared type (or, for
// factory-bean definitions, produced type — resolved via `resolveType`)
// is assignable to `t`.
func (this *Registry) NamesByType(t reflect.Type, includeNonSingletons bool, allowEagerInit bool, resolveType TypeResolver) []string {
	this.lock.RLock()
	names := append([]string(nil), this.order...)
	defs := this.defs
	this.lock.RUnlock()

	var result []string
	for _, name := range names {
		def := defs[name]
		if def == nil {
			continue
		}
		if !includeNonSingletons && !def.IsSingleton() {
			continue
		}

		candidate := def.Type
		if candidate == nil && (def.FactoryBean != "" || def.FactoryMethod != "") {
			if resolveType == nil {
				continue
			}
			resolved, ok := resolveType(name, def, allowEagerInit)
			if !ok {
				continue
			}
			candidate = resolved
		}
		if candidate == nil {
			continue
		}
		if candidate == t || candidate.AssignableTo(t) || (t.Kind() == reflect.Interface && candidate.Implements(t)) {
			result = append(result, name)
		}
	}
	return result
}

// `NamesByAnnotation` returns every name whose definition carries `ann`.
func (this *Registry) NamesByAnnotation(ann string) []string {
	this.lock.RLock()
	defer this.lock.RUnlock()

	var result []string
	for _, name := range this.order {
		if def, ok := this.defs[name]; ok && def.HasAnnotation(ann) {
			result = append(result, name)
		}
	}
	return result
}

func copyDefs(m map[string]*beandef.BeanDefinition) map[string]*beandef.BeanDefinition {
	next := make(map[string]*beandef.BeanDefinition, len(m)+1)
	for k, v := range m {
		next[k] = v
	}
	return next
}

// Package alias implements a many-to-one alias-to-canonical-name mapping
// with cycle detection, as used by the bean registry to let callers look
// up a bean under more than one name.
package alias

import (
	"sync"

	"github.com/AtsushiSuzuki/go-ioc/internal/ioerr"
)

// `ErrNameConflict` is returned by `Register` when `alias` already maps to
// a different canonical name and overrides are not enabled.
var ErrNameConflict = ioerr.ErrNameConflict

// `ErrCircularAlias` is returned when registering an alias would create a
// cycle in the alias chain, or when an alias is asked to resolve itself.
var ErrCircularAlias = ioerr.ErrCircularAlias

// `ErrUnknownAlias` is returned by `Remove` when `alias` is not registered.
var ErrUnknownAlias = ioerr.ErrUnknownAlias

// `Registry` maintains alias -> canonical name mappings for one container.
//
// All mutations serialise on a single lock; `CanonicalName` and `IsAlias`
// take its read lock on the live map, so they run concurrently with each
// other but not with a mutation.
type Registry struct {
	lock    sync.RWMutex
	aliases map[string]string
}

// `New` returns an empty alias registry.
func New() *Registry {
	return &Registry{
		aliases: make(map[string]string),
	}
}

// `Register` maps `alias` to `canonical`.
//
// Fails with `ErrNameConflict` if `alias` already maps to a different
// canonical name, unless `allowOverride` is true. Fails with
// `ErrCircularAlias` if `alias == canonical`, or if following the existing
// chain from `canonical` would reach `alias`.
func (this *Registry) Register(canonical string, alias string, allowOverride bool) error {
	if canonical == alias {
		return ErrCircularAlias
	}

	this.lock.Lock()
	defer this.lock.Unlock()

	if existing, ok := this.aliases[alias]; ok {
		if existing == canonical {
			return nil
		}
		if !allowOverride {
			return ErrNameConflict
		}
	}

	// Walking from `canonical` must never reach `alias`, or the new
	// mapping would close a cycle.
	visited := map[string]bool{canonical: true}
	for next := canonical; ; {
		target, ok := this.aliases[next]
		if !ok {
			break
		}
		if target == alias {
			return ErrCircularAlias
		}
		if visited[target] {
			break
		}
		visited[target] = true
		next = target
	}

	this.aliases[alias] = canonical
	return nil
}

// `Remove` deletes `alias`. Fails with `ErrUnknownAlias` if absent.
func (this *Registry) Remove(alias string) error {
	this.lock.Lock()
	defer this.lock.Unlock()

	if _, ok := this.aliases[alias]; !ok {
		return ErrUnknownAlias
	}
	delete(this.aliases, alias)
	return nil
}

// `IsAlias` reports whether `name` is a registered alias.
func (this *Registry) IsAlias(name string) bool {
	this.lock.RLock()
	defer this.lock.RUnlock()

	_, ok := this.aliases[name]
	return ok
}

// `CanonicalName` follows the alias chain from `name` to its fixed point.
// Returns `name` unchanged if it is not an alias. The walk is bounded by
// the registry size; a cycle reached at runtime (e.g. concurrent mutation
// racing the walk) reports `ErrCircularAlias` instead of looping forever.
func (this *Registry) CanonicalName(name string) (string, error) {
	this.lock.RLock()
	defer this.lock.RUnlock()

	visited := map[string]bool{name: true}
	current := name
	for i := 0; i <= len(this.aliases); i++ {
		next, ok := this.aliases[current]
		if !ok {
			return current, nil
		}
		if visited[next] {
			return "", ErrCircularAlias
		}
		visited[next] = true
		current = next
	}
	return "", ErrCircularAlias
}

// `Aliases` returns every alias that transitively resolves to `canonical`.
func (this *Registry) Aliases(canonical string) []string {
	this.lock.RLock()
	defer this.lock.RUnlock()

	var result []string
	for a := range this.aliases {
		if target, err := this.canonicalNameLocked(a); err == nil && target == canonical {
			result = append(result, a)
		}
	}
	return result
}

func (this *Registry) canonicalNameLocked(name string) (string, error) {
	visited := map[string]bool{name: true}
	current := name
	for i := 0; i <= len(this.aliases); i++ {
		next, ok := this.aliases[current]
		if !ok {
			return current, nil
		}
		if visited[next] {
			return "", ErrCircularAlias
		}
		visited[next] = true
		current = next
	}
	return "", ErrCircularAlias
}

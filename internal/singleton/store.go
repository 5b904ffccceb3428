// Package singleton implements the singleton cache and dependency graph
// (C2): the authoritative store for shared instances, the record of
// inter-instance edges, and the orchestrator of destruction order. It
// does not know how to build an instance — callers supply a producer.
package singleton

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/AtsushiSuzuki/go-ioc/internal/ioerr"
)

// `Producer` builds the raw instance for a name. It is given the chance
// to register an early-singleton factory (via `Store.AddEarlyFactory`)
// before populating properties, so that circular references can close.
type Producer func() (interface{}, error)

type recordState int

const (
	stateAbsent recordState = iota
	stateCreating
	stateReady
)

// nameLock is a per-name mutex so two different names can be created in
// parallel while a single name is created at most once (spec §5).
type nameLock struct {
	mu       sync.Mutex
	refcount int
}

// `Store` caches fully-built and partially-built singletons and tracks
// the edges between them.
type Store struct {
	mu sync.RWMutex

	ready        map[string]interface{}
	earlyFactory map[string]func() (interface{}, error)
	earlyObject  map[string]interface{}
	state        map[string]recordState

	// creatingOwner records which goroutine-local creation set currently
	// owns `creating` for a name, for re-entrance detection. Keyed by
	// name -> owner marker supplied by the caller (the `owner` argument
	// of `GetOrCreateSingleton`).
	creatingOwner map[string]interface{}

	dependsOn map[string]map[string]bool
	dependents map[string]map[string]bool
	contained  map[string]map[string]bool

	disposables map[string]func()

	destroyed map[string]bool

	locks map[string]*nameLock
	locksMu sync.Mutex

	log *zap.Logger
}

// New returns an empty store. `log` defaults to a no-op logger when nil.
func New(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		ready:         make(map[string]interface{}),
		earlyFactory:  make(map[string]func() (interface{}, error)),
		earlyObject:   make(map[string]interface{}),
		state:         make(map[string]recordState),
		creatingOwner: make(map[string]interface{}),
		dependsOn:     make(map[string]map[string]bool),
		dependents:    make(map[string]map[string]bool),
		contained:     make(map[string]map[string]bool),
		disposables:   make(map[string]func()),
		destroyed:     make(map[string]bool),
		locks:         make(map[string]*nameLock),
		log:           log,
	}
}

func (this *Store) acquireLock(name string) *nameLock {
	this.locksMu.Lock()
	l, ok := this.locks[name]
	if !ok {
		l = &nameLock{}
		this.locks[name] = l
	}
	l.refcount++
	this.locksMu.Unlock()
	return l
}

func (this *Store) releaseLock(name string, l *nameLock) {
	this.locksMu.Lock()
	l.refcount--
	if l.refcount == 0 {
		delete(this.locks, name)
	}
	this.locksMu.Unlock()
}

// `GetSingleton` returns the ready instance if present, else the
// early-exposed object if `name` is currently being created and early
// exposure has been installed for it.
func (this *Store) GetSingleton(name string) (interface{}, bool) {
	this.mu.RLock()
	if v, ok := this.ready[name]; ok {
		this.mu.RUnlock()
		return v, true
	}
	creating := this.state[name] == stateCreating
	if v, ok := this.earlyObject[name]; ok {
		this.mu.RUnlock()
		return v, true
	}
	factory, hasFactory := this.earlyFactory[name]
	this.mu.RUnlock()

	if !creating || !hasFactory {
		return nil, false
	}

	v, err := factory()
	if err != nil {
		return nil, false
	}

	this.mu.Lock()
	defer this.mu.Unlock()
	if existing, ok := this.earlyObject[name]; ok {
		return existing, true
	}
	this.earlyObject[name] = v
	return v, true
}

// `GetOrCreateSingleton` returns the ready instance for `name`, creating
// it via `producer` if necessary. `owner` identifies the calling
// goroutine's active-creation set (see spec §5); passing the same owner
// for a name already in that owner's creating set yields
// `ioerr.ErrCircularCreation` unless an early reference resolves it
// first via `GetSingleton`.
func (this *Store) GetOrCreateSingleton(name string, owner interface{}, producer Producer) (interface{}, error) {
	this.mu.RLock()
	if v, ok := this.ready[name]; ok {
		this.mu.RUnlock()
		return v, nil
	}
	// Re-entrance by the owner already creating `name` must be caught
	// before taking the per-name lock, which that owner already holds.
	if this.state[name] == stateCreating && this.creatingOwner[name] == owner {
		this.mu.RUnlock()
		return nil, ioerr.ErrCircularCreation
	}
	this.mu.RUnlock()

	lock := this.acquireLock(name)
	lock.mu.Lock()
	defer func() {
		this.releaseLock(name, lock)
	}()
	defer lock.mu.Unlock()

	this.mu.Lock()
	if v, ok := this.ready[name]; ok {
		this.mu.Unlock()
		return v, nil
	}
	if this.state[name] == stateCreating {
		if this.creatingOwner[name] == owner {
			this.mu.Unlock()
			return nil, ioerr.ErrCircularCreation
		}
	}
	this.state[name] = stateCreating
	this.creatingOwner[name] = owner
	this.mu.Unlock()

	this.log.Debug("creating singleton", zap.String("name", name))

	instance, err := producer()

	this.mu.Lock()
	defer this.mu.Unlock()

	if err != nil {
		delete(this.state, name)
		delete(this.creatingOwner, name)
		delete(this.earlyFactory, name)
		delete(this.earlyObject, name)
		this.log.Debug("singleton creation failed", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	if early, ok := this.earlyObject[name]; ok && early != instance {
		delete(this.state, name)
		delete(this.creatingOwner, name)
		delete(this.earlyFactory, name)
		delete(this.earlyObject, name)
		return nil, fmt.Errorf("%w: bean %q", ioerr.ErrInconsistentEarlyReference, name)
	}

	this.ready[name] = instance
	this.state[name] = stateReady
	delete(this.creatingOwner, name)
	delete(this.earlyFactory, name)
	delete(this.earlyObject, name)

	this.log.Debug("singleton ready", zap.String("name", name))
	return instance, nil
}

// `RegisterSingleton` externally injects a pre-built instance.
func (this *Store) RegisterSingleton(name string, obj interface{}) error {
	this.mu.Lock()
	defer this.mu.Unlock()

	if _, ok := this.ready[name]; ok {
		return ioerr.ErrNameConflict
	}
	this.ready[name] = obj
	this.state[name] = stateReady
	return nil
}

// `AddEarlyFactory` registers a zero-arg producer callable while `name`
// is in the `creating` state, used to expose an as-yet-incomplete
// object for circular-reference resolution.
func (this *Store) AddEarlyFactory(name string, factory func() (interface{}, error)) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.earlyFactory[name] = factory
}

// `IsCurrentlyInCreation` reports whether `name` is presently in the
// `creating` state, in any goroutine.
func (this *Store) IsCurrentlyInCreation(name string) bool {
	this.mu.RLock()
	defer this.mu.RUnlock()
	return this.state[name] == stateCreating
}

// `RegisterDependency` records that `dependent` depends on `dependedOn`,
// maintaining `dependents` as the inverse edge set.
func (this *Store) RegisterDependency(dependent string, dependedOn string) {
	this.mu.Lock()
	defer this.mu.Unlock()
	addEdge(this.dependsOn, dependent, dependedOn)
	addEdge(this.dependents, dependedOn, dependent)
}

// `RegisterContained` records that `inner` was created as a nested bean
// of `outer`, which also implies `outer` depends on `inner` for
// destruction ordering.
func (this *Store) RegisterContained(outer string, inner string) {
	this.mu.Lock()
	defer this.mu.Unlock()
	addEdge(this.contained, outer, inner)
	addEdge(this.dependents, inner, outer)
}

// `RegisterDisposable` records a disposal callback to invoke for `name`
// on destruction.
func (this *Store) RegisterDisposable(name string, dispose func()) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.disposables[name] = dispose
}

func addEdge(set map[string]map[string]bool, from string, to string) {
	m, ok := set[from]
	if !ok {
		m = make(map[string]bool)
		set[from] = m
	}
	m[to] = true
}

// `DestroySingleton` destroys `name` and everything that depends on it
// (§4.2's destruction algorithm), then everything it contains.
// Destruction never returns an error to the caller: failures are logged
// and swallowed so the remainder of the sequence proceeds.
func (this *Store) DestroySingleton(name string) {
	this.destroyLocked(name, make(map[string]bool))
}

func (this *Store) destroyLocked(name string, visited map[string]bool) {
	this.mu.Lock()
	if this.destroyed[name] || visited[name] {
		this.mu.Unlock()
		return
	}
	visited[name] = true

	for dependent := range this.dependents[name] {
		this.mu.Unlock()
		this.destroyLocked(dependent, visited)
		this.mu.Lock()
	}

	dispose := this.disposables[name]
	contained := copySet(this.contained[name])
	this.mu.Unlock()

	if dispose != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					this.log.Error("panic during bean destruction", zap.String("name", name), zap.Any("recover", r))
				}
			}()
			dispose()
		}()
	}

	for inner := range contained {
		this.destroyLocked(inner, visited)
	}

	this.mu.Lock()
	this.destroyed[name] = true
	delete(this.ready, name)
	delete(this.state, name)
	for _, m := range this.dependents {
		delete(m, name)
	}
	this.mu.Unlock()
}

// `DestroyAll` destroys every ready singleton in reverse registration
// order, honouring dependency edges along the way.
func (this *Store) DestroyAll(registrationOrder []string) {
	visited := make(map[string]bool)
	for i := len(registrationOrder) - 1; i >= 0; i-- {
		this.destroyLocked(registrationOrder[i], visited)
	}
}

func copySet(m map[string]bool) map[string]bool {
	cp := make(map[string]bool, len(m))
	for k := range m {
		cp[k] = true
	}
	return cp
}

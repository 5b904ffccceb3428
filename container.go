// Package ioc implements an inversion-of-control container: a runtime
// service that reads declarative bean definitions, manages the
// lifecycle of the singleton and prototype instances it creates from
// them, resolves references between them, and produces method-
// interception proxies so cross-cutting advice can be woven into
// selected instances transparently.
package ioc

import (
	"context"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/AtsushiSuzuki/go-ioc/internal/alias"
	"github.com/AtsushiSuzuki/go-ioc/internal/aop"
	"github.com/AtsushiSuzuki/go-ioc/internal/beandef"
	"github.com/AtsushiSuzuki/go-ioc/internal/placeholder"
	"github.com/AtsushiSuzuki/go-ioc/internal/registry"
	"github.com/AtsushiSuzuki/go-ioc/internal/singleton"
)

// `BeanPostProcessor` hooks into every bean's initialisation, before and
// after its init-method runs. A processor may return a different object
// than the one it was given; the replacement becomes the bean's final
// identity for the remainder of its lifecycle.
type BeanPostProcessor interface {
	BeforeInitialization(ctx context.Context, name string, bean interface{}) (interface{}, error)
	AfterInitialization(ctx context.Context, name string, bean interface{}) (interface{}, error)
}

// `ContextAware` is implemented by beans that need a handle back onto
// the container and their own registration, supplied once, before any
// post-processor or init-method runs.
type ContextAware interface {
	SetBeanContext(BeanContext) error
}

// `BeanContext` is the handle a `ContextAware` bean receives.
type BeanContext interface {
	Container() *Container
	Name() string
}

// `CustomScope` lets callers register scopes other than singleton and
// prototype (e.g. request-scoped, session-scoped); `Get` is responsible
// for its own caching policy, `Remove` evicts a cached instance.
type CustomScope interface {
	Get(name string, producer func() (interface{}, error)) (interface{}, error)
	Remove(name string) (interface{}, bool)
}

// `Container` is the facade tying together alias resolution (C1), the
// singleton store (C2), the definition registry (C3), constructor/
// property resolution (C4), placeholder expansion (C5), and the
// advisor-chain/proxy core (C6-C8) behind a single consumer-facing API.
type Container struct {
	mu sync.RWMutex

	parent *Container

	aliases        *alias.Registry
	defs           *registry.Registry
	singletons     *singleton.Store
	placeholders   placeholder.Engine
	propertySource func(key string) (string, bool)

	postProcessors []BeanPostProcessor
	scopes         map[beandef.Scope]CustomScope

	advisors        *aop.AdvisorChain
	proxyFlags      proxyFlags
	proxyInterfaces []reflect.Type
	proxyTarget     func(interface{}) aop.TargetSource

	log *zap.Logger

	closed bool

	perThreadSources []*aop.PerThreadTargetSource
}

type proxyFlags struct {
	proxyTargetClass bool
	exposeProxy      bool
	opaque           bool
	frozen           bool
	optimize         bool
}

// `Option` configures a `Container` at construction time.
type Option func(*Container)

// `WithLogger` installs a structured logger; the default is a no-op
// logger so tests and simple programs don't need to configure one.
func WithLogger(log *zap.Logger) Option {
	return func(c *Container) { c.log = log }
}

// `WithPropertySource` installs the lookup the placeholder engine (C5)
// consults for `${...}` resolution. Combine multiple sources by
// chaining lookups inside the function passed here.
func WithPropertySource(lookup func(key string) (string, bool)) Option {
	return func(c *Container) { c.propertySource = lookup }
}

// `WithParent` sets a parent container consulted when a bean is not
// found locally, per spec §4.4's hierarchical lookup.
func WithParent(parent *Container) Option {
	return func(c *Container) { c.parent = parent }
}

// `NewContainer` returns a ready-to-use, empty container.
func NewContainer(opts ...Option) *Container {
	c := &Container{
		aliases:      alias.New(),
		defs:         registry.New(),
		placeholders: placeholder.Default(),
		scopes:       make(map[beandef.Scope]CustomScope),
		advisors:     aop.NewAdvisorChain(),
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.singletons = singleton.New(c.log)
	return c
}

// ---- loader-to-registry contract ----

// `RegisterDefinition` stores `def` under `name`, following the
// registry's configured duplicate policy (spec §4.3).
func (this *Container) RegisterDefinition(name string, def *beandef.BeanDefinition) error {
	if err := this.checkNotClosed(); err != nil {
		return err
	}
	return this.defs.Register(name, def)
}

// `RemoveDefinition` deletes the definition registered under `name`.
func (this *Container) RemoveDefinition(name string) error {
	return this.defs.Remove(name)
}

// `RegisterAlias` maps `aliasName` to `canonical` (C1).
func (this *Container) RegisterAlias(canonical string, aliasName string, allowOverride bool) error {
	return this.aliases.Register(canonical, aliasName, allowOverride)
}

// `RemoveAlias` deletes `aliasName`.
func (this *Container) RemoveAlias(aliasName string) error {
	return this.aliases.Remove(aliasName)
}

// `RegisterSingleton` externally injects a pre-built instance, bypassing
// definition-driven creation entirely.
func (this *Container) RegisterSingleton(name string, obj interface{}) error {
	return this.singletons.RegisterSingleton(name, obj)
}

// `RegisterScope` installs a custom scope implementation under `name`.
func (this *Container) RegisterScope(name beandef.Scope, impl CustomScope) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.scopes[name] = impl
}

// `RegisterPostProcessor` appends a bean post-processor, run in
// registration order around every bean's initialisation.
func (this *Container) RegisterPostProcessor(p BeanPostProcessor) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.postProcessors = append(this.postProcessors, p)
}

// `Freeze` locks the definition registry against further mutation;
// subsequent `RegisterDefinition`/`RemoveDefinition` calls fail with
// `ErrConfigurationFrozen`.
func (this *Container) Freeze() {
	this.defs.Freeze()
}

func (this *Container) IsFrozen() bool {
	return this.defs.IsFrozen()
}

// `Close` destroys every singleton (in reverse registration order,
// honouring the `DependsOn` edges recorded by `GetBean`; nested values
// have no containment edge), then marks the container closed. A one-way
// transition: idempotent, and every subsequent `GetBean` call fails with
// `ErrContainerClosed`.
func (this *Container) Close(ctx context.Context) error {
	this.mu.Lock()
	if this.closed {
		this.mu.Unlock()
		return nil
	}
	this.closed = true
	order := this.defs.Names()
	threadSources := append([]*aop.PerThreadTargetSource(nil), this.perThreadSources...)
	this.mu.Unlock()

	this.singletons.DestroyAll(order)
	for _, ts := range threadSources {
		ts.DestroyAll(func(interface{}) {})
	}
	return nil
}

func (this *Container) checkNotClosed() error {
	this.mu.RLock()
	defer this.mu.RUnlock()
	if this.closed {
		return ErrContainerClosed
	}
	return nil
}

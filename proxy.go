package ioc

import (
	"context"
	"fmt"
	"reflect"

	"github.com/AtsushiSuzuki/go-ioc/internal/aop"
)

// Re-exported so callers building advisors never need to import the
// internal package directly.
type (
	Advisor       = aop.Advisor
	Advice        = aop.Advice
	Pointcut      = aop.Pointcut
	ClassFilter   = aop.ClassFilter
	MethodMatcher = aop.MethodMatcher
)

var (
	NewPointcut     = aop.NewPointcut
	TrueClassFilter = aop.TrueClassFilter
	MatchAllMethods = aop.MatchAllMethods
)

// `ThreadKey` is the context key under which callers publish their
// task-local identity, consulted by `PerThread`-scoped proxies and by
// `ExposeProxy`. Go has no goroutine-local storage; identity must be
// carried explicitly through `context.Context`.
var ThreadKey = aop.ThreadKey

// ---- proxy configuration (callable before first proxy realisation) ----

// `SetProxyTargetClass` forces class-based (reflection-on-concrete-type)
// proxying even when the target's declared interfaces would otherwise
// be used; the container's reflection-based `Invoke` dispatch (spec §9)
// makes this largely cosmetic but is kept for configuration parity.
func (this *Container) SetProxyTargetClass(v bool) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.proxyFlags.proxyTargetClass = v
}

// `SetExposeProxy` makes the currently-invoked proxy available to the
// target method via `CurrentProxy`, so self-invocation can route back
// through the advisor chain instead of calling itself directly.
func (this *Container) SetExposeProxy(v bool) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.proxyFlags.exposeProxy = v
}

// `SetOpaque` disables target-class exposure through the proxy (no
// runtime effect on a reflection-dispatched proxy; recorded for parity
// with the configuration surface described in spec §3).
func (this *Container) SetOpaque(v bool) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.proxyFlags.opaque = v
}

// `SetFrozen` makes every further `AddAdvisor`/`RemoveAdvisor` call fail
// with `ErrConfigurationFrozen` for as long as it stays set, whether or
// not a proxy has been realized yet.
func (this *Container) SetFrozen(v bool) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.proxyFlags.frozen = v
}

// `SetOptimize` is recorded but has no effect beyond the advisor-chain
// caching `internal/aop.AdvisorChain` already performs unconditionally.
func (this *Container) SetOptimize(v bool) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.proxyFlags.optimize = v
}

// `SetInterfaces` records an interface list on the container. It is not
// copied into the proxies `maybeProxy` creates and is not consulted by
// `IsTypeMatch`; it has no effect on dispatch, which is always
// reflection-based.
func (this *Container) SetInterfaces(interfaces ...reflect.Type) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.proxyInterfaces = append([]reflect.Type(nil), interfaces...)
}

// `SetTargetSource` installs the factory `maybeProxy` uses to build the
// `aop.TargetSource` backing every proxy it creates from now on, in
// place of the default `aop.NewSingletonTargetSource(instance)`. `factory`
// receives the freshly-initialised bean and is free to ignore it and
// build a `PrototypeTargetSource`/`PerThreadTargetSource`/
// `PooledTargetSource`/`HotSwappableTargetSource` instead, per spec
// §4.8/§6's `setTargetSource(ts)`. Any `*aop.PerThreadTargetSource` it
// returns is tracked so `Close` destroys its per-thread instances.
func (this *Container) SetTargetSource(factory func(instance interface{}) aop.TargetSource) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.proxyTarget = factory
}

// `AddAdvisor` appends an advisor to the container-wide advisor chain;
// every singleton whose type matches the advisor's pointcut for at
// least one method is proxied at the end of its initialisation.
func (this *Container) AddAdvisor(a Advisor) error {
	this.mu.RLock()
	frozen := this.proxyFlags.frozen
	this.mu.RUnlock()
	if frozen {
		return ErrConfigurationFrozen
	}
	this.advisors.Add(a)
	return nil
}

// `RemoveAdvisor` removes the advisor at `index` from the container-wide
// chain.
func (this *Container) RemoveAdvisor(index int) error {
	this.mu.RLock()
	frozen := this.proxyFlags.frozen
	this.mu.RUnlock()
	if frozen {
		return ErrConfigurationFrozen
	}
	if !this.advisors.RemoveAt(index) {
		return fmt.Errorf("ioc: no advisor at index %d", index)
	}
	return nil
}

// maybeProxy wraps `instance` in an `*aop.Proxy` if any registered
// advisor's pointcut matches at least one of its methods; otherwise it
// returns `instance` unchanged. Wrapping happens only after the bean is
// fully initialised (spec §4.2 step 5): a dependent that consumed the
// unproxied early reference during a circular dependency will then see
// `ErrInconsistentEarlyReference`, which is the behaviour spec §9 calls
// for rather than silently guessing which identity should win.
func (this *Container) maybeProxy(name string, instance interface{}) interface{} {
	this.mu.RLock()
	advisors := this.advisors.Advisors()
	flags := this.proxyFlags
	targetFactory := this.proxyTarget
	this.mu.RUnlock()

	if len(advisors) == 0 {
		return instance
	}

	t := reflect.TypeOf(instance)
	if t == nil {
		return instance
	}
	concreteT := t
	if concreteT.Kind() == reflect.Ptr {
		concreteT = concreteT.Elem()
	}

	if !anyMethodMatches(advisors, t) {
		return instance
	}

	var ts aop.TargetSource
	if targetFactory != nil {
		ts = targetFactory(instance)
	} else {
		ts = aop.NewSingletonTargetSource(instance)
	}
	if pts, ok := ts.(*aop.PerThreadTargetSource); ok {
		this.mu.Lock()
		this.perThreadSources = append(this.perThreadSources, pts)
		this.mu.Unlock()
	}

	config := &aop.Config{
		TargetSource:     ts,
		Advisors:         this.advisors,
		ProxyTargetClass: flags.proxyTargetClass,
		ExposeProxy:      flags.exposeProxy,
		Opaque:           flags.opaque,
		Frozen:           flags.frozen,
		Optimize:         flags.optimize,
	}
	return aop.CreateProxy(config)
}

func anyMethodMatches(advisors []Advisor, t reflect.Type) bool {
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		for _, a := range advisors {
			if a.Pointcut == nil {
				return true
			}
			if a.Pointcut.Matches(method, t) {
				return true
			}
		}
	}
	return false
}

// `Invoke` calls `methodName` with `args` on `bean`, dispatching through
// the advisor chain when `bean` is a proxy returned by `GetBean` and
// directly via reflection otherwise. This is the uniform call surface a
// caller uses instead of a compile-time interface, since Go cannot
// synthesize an interface-forwarding shim at runtime (spec §9).
func Invoke(ctx context.Context, bean interface{}, methodName string, args ...interface{}) ([]interface{}, error) {
	values := make([]reflect.Value, len(args))
	for i, a := range args {
		values[i] = reflect.ValueOf(a)
	}

	if p, ok := bean.(*aop.Proxy); ok {
		out, err := p.Invoke(ctx, methodName, values)
		return valuesToInterfaces(out), err
	}

	method := reflect.ValueOf(bean).MethodByName(methodName)
	if !method.IsValid() {
		return nil, fmt.Errorf("ioc: no such method %q on %T", methodName, bean)
	}
	out := method.Call(values)
	result := valuesToInterfaces(out)
	if n := len(out); n > 0 {
		if e, ok := out[n-1].Interface().(error); ok && e != nil {
			return result, e
		}
	}
	return result, nil
}

func valuesToInterfaces(values []reflect.Value) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if v.IsValid() {
			out[i] = v.Interface()
		}
	}
	return out
}

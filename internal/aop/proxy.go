package aop

import (
	"context"
	"reflect"
	"sync"
)

// `Config` is frozen at first `CreateProxy` call; it holds the ordered
// advisor list, the target source, the proxied-interface list, and the
// proxy behaviour flags.
type Config struct {
	Interfaces       []reflect.Type
	TargetSource     TargetSource
	Advisors         *AdvisorChain
	ProxyTargetClass bool
	ExposeProxy      bool
	Opaque           bool
	Frozen           bool
	Optimize         bool

	frozenOnce sync.Once
	realized   bool
}

// `Freeze` marks the configuration frozen; subsequent advisor changes
// are rejected by `Proxy.AddAdvisor`.
func (this *Config) Freeze() {
	this.Frozen = true
}

// Equal compares two configurations structurally: same interfaces (in
// any order), same target source, same advisor list in order. Two
// proxies built from equal configurations are defined to be equal.
func (this *Config) Equal(other *Config) bool {
	if other == nil {
		return false
	}
	if this.TargetSource != other.TargetSource {
		return false
	}
	if len(this.Interfaces) != len(other.Interfaces) {
		return false
	}
	want := make(map[reflect.Type]int)
	for _, t := range this.Interfaces {
		want[t]++
	}
	for _, t := range other.Interfaces {
		want[t]--
	}
	for _, n := range want {
		if n != 0 {
			return false
		}
	}
	a, b := this.Advisors.Advisors(), other.Advisors.Advisors()
	if len(a) != len(b) {
		return false
	}
	// Advice functions are not comparable with ==; they are compared by
	// code pointer instead.
	for i := range a {
		x, y := a[i], b[i]
		if x.Pointcut != y.Pointcut || x.Order != y.Order ||
			reflect.ValueOf(x.Advice.Before).Pointer() != reflect.ValueOf(y.Advice.Before).Pointer() ||
			reflect.ValueOf(x.Advice.AfterReturning).Pointer() != reflect.ValueOf(y.Advice.AfterReturning).Pointer() ||
			reflect.ValueOf(x.Advice.AfterThrowing).Pointer() != reflect.ValueOf(y.Advice.AfterThrowing).Pointer() ||
			reflect.ValueOf(x.Advice.Around).Pointer() != reflect.ValueOf(y.Advice.Around).Pointer() {
			return false
		}
	}
	return true
}

// `Proxy` is the realized proxy: every invocation walks the interceptor
// chain around the real method call (C7's dispatch algorithm).
type Proxy struct {
	Config *Config

	mu          sync.Mutex
	currentProx *currentProxySlot
}

type currentProxySlot struct {
	mu   sync.Mutex
	prev map[interface{}]interface{}
}

// `CreateProxy` realizes `config` into a dispatching `Proxy`. `config`
// is frozen at this point: later calls to `AddAdvisor`/`RemoveAdvisor`
// fail once `Config.Frozen` has been set true here or explicitly.
func CreateProxy(config *Config) *Proxy {
	config.frozenOnce.Do(func() {
		config.realized = true
		config.Frozen = true
	})
	return &Proxy{Config: config, currentProx: &currentProxySlot{prev: make(map[interface{}]interface{})}}
}

// `Invoke` dispatches one call to `methodName` with `args` through the
// proxy: obtain the target, look up the interceptor chain, walk it, and
// normalise the return value. This is the dispatch entry point a
// compile-time-generated interface shim (out of scope here, see spec
// §9) would call on behalf of each forwarded method.
func (this *Proxy) Invoke(ctx context.Context, methodName string, args []reflect.Value) (result []reflect.Value, err error) {
	ts := this.Config.TargetSource
	target, err := ts.GetTarget(ctx)
	if err != nil {
		return nil, err
	}

	targetType := reflect.TypeOf(target)
	method, ok := methodByName(targetType, methodName)
	if !ok {
		return nil, &NoSuchMethodError{Type: targetType, Method: methodName}
	}

	if this.Config.ExposeProxy {
		release := this.publishCurrentProxy(ctx)
		defer release()
	}

	defer func() {
		if ts.IsStatic() {
			return
		}
		_ = ts.ReleaseTarget(ctx, target)
	}()

	chain := this.Config.Advisors.InterceptorsFor(method, targetType)

	var out []reflect.Value
	if len(chain) == 0 {
		out, err = invokeTarget(target, method, args)
	} else {
		inv := &Invocation{Proxy: this, Target: target, Method: method, Args: args, chain: chain}
		out, err = inv.Proceed()
	}
	if err != nil {
		return out, err
	}

	return normalizeReturn(out, target, this, method), nil
}

// normalizeReturn substitutes the proxy itself for any returned value
// that is the target, when the method's declared return type is
// assignable from the proxy — preserving fluent-interface semantics
// through the proxy.
func normalizeReturn(out []reflect.Value, target interface{}, proxy *Proxy, method reflect.Method) []reflect.Value {
	proxyType := reflect.TypeOf(proxy)
	for i, v := range out {
		if i < method.Type.NumOut() && !proxyType.AssignableTo(method.Type.Out(i)) {
			continue
		}
		if v.IsValid() && v.CanInterface() && v.Interface() == target {
			out[i] = reflect.ValueOf(proxy)
		}
	}
	return out
}

func methodByName(t reflect.Type, name string) (reflect.Method, bool) {
	if t.Kind() == reflect.Ptr {
		return t.MethodByName(name)
	}
	if m, ok := t.MethodByName(name); ok {
		return m, true
	}
	return reflect.PtrTo(t).MethodByName(name)
}

// publishCurrentProxy publishes `this` into the per-invocation slot
// keyed by the caller's thread identity (from ctx), returning a release
// function that restores the previous value; the caller must defer the
// release on every exit path, including panics.
func (this *Proxy) publishCurrentProxy(ctx context.Context) func() {
	key := ctx.Value(ThreadKey)
	this.currentProx.mu.Lock()
	prev, had := this.currentProx.prev[key]
	this.currentProx.prev[key] = this
	this.currentProx.mu.Unlock()

	return func() {
		this.currentProx.mu.Lock()
		defer this.currentProx.mu.Unlock()
		if had {
			this.currentProx.prev[key] = prev
		} else {
			delete(this.currentProx.prev, key)
		}
	}
}

// `CurrentProxy` returns the proxy currently exposed for the caller's
// thread identity, if `ExposeProxy` published one for this invocation.
func (this *Proxy) CurrentProxy(ctx context.Context) (interface{}, bool) {
	key := ctx.Value(ThreadKey)
	this.currentProx.mu.Lock()
	defer this.currentProx.mu.Unlock()
	v, ok := this.currentProx.prev[key]
	return v, ok
}

// `AddAdvisor` appends an advisor to the live configuration. Fails
// silently (returns false) once the configuration is frozen.
func (this *Proxy) AddAdvisor(a Advisor) bool {
	if this.Config.Frozen {
		return false
	}
	this.Config.Advisors.Add(a)
	return true
}

// `RemoveAdvisor` removes the advisor at `index`. Fails once frozen.
func (this *Proxy) RemoveAdvisor(index int) bool {
	if this.Config.Frozen {
		return false
	}
	return this.Config.Advisors.RemoveAt(index)
}

// `Equal` implements proxy equality by comparing configurations
// structurally, per spec §4.7: two proxies with the same configuration
// are equal.
func (this *Proxy) Equal(other *Proxy) bool {
	if other == nil {
		return false
	}
	return this.Config.Equal(other.Config)
}

// `NoSuchMethodError` is returned when `Invoke` is asked to dispatch a
// method name the target type does not expose.
type NoSuchMethodError struct {
	Type   reflect.Type
	Method string
}

func (this *NoSuchMethodError) Error() string {
	return "aop: no such method " + this.Method + " on " + this.Type.String()
}

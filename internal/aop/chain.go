package aop

import (
	"reflect"
	"sort"
	"sync"
)

type chainCacheKey struct {
	method     string
	targetType reflect.Type
}

// `AdvisorChain` computes, per (method, target type), the ordered list
// of interceptors that applies — caching the result and invalidating
// the cache whenever the advisor list changes.
type AdvisorChain struct {
	mu       sync.RWMutex
	advisors []Advisor
	cache    map[chainCacheKey][]Interceptor
}

func NewAdvisorChain() *AdvisorChain {
	return &AdvisorChain{cache: make(map[chainCacheKey][]Interceptor)}
}

// `SetAdvisors` replaces the advisor list and invalidates the cache.
// Advisors are applied in the order given here unless a non-zero
// `Order` is present, in which case the list is stable-sorted by order
// first.
func (this *AdvisorChain) SetAdvisors(advisors []Advisor) {
	ordered := append([]Advisor(nil), advisors...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	this.mu.Lock()
	defer this.mu.Unlock()
	this.advisors = ordered
	this.cache = make(map[chainCacheKey][]Interceptor)
}

// `Add` appends one advisor and invalidates the cache.
func (this *AdvisorChain) Add(a Advisor) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.advisors = append(this.advisors, a)
	sort.SliceStable(this.advisors, func(i, j int) bool { return this.advisors[i].Order < this.advisors[j].Order })
	this.cache = make(map[chainCacheKey][]Interceptor)
}

// `RemoveAt` deletes the advisor at `index` and invalidates the cache.
func (this *AdvisorChain) RemoveAt(index int) bool {
	this.mu.Lock()
	defer this.mu.Unlock()
	if index < 0 || index >= len(this.advisors) {
		return false
	}
	this.advisors = append(this.advisors[:index], this.advisors[index+1:]...)
	this.cache = make(map[chainCacheKey][]Interceptor)
	return true
}

// `Advisors` returns a snapshot of the current advisor list.
func (this *AdvisorChain) Advisors() []Advisor {
	this.mu.RLock()
	defer this.mu.RUnlock()
	return append([]Advisor(nil), this.advisors...)
}

// `InterceptorsFor` returns the ordered interceptor list applicable to
// `method` on `targetType`, consulting and populating the cache.
func (this *AdvisorChain) InterceptorsFor(method reflect.Method, targetType reflect.Type) []Interceptor {
	key := chainCacheKey{method: method.Name, targetType: targetType}

	this.mu.RLock()
	if cached, ok := this.cache[key]; ok {
		this.mu.RUnlock()
		return cached
	}
	advisors := this.advisors
	this.mu.RUnlock()

	var chain []Interceptor
	for _, a := range advisors {
		if a.Pointcut != nil {
			if a.Pointcut.ClassFilter != nil && !a.Pointcut.ClassFilter.Matches(targetType) {
				continue
			}
			if a.Pointcut.MethodMatcher != nil && !a.Pointcut.MethodMatcher.Matches(method, targetType) {
				continue
			}
			if a.Pointcut.MethodMatcher != nil && !a.Pointcut.MethodMatcher.IsStatic() {
				chain = append(chain, dynamicInterceptor{matcher: a.Pointcut.MethodMatcher, inner: a.Advice.toInterceptor(), method: method, targetType: targetType})
				continue
			}
		}
		chain = append(chain, a.Advice.toInterceptor())
	}

	this.mu.Lock()
	this.cache[key] = chain
	this.mu.Unlock()
	return chain
}

// dynamicInterceptor wraps an advice's interceptor so that a dynamic
// pointcut's argument-dependent matcher is re-evaluated per call;
// non-matching calls bypass the advice and proceed directly.
type dynamicInterceptor struct {
	matcher    MethodMatcher
	inner      Interceptor
	method     reflect.Method
	targetType reflect.Type
}

func (this dynamicInterceptor) Invoke(inv *Invocation) ([]reflect.Value, error) {
	if !this.matcher.MatchesArgs(this.method, this.targetType, inv.Args) {
		return inv.Proceed()
	}
	return this.inner.Invoke(inv)
}

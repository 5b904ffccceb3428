// Package aop implements the interception/proxy core: pointcut and
// advice modelling (C6), the per-invocation interceptor chain and proxy
// dispatch (C7), and the target-source abstractions that supply the
// object a proxy forwards to (C8).
package aop

import "reflect"

// `ClassFilter` decides whether a pointcut applies to a given target
// type at all, independent of any particular method.
type ClassFilter interface {
	Matches(targetType reflect.Type) bool
}

// `ClassFilterFunc` adapts a function to `ClassFilter`.
type ClassFilterFunc func(targetType reflect.Type) bool

func (f ClassFilterFunc) Matches(targetType reflect.Type) bool { return f(targetType) }

// `TrueClassFilter` matches every type.
var TrueClassFilter ClassFilter = ClassFilterFunc(func(reflect.Type) bool { return true })

// `MethodMatcher` decides whether a pointcut applies to a given method.
// `IsStatic` reports whether the decision can be cached per
// (method, targetType) or must be re-evaluated per call with the actual
// arguments.
type MethodMatcher interface {
	Matches(method reflect.Method, targetType reflect.Type) bool
	IsStatic() bool
	MatchesArgs(method reflect.Method, targetType reflect.Type, args []reflect.Value) bool
}

// `StaticMethodMatcher` is a `MethodMatcher` whose decision never
// depends on call arguments; embed it to get `IsStatic()==true` and a
// `MatchesArgs` that always returns true.
type StaticMethodMatcher struct {
	MatchFunc func(method reflect.Method, targetType reflect.Type) bool
}

func (this StaticMethodMatcher) Matches(method reflect.Method, targetType reflect.Type) bool {
	return this.MatchFunc(method, targetType)
}
func (this StaticMethodMatcher) IsStatic() bool { return true }
func (this StaticMethodMatcher) MatchesArgs(reflect.Method, reflect.Type, []reflect.Value) bool {
	return true
}

// `DynamicMethodMatcher` is a `MethodMatcher` whose final decision also
// depends on the actual call arguments; `MatchFunc` is consulted
// statically first as a pre-filter, then `ArgsFunc` per call.
type DynamicMethodMatcher struct {
	MatchFunc func(method reflect.Method, targetType reflect.Type) bool
	ArgsFunc  func(method reflect.Method, targetType reflect.Type, args []reflect.Value) bool
}

func (this DynamicMethodMatcher) Matches(method reflect.Method, targetType reflect.Type) bool {
	if this.MatchFunc == nil {
		return true
	}
	return this.MatchFunc(method, targetType)
}
func (this DynamicMethodMatcher) IsStatic() bool { return false }
func (this DynamicMethodMatcher) MatchesArgs(method reflect.Method, targetType reflect.Type, args []reflect.Value) bool {
	if this.ArgsFunc == nil {
		return true
	}
	return this.ArgsFunc(method, targetType, args)
}

// `MatchAllMethods` is a static matcher accepting every method.
var MatchAllMethods MethodMatcher = StaticMethodMatcher{MatchFunc: func(reflect.Method, reflect.Type) bool { return true }}

// `Pointcut` pairs a class filter with a method matcher.
type Pointcut struct {
	ClassFilter   ClassFilter
	MethodMatcher MethodMatcher
}

// `NewPointcut` returns a pointcut matching every type and every method;
// callers override fields to narrow it.
func NewPointcut() Pointcut {
	return Pointcut{ClassFilter: TrueClassFilter, MethodMatcher: MatchAllMethods}
}

func (this Pointcut) Matches(method reflect.Method, targetType reflect.Type) bool {
	if this.ClassFilter != nil && !this.ClassFilter.Matches(targetType) {
		return false
	}
	if this.MethodMatcher != nil && !this.MethodMatcher.Matches(method, targetType) {
		return false
	}
	return true
}

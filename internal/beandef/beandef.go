// Package beandef declares the structured description of a component
// (a "bean definition") and its constituent value types. It has no
// dependency on the rest of the container so it can be imported by every
// internal subsystem without import cycles.
package beandef

import "reflect"

// `Scope` names the policy deciding how many distinct instances exist
// per definition.
type Scope string

const (
	// `ScopeSingleton` caches exactly one instance per canonical name.
	ScopeSingleton Scope = "singleton"

	// `ScopePrototype` creates a fresh instance on every lookup.
	ScopePrototype Scope = "prototype"
)

// `Role` distinguishes beans the application declared from infrastructure
// beans the framework itself registers; it affects the default
// duplicate-registration policy.
type Role int

const (
	RoleApplication Role = iota
	RoleInfrastructure
)

// `ValueKind` discriminates the three shapes a constructor argument or
// property value may take.
type ValueKind int

const (
	// `KindLiteral` is a Go value used as-is (after placeholder expansion
	// and type conversion for strings).
	KindLiteral ValueKind = iota

	// `KindReference` names another bean to resolve via `getBean`.
	KindReference

	// `KindNested` embeds a full nested `BeanDefinition`, created inline
	// as the value of whichever argument or property holds it.
	KindNested
)

// `ValueSpec` is one constructor argument or property value.
type ValueSpec struct {
	Kind      ValueKind
	Literal   interface{}
	RefName   string
	NestedDef *BeanDefinition
}

func Literal(v interface{}) ValueSpec {
	return ValueSpec{Kind: KindLiteral, Literal: v}
}

func Ref(name string) ValueSpec {
	return ValueSpec{Kind: KindReference, RefName: name}
}

func Nested(def *BeanDefinition) ValueSpec {
	return ValueSpec{Kind: KindNested, NestedDef: def}
}

// `PropertyValue` pairs a property name with the value to populate it
// with.
type PropertyValue struct {
	Name  string
	Value ValueSpec
}

// `BeanDefinition` is the declarative description of how to produce one
// component.
type BeanDefinition struct {
	name string

	// Type is the concrete producer type. Mutually exclusive with
	// FactoryBean+FactoryMethod (one of the two must be set).
	Type reflect.Type

	FactoryBean   string
	FactoryMethod string

	Scope             Scope
	LazyInit          bool
	Primary           bool
	AutowireCandidate bool
	Role              Role

	ConstructorArgs []ValueSpec
	Properties      []PropertyValue

	InitMethod    string
	DestroyMethod string
	Parent        string
	DependsOn     []string

	Annotations []string

	// merged caches the result of merging this definition with its
	// parent chain; invalidated whenever the definition registry is
	// mutated.
	merged *BeanDefinition
}

// `New` returns a definition for `t` with singleton scope,
// autowire-candidate true, and every other flag at its zero value.
func New(t reflect.Type) *BeanDefinition {
	return &BeanDefinition{
		Type:              t,
		Scope:             ScopeSingleton,
		AutowireCandidate: true,
		Role:              RoleApplication,
	}
}

func (this *BeanDefinition) Name() string {
	return this.name
}

// SetName is called exactly once, by the registry, at registration time.
func (this *BeanDefinition) SetName(name string) {
	this.name = name
}

func (this *BeanDefinition) IsSingleton() bool {
	return this.Scope == ScopeSingleton
}

func (this *BeanDefinition) IsPrototype() bool {
	return this.Scope == ScopePrototype
}

func (this *BeanDefinition) IsCustomScope() bool {
	return this.Scope != ScopeSingleton && this.Scope != ScopePrototype
}

func (this *BeanDefinition) HasAnnotation(ann string) bool {
	for _, a := range this.Annotations {
		if a == ann {
			return true
		}
	}
	return false
}

// Merged returns the cached merge result, if any.
func (this *BeanDefinition) Merged() *BeanDefinition {
	return this.merged
}

// SetMerged caches the merge result; call with nil to invalidate.
func (this *BeanDefinition) SetMerged(m *BeanDefinition) {
	this.merged = m
}

func (this *BeanDefinition) Clone() *BeanDefinition {
	cp := *this
	cp.merged = nil
	cp.ConstructorArgs = append([]ValueSpec(nil), this.ConstructorArgs...)
	cp.Properties = append([]PropertyValue(nil), this.Properties...)
	cp.DependsOn = append([]string(nil), this.DependsOn...)
	cp.Annotations = append([]string(nil), this.Annotations...)
	return &cp
}

// MergeWith overlays `child`'s explicitly-set fields onto a copy of
// `this` (the parent): the merge is cached by the caller and invalidated
// on mutation. Properties and constructor args from the child are
// appended after the parent's; DependsOn is the union.
func (parent *BeanDefinition) MergeWith(child *BeanDefinition) *BeanDefinition {
	merged := parent.Clone()
	merged.name = child.name

	if child.Type != nil {
		merged.Type = child.Type
	}
	if child.FactoryBean != "" {
		merged.FactoryBean = child.FactoryBean
	}
	if child.FactoryMethod != "" {
		merged.FactoryMethod = child.FactoryMethod
	}
	if child.Scope != "" {
		merged.Scope = child.Scope
	}
	merged.LazyInit = child.LazyInit
	merged.Primary = child.Primary
	merged.Role = child.Role
	if !child.AutowireCandidate {
		merged.AutowireCandidate = child.AutowireCandidate
	}

	merged.ConstructorArgs = append(append([]ValueSpec(nil), parent.ConstructorArgs...), child.ConstructorArgs...)
	merged.Properties = append(append([]PropertyValue(nil), parent.Properties...), child.Properties...)

	if child.InitMethod != "" {
		merged.InitMethod = child.InitMethod
	}
	if child.DestroyMethod != "" {
		merged.DestroyMethod = child.DestroyMethod
	}

	depSet := map[string]bool{}
	var deps []string
	for _, d := range append(append([]string(nil), parent.DependsOn...), child.DependsOn...) {
		if !depSet[d] {
			depSet[d] = true
			deps = append(deps, d)
		}
	}
	merged.DependsOn = deps
	merged.Annotations = append(append([]string(nil), parent.Annotations...), child.Annotations...)
	merged.Parent = ""
	return merged
}

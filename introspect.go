package ioc

import (
	"context"
	"reflect"

	"github.com/AtsushiSuzuki/go-ioc/internal/beandef"
)

// `ContainsBean` reports whether `name` (after alias resolution) names
// a registered definition or an externally-registered singleton.
func (this *Container) ContainsBean(name string) bool {
	canonical, err := this.aliases.CanonicalName(name)
	if err != nil {
		return false
	}
	if this.defs.Contains(canonical) {
		return true
	}
	if _, ok := this.singletons.GetSingleton(canonical); ok {
		return true
	}
	if this.parent != nil {
		return this.parent.ContainsBean(name)
	}
	return false
}

// `IsSingleton` reports whether `name` resolves to a singleton-scoped
// definition.
func (this *Container) IsSingleton(name string) (bool, error) {
	canonical, err := this.aliases.CanonicalName(name)
	if err != nil {
		return false, err
	}
	def, err := this.defs.Merged(canonical)
	if err != nil {
		if this.parent != nil {
			return this.parent.IsSingleton(name)
		}
		return false, err
	}
	return def.IsSingleton(), nil
}

// `IsPrototype` reports whether `name` resolves to a prototype-scoped
// definition.
func (this *Container) IsPrototype(name string) (bool, error) {
	canonical, err := this.aliases.CanonicalName(name)
	if err != nil {
		return false, err
	}
	def, err := this.defs.Merged(canonical)
	if err != nil {
		if this.parent != nil {
			return this.parent.IsPrototype(name)
		}
		return false, err
	}
	return def.IsPrototype(), nil
}

// `IsTypeMatch` reports whether `name`'s declared (or factory-produced)
// type is assignable to `t`, without necessarily creating the bean.
func (this *Container) IsTypeMatch(name string, t reflect.Type) (bool, error) {
	actual, err := this.GetType(name)
	if err != nil {
		return false, err
	}
	if actual == nil {
		return false, nil
	}
	if actual == t || actual.AssignableTo(t) {
		return true, nil
	}
	return t.Kind() == reflect.Interface && actual.Implements(t), nil
}

// `GetType` returns the type `name` would produce: the type of the
// already-created singleton if there is one, else the definition's
// declared type. A factory-method definition whose product has not been
// created yet yields nil, since no instantiation is done to find it.
func (this *Container) GetType(name string) (reflect.Type, error) {
	canonical, err := this.aliases.CanonicalName(name)
	if err != nil {
		return nil, err
	}
	if v, ok := this.singletons.GetSingleton(canonical); ok {
		return reflect.TypeOf(v), nil
	}
	def, err := this.defs.Merged(canonical)
	if err != nil {
		if this.parent != nil {
			return this.parent.GetType(name)
		}
		return nil, err
	}
	if def.Type != nil {
		return def.Type, nil
	}
	return nil, nil
}

// `GetAliases` returns every alias that resolves to `name`'s canonical
// form.
func (this *Container) GetAliases(name string) ([]string, error) {
	canonical, err := this.aliases.CanonicalName(name)
	if err != nil {
		return nil, err
	}
	return this.aliases.Aliases(canonical), nil
}

// `BeanDefinitionNames` returns every registered definition's canonical
// name, in registration order.
func (this *Container) BeanDefinitionNames() []string {
	return this.defs.Names()
}

// `BeanNamesForType` returns every name whose declared type is
// assignable to `t`. `includeNonSingletons` controls whether
// prototype/custom-scope definitions are considered; `allowEagerInit`
// controls whether factory-bean definitions with an otherwise-unknown
// product type may be instantiated (via `ctx`) to discover it — per
// spec §9, a factory-bean definition whose product type cannot be
// determined without running its factory method is skipped unless
// `allowEagerInit` forces that instantiation.
func (this *Container) BeanNamesForType(ctx context.Context, t reflect.Type, includeNonSingletons bool, allowEagerInit bool) []string {
	return this.defs.NamesByType(t, includeNonSingletons, allowEagerInit, func(name string, def *beandef.BeanDefinition, allowEagerInit bool) (reflect.Type, bool) {
		if def.Type != nil {
			return def.Type, true
		}
		if !allowEagerInit {
			return nil, false
		}
		v, err := this.GetBean(ctx, name)
		if err != nil {
			return nil, false
		}
		if fb, ok := v.(FactoryBean); ok {
			return fb.ObjectType(), true
		}
		return reflect.TypeOf(v), true
	})
}

// `BeansOfType` returns every matching bean, by name, fully realized.
func (this *Container) BeansOfType(ctx context.Context, t reflect.Type, includeNonSingletons bool, allowEagerInit bool) (map[string]interface{}, error) {
	names := this.BeanNamesForType(ctx, t, includeNonSingletons, allowEagerInit)
	result := make(map[string]interface{}, len(names))
	for _, name := range names {
		v, err := this.GetBean(ctx, name)
		if err != nil {
			return nil, err
		}
		result[name] = v
	}
	return result, nil
}

// `BeanNamesForAnnotation` returns every name whose definition carries
// `annotation`.
func (this *Container) BeanNamesForAnnotation(annotation string) []string {
	return this.defs.NamesByAnnotation(annotation)
}

// `BeansWithAnnotation` returns every annotated bean, by name, fully
// realized.
func (this *Container) BeansWithAnnotation(ctx context.Context, annotation string) (map[string]interface{}, error) {
	names := this.BeanNamesForAnnotation(annotation)
	result := make(map[string]interface{}, len(names))
	for _, name := range names {
		v, err := this.GetBean(ctx, name)
		if err != nil {
			return nil, err
		}
		result[name] = v
	}
	return result, nil
}

// `FindAnnotationOnBean` reports whether `name`'s definition carries
// `annotation`.
func (this *Container) FindAnnotationOnBean(name string, annotation string) (bool, error) {
	canonical, err := this.aliases.CanonicalName(name)
	if err != nil {
		return false, err
	}
	def, ok := this.defs.Get(canonical)
	if !ok {
		if this.parent != nil {
			return this.parent.FindAnnotationOnBean(name, annotation)
		}
		return false, ErrNoSuchBean
	}
	return def.HasAnnotation(annotation), nil
}

// `GetAs` resolves `name` and type-asserts it to `T`, a convenience
// wrapper over `Container.GetBean` for callers who know the expected
// concrete or interface type at the call site.
func GetAs[T any](ctx context.Context, c *Container, name string, args ...interface{}) (T, error) {
	var zero T
	v, err := c.GetBean(ctx, name, args...)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{Name: name, Want: reflect.TypeOf(zero), Got: reflect.TypeOf(v)}
	}
	return t, nil
}

// `TypeMismatchError` is returned by `GetAs` when the resolved bean does
// not satisfy the requested type parameter.
type TypeMismatchError struct {
	Name string
	Want reflect.Type
	Got  reflect.Type
}

func (this *TypeMismatchError) Error() string {
	return "ioc: bean " + this.Name + ": want " + typeName(this.Want) + ", got " + typeName(this.Got)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

package ioc

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/AtsushiSuzuki/go-ioc/internal/beandef"
	"github.com/AtsushiSuzuki/go-ioc/internal/ioerr"
)

type ownerKeyType struct{}
type prototypeSetKeyType struct{}

var ownerKey = ownerKeyType{}
var prototypeSetKey = prototypeSetKeyType{}

// prototypeState tracks which prototype-scoped names are currently
// being created within one logical call tree, so a prototype that
// depends (directly or transitively) on itself is reported as
// `ErrCircularPrototype` rather than recursing forever.
type prototypeState struct {
	active map[string]bool
}

// creationContext returns a context carrying a singleton-creation owner
// token and a prototype in-creation set, reusing whichever one already
// exists on `ctx` so recursive calls within the same `GetBean` share
// identity, and minting fresh ones for a brand-new top-level call.
func creationContext(ctx context.Context) (context.Context, interface{}, *prototypeState) {
	owner, _ := ctx.Value(ownerKey).(interface{})
	state, hasState := ctx.Value(prototypeSetKey).(*prototypeState)
	if !hasState {
		state = &prototypeState{active: make(map[string]bool)}
		ctx = context.WithValue(ctx, prototypeSetKey, state)
	}
	if owner == nil {
		owner = new(int)
		ctx = context.WithValue(ctx, ownerKey, owner)
	}
	return ctx, owner, state
}

// `GetBean` resolves `name` (after alias canonicalisation and optional
// `&`-prefix factory-bean dereferencing) to a live instance, creating it
// if necessary. `args` are handed to the producer only when a prototype-
// or custom-scoped definition is created; singleton lookups ignore them,
// whether or not the singleton already exists. A type-based definition
// does not pass them to any constructor: it is always built as a zero
// value, and non-empty `args` are only rejected when that type is not a
// struct.
func (this *Container) GetBean(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	if err := this.checkNotClosed(); err != nil {
		return nil, err
	}
	ctx, owner, state := creationContext(ctx)

	dereferenceFactory := false
	lookup := name
	if strings.HasPrefix(lookup, "&") {
		dereferenceFactory = true
		lookup = lookup[1:]
	}

	canonical, err := this.aliases.CanonicalName(lookup)
	if err != nil {
		return nil, err
	}

	if len(args) == 0 {
		if v, ok := this.singletons.GetSingleton(canonical); ok {
			return this.finishLookup(ctx, canonical, v, dereferenceFactory)
		}
	}

	def, err := this.defs.Merged(canonical)
	if err != nil {
		if this.parent != nil {
			return this.parent.GetBean(ctx, name, args...)
		}
		return nil, err
	}

	for _, dep := range def.DependsOn {
		if _, err := this.GetBean(ctx, dep); err != nil {
			return nil, ioerr.NewBeanCreationError(canonical, err)
		}
		if depCanonical, err := this.aliases.CanonicalName(dep); err == nil {
			this.singletons.RegisterDependency(canonical, depCanonical)
		}
	}

	switch {
	case def.IsSingleton():
		v, err := this.singletons.GetOrCreateSingleton(canonical, owner, func() (interface{}, error) {
			return this.createBean(ctx, canonical, def, nil)
		})
		if err != nil {
			return nil, err
		}
		return this.finishLookup(ctx, canonical, v, dereferenceFactory)

	case def.IsPrototype():
		if state.active[canonical] {
			return nil, fmt.Errorf("%w: bean %q", ioerr.ErrCircularPrototype, canonical)
		}
		state.active[canonical] = true
		defer delete(state.active, canonical)

		v, err := this.createBean(ctx, canonical, def, args)
		if err != nil {
			return nil, err
		}
		return this.finishLookup(ctx, canonical, v, dereferenceFactory)

	default:
		scope, ok := this.scopes[def.Scope]
		if !ok {
			return nil, fmt.Errorf("ioc: unknown scope %q for bean %q", def.Scope, canonical)
		}
		v, err := scope.Get(canonical, func() (interface{}, error) {
			return this.createBean(ctx, canonical, def, args)
		})
		if err != nil {
			return nil, err
		}
		return this.finishLookup(ctx, canonical, v, dereferenceFactory)
	}
}

// finishLookup applies factory-bean dereferencing and, for the `&name`
// form, returns the factory bean itself instead of the object it
// produces.
func (this *Container) finishLookup(ctx context.Context, canonical string, v interface{}, dereferenceFactory bool) (interface{}, error) {
	if dereferenceFactory {
		return v, nil
	}
	if fb, ok := v.(FactoryBean); ok {
		return fb.GetObject()
	}
	return v, nil
}

// `FactoryBean` is implemented by beans that stand in for the object
// they actually produce; `GetBean` transparently calls `GetObject`
// unless the caller asked for the factory itself via the `&name` form.
type FactoryBean interface {
	GetObject() (interface{}, error)
	ObjectType() reflect.Type
}

// createBean runs the full construction sequence for one instance:
// instantiate, expose early (if a singleton permitting circular
// references), populate properties, run lifecycle callbacks, and
// auto-proxy if any registered advisor's pointcut matches.
func (this *Container) createBean(ctx context.Context, name string, def *beandef.BeanDefinition, explicitArgs []interface{}) (interface{}, error) {
	raw, err := this.instantiate(ctx, name, def, explicitArgs)
	if err != nil {
		return nil, ioerr.NewBeanCreationError(name, err)
	}

	if def.IsSingleton() {
		this.singletons.AddEarlyFactory(name, func() (interface{}, error) {
			return raw, nil
		})
	}

	if err := this.populateProperties(ctx, name, def, raw); err != nil {
		if bce, ok := err.(*ioerr.BeanCreationError); ok {
			return nil, bce
		}
		return nil, ioerr.NewBeanCreationError(name, err)
	}

	final, err := this.runLifecycle(ctx, name, def, raw)
	if err != nil {
		return nil, ioerr.NewBeanCreationError(name, err)
	}

	if def.DestroyMethod != "" {
		target := final
		this.singletons.RegisterDisposable(name, func() {
			if err := this.invokeLifecycleMethod(target, def.DestroyMethod); err != nil {
				this.log.Sugar().Errorw("destroy method failed", "name", name, "error", err)
			}
		})
	}

	returned := final
	if def.Type != nil && def.Type.Kind() != reflect.Ptr && def.FactoryBean == "" {
		returned = reflect.ValueOf(final).Elem().Interface()
	}

	return this.maybeProxy(name, returned), nil
}

// instantiate produces the raw, not-yet-populated instance for `def`
// via whichever producer it declares: a factory-bean method, or a
// zero-value of its declared type (Go has no notion of a class
// constructor to reflect on, so every definition without a factory
// method takes the zero-value-plus-field-injection path).
func (this *Container) instantiate(ctx context.Context, name string, def *beandef.BeanDefinition, explicitArgs []interface{}) (interface{}, error) {
	switch {
	case def.FactoryBean != "" && def.FactoryMethod != "":
		return this.instantiateViaFactoryMethod(ctx, def)
	case def.Type != nil:
		return this.instantiateZeroValue(ctx, def, explicitArgs)
	default:
		return nil, fmt.Errorf("ioc: bean %q has neither a type nor a factory method", name)
	}
}

// instantiateZeroValue always returns the addressable pointer form of
// `def.Type`, even when the declared type is a non-pointer struct —
// property population and lifecycle methods need an addressable value
// to operate on. `createBean` unwraps back to a plain value, once, only
// if the declared type was not itself a pointer.
func (this *Container) instantiateZeroValue(ctx context.Context, def *beandef.BeanDefinition, explicitArgs []interface{}) (interface{}, error) {
	t := def.Type
	var instanceType reflect.Type
	if t.Kind() == reflect.Ptr {
		instanceType = t.Elem()
	} else {
		instanceType = t
	}

	if (len(def.ConstructorArgs) > 0 || len(explicitArgs) > 0) && instanceType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("ioc: constructor args given for non-struct type %s", instanceType)
	}

	return reflect.New(instanceType).Interface(), nil
}

func (this *Container) instantiateViaFactoryMethod(ctx context.Context, def *beandef.BeanDefinition) (interface{}, error) {
	factory, err := this.GetBean(ctx, def.FactoryBean)
	if err != nil {
		return nil, err
	}
	method := reflect.ValueOf(factory).MethodByName(def.FactoryMethod)
	if !method.IsValid() {
		return nil, fmt.Errorf("ioc: factory bean %q has no method %q", def.FactoryBean, def.FactoryMethod)
	}

	args, err := this.resolveArgList(ctx, def.ConstructorArgs, method.Type())
	if err != nil {
		return nil, err
	}

	out := method.Call(args)
	return this.unpackCallResult(out)
}

func (this *Container) unpackCallResult(out []reflect.Value) (interface{}, error) {
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type().Implements(errorType) {
		if e, _ := last.Interface().(error); e != nil {
			return nil, e
		}
		if len(out) == 1 {
			return nil, nil
		}
		return out[0].Interface(), nil
	}
	return out[0].Interface(), nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// resolveArgList resolves one `ValueSpec` per parameter of `fnType`
// (a bound method value's type has no receiver parameter, so every
// parameter is resolved), falling back to by-type autowiring for any
// parameter `specs` does not cover.
func (this *Container) resolveArgList(ctx context.Context, specs []beandef.ValueSpec, fnType reflect.Type) ([]reflect.Value, error) {
	n := fnType.NumIn()
	args := make([]reflect.Value, n)
	for i := 0; i < n; i++ {
		paramType := fnType.In(i)
		if i < len(specs) {
			v, err := this.resolveValue(ctx, specs[i], paramType)
			if err != nil {
				return nil, err
			}
			args[i] = v
			continue
		}
		v, err := this.autowireByType(ctx, paramType)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// autowireByType finds the single autowire-candidate definition
// assignable to `t`, preferring the one `Primary` definition when more
// than one matches; fails with `ErrAmbiguousConstructor` if more than one
// candidate exists and not exactly one of them is primary, or
// `ErrUnresolvableDependency` if none does. Externally registered
// singletons (`RegisterSingleton`) have no definition and are not
// considered.
func (this *Container) autowireByType(ctx context.Context, t reflect.Type) (reflect.Value, error) {
	names := this.defs.NamesByType(t, true, false, func(name string, def *beandef.BeanDefinition, allowEagerInit bool) (reflect.Type, bool) {
		return def.Type, def.Type != nil
	})

	var candidates []string
	var primaries []string
	for _, name := range names {
		def, ok := this.defs.Get(name)
		if !ok || !def.AutowireCandidate {
			continue
		}
		if def.Primary {
			primaries = append(primaries, name)
		}
		candidates = append(candidates, name)
	}

	var chosen string
	switch {
	case len(primaries) == 1:
		chosen = primaries[0]
	case len(candidates) == 1:
		chosen = candidates[0]
	case len(candidates) == 0:
		return reflect.Value{}, fmt.Errorf("%w: no bean assignable to %s", ioerr.ErrUnresolvableDependency, t)
	default:
		return reflect.Value{}, fmt.Errorf("%w: %d beans assignable to %s", ioerr.ErrAmbiguousConstructor, len(candidates), t)
	}

	v, err := this.GetBean(ctx, chosen)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v), nil
}

// resolveValue resolves one `ValueSpec` to a `reflect.Value` assignable
// to `targetType`: a literal (after placeholder expansion and type
// conversion), a reference (recursive `GetBean`), or a nested definition
// (instantiated and populated inline; it is not registered in the
// singleton store, so it has no containment edge, no lifecycle callbacks
// and no part in destruction ordering).
func (this *Container) resolveValue(ctx context.Context, spec beandef.ValueSpec, targetType reflect.Type) (reflect.Value, error) {
	switch spec.Kind {
	case beandef.KindLiteral:
		return this.resolveLiteral(spec.Literal, targetType)

	case beandef.KindReference:
		v, err := this.GetBean(ctx, spec.RefName)
		if err != nil {
			return reflect.Value{}, err
		}
		return adaptAssignable(reflect.ValueOf(v), targetType)

	case beandef.KindNested:
		v, err := this.instantiate(ctx, "(nested)", spec.NestedDef, nil)
		if err != nil {
			return reflect.Value{}, err
		}
		if err := this.populateProperties(ctx, "(nested)", spec.NestedDef, v); err != nil {
			return reflect.Value{}, err
		}
		return adaptAssignable(reflect.ValueOf(v), targetType)

	default:
		return reflect.Value{}, fmt.Errorf("ioc: unknown value kind %v", spec.Kind)
	}
}

func adaptAssignable(v reflect.Value, targetType reflect.Type) (reflect.Value, error) {
	if targetType == nil {
		return v, nil
	}
	if v.Type().AssignableTo(targetType) {
		return v, nil
	}
	if targetType.Kind() == reflect.Interface && v.Type().Implements(targetType) {
		return v, nil
	}
	return reflect.Value{}, fmt.Errorf("ioc: value of type %s is not assignable to %s", v.Type(), targetType)
}

// resolveLiteral expands placeholders in string literals, then converts
// the result to `targetType` for the handful of primitive kinds a
// property/argument value realistically takes.
func (this *Container) resolveLiteral(literal interface{}, targetType reflect.Type) (reflect.Value, error) {
	s, isString := literal.(string)
	if !isString {
		v := reflect.ValueOf(literal)
		if targetType != nil && v.IsValid() && v.Type().ConvertibleTo(targetType) {
			return v.Convert(targetType), nil
		}
		return v, nil
	}

	expanded, err := this.placeholders.Expand(s, this.lookupProperty)
	if err != nil {
		return reflect.Value{}, err
	}
	if targetType == nil || targetType.Kind() == reflect.String {
		return reflect.ValueOf(expanded), nil
	}
	return convertStringTo(expanded, targetType)
}

func (this *Container) lookupProperty(key string) (string, bool) {
	if this.propertySource == nil {
		return "", false
	}
	return this.propertySource(key)
}

func convertStringTo(s string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		v := reflect.New(t).Elem()
		v.SetInt(n)
		return v, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		v := reflect.New(t).Elem()
		v.SetUint(n)
		return v, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		v := reflect.New(t).Elem()
		v.SetFloat(f)
		return v, nil
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("ioc: cannot convert %q to %s", s, t)
		}
		var parts []string
		if s != "" {
			parts = strings.Split(s, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
		}
		return reflect.ValueOf(parts), nil
	default:
		return reflect.Value{}, fmt.Errorf("ioc: cannot convert %q to %s", s, t)
	}
}

// populateProperties applies two layers of injection, explicit
// definitions winning over tag-based ones: first any field whose
// exported name carries an `ioc:"name"` struct tag is wired to the
// referenced bean (the teacher's original auto-wiring mechanism,
// generalised to resolve through the full value-spec machinery rather
// than a bare `Resolve` call), then every `PropertyValue` the
// definition names explicitly is applied, overwriting any tag-based
// value for the same field.
// populateProperties applies every field independently and keeps going
// past the first failure, so a bean with several broken dependencies
// reports all of them: the first failure becomes the returned error's
// cause, every subsequent one is attached via `BeanCreationError.Suppress`
// instead of being discarded.
func (this *Container) populateProperties(ctx context.Context, name string, def *beandef.BeanDefinition, instance interface{}) error {
	val := reflect.ValueOf(instance)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		if len(def.Properties) > 0 {
			return fmt.Errorf("ioc: bean %q is not a struct, cannot populate properties", name)
		}
		return nil
	}

	var creationErr *ioerr.BeanCreationError
	record := func(err error) {
		if creationErr == nil {
			creationErr = ioerr.NewBeanCreationError(name, err)
			return
		}
		creationErr.Suppress(err)
	}

	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("ioc")
		if tag == "" {
			continue
		}
		v, err := this.GetBean(ctx, tag)
		if err != nil {
			record(fmt.Errorf("field %q: %w", field.Name, err))
			continue
		}
		fv, err := adaptAssignable(reflect.ValueOf(v), field.Type)
		if err != nil {
			record(fmt.Errorf("field %q: %w", field.Name, err))
			continue
		}
		val.Field(i).Set(fv)
	}

	for _, prop := range def.Properties {
		field := val.FieldByName(prop.Name)
		if !field.IsValid() {
			record(fmt.Errorf("no field %q", prop.Name))
			continue
		}
		v, err := this.resolveValue(ctx, prop.Value, field.Type())
		if err != nil {
			record(fmt.Errorf("property %q: %w", prop.Name, err))
			continue
		}
		field.Set(v)
	}

	if creationErr != nil {
		return creationErr
	}
	return nil
}

// runLifecycle runs the ordered initialisation sequence: context
// awareness, before-initialisation post-processors, the init method,
// then after-initialisation post-processors. Any post-processor may
// substitute a different instance; the final substitution is returned.
func (this *Container) runLifecycle(ctx context.Context, name string, def *beandef.BeanDefinition, instance interface{}) (interface{}, error) {
	if aware, ok := instance.(ContextAware); ok {
		if err := aware.SetBeanContext(&beanContext{container: this, name: name}); err != nil {
			return nil, err
		}
	}

	current := instance
	this.mu.RLock()
	processors := append([]BeanPostProcessor(nil), this.postProcessors...)
	this.mu.RUnlock()

	for _, p := range processors {
		next, err := p.BeforeInitialization(ctx, name, current)
		if err != nil {
			return nil, err
		}
		if next != nil {
			current = next
		}
	}

	if def.InitMethod != "" {
		if err := this.invokeLifecycleMethod(current, def.InitMethod); err != nil {
			return nil, err
		}
	}

	for _, p := range processors {
		next, err := p.AfterInitialization(ctx, name, current)
		if err != nil {
			return nil, err
		}
		if next != nil {
			current = next
		}
	}

	return current, nil
}

func (this *Container) invokeLifecycleMethod(instance interface{}, methodName string) error {
	method := reflect.ValueOf(instance).MethodByName(methodName)
	if !method.IsValid() {
		return fmt.Errorf("ioc: no method %q on %T", methodName, instance)
	}
	out := method.Call(nil)
	if len(out) == 1 {
		if e, ok := out[0].Interface().(error); ok && e != nil {
			return e
		}
	}
	return nil
}

type beanContext struct {
	container *Container
	name      string
}

func (this *beanContext) Container() *Container { return this.container }
func (this *beanContext) Name() string          { return this.name }

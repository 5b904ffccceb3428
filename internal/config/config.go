// Package config loads a declarative bean manifest (TOML) and applies it
// to a container: every [beans.<name>] table becomes one registered
// definition, wiring the loader-to-registry contract described in the
// module's expanded specification. Go has no notion of loading a type
// by name at runtime, so callers supply a `TypeRegistry` mapping the
// manifest's type strings to `reflect.Type` values obtained at compile
// time the ordinary way (`reflect.TypeOf(MyStruct{})`).
package config

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/AtsushiSuzuki/go-ioc"
)

// `TypeRegistry` maps the type names a manifest refers to onto the
// concrete Go types they name.
type TypeRegistry map[string]reflect.Type

// `ValueSpec` is the TOML shape of one constructor argument or property
// value: exactly one of `Literal` or `Ref` should be set.
type ValueSpec struct {
	Literal interface{} `toml:"literal"`
	Ref     string      `toml:"ref"`
}

func (this ValueSpec) toIOC() ioc.ValueSpec {
	if this.Ref != "" {
		return ioc.Ref(this.Ref)
	}
	return ioc.Literal(this.Literal)
}

// `BeanSpec` is the TOML shape of one `[beans.<name>]` table.
type BeanSpec struct {
	Type              string               `toml:"type"`
	FactoryBean       string               `toml:"factory_bean"`
	FactoryMethod     string               `toml:"factory_method"`
	Scope             string               `toml:"scope"`
	LazyInit          bool                 `toml:"lazy_init"`
	Primary           bool                 `toml:"primary"`
	AutowireCandidate *bool                `toml:"autowire_candidate"`
	InitMethod        string               `toml:"init_method"`
	DestroyMethod     string               `toml:"destroy_method"`
	Parent            string               `toml:"parent"`
	DependsOn         []string             `toml:"depends_on"`
	Annotations       []string             `toml:"annotations"`
	Aliases           []string             `toml:"aliases"`
	ConstructorArgs   []ValueSpec          `toml:"constructor_args"`
	Properties        map[string]ValueSpec `toml:"properties"`
}

// `Manifest` is the root TOML document: a table of bean specs keyed by
// name, plus a flat table of property-placeholder values available to
// every bean's `${...}` expansions.
type Manifest struct {
	Beans      map[string]BeanSpec `toml:"beans"`
	Properties map[string]string   `toml:"properties"`
}

// `LoadManifest` parses the TOML document at `path`.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &m, nil
}

// `Apply` registers every bean and alias in `m` onto `c`, resolving
// declared types through `types`. Beans are registered in a
// deterministic (name-sorted) order, though `Parent` references may name
// a bean registered later — `RegisterDefinition` does not require
// parents to precede children.
func Apply(c *ioc.Container, m *Manifest, types TypeRegistry) error {
	names := make([]string, 0, len(m.Beans))
	for name := range m.Beans {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := m.Beans[name]
		def, err := spec.toDefinition(types)
		if err != nil {
			return fmt.Errorf("config: bean %q: %w", name, err)
		}
		if err := c.RegisterDefinition(name, def); err != nil {
			return fmt.Errorf("config: bean %q: %w", name, err)
		}
		for _, a := range spec.Aliases {
			if err := c.RegisterAlias(name, a, false); err != nil {
				return fmt.Errorf("config: alias %q for bean %q: %w", a, name, err)
			}
		}
	}
	return nil
}

func (this BeanSpec) toDefinition(types TypeRegistry) (*ioc.BeanDefinition, error) {
	var def *ioc.BeanDefinition
	if this.Type != "" {
		t, ok := types[this.Type]
		if !ok {
			return nil, fmt.Errorf("unknown type %q (not present in the supplied TypeRegistry)", this.Type)
		}
		def = ioc.NewDefinition(t)
	} else {
		def = ioc.NewDefinition(nil)
	}

	def.FactoryBean = this.FactoryBean
	def.FactoryMethod = this.FactoryMethod
	def.LazyInit = this.LazyInit
	def.Primary = this.Primary
	def.InitMethod = this.InitMethod
	def.DestroyMethod = this.DestroyMethod
	def.Parent = this.Parent
	def.DependsOn = this.DependsOn
	def.Annotations = this.Annotations

	if this.AutowireCandidate != nil {
		def.AutowireCandidate = *this.AutowireCandidate
	}

	switch this.Scope {
	case "", "singleton":
		def.Scope = ioc.ScopeSingleton
	case "prototype":
		def.Scope = ioc.ScopePrototype
	default:
		def.Scope = ioc.Scope(this.Scope)
	}

	for _, arg := range this.ConstructorArgs {
		def.ConstructorArgs = append(def.ConstructorArgs, arg.toIOC())
	}

	if len(this.Properties) > 0 {
		propNames := make([]string, 0, len(this.Properties))
		for propName := range this.Properties {
			propNames = append(propNames, propName)
		}
		sort.Strings(propNames)
		for _, propName := range propNames {
			def.Properties = append(def.Properties, ioc.PropertyValue{
				Name:  propName,
				Value: this.Properties[propName].toIOC(),
			})
		}
	}

	return def, nil
}

// `PropertySource` returns a lookup function over `m.Properties`,
// suitable for `ioc.WithPropertySource`.
func (this *Manifest) PropertySource() func(key string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := this.Properties[key]
		return v, ok
	}
}

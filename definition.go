package ioc

import "github.com/AtsushiSuzuki/go-ioc/internal/beandef"

// Re-exported so callers describing definitions never need to import
// the internal package directly.
type (
	BeanDefinition = beandef.BeanDefinition
	ValueSpec      = beandef.ValueSpec
	PropertyValue  = beandef.PropertyValue
	Scope          = beandef.Scope
	Role           = beandef.Role
	ValueKind      = beandef.ValueKind
)

const (
	ScopeSingleton = beandef.ScopeSingleton
	ScopePrototype = beandef.ScopePrototype

	RoleApplication    = beandef.RoleApplication
	RoleInfrastructure = beandef.RoleInfrastructure

	KindLiteral   = beandef.KindLiteral
	KindReference = beandef.KindReference
	KindNested    = beandef.KindNested
)

// `NewDefinition` returns a definition producing instances of `t` (a
// `reflect.Type`), with singleton scope and autowiring enabled.
var NewDefinition = beandef.New

// `Literal`, `Ref`, and `Nested` build the three `ValueSpec` shapes a
// constructor argument or property value may take.
var (
	Literal = beandef.Literal
	Ref     = beandef.Ref
	Nested  = beandef.Nested
)

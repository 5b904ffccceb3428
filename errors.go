// Package ioc implements an inversion-of-control container: a runtime
// service that reads declarative bean definitions, manages the
// lifecycle of the singleton and prototype instances it creates from
// them, resolves references between them, and produces method-
// interception proxies so cross-cutting advice can be woven into
// selected instances transparently.
package ioc

import "github.com/AtsushiSuzuki/go-ioc/internal/ioerr"

// Sentinel errors, re-exported from the internal package that defines
// them so every internal subsystem can return them without importing
// this package (which would create an import cycle back through
// resolver.go).
var (
	ErrNoSuchBean                 = ioerr.ErrNoSuchBean
	ErrNoUniqueBean               = ioerr.ErrNoUniqueBean
	ErrCircularPrototype          = ioerr.ErrCircularPrototype
	ErrCircularCreation           = ioerr.ErrCircularCreation
	ErrInconsistentEarlyReference = ioerr.ErrInconsistentEarlyReference
	ErrAmbiguousConstructor       = ioerr.ErrAmbiguousConstructor
	ErrUnresolvableDependency     = ioerr.ErrUnresolvableDependency
	ErrConfigurationFrozen        = ioerr.ErrConfigurationFrozen
	ErrContainerClosed            = ioerr.ErrContainerClosed
	ErrNameConflict               = ioerr.ErrNameConflict
	ErrUnresolvedPlaceholder      = ioerr.ErrUnresolvedPlaceholder
	ErrCircularPlaceholder        = ioerr.ErrCircularPlaceholder
	ErrCircularAlias              = ioerr.ErrCircularAlias
	ErrUnknownAlias               = ioerr.ErrUnknownAlias
)

// `BeanCreationError` wraps any failure during instantiation, property
// population, or initialisation of a named bean.
type BeanCreationError = ioerr.BeanCreationError

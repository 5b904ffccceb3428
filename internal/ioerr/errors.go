// Package ioerr defines the sentinel error values and composite error
// types shared across the container's internal subsystems, kept in one
// leaf package so it can be imported by every other internal package
// (and the public facade) without import cycles.
package ioerr

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrNoSuchBean                 = fmt.Errorf("ioc: no such bean")
	ErrNoUniqueBean               = fmt.Errorf("ioc: no unique bean")
	ErrCircularPrototype          = fmt.Errorf("ioc: circular prototype creation")
	ErrCircularCreation           = fmt.Errorf("ioc: circular singleton creation")
	ErrInconsistentEarlyReference = fmt.Errorf("ioc: inconsistent early singleton reference")
	ErrAmbiguousConstructor       = fmt.Errorf("ioc: ambiguous constructor")
	ErrUnresolvableDependency     = fmt.Errorf("ioc: unresolvable dependency")
	ErrConfigurationFrozen        = fmt.Errorf("ioc: configuration is frozen")
	ErrContainerClosed            = fmt.Errorf("ioc: container is closed")
	ErrNameConflict               = fmt.Errorf("ioc: name conflict")
	ErrUnresolvedPlaceholder      = fmt.Errorf("ioc: unresolved placeholder")
	ErrCircularPlaceholder        = fmt.Errorf("ioc: circular placeholder reference")
	ErrCircularAlias              = fmt.Errorf("ioc: circular alias")
	ErrUnknownAlias               = fmt.Errorf("ioc: unknown alias")
)

// `BeanCreationError` wraps any failure during instantiation, property
// population, or initialisation of a named bean. `Suppressed` carries
// recoverable sub-failures observed along the way so the caller sees
// both the root cause and the noise around it.
type BeanCreationError struct {
	Name       string
	Cause      error
	Suppressed *multierror.Error
}

func NewBeanCreationError(name string, cause error) *BeanCreationError {
	return &BeanCreationError{Name: name, Cause: cause}
}

func (this *BeanCreationError) Error() string {
	if this.Suppressed != nil && len(this.Suppressed.Errors) > 0 {
		return fmt.Sprintf("ioc: failed to create bean %q: %v (suppressed: %v)", this.Name, this.Cause, this.Suppressed)
	}
	return fmt.Sprintf("ioc: failed to create bean %q: %v", this.Name, this.Cause)
}

func (this *BeanCreationError) Unwrap() error {
	return this.Cause
}

// `Suppress` records a recoverable sub-failure against the error without
// changing its primary cause.
func (this *BeanCreationError) Suppress(err error) {
	if err == nil {
		return
	}
	if this.Suppressed == nil {
		this.Suppressed = &multierror.Error{}
	}
	this.Suppressed = multierror.Append(this.Suppressed, err)
}

package aop

import "reflect"

// `Invocation` carries everything one proxied method call needs: the
// proxy itself, the resolved target, the method being called, its
// arguments, and the chain `proceed()` walks.
type Invocation struct {
	Proxy  interface{}
	Target interface{}
	Method reflect.Method
	Args   []reflect.Value

	chain []Interceptor
	index int
}

// `Proceed` invokes the next interceptor in the chain, or the target
// method itself once the chain is exhausted. An interceptor calls this
// zero times to short-circuit, once for normal delegation, or more than
// once to retry.
func (this *Invocation) Proceed() ([]reflect.Value, error) {
	if this.index == len(this.chain) {
		return invokeTarget(this.Target, this.Method, this.Args)
	}
	next := this.chain[this.index]
	this.index++
	defer func() { this.index-- }()
	return next.Invoke(this)
}

func invokeTarget(target interface{}, method reflect.Method, args []reflect.Value) (result []reflect.Value, err error) {
	fn := reflect.ValueOf(target).MethodByName(method.Name)
	out := fn.Call(args)
	if n := len(out); n > 0 {
		last := out[n-1]
		if last.Type().Implements(reflect.TypeOf((*error)(nil)).Elem()) {
			if e, ok := last.Interface().(error); ok && e != nil {
				err = e
			}
		}
	}
	return out, err
}

// `Interceptor` is the uniform dispatch shape every advice kind is
// converted into.
type Interceptor interface {
	Invoke(inv *Invocation) ([]reflect.Value, error)
}

// `InterceptorFunc` adapts a function to `Interceptor`.
type InterceptorFunc func(inv *Invocation) ([]reflect.Value, error)

func (f InterceptorFunc) Invoke(inv *Invocation) ([]reflect.Value, error) { return f(inv) }

// `BeforeAdvice` runs before the target call; it cannot suppress or
// replace the call, only observe arguments or fail fast.
type BeforeAdvice func(method reflect.Method, args []reflect.Value, target interface{}) error

// `AfterReturningAdvice` runs after a successful target call, observing
// the result without altering it.
type AfterReturningAdvice func(result []reflect.Value, method reflect.Method, args []reflect.Value, target interface{})

// `AfterThrowingAdvice` runs after a target call that returned an error.
type AfterThrowingAdvice func(err error, method reflect.Method, args []reflect.Value, target interface{})

// `AroundAdvice` wraps the call; it receives the invocation directly and
// is responsible for calling `inv.Proceed()`.
type AroundAdvice func(inv *Invocation) ([]reflect.Value, error)

// `Advice` is a tagged union of the four advice kinds; exactly one field
// should be non-nil.
type Advice struct {
	Before         BeforeAdvice
	AfterReturning AfterReturningAdvice
	AfterThrowing  AfterThrowingAdvice
	Around         AroundAdvice
}

// toInterceptor converts an advice value into the uniform Interceptor
// shape via table dispatch over which field is populated.
func (this Advice) toInterceptor() Interceptor {
	switch {
	case this.Around != nil:
		return InterceptorFunc(this.Around)
	case this.Before != nil:
		before := this.Before
		return InterceptorFunc(func(inv *Invocation) ([]reflect.Value, error) {
			if err := before(inv.Method, inv.Args, inv.Target); err != nil {
				return nil, err
			}
			return inv.Proceed()
		})
	case this.AfterReturning != nil:
		after := this.AfterReturning
		return InterceptorFunc(func(inv *Invocation) ([]reflect.Value, error) {
			result, err := inv.Proceed()
			if err == nil {
				after(result, inv.Method, inv.Args, inv.Target)
			}
			return result, err
		})
	case this.AfterThrowing != nil:
		onErr := this.AfterThrowing
		return InterceptorFunc(func(inv *Invocation) ([]reflect.Value, error) {
			result, err := inv.Proceed()
			if err != nil {
				onErr(err, inv.Method, inv.Args, inv.Target)
			}
			return result, err
		})
	default:
		return InterceptorFunc(func(inv *Invocation) ([]reflect.Value, error) {
			return inv.Proceed()
		})
	}
}

// `Advisor` pairs an optional pointcut with an advice. A nil `Pointcut`
// means the advice applies unconditionally (an "introduction"-less
// always-on advisor). `Order` breaks ties when advisors don't carry
// ordering metadata implicitly via registration order; lower runs
// first/outermost.
type Advisor struct {
	Pointcut *Pointcut
	Advice   Advice
	Order    int
}

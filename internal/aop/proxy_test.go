package aop

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type computer struct{}

func (computer) Compute() int { return 1 }

func multiplyAdvice(factor int64) Advice {
	return Advice{Around: func(inv *Invocation) ([]reflect.Value, error) {
		out, err := inv.Proceed()
		if err != nil {
			return out, err
		}
		out[0] = reflect.ValueOf(out[0].Int() * factor)
		return out, nil
	}}
}

func addAdvice(delta int64) Advice {
	return Advice{Around: func(inv *Invocation) ([]reflect.Value, error) {
		out, err := inv.Proceed()
		if err != nil {
			return out, err
		}
		out[0] = reflect.ValueOf(out[0].Int() + delta)
		return out, nil
	}}
}

// TestInterceptorOrdering reproduces spec §8 example 5: advisors
// [x2, +3] in outer-to-inner order over Compute()==1 yields (1+3)*2==8.
func TestInterceptorOrdering(t *testing.T) {
	target := computer{}
	chain := NewAdvisorChain()
	chain.SetAdvisors([]Advisor{
		{Advice: multiplyAdvice(2)},
		{Advice: addAdvice(3)},
	})

	config := &Config{
		TargetSource: NewSingletonTargetSource(target),
		Advisors:     chain,
	}
	proxy := CreateProxy(config)

	out, err := proxy.Invoke(context.Background(), "Compute", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8), out[0].Int())
}

func TestInvoke_NoAdvisors_CallsTargetDirectly(t *testing.T) {
	target := computer{}
	config := &Config{
		TargetSource: NewSingletonTargetSource(target),
		Advisors:     NewAdvisorChain(),
	}
	proxy := CreateProxy(config)

	out, err := proxy.Invoke(context.Background(), "Compute", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out[0].Int())
}

type recorder struct{ events *[]string }

func (this recorder) Greet() {
	*this.events = append(*this.events, "target")
}

func TestPointcut_ClassFilterSkipsNonMatchingType(t *testing.T) {
	events := &[]string{}
	target := recorder{events: events}

	chain := NewAdvisorChain()
	pc := NewPointcut()
	pc.ClassFilter = ClassFilterFunc(func(t reflect.Type) bool { return false })
	chain.SetAdvisors([]Advisor{
		{Pointcut: &pc, Advice: Advice{Before: func(reflect.Method, []reflect.Value, interface{}) error {
			*events = append(*events, "advice")
			return nil
		}}},
	})

	config := &Config{TargetSource: NewSingletonTargetSource(target), Advisors: chain}
	proxy := CreateProxy(config)
	_, err := proxy.Invoke(context.Background(), "Greet", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"target"}, *events)
}

func TestDynamicPointcut_EvaluatedPerCall(t *testing.T) {
	type adder struct{}
	target := struct{ adder }{}
	_ = target

	calls := 0
	chain := NewAdvisorChain()
	pc := Pointcut{
		ClassFilter: TrueClassFilter,
		MethodMatcher: DynamicMethodMatcher{
			ArgsFunc: func(m reflect.Method, t reflect.Type, args []reflect.Value) bool {
				return len(args) > 0 && args[0].Int() > 0
			},
		},
	}
	chain.SetAdvisors([]Advisor{
		{Pointcut: &pc, Advice: Advice{Before: func(reflect.Method, []reflect.Value, interface{}) error {
			calls++
			return nil
		}}},
	})

	type withArg struct{}
	_ = withArg{}

	method, _ := reflect.TypeOf(computer{}).MethodByName("Compute")
	interceptors := chain.InterceptorsFor(method, reflect.TypeOf(computer{}))
	require.Len(t, interceptors, 1)

	// The same cached interceptor runs the advice only for calls whose
	// arguments the matcher accepts; `stop` ends the chain before the target.
	stop := InterceptorFunc(func(*Invocation) ([]reflect.Value, error) { return nil, nil })
	for _, arg := range []int64{0, 5} {
		inv := &Invocation{Method: method, Args: []reflect.Value{reflect.ValueOf(arg)}, chain: []Interceptor{interceptors[0], stop}}
		_, err := inv.Proceed()
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestProxyEquality_SameConfig(t *testing.T) {
	ts := NewSingletonTargetSource(computer{})
	chain := NewAdvisorChain()
	c1 := &Config{TargetSource: ts, Advisors: chain}
	c2 := &Config{TargetSource: ts, Advisors: chain}

	p1 := CreateProxy(c1)
	p2 := CreateProxy(c2)
	assert.True(t, p1.Equal(p2))
}

func TestAddAdvisor_RejectedWhenFrozen(t *testing.T) {
	chain := NewAdvisorChain()
	config := &Config{TargetSource: NewSingletonTargetSource(computer{}), Advisors: chain, Frozen: true}
	proxy := CreateProxy(config)

	ok := proxy.AddAdvisor(Advisor{Advice: multiplyAdvice(2)})
	assert.False(t, ok)
}

func TestExposeProxy_PublishedDuringInvocationOnly(t *testing.T) {
	var sawProxy bool
	chain := NewAdvisorChain()
	config := &Config{TargetSource: NewSingletonTargetSource(computer{}), Advisors: chain, ExposeProxy: true}
	proxy := CreateProxy(config)

	chain.SetAdvisors([]Advisor{
		{Advice: Advice{Before: func(reflect.Method, []reflect.Value, interface{}) error {
			_, sawProxy = proxy.CurrentProxy(context.Background())
			return nil
		}}},
	})

	_, err := proxy.Invoke(context.Background(), "Compute", nil)
	require.NoError(t, err)
	assert.True(t, sawProxy)

	_, stillThere := proxy.CurrentProxy(context.Background())
	assert.False(t, stillThere)
}

package aop

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvisorChain_CachesPerMethodAndType(t *testing.T) {
	chain := NewAdvisorChain()
	chain.SetAdvisors([]Advisor{{Advice: Advice{Before: func(reflect.Method, []reflect.Value, interface{}) error { return nil }}}})

	method, _ := reflect.TypeOf(computer{}).MethodByName("Compute")
	first := chain.InterceptorsFor(method, reflect.TypeOf(computer{}))
	second := chain.InterceptorsFor(method, reflect.TypeOf(computer{}))

	assert.Equal(t, len(first), len(second))
	assert.Len(t, first, 1)
	assert.Same(t, &first[0], &second[0])
}

func TestAdvisorChain_InvalidatesCacheOnChange(t *testing.T) {
	chain := NewAdvisorChain()
	method, _ := reflect.TypeOf(computer{}).MethodByName("Compute")

	before := chain.InterceptorsFor(method, reflect.TypeOf(computer{}))
	assert.Len(t, before, 0)

	chain.Add(Advisor{Advice: Advice{Before: func(reflect.Method, []reflect.Value, interface{}) error { return nil }}})

	after := chain.InterceptorsFor(method, reflect.TypeOf(computer{}))
	assert.Len(t, after, 1)
}

func TestAdvisorChain_OrderFieldSorts(t *testing.T) {
	chain := NewAdvisorChain()
	chain.SetAdvisors([]Advisor{
		{Advice: Advice{Before: func(reflect.Method, []reflect.Value, interface{}) error { return nil }}, Order: 2},
		{Advice: Advice{Before: func(reflect.Method, []reflect.Value, interface{}) error { return nil }}, Order: 1},
	})

	advisors := chain.Advisors()
	assert.Equal(t, 1, advisors[0].Order)
	assert.Equal(t, 2, advisors[1].Order)
}

func TestAdvisorChain_RemoveAt(t *testing.T) {
	chain := NewAdvisorChain()
	chain.SetAdvisors([]Advisor{
		{Order: 0},
		{Order: 1},
	})
	assert.True(t, chain.RemoveAt(0))
	assert.Len(t, chain.Advisors(), 1)
	assert.False(t, chain.RemoveAt(5))
}

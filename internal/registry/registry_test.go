package registry

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtsushiSuzuki/go-ioc/internal/beandef"
)

type widget struct{}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	def := beandef.New(reflect.TypeOf(widget{}))
	require.NoError(t, r.Register("A", def))

	got, ok := r.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "A", got.Name())
}

func TestRegister_ReplacePolicyDefault(t *testing.T) {
	r := New()
	d1 := beandef.New(reflect.TypeOf(widget{}))
	d2 := beandef.New(reflect.TypeOf(widget{}))
	require.NoError(t, r.Register("A", d1))
	require.NoError(t, r.Register("A", d2))

	got, _ := r.Get("A")
	assert.Same(t, d2, got)
}

func TestRegister_InfrastructureRoleRejectsDuplicate(t *testing.T) {
	r := New()
	d1 := beandef.New(reflect.TypeOf(widget{}))
	d1.Role = beandef.RoleInfrastructure
	d2 := beandef.New(reflect.TypeOf(widget{}))
	require.NoError(t, r.Register("A", d1))

	err := r.Register("A", d2)
	assert.Error(t, err)
}

func TestFreeze_RejectsMutation(t *testing.T) {
	r := New()
	r.Freeze()
	err := r.Register("A", beandef.New(reflect.TypeOf(widget{})))
	assert.Error(t, err)
}

func TestMerged_Inherits(t *testing.T) {
	r := New()
	parent := beandef.New(reflect.TypeOf(widget{}))
	parent.InitMethod = "Init"
	parent.Properties = []beandef.PropertyValue{{Name: "x", Value: beandef.Literal(1)}}
	require.NoError(t, r.Register("base", parent))

	child := &beandef.BeanDefinition{Parent: "base", Scope: beandef.ScopeSingleton, AutowireCandidate: true}
	child.Properties = []beandef.PropertyValue{{Name: "y", Value: beandef.Literal(2)}}
	require.NoError(t, r.Register("child", child))

	merged, err := r.Merged("child")
	require.NoError(t, err)
	assert.Equal(t, "Init", merged.InitMethod)
	assert.Len(t, merged.Properties, 2)
}

func TestNamesByType(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("A", beandef.New(reflect.TypeOf(widget{}))))
	require.NoError(t, r.Register("B", beandef.New(reflect.TypeOf(0))))

	names := r.NamesByType(reflect.TypeOf(widget{}), true, false, nil)
	assert.Equal(t, []string{"A"}, names)
}

func TestNames_PreservesRegistrationOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("B", beandef.New(reflect.TypeOf(widget{}))))
	require.NoError(t, r.Register("A", beandef.New(reflect.TypeOf(widget{}))))

	assert.Equal(t, []string{"B", "A"}, r.Names())
}

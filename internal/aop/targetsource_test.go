package aop

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingletonTargetSource_AlwaysSameInstance(t *testing.T) {
	obj := &struct{}{}
	ts := NewSingletonTargetSource(obj)

	v1, _ := ts.GetTarget(context.Background())
	v2, _ := ts.GetTarget(context.Background())
	assert.Same(t, v1, v2)
	assert.True(t, ts.IsStatic())
}

func TestPrototypeTargetSource_NewEachTime(t *testing.T) {
	n := 0
	ts := NewPrototypeTargetSource(reflect.TypeOf(0), func() (interface{}, error) {
		n++
		return n, nil
	})

	v1, _ := ts.GetTarget(context.Background())
	v2, _ := ts.GetTarget(context.Background())
	assert.NotEqual(t, v1, v2)
	assert.False(t, ts.IsStatic())
}

func TestPerThreadTargetSource_ScopedByThreadKey(t *testing.T) {
	n := 0
	ts := NewPerThreadTargetSource(reflect.TypeOf(0), func() (interface{}, error) {
		n++
		return n, nil
	})

	ctxA := context.WithValue(context.Background(), ThreadKey, "A")
	ctxB := context.WithValue(context.Background(), ThreadKey, "B")

	a1, _ := ts.GetTarget(ctxA)
	a2, _ := ts.GetTarget(ctxA)
	b1, _ := ts.GetTarget(ctxB)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b1)
}

func TestPooledTargetSource_ChecksOutAndReturns(t *testing.T) {
	n := 0
	ts, err := NewPooledTargetSource(reflect.TypeOf(0), 1, 50*time.Millisecond, func() (interface{}, error) {
		n++
		return n, nil
	})
	require.NoError(t, err)

	v, err := ts.GetTarget(context.Background())
	require.NoError(t, err)

	_, err = ts.GetTarget(context.Background())
	assert.Error(t, err, "pool should be exhausted")

	require.NoError(t, ts.ReleaseTarget(context.Background(), v))
	_, err = ts.GetTarget(context.Background())
	assert.NoError(t, err)
}

func TestHotSwappableTargetSource_SwapIsAtomic(t *testing.T) {
	ts := NewHotSwappableTargetSource(reflect.TypeOf(""), "v1")
	v, _ := ts.GetTarget(context.Background())
	assert.Equal(t, "v1", v)

	old := ts.Swap("v2")
	assert.Equal(t, "v1", old)

	v, _ = ts.GetTarget(context.Background())
	assert.Equal(t, "v2", v)
}

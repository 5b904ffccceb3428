package singleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtsushiSuzuki/go-ioc/internal/ioerr"
)

func TestGetOrCreateSingleton_CachesInstance(t *testing.T) {
	s := New(nil)
	calls := 0
	producer := func() (interface{}, error) {
		calls++
		return &struct{}{}, nil
	}

	v1, err := s.GetOrCreateSingleton("A", "owner1", producer)
	require.NoError(t, err)
	v2, err := s.GetOrCreateSingleton("A", "owner2", producer)
	require.NoError(t, err)

	assert.Same(t, v1, v2)
	assert.Equal(t, 1, calls)
}

func TestGetOrCreateSingleton_SameOwnerReentrance_IsCircular(t *testing.T) {
	s := New(nil)
	var inner error
	producer := func() (interface{}, error) {
		_, inner = s.GetOrCreateSingleton("A", "owner1", func() (interface{}, error) {
			return nil, nil
		})
		return &struct{}{}, nil
	}

	_, err := s.GetOrCreateSingleton("A", "owner1", producer)
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ioerr.ErrCircularCreation)
}

func TestCircularReference_EarlyExposure(t *testing.T) {
	s := New(nil)

	type nodeA struct{ B interface{} }
	type nodeB struct{ A interface{} }

	a := &nodeA{}
	b := &nodeB{}

	var producerA, producerB Producer
	producerA = func() (interface{}, error) {
		s.AddEarlyFactory("A", func() (interface{}, error) { return a, nil })
		bVal, err := s.GetOrCreateSingleton("B", "mainGoroutine", producerB)
		if err != nil {
			return nil, err
		}
		a.B = bVal
		return a, nil
	}
	producerB = func() (interface{}, error) {
		s.AddEarlyFactory("B", func() (interface{}, error) { return b, nil })
		aVal, ok := s.GetSingleton("A")
		if !ok {
			return nil, assertFail()
		}
		b.A = aVal
		return b, nil
	}

	got, err := s.GetOrCreateSingleton("A", "mainGoroutine", producerA)
	require.NoError(t, err)
	gotA := got.(*nodeA)
	assert.Same(t, a, gotA)
	assert.Same(t, b, gotA.B)
	assert.Same(t, a, gotA.B.(*nodeB).A)
}

func assertFail() error { return ioerr.ErrCircularCreation }

func TestRegisterSingleton_Conflict(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.RegisterSingleton("A", 1))
	err := s.RegisterSingleton("A", 2)
	assert.ErrorIs(t, err, ioerr.ErrNameConflict)
}

func TestDestroyAll_OrderRespectsDependsOn(t *testing.T) {
	s := New(nil)
	var events []string

	_, _ = s.GetOrCreateSingleton("B", "m", func() (interface{}, error) { return "b", nil })
	_, _ = s.GetOrCreateSingleton("A", "m", func() (interface{}, error) { return "a", nil })
	s.RegisterDependency("A", "B") // A depends on B: B must outlive A's destruction start

	s.RegisterDisposable("A", func() { events = append(events, "A") })
	s.RegisterDisposable("B", func() { events = append(events, "B") })

	s.DestroyAll([]string{"B", "A"})

	assert.Equal(t, []string{"A", "B"}, events)
}

func TestDestroyAll_ContainmentOrdering(t *testing.T) {
	s := New(nil)
	var events []string

	_, _ = s.GetOrCreateSingleton("outer", "m", func() (interface{}, error) { return "o", nil })
	_, _ = s.GetOrCreateSingleton("inner", "m", func() (interface{}, error) { return "i", nil })
	s.RegisterContained("outer", "inner")

	s.RegisterDisposable("outer", func() { events = append(events, "outer") })
	s.RegisterDisposable("inner", func() { events = append(events, "inner") })

	s.DestroyAll([]string{"outer", "inner"})

	assert.Equal(t, []string{"outer", "inner"}, events)
}

func TestDestroyAll_NeverPanics(t *testing.T) {
	s := New(nil)
	_, _ = s.GetOrCreateSingleton("A", "m", func() (interface{}, error) { return "a", nil })
	s.RegisterDisposable("A", func() { panic("boom") })

	assert.NotPanics(t, func() {
		s.DestroyAll([]string{"A"})
	})
}

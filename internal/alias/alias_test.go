package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegister_SelfAlias_IsCircular(t *testing.T) {
	r := New()
	err := r.Register("A", "A", false)
	assert.ErrorIs(t, err, ErrCircularAlias)
}

func TestRegister_Conflict(t *testing.T) {
	r := New()
	assert.NoError(t, r.Register("A", "a1", false))
	err := r.Register("B", "a1", false)
	assert.ErrorIs(t, err, ErrNameConflict)
}

func TestRegister_ConflictAllowedWithOverride(t *testing.T) {
	r := New()
	assert.NoError(t, r.Register("A", "a1", false))
	assert.NoError(t, r.Register("B", "a1", true))

	name, err := r.CanonicalName("a1")
	assert.NoError(t, err)
	assert.Equal(t, "B", name)
}

func TestRegister_SameMappingIsIdempotent(t *testing.T) {
	r := New()
	assert.NoError(t, r.Register("A", "a1", false))
	assert.NoError(t, r.Register("A", "a1", false))
}

func TestRegister_Circular_ThroughChain(t *testing.T) {
	r := New()
	assert.NoError(t, r.Register("A", "B", false))
	// B -> A already. Registering A -> B would close the cycle.
	err := r.Register("B", "A", false)
	assert.ErrorIs(t, err, ErrCircularAlias)
}

func TestCanonicalName_ChainsThrough(t *testing.T) {
	r := New()
	assert.NoError(t, r.Register("A", "b", false))
	assert.NoError(t, r.Register("b", "c", false))

	name, err := r.CanonicalName("c")
	assert.NoError(t, err)
	assert.Equal(t, "A", name)
}

func TestCanonicalName_NotAnAlias_ReturnsInput(t *testing.T) {
	r := New()
	name, err := r.CanonicalName("A")
	assert.NoError(t, err)
	assert.Equal(t, "A", name)
}

func TestRemove_Unknown(t *testing.T) {
	r := New()
	err := r.Remove("nope")
	assert.ErrorIs(t, err, ErrUnknownAlias)
}

func TestIsAlias(t *testing.T) {
	r := New()
	assert.NoError(t, r.Register("A", "a1", false))
	assert.True(t, r.IsAlias("a1"))
	assert.False(t, r.IsAlias("A"))
}

func TestAliases_TransitiveSet(t *testing.T) {
	r := New()
	assert.NoError(t, r.Register("A", "b", false))
	assert.NoError(t, r.Register("b", "c", false))
	assert.NoError(t, r.Register("A", "d", false))

	all := r.Aliases("A")
	assert.ElementsMatch(t, []string{"b", "c", "d"}, all)
}

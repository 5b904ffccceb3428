package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AtsushiSuzuki/go-ioc/internal/ioerr"
)

func lookupFrom(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestExpand_Simple(t *testing.T) {
	e := Default()
	out, err := e.Expand("${greeting}", lookupFrom(map[string]string{"greeting": "hello"}))
	assert.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestExpand_NestedWithDefault_Resolved(t *testing.T) {
	e := Default()
	lookup := lookupFrom(map[string]string{
		"region": "eu",
		"url.eu": "https://eu.example",
	})
	out, err := e.Expand("${url.${region}:unknown}", lookup)
	assert.NoError(t, err)
	assert.Equal(t, "https://eu.example", out)
}

func TestExpand_NestedWithDefault_FallsBackToDefault(t *testing.T) {
	e := Default()
	lookup := lookupFrom(map[string]string{
		"url.eu": "https://eu.example",
	})
	out, err := e.Expand("${url.${region}:unknown}", lookup)
	assert.NoError(t, err)
	assert.Equal(t, "unknown", out)
}

func TestExpand_DeepNestingDefault(t *testing.T) {
	e := Default()
	lookup := lookupFrom(map[string]string{
		"env.DB_URL": "",
	})
	lookup = func(key string) (string, bool) {
		if key == "env.DB_URL" {
			return "", true
		}
		return "", false
	}
	out, err := e.Expand("${jdbc.url:${env.DB_URL:postgres://localhost}}", lookup)
	assert.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestExpand_Unresolved_Fails(t *testing.T) {
	e := Default()
	_, err := e.Expand("${missing}", lookupFrom(nil))
	assert.ErrorIs(t, err, ioerr.ErrUnresolvedPlaceholder)
}

func TestExpand_Unresolved_IgnoredWhenConfigured(t *testing.T) {
	e := Default()
	e.IgnoreUnresolved = true
	out, err := e.Expand("${missing}", lookupFrom(nil))
	assert.NoError(t, err)
	assert.Equal(t, "${missing}", out)
}

func TestExpand_Circular_Fails(t *testing.T) {
	e := Default()
	lookup := lookupFrom(map[string]string{
		"a": "${b}",
		"b": "${a}",
	})
	_, err := e.Expand("${a}", lookup)
	assert.ErrorIs(t, err, ioerr.ErrCircularPlaceholder)
}

func TestExpand_RoundTrip_Idempotent(t *testing.T) {
	e := Default()
	lookup := lookupFrom(map[string]string{"region": "eu"})
	s := "prefix-${region}-suffix"

	once, err := e.Expand(s, lookup)
	assert.NoError(t, err)
	twice, err := e.Expand(once, lookup)
	assert.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestExpand_NoPlaceholders_ReturnsUnchanged(t *testing.T) {
	e := Default()
	out, err := e.Expand("plain string", lookupFrom(nil))
	assert.NoError(t, err)
	assert.Equal(t, "plain string", out)
}

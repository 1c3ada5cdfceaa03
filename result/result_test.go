package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gooofy/quadstore/compiler"
	"github.com/gooofy/quadstore/term"
)

func TestToNullableString(t *testing.T) {
	assert.Nil(t, toNullableString(nil))
	s := toNullableString("foo")
	require.NotNil(t, s)
	assert.Equal(t, "foo", *s)
	b := toNullableString([]byte("bar"))
	require.NotNil(t, b)
	assert.Equal(t, "bar", *b)
}

func TestResultVarsEchoCompiledVars(t *testing.T) {
	c := compiler.Compiled{}
	c.Vars.Vars = []string{"s", "o"}
	r := Result{Vars: append([]string(nil), c.Vars.Vars...)}
	assert.Equal(t, []string{"s", "o"}, r.Vars)
}

func TestBindingAbsentMeansUnbound(t *testing.T) {
	r := Result{Vars: []string{"s", "o"}, Bindings: []map[string]term.Term{
		{"s": term.IRI("http://ex/a")},
	}}
	_, ok := r.Bindings[0]["o"]
	assert.False(t, ok)
}

package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVarSetAddIsIdempotent(t *testing.T) {
	v := newVarSet()
	v.add("s")
	v.add("p")
	v.add("s")
	assert.Equal(t, []string{"s", "p"}, v.Vars)
}

func TestVarSetHas(t *testing.T) {
	v := newVarSet()
	v.add("name")
	assert.True(t, v.has("name"))
	assert.False(t, v.has("missing"))
}

func TestVarSetCloneIsIndependent(t *testing.T) {
	v := newVarSet()
	v.add("name")
	v.Lang["name"] = true

	clone := v.clone()
	clone.add("email")
	clone.Lang["email"] = true

	assert.Equal(t, []string{"name"}, v.Vars)
	assert.False(t, v.Lang["email"])
	assert.Equal(t, []string{"name", "email"}, clone.Vars)
	assert.True(t, clone.Lang["email"])
}

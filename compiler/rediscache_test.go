package compiler

import (
	"os"
	"testing"
	"time"

	"github.com/orlangure/gnomock"
	"github.com/orlangure/gnomock/preset/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gooofy/quadstore/sparql"
)

// TestRedisCacheRoundTrip exercises RedisCache.Set/Get against a real Redis
// instance brought up via gnomock, the same gating convention store_test.go
// uses for its Postgres integration test.
func TestRedisCacheRoundTrip(t *testing.T) {
	if os.Getenv("QUADSTORE_DOCKER_TESTS") == "" {
		t.Skip("set QUADSTORE_DOCKER_TESTS=1 to run gnomock-backed redis cache integration tests")
	}

	c, err := gnomock.Start(redis.Preset())
	require.NoError(t, err)
	t.Cleanup(func() { _ = gnomock.Stop(c) })

	cache := NewRedisCache(c.DefaultAddress(), time.Minute)
	t.Cleanup(func() { _ = cache.Close() })

	n := selectQuery([]string{"name"}, &sparql.Node{Op: sparql.OpBGP, Triples: []sparql.Triple{
		{S: termVar("s"), P: termIRI("http://ex/name"), O: termVar("name")},
	}})

	_, ok, err := cache.Get(n)
	require.NoError(t, err)
	assert.False(t, ok)

	want := Compiled{SQL: "SELECT 1", Args: []interface{}{"a"}, Vars: newVarSet()}
	require.NoError(t, cache.Set(n, want))

	got, ok, err := cache.Get(n)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.SQL, got.SQL)
	assert.Equal(t, want.Args, got.Args)
}

package compiler

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/gooofy/quadstore/sparql"
)

// Cache memoizes Compile results keyed by the algebra tree that produced
// them, the same role core/cache.go's Cache plays for GraphJin's compiled
// queries — except the key here is a structural hash of the sparql.Node
// tree (mitchellh/hashstructure) rather than the raw query text, since two
// differently-worded SPARQL strings can compile to the identical plan.
type Cache struct {
	cache *lru.TwoQueueCache
}

// NewCache returns an in-process compiled-query cache holding up to size
// entries.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New2Q(size)
	if err != nil {
		return nil, err
	}
	return &Cache{cache: c}, nil
}

func hashKey(n *sparql.Node) (uint64, error) {
	return hashstructure.Hash(n, hashstructure.FormatV2, nil)
}

// Get returns a previously compiled statement for an algebra tree
// structurally identical to n, if present.
func (c *Cache) Get(n *sparql.Node) (Compiled, bool, error) {
	key, err := hashKey(n)
	if err != nil {
		return Compiled{}, false, fmt.Errorf("compiler: hashing algebra tree: %w", err)
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return Compiled{}, false, nil
	}
	return v.(Compiled), true, nil
}

// Set stores a compiled statement under n's structural hash.
func (c *Cache) Set(n *sparql.Node, compiled Compiled) error {
	key, err := hashKey(n)
	if err != nil {
		return fmt.Errorf("compiler: hashing algebra tree: %w", err)
	}
	c.cache.Add(key, compiled)
	return nil
}

// CompileCached compiles n, serving a cached result when the algebra tree
// has been seen before.
func (c *Compiler) CompileCached(cache *Cache, n *sparql.Node) (Compiled, error) {
	if cache != nil {
		if hit, ok, err := cache.Get(n); err != nil {
			return Compiled{}, err
		} else if ok {
			return hit, nil
		}
	}
	compiled, err := c.Compile(n)
	if err != nil {
		return Compiled{}, err
	}
	if cache != nil {
		if err := cache.Set(n, compiled); err != nil {
			return Compiled{}, err
		}
	}
	return compiled, nil
}

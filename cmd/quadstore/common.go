package main

import (
	"context"

	"github.com/gooofy/quadstore/config"
	"github.com/gooofy/quadstore/internal/shortcut"
	"github.com/gooofy/quadstore/store"
)

func newResolver(c *config.Config) *shortcut.Resolver {
	return shortcut.New(c.Aliases, c.Prefixes)
}

func openStore(ctx context.Context, c *config.Config) (*store.Store, error) {
	return store.Open(ctx, c.Database.ConnString, c.Database.Table, store.WithResolver(newResolver(c)))
}

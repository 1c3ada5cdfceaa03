package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gooofy/quadstore/serv"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP surface (query, mirror and health endpoints)",
		Run: func(cmd *cobra.Command, args []string) {
			c := setup()

			ctx := context.Background()
			s, err := serv.New(ctx, c, log)
			if err != nil {
				log.Fatalf("starting server: %s", err)
			}

			if err := s.Start(); err != nil {
				log.Fatalf("serving: %s", err)
			}
		},
	}
}

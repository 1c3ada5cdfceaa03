package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gooofy/quadstore/compiler"
	"github.com/gooofy/quadstore/internal/dialect"
	"github.com/gooofy/quadstore/result"
	"github.com/gooofy/quadstore/sparql/parser"
)

func queryCmd() *cobra.Command {
	var queryFile string

	cmd := &cobra.Command{
		Use:   "query [sparql]",
		Short: "Compile and run a SELECT query against the quad store",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c := setup()

			q, err := readQuery(args, queryFile)
			if err != nil {
				log.Fatalf("reading query: %s", err)
			}

			algebra, err := parser.Parse(q)
			if err != nil {
				log.Fatalf("parsing query: %s", err)
			}

			d, err := dialect.ForName(c.Database.Type)
			if err != nil {
				log.Fatalf("resolving dialect: %s", err)
			}

			comp := compiler.New(d, c.Database.Table)
			compiled, err := comp.Compile(algebra)
			if err != nil {
				log.Fatalf("compiling query: %s", err)
			}

			ctx := context.Background()
			st, err := openStore(ctx, c)
			if err != nil {
				log.Fatalf("opening store: %s", err)
			}
			defer st.Close()

			rows, err := st.DB().QueryContext(ctx, compiled.SQL, compiled.Args...)
			if err != nil {
				log.Fatalf("running query: %s", err)
			}

			res, err := result.FromRows(rows, compiled)
			if err != nil {
				log.Fatalf("materializing result: %s", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				log.Fatalf("encoding result: %s", err)
			}
		},
	}

	cmd.Flags().StringVarP(&queryFile, "file", "f", "", "read the SPARQL query from this file instead of the argument")
	return cmd
}

func readQuery(args []string, queryFile string) (string, error) {
	if queryFile != "" {
		b, err := os.ReadFile(queryFile)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return "", fmt.Errorf("no query given: pass one as an argument or with --file")
}

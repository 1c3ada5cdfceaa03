package main

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gosimple/slug"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gooofy/quadstore/store"
	"github.com/gooofy/quadstore/term"
)

var demoTitleCaser = cases.Title(language.English)
var demoLang = language.English.String()

const (
	demoNS          = "http://quadstore.example/demo/"
	demoNameProp    = demoNS + "name"
	demoEmailProp   = demoNS + "email"
	demoCompanyProp = demoNS + "company"
	demoKnowsProp   = demoNS + "knows"
)

// demoCmd seeds the configured store with throwaway generated data, giving a
// quickstart dataset to run example queries against. Mirrors cmd_demo.go's
// fake-data seeding idiom, scoped down to this store's quad shape (no
// container orchestration: point --config at a running Postgres/MySQL).
func demoCmd() *cobra.Command {
	var n int
	var graphContext string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Seed the configured store with generated demo data",
		Run: func(cmd *cobra.Command, args []string) {
			c := setup()

			ctx := context.Background()
			st, err := openStore(ctx, c)
			if err != nil {
				log.Fatalf("opening store: %s", err)
			}
			defer st.Close()

			quads := generateDemoQuads(n, graphContext)
			if err := st.AddN(ctx, quads); err != nil {
				log.Fatalf("seeding demo data: %s", err)
			}

			log.Infof("seeded %d demo quads into graph %s", len(quads), graphContext)
		},
	}

	cmd.Flags().IntVar(&n, "count", 25, "number of demo people to generate")
	cmd.Flags().StringVar(&graphContext, "context", "http://quadstore.example/demo/graph", "named graph to seed")
	return cmd
}

func generateDemoQuads(n int, graphContext string) []store.Quad {
	var quads []store.Quad

	people := make([]string, n)
	for i := 0; i < n; i++ {
		name := gofakeit.Name()
		subject := demoNS + "person/" + slug.Make(fmt.Sprintf("%s-%d", name, i))
		people[i] = subject

		company := demoTitleCaser.String(gofakeit.Company())

		quads = append(quads,
			store.Quad{Subject: subject, Predicate: demoNameProp, Object: term.Literal{Lexical: name, Lang: demoLang}, Context: graphContext},
			store.Quad{Subject: subject, Predicate: demoEmailProp, Object: term.Literal{Lexical: gofakeit.Email()}, Context: graphContext},
			store.Quad{Subject: subject, Predicate: demoCompanyProp, Object: term.Literal{Lexical: company, Lang: demoLang}, Context: graphContext},
		)
	}

	for i, subject := range people {
		knows := people[gofakeit.Number(0, len(people)-1)]
		if knows == subject && len(people) > 1 {
			knows = people[(i+1)%len(people)]
		}
		quads = append(quads, store.Quad{Subject: subject, Predicate: demoKnowsProp, Object: term.IRI(knows), Context: graphContext})
	}

	return quads
}

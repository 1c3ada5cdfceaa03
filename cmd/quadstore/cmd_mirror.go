package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gooofy/quadstore/mirror"
)

// pathSpec is the on-disk YAML shape for a mirror --paths file: one entry
// per ResourcePath, mirroring ldfmirror.py's res_paths tuples. Transform
// steps can't be expressed in YAML (they're Go functions), so --paths files
// only ever describe bare-predicate and wildcard steps; transform steps are
// a mirror.New API-only capability.
type pathSpec struct {
	Start []seedSpec `yaml:"start"`
	Steps []struct {
		Predicate string `yaml:"predicate"`
		Wildcard  bool   `yaml:"wildcard"`
	} `yaml:"steps"`
}

// seedSpec accepts either a bare resource string ("start: [wd:Q42]") or a
// (predicate, object) pattern mapping ("start: [{predicate: ..., object:
// ...}]"), mirroring the two seed forms mirror.Seed supports.
type seedSpec struct {
	Resource  string
	Predicate string
	Object    string
}

func (s *seedSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&s.Resource)
	}
	var pattern struct {
		Predicate string `yaml:"predicate"`
		Object    string `yaml:"object"`
	}
	if err := value.Decode(&pattern); err != nil {
		return err
	}
	s.Predicate = pattern.Predicate
	s.Object = pattern.Object
	return nil
}

func mirrorCmd() *cobra.Command {
	var pathsFile string
	var graphContext string

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Mirror resources from configured LDF endpoints into the quad store",
		Run: func(cmd *cobra.Command, args []string) {
			c := setup()

			specs, err := readPathSpecs(pathsFile)
			if err != nil {
				log.Fatalf("reading --paths: %s", err)
			}

			ctx := context.Background()
			st, err := openStore(ctx, c)
			if err != nil {
				log.Fatalf("opening store: %s", err)
			}
			defer st.Close()

			m, err := mirror.New(st, newResolver(c), c.Endpoints, log)
			if err != nil {
				log.Fatalf("creating mirror: %s", err)
			}

			paths := toResourcePaths(specs)
			if err := m.Mirror(ctx, paths, graphContext); err != nil {
				log.Fatalf("mirroring: %s", err)
			}
		},
	}

	cmd.Flags().StringVar(&pathsFile, "paths", "", "YAML file describing resource paths to mirror")
	cmd.Flags().StringVar(&graphContext, "context", "http://example.com", "named graph to mirror into")
	cmd.MarkFlagRequired("paths") //nolint:errcheck
	return cmd
}

func readPathSpecs(path string) ([]pathSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var specs []pathSpec
	if err := yaml.Unmarshal(b, &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

func toResourcePaths(specs []pathSpec) []mirror.ResourcePath {
	out := make([]mirror.ResourcePath, len(specs))
	for i, s := range specs {
		seeds := make([]mirror.Seed, len(s.Start))
		for j, sd := range s.Start {
			seeds[j] = mirror.Seed{Resource: sd.Resource, Predicate: sd.Predicate, Object: sd.Object}
		}
		steps := make([]mirror.PathStep, len(s.Steps))
		for j, st := range s.Steps {
			steps[j] = mirror.PathStep{Predicate: st.Predicate, Wildcard: st.Wildcard}
		}
		out[i] = mirror.ResourcePath{Start: seeds, Steps: steps}
	}
	return out
}

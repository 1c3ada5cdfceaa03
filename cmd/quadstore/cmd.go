package main

import (
	"os"
	"path/filepath"

	"github.com/kardianos/osext"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gooofy/quadstore/config"
	"github.com/gooofy/quadstore/internal/logging"
)

var (
	// version/commit/date are set using -ldflags, matching cmd/cmd.go's
	// build-info variables.
	version string
	commit  string
	date    string
)

var (
	log      *zap.SugaredLogger
	conf     *config.Config
	cfgPath  string
	logJSON  bool
)

// Cmd is the entry point for the CLI.
func Cmd() {
	log = logging.New(false)

	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:   "quadstore",
		Short: buildDetails(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = logging.New(logJSON)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to config file")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit JSON logs instead of console output")

	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(mirrorCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%s", err)
	}
}

// defaultConfigPath looks for quadstore.yaml next to the working directory
// first, falling back to the directory the binary itself lives in (the way
// an installed CLI finds its config alongside the executable rather than
// wherever the shell happened to start it from).
func defaultConfigPath() string {
	const name = "quadstore.yaml"
	if _, err := os.Stat(name); err == nil {
		return "./" + name
	}
	if dir, err := osext.ExecutableFolder(); err == nil {
		return filepath.Join(dir, name)
	}
	return "./" + name
}

func buildDetails() string {
	if version == "" {
		return "quadstore (development build)"
	}
	return "quadstore " + version + " (" + commit + ", " + date + ")"
}

func setup() *config.Config {
	if conf != nil {
		return conf
	}
	c, err := config.Load(cfgPath, nil)
	if err != nil {
		log.Fatalf("loading config %s: %s", cfgPath, err)
	}
	conf = c
	return conf
}

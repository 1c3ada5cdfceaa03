// Command quadstore is the CLI entry point: query/mirror/serve/demo/version
// subcommands over a single quad store, grounded on cmd/cmd.go's Cmd()
// root-command wiring (persistent --config flag, cobra.EnableCommandSorting
// disabled, one zap logger shared across subcommands).
package main

func main() {
	Cmd()
}

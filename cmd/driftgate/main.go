// driftgate is the serving CLI: serve (HTTP prediction service), load
// (bulk-load features into the store), status (store health), mcp
// (prediction tools over stdio).
//
// Usage:
//
//	driftgate serve [--config=<path>] [--memory]
//	driftgate load --file=<features.json> [--config=<path>] [--chunk=<n>] [--workers=<n>]
//	driftgate status [--config=<path>]
//	driftgate mcp [--config=<path>] [--memory]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "driftgate",
	Short: "Drift-gated prediction serving over an online feature store",
	Long: "Driftgate serves binary predictions from a trained model, resolving\nfeature vectors from a Redis feature store and flagging requests whose\ninput has statistically diverged from the training distribution.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

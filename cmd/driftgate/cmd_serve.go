package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"driftgate/internal/logging"
	"driftgate/internal/serving"
)

var serveFlags struct {
	config string
	memory bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP prediction service",
	Long: `Starts the prediction service: POST /v1/predict scores one entity,
GET /metrics exposes the serving counters, GET /healthz probes the store.

Feature vectors come either inline with the request or from the feature
store by entity id. Every request is checked for input drift against the
training-time reference sample; a drifting request is still served, flagged
in the response and counted in the drift metric.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.config, "config", "", "path to config YAML (defaults apply when omitted)")
	serveCmd.Flags().BoolVar(&serveFlags.memory, "memory", false, "use an in-process feature store instead of Redis")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(serveFlags.config, serveFlags.memory)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := serving.NewServer(a.pipeline, a.registry, a.store, a.cfg.Request.Timeout.Std(), logging.New("http"))
	return srv.Run(ctx, a.cfg.Listen)
}

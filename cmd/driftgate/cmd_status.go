package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusFlags struct {
	config string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe the feature store and report stored entities",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFlags.config, "config", "", "path to config YAML")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(statusFlags.config, false)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable at %s: %w", a.cfg.Redis.Addr, err)
	}
	ids, err := a.store.EntityIDs(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("store:    ok (%s)\n", a.cfg.Redis.Addr)
	fmt.Printf("entities: %d\n", len(ids))
	if a.detector != nil {
		fmt.Printf("drift:    monitoring %d features (alpha=%g)\n",
			len(a.detector.Features()), a.detector.Alpha())
	}
	return nil
}

package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/denser-ai/toolfleet/config"
	"github.com/denser-ai/toolfleet/logger"
	"github.com/denser-ai/toolfleet/supervisor"
)

// NewUpCmd creates the "up" subcommand, which brings up the whole fleet and
// supervises it until interrupted.
func NewUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Launch and supervise the tool server fleet",
		RunE:  runUp,
	}
	cmd.Flags().String("manifest", "", "Path to a YAML fleet manifest")
	return cmd
}

func runUp(cmd *cobra.Command, _ []string) error {
	manifest, err := loadManifest(cmd)
	if err != nil {
		return exitError(1, "%v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup := supervisor.New(manifest)
	report := sup.Start(ctx)
	defer sup.Shutdown()

	for _, name := range report.Healthy {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is healthy\n", name)
	}
	for _, name := range report.Unhealthy {
		fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s failed to start\n", name)
	}

	if !report.AllHealthy() {
		if len(report.Healthy) == 0 {
			return exitError(1, "no server became healthy")
		}
		logger.Warn("Fleet is degraded, continuing with healthy servers",
			"healthy", len(report.Healthy), "unhealthy", len(report.Unhealthy))
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Fleet is up. Press Ctrl-C to stop.")
	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "Shutting down fleet...")

	if !report.AllHealthy() {
		return exitError(1, "%d server(s) never became healthy", len(report.Unhealthy))
	}
	return nil
}

// loadManifest reads the --manifest flag, falling back to the built-in
// default fleet.
func loadManifest(cmd *cobra.Command) (*config.Manifest, error) {
	path, _ := cmd.Flags().GetString("manifest")
	if path == "" {
		return config.DefaultManifest(), nil
	}
	return config.LoadManifest(path)
}

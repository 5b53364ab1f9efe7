// Package cli implements the toolfleet subcommands.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/denser-ai/toolfleet/config"
	"github.com/denser-ai/toolfleet/logger"
	"github.com/denser-ai/toolfleet/server"
	"github.com/denser-ai/toolfleet/tools"
	"github.com/denser-ai/toolfleet/tools/database"
	"github.com/denser-ai/toolfleet/tools/meeting"
	"github.com/denser-ai/toolfleet/tools/weather"
)

// NewServeCmd creates the "serve" subcommand, which runs a single tool
// server in the foreground.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "serve <weather|meeting|database>",
		Short:     "Run one tool server in the foreground",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"weather", "meeting", "database"},
		RunE:      runServe,
	}
	cmd.Flags().String("config", "", "Path to a JSON server config file")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	identity := args[0]
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(identity, configPath)
	if err != nil {
		return exitError(1, "load config: %v", err)
	}

	level := logger.GetLevelFromString(cfg.Logging.Level)
	if err := logger.Init(level, logger.Format(cfg.Logging.Format), cfg.Logging.Path); err != nil {
		return exitError(1, "init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	toolset, cleanup, err := buildTools(ctx, identity)
	if err != nil {
		return exitError(1, "build %s tools: %v", identity, err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	srv := server.New(cfg)
	if err := srv.RegisterAll(toolset); err != nil {
		return exitError(1, "register tools: %v", err)
	}

	logger.Info("Tool server starting", "identity", identity, "addr", cfg.Addr())
	if err := srv.Start(ctx); err != nil {
		return exitError(1, "server stopped: %v", err)
	}
	return nil
}

// buildTools constructs the tool family for the given server identity.
func buildTools(ctx context.Context, identity string) ([]tools.Tool, func(), error) {
	switch identity {
	case "weather":
		cfg, err := weather.ConfigFromEnv()
		if err != nil {
			return nil, nil, err
		}
		return weather.All(cfg), nil, nil
	case "meeting":
		cfg, err := meeting.ConfigFromEnv()
		if err != nil {
			return nil, nil, err
		}
		return meeting.All(cfg), nil, nil
	case "database":
		cfg, err := database.ConfigFromEnv()
		if err != nil {
			return nil, nil, err
		}
		store, err := database.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Seed(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return database.All(store), func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown server identity %q", identity)
	}
}

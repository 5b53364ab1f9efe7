package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/denser-ai/toolfleet/config"
	"github.com/denser-ai/toolfleet/logger"
	"github.com/denser-ai/toolfleet/orchestrator"
	"github.com/denser-ai/toolfleet/telemetry"
)

// agent is the surface chat needs; satisfied by both the plain and the
// instrumented orchestrator.
type agent interface {
	Discover(ctx context.Context) error
	Handle(ctx context.Context, intent string) string
	Stats() orchestrator.Stats
}

// NewChatCmd creates the "chat" subcommand, the interactive client for a
// running fleet.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [intent]",
		Short: "Talk to the fleet, one intent per line",
		Long: "Chat discovers the tools offered by the running fleet and answers " +
			"intents by calling them. With an argument it answers once and exits; " +
			"without one it reads intents from stdin.",
		RunE: runChat,
	}
	cmd.Flags().String("manifest", "", "Path to a YAML fleet manifest")
	cmd.Flags().Bool("otel", false, "Export traces and metrics over OTLP")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	manifest, err := loadManifest(cmd)
	if err != nil {
		return exitError(1, "%v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var a agent
	o := orchestrator.New(manifest)
	a = o

	if enabled, _ := cmd.Flags().GetBool("otel"); enabled {
		_, _, shutdown, err := telemetry.Init(ctx)
		if err != nil {
			return exitError(1, "init telemetry: %v", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("Telemetry shutdown failed", "error", err)
			}
		}()
		a = orchestrator.NewInstrumented(o,
			otel.Tracer(telemetry.TracerName), otel.Meter(telemetry.TracerName))
	}

	if err := a.Discover(ctx); err != nil {
		return exitError(1, "discover tools: %v", err)
	}
	printStats(cmd, a.Stats())

	// A manifest edit rebuilds the client set and re-runs discovery so new
	// or re-addressed servers show up mid-session.
	if path, _ := cmd.Flags().GetString("manifest"); path != "" {
		go func() {
			err := config.Watch(ctx, path, func() {
				reloaded, err := config.LoadManifest(path)
				if err != nil {
					logger.Warn("Ignoring invalid manifest edit", "error", err)
					return
				}
				o.Reconfigure(reloaded)
				if err := a.Discover(ctx); err != nil {
					logger.Warn("Rediscovery after manifest change failed", "error", err)
					return
				}
				logger.Info("Manifest changed, tool index rebuilt")
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn("Manifest watch stopped", "error", err)
			}
		}()
	}

	if len(args) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), a.Handle(ctx, strings.Join(args, " ")))
		return nil
	}
	return repl(ctx, cmd, a)
}

func repl(ctx context.Context, cmd *cobra.Command, a agent) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, `Type an intent, or "exit" to quit.`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "tools":
			printStats(cmd, a.Stats())
			continue
		}
		fmt.Fprintln(out, a.Handle(ctx, line))
	}
}

func printStats(cmd *cobra.Command, stats orchestrator.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connected to %d server(s), %d tool(s) available:\n", stats.Servers, stats.Tools)
	for server, tools := range stats.ToolsByServer {
		fmt.Fprintf(out, "  %s: %s\n", server, strings.Join(tools, ", "))
	}
}

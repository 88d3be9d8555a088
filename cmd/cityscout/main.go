// Command cityscout runs the MCP tool server and a small client for
// inspecting it.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tidefall/cityscout/cache"
	"github.com/tidefall/cityscout/events"
	"github.com/tidefall/cityscout/mcp"
	"github.com/tidefall/cityscout/server"
	"github.com/tidefall/cityscout/tools"
	"github.com/tidefall/cityscout/weather"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cityscout",
		Short:        "MCP server exposing weather and events tools",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), stdioCmd(), toolsCmd(), callCmd())
	return root
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP front ends (REST, JSON-RPC, WebSocket sessions)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := server.LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger()

			dispatcher, err := buildDispatcher(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			prefetcher := server.NewPrefetcher(cfg.Prefetch, dispatcher, logger)
			if err := prefetcher.Start(); err != nil {
				return err
			}
			defer prefetcher.Stop()

			return server.New(cfg, dispatcher, logger).Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}

func stdioCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Serve one MCP session over stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := server.LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger()

			dispatcher, err := buildDispatcher(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			info := mcp.ServerInfo{Name: cfg.Name, Version: cfg.Version}
			handler := mcp.NewHandler(info, dispatcher, logger)
			session := mcp.NewSession(mcp.NewStdioChannel(), handler, logger)
			return session.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}

// buildDispatcher assembles the registry and dispatcher from configuration.
// Registration order is part of the discovery contract: weather first,
// events second.
func buildDispatcher(cfg server.Config, logger *slog.Logger) (*mcp.Dispatcher, error) {
	store := cache.New()

	var weatherOpts []weather.ClientOption
	if cfg.Weather.GeocodingURL != "" && cfg.Weather.ForecastURL != "" {
		weatherOpts = append(weatherOpts, weather.WithBaseURLs(cfg.Weather.GeocodingURL, cfg.Weather.ForecastURL))
	}
	var eventsOpts []events.ClientOption
	if cfg.Events.SearchURL != "" {
		eventsOpts = append(eventsOpts, events.WithBaseURL(cfg.Events.SearchURL))
	}

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		weather.NewTool(weather.NewClient(weatherOpts...), store, cfg.CacheTTL, logger),
		events.NewTool(events.NewClient(eventsOpts...), store, cfg.CacheTTL, logger),
	} {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}

	observer, err := mcp.NewDispatchObserver()
	if err != nil {
		return nil, err
	}

	return mcp.NewDispatcher(registry, mcp.WithObserver(observer), mcp.WithDispatchLogger(logger)), nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-viewer/internal/logging"
	"github.com/joeblew999/plat-viewer/internal/server"
)

// Options defines all CLI flags and env vars for the viewer server.
// Flags: --host, --port, --data-dir, --web-dir, --config, --log-level, --capabilities-ttl
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host            string `doc:"Host to bind to" default:"0.0.0.0"`
	Port            int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir         string `doc:"Directory for persisted state and drawing features" default:".data"`
	WebDir          string `doc:"Optional web/ directory with static files and template overrides"`
	Config          string `doc:"Application YAML file to load at startup" short:"c"`
	LogLevel        string `doc:"Log level: debug, info, warn, error" default:"info"`
	CapabilitiesTTL int    `doc:"Seconds fetched WMTS capabilities are cached" default:"600"`
}

func newServer(opts *Options, logger *log.Logger) (*server.Server, error) {
	return server.New(server.Config{
		Host:            opts.Host,
		Port:            fmt.Sprintf("%d", opts.Port),
		DataDir:         opts.DataDir,
		WebDir:          opts.WebDir,
		AppConfig:       opts.Config,
		CapabilitiesTTL: time.Duration(opts.CapabilitiesTTL) * time.Second,
		Logger:          logger,
	})
}

func mustLogger(opts *Options) *log.Logger {
	logger, err := logging.New(os.Stderr, opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := mustLogger(opts)
		var httpServer *http.Server
		var srv *server.Server

		hooks.OnStart(func() {
			var err error
			srv, err = newServer(opts, logger)
			if err != nil {
				logger.Fatal("start server", "err", err)
			}

			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)
			logger.Info("plat-viewer starting",
				"server", baseURL,
				"data", opts.DataDir,
				"viewer", baseURL+"/viewer",
				"docs", baseURL+"/docs",
			)

			httpServer = &http.Server{
				Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
				Handler: srv,
			}
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server error", "err", err)
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if httpServer != nil {
				httpServer.Shutdown(ctx)
			}
			if srv != nil {
				if err := srv.Close(); err != nil {
					logger.Error("close server", "err", err)
				}
			}
		})
	})

	cli.Root().Use = "viewer"
	cli.Root().Short = "Map viewer: application layers, layer trees and styles"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts, logging.Discard())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Root().AddCommand(newValidateCmd())

	cli.Run()
}

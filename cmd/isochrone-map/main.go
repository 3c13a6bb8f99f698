package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/logging"
	"github.com/joeblew999/plat-isochrone/internal/server"
)

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --data-dir, --web-dir, --db-dir, --catalog, --log-level,
// --log-format, --session-ttl, --secure-cookies
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host          string `doc:"Host to bind to" default:"0.0.0.0"`
	Port          int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir       string `doc:"Directory catalog file references resolve against" default:"."`
	WebDir        string `doc:"Path to a web/ directory overriding the embedded assets"`
	DBDir         string `doc:"Directory for the DuckDB station index; empty keeps it in memory"`
	Catalog       string `doc:"YAML layer catalog; empty uses the built-in Tel Aviv catalog"`
	LogLevel      string `doc:"debug, info, warn or error" default:"info"`
	LogFormat     string `doc:"text or json" default:"text"`
	SessionTTL    string `doc:"Idle time after which a map session is dropped" default:"30m"`
	SecureCookies bool   `doc:"Mark the session cookie Secure (behind TLS)"`
}

func newServer(opts *Options, logger *slog.Logger) (*server.Server, error) {
	cat, err := catalog.Load(opts.Catalog)
	if err != nil {
		return nil, err
	}
	ttl, err := time.ParseDuration(opts.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("session-ttl: %w", err)
	}
	return server.New(server.Config{
		Host:          opts.Host,
		Port:          fmt.Sprintf("%d", opts.Port),
		DataDir:       opts.DataDir,
		WebDir:        opts.WebDir,
		DBDir:         opts.DBDir,
		Catalog:       cat,
		SessionTTL:    ttl,
		SecureCookies: opts.SecureCookies,
		Logger:        logger,
	})
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := logging.Setup(opts.LogLevel, opts.LogFormat)
		var (
			srv    *server.Server
			httpd  *http.Server
			cancel context.CancelFunc
		)

		hooks.OnStart(func() {
			var err error
			if srv, err = newServer(opts, logger); err != nil {
				logger.Error("starting server", "error", err)
				os.Exit(1)
			}
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			srv.Start(ctx)

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-isochrone server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Map:     %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			httpd = &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 10 * time.Second}
			if err := httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server error", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if httpd == nil {
				return
			}
			ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := httpd.Shutdown(ctx); err != nil {
				logger.Warn("shutdown", "error", err)
			}
			cancel()
			srv.Close()
		})
	})

	cli.Root().Use = "isochrone-map"
	cli.Root().Short = "Transit isochrone map server"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := logging.Setup("error", opts.LogFormat)
			srv, err := newServer(opts, logger)
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

	// catalog subcommand: validate and print the effective layer catalog
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate the layer catalog and print it as YAML",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cat, err := catalog.Load(opts.Catalog)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid catalog: %v\n", err)
				os.Exit(1)
			}
			if err := cat.Encode(os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}),
	}
	cli.Root().AddCommand(catalogCmd)

	cli.Run()
}

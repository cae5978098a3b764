package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/luma-agent/luma"
	"github.com/luma-agent/luma/client"
	"github.com/luma-agent/luma/internal/config"
	"github.com/luma-agent/luma/internal/worldview"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	loaded := loadEnv()

	// Logs go to stderr so link and ask can print results on stdout.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LUMA_LOG_LEVEL")),
	}))
	slog.SetDefault(logger)
	if len(loaded) > 0 {
		logger.Debug("environment loaded", "files", loaded)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

// loadEnv reads .env and then LUMA_ENV_FILE when set. Neither is required;
// variables already in the environment win.
func loadEnv() []string {
	var loaded []string
	if err := godotenv.Load(); err == nil {
		loaded = append(loaded, ".env")
	}
	if f := os.Getenv("LUMA_ENV_FILE"); f != "" {
		if err := godotenv.Load(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	return loaded
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "luma",
		Short:         "Conversational assistant for NASA Worldview imagery",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), logger)
		},
	}

	root.AddCommand(
		newServeCmd(logger),
		newLinkCmd(logger),
		newAskCmd(),
		newLayersCmd(),
	)
	return root
}

func newServeCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket and MCP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), logger)
		},
	}
}

func serve(ctx context.Context, logger *slog.Logger) error {
	app, err := luma.New(
		luma.WithLogger(logger),
		luma.WithVersion(version),
	)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

type linkOptions struct {
	query   string
	date    string
	bbox    string
	layers  []string
	jsonOut bool
}

func newLinkCmd(logger *slog.Logger) *cobra.Command {
	var opts linkOptions
	cmd := &cobra.Command{
		Use:   "link [query]",
		Short: "Resolve a Worldview link locally, without a chat model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.query = args[0]
			}
			return runLink(cmd.Context(), cmd.OutOrStdout(), logger, opts)
		},
	}
	cmd.Flags().StringVar(&opts.query, "query", "", "free-text imagery request")
	cmd.Flags().StringVar(&opts.date, "date", "", "date (YYYY-MM-DD or ISO timestamp)")
	cmd.Flags().StringVar(&opts.bbox, "bbox", "", "bounding box minLon,minLat,maxLon,maxLat")
	cmd.Flags().StringSliceVar(&opts.layers, "layers", nil, "explicit layer ids (comma separated)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the resolved view as JSON")
	return cmd
}

func runLink(ctx context.Context, out io.Writer, logger *slog.Logger, opts linkOptions) error {
	if strings.TrimSpace(opts.query) == "" && len(opts.layers) == 0 {
		return fmt.Errorf("link: a query or --layers is required")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	catalog := worldview.NewCatalogClient(worldview.CatalogConfig{
		URL:     cfg.CatalogURL,
		Timeout: cfg.CatalogTimeout,
	}, logger)
	resolver := worldview.NewResolver(catalog, logger, worldview.WithViewerURL(cfg.ViewerURL))

	view := resolver.ResolveView(ctx, worldview.Request{
		Query:  opts.query,
		Date:   opts.date,
		BBox:   opts.bbox,
		Layers: opts.layers,
	})
	link := view.URL(resolver.ViewerURL())

	if !opts.jsonOut {
		_, err = fmt.Fprintln(out, link)
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(client.Link{URL: link, Layers: view.Layers, Date: view.Date, BBox: view.BBox})
}

type remoteOptions struct {
	server string
}

func (o *remoteOptions) bind(cmd *cobra.Command) {
	def := os.Getenv("LUMA_URL")
	if def == "" {
		def = "http://localhost:8080"
	}
	cmd.Flags().StringVar(&o.server, "server", def, "Luma server URL (LUMA_URL)")
}

func (o *remoteOptions) newClient() (*client.Client, error) {
	return client.NewClient(client.Config{BaseURL: o.server})
}

func newAskCmd() *cobra.Command {
	var (
		remote   remoteOptions
		threadID string
		stream   bool
	)
	cmd := &cobra.Command{
		Use:   "ask <request>",
		Short: "Send one request to a running Luma server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := remote.newClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !stream {
				st, err := c.Ask(cmd.Context(), args[0], threadID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, st.Output)
				return err
			}
			return streamTurn(cmd.Context(), out, c, args[0], threadID)
		},
	}
	remote.bind(cmd)
	cmd.Flags().StringVar(&threadID, "thread", "", "thread id to echo back")
	cmd.Flags().BoolVar(&stream, "stream", false, "print messages as they arrive")
	return cmd
}

// streamTurn prints each message once as the transcript grows.
func streamTurn(ctx context.Context, out io.Writer, c *client.Client, input, threadID string) error {
	printed := 0
	return c.Stream(ctx, input, threadID, func(st client.State) error {
		for _, m := range st.Messages[min(printed, len(st.Messages)):] {
			if m.Type == "system" || m.Content == "" {
				continue
			}
			if _, err := fmt.Fprintf(out, "[%s] %s\n", m.Type, m.Content); err != nil {
				return err
			}
		}
		printed = len(st.Messages)
		return nil
	})
}

func newLayersCmd() *cobra.Command {
	var (
		remote remoteOptions
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "layers <search>",
		Short: "Rank catalog layers against a phrase on a running Luma server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := remote.newClient()
			if err != nil {
				return err
			}
			matches, err := c.Layers(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			for _, m := range matches {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s  %s\n", m.Score, m.ID, m.Title); err != nil {
					return err
				}
			}
			return nil
		},
	}
	remote.bind(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (server default when 0)")
	return cmd
}

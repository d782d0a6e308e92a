package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"github.com/ironsheep/inertia-heatmap/internal/analysis"
	"github.com/ironsheep/inertia-heatmap/internal/api"
	"github.com/ironsheep/inertia-heatmap/internal/cli"
	"github.com/ironsheep/inertia-heatmap/internal/config"
	imgcache "github.com/ironsheep/inertia-heatmap/internal/imaging"
	"github.com/ironsheep/inertia-heatmap/internal/logging"
	"github.com/ironsheep/inertia-heatmap/internal/server"
	"github.com/ironsheep/inertia-heatmap/internal/session"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// CLI flags override the environment. Negative display width and zero
// timeout mean "not given".
var CLI struct {
	LogLevel     string        `help:"Log level: debug, info, warn or error." placeholder:"LEVEL"`
	APIURL       string        `name:"api-url" help:"Saliency analysis endpoint." placeholder:"URL"`
	Timeout      time.Duration `help:"Timeout for analysis and image requests." placeholder:"DURATION"`
	DisplayWidth int           `help:"Maximum display width in pixels; 0 keeps the natural width." default:"-1" placeholder:"PX"`

	Mcp     mcpCmd     `cmd:"" default:"1" help:"Serve heatmap tools over MCP (stdio)."`
	Serve   serveCmd   `cmd:"" help:"Serve the HTTP API."`
	Analyze analyzeCmd `cmd:"" help:"Analyze one image URL and print the result."`
	Version versionCmd `cmd:"" help:"Show version information."`
}

// app carries the components every command shares.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	cache    *imgcache.ImageCache
	analyzer *session.Analyzer
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if CLI.LogLevel != "" {
		cfg.LogLevel = CLI.LogLevel
	}
	if CLI.APIURL != "" {
		cfg.APIURL = CLI.APIURL
	}
	if CLI.Timeout > 0 {
		cfg.HTTPTimeout = CLI.Timeout
	}
	if CLI.DisplayWidth >= 0 {
		cfg.DisplayWidth = CLI.DisplayWidth
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// stdout is for MCP frames and command output
	logger := logging.New(cfg.LogLevel, os.Stderr)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	client := analysis.NewClient(cfg.APIURL, cfg.HTTPTimeout, analysis.WithLogger(logger))
	cache := imgcache.NewImageCache(httpClient)
	analyzer := session.NewAnalyzer(client, cache, session.Options{
		DisplayWidth: cfg.DisplayWidth,
		Render:       cfg.Render,
		Logger:       logger,
	})

	return &app{cfg: cfg, logger: logger, cache: cache, analyzer: analyzer}, nil
}

type mcpCmd struct{}

func (c *mcpCmd) Run(a *app) error {
	a.logger.Debug("Inertia heatmap MCP server",
		"version", Version, "built", BuildTime, "commit", GitCommit,
		"api_url", a.cfg.APIURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Options{
		Analyzer:     a.analyzer,
		Cache:        a.cache,
		Render:       a.cfg.Render,
		DisplayWidth: a.cfg.DisplayWidth,
		Version:      Version,
		Logger:       a.logger,
	})
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

type serveCmd struct {
	Listen string `help:"Listen address; defaults to INERTIA_LISTEN_ADDR or :8080." placeholder:"ADDR"`
}

func (c *serveCmd) Run(a *app) error {
	addr := a.cfg.ListenAddr
	if c.Listen != "" {
		addr = c.Listen
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(api.Options{
		Analyzer: a.analyzer,
		Logger:   a.logger,
		Version:  Version,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP API listening", "addr", addr, "version", Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type analyzeCmd struct {
	URL  string `arg:"" name:"image-url" help:"Absolute http(s) URL of the image."`
	Out  string `short:"o" help:"Write the image with the heatmap overlay to this file (.png or .jpg)." placeholder:"FILE"`
	JSON bool   `name:"json" help:"Print the full result as JSON instead of a summary."`
}

func (c *analyzeCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.analyzer.Run(ctx, session.Request{
		ImageURL:       c.URL,
		IncludeOverlay: c.Out != "",
	})
	if err != nil {
		cli.PrintStatus(a.analyzer.Status())
		return err
	}

	if c.Out != "" {
		if err := imaging.Save(res.Composite, c.Out); err != nil {
			return fmt.Errorf("failed to write %s: %w", c.Out, err)
		}
	}

	if c.JSON {
		// The PNG already went to disk; keep stdout readable.
		res.Overlay = nil
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	cli.PrintSummary(res, c.Out)
	return nil
}

type versionCmd struct{}

func (c *versionCmd) Run() error {
	cli.PrintVersion(Version)
	cli.PrintInfo("Build time", BuildTime)
	cli.PrintInfo("Git commit", GitCommit)
	return nil
}

// newParser builds the command line parser. The app is provided lazily so
// that commands which do not need it, such as version, never load config.
func newParser() (*kong.Kong, error) {
	return kong.New(&CLI,
		kong.Name("inertia-heatmap"),
		kong.Description("Find the visually quiet regions of an image."),
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
		kong.BindToProvider(newApp),
	)
}

func main() {
	parser, err := newParser()
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

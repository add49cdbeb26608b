// Command mosaic3d serves the tiled-mosaic rendering API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/mosaic3d/internal/config"
	"github.com/ironsheep/mosaic3d/internal/logger"
	"github.com/ironsheep/mosaic3d/internal/mosaic"
	"github.com/ironsheep/mosaic3d/internal/preset"
	"github.com/ironsheep/mosaic3d/internal/server"
	"github.com/ironsheep/mosaic3d/internal/tiles"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	root := &cobra.Command{
		Use:           "mosaic3d",
		Short:         "Tiled-mosaic rendering service",
		Long:          "mosaic3d converts uploaded photographs into tiled mosaic images\nbuilt from a fixed palette of tile bitmaps.",
		Version:       fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newHealthcheckCommand())
	return root.ExecuteContext(ctx)
}

func newServeCommand() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mosaic HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if addr != "" {
				cfg.Addr = addr
			}
			logger.Init(cfg.LogLevel, cfg.LogFormat)
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", os.Getenv("MOSAIC3D_CONFIG"), "path to TOML configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides configuration)")
	return cmd
}

// serve loads the preset and tile cache, then runs the HTTP server until the
// context is cancelled. Any initialization failure aborts before the
// listener opens: a missing asset must fail at boot, not on first request.
func serve(ctx context.Context, cfg *config.Config) error {
	slog.InfoContext(ctx, "configuration loaded",
		"addr", cfg.Addr,
		"preset_path", cfg.PresetPath,
		"tiles_dir", cfg.TilesDir)

	p, err := preset.Load(cfg.PresetPath)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	slog.InfoContext(ctx, "preset loaded",
		"blur", p.Blur,
		"contrast", p.Contrast,
		"brightness", p.Brightness,
		"gamma", p.Gamma)

	searchPaths := cfg.TileSearchPaths
	if len(searchPaths) == 0 {
		searchPaths = tiles.SearchPaths(cfg.TilesDir)
	}
	cache := tiles.NewCache(searchPaths)
	if _, err := cache.Images(); err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	slog.InfoContext(ctx, "tile cache populated", "dir", cache.Dir(), "entries", tiles.PaletteSize)

	pipeline := mosaic.NewPipeline(p, cache, nil)
	srv := server.New(cfg, pipeline)

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "starting mosaic3d server", "addr", cfg.Addr)
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.InfoContext(ctx, "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.InfoContext(ctx, "server exited")
	return nil
}

// newHealthcheckCommand probes the local /health endpoint. Used as a Docker
// healthcheck in distroless images where no shell or curl is available.
func newHealthcheckCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:    "healthcheck",
		Short:  "Probe the local server's health endpoint",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 2 * time.Second}
			resp, err := client.Get(fmt.Sprintf("http://127.0.0.1%s/health", addr))
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", getEnvDefault("MOSAIC3D_ADDR", ":8080"), "address the server listens on")
	return cmd
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

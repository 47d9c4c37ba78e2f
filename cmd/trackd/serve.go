package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/track.report/internal/api"
	"github.com/banshee-data/track.report/internal/config"
	"github.com/banshee-data/track.report/internal/db"
	"github.com/banshee-data/track.report/internal/detect"
	"github.com/banshee-data/track.report/internal/failover"
	"github.com/banshee-data/track.report/internal/fsutil"
	"github.com/banshee-data/track.report/internal/httputil"
	"github.com/banshee-data/track.report/internal/monitoring"
	"github.com/banshee-data/track.report/internal/query"
	"github.com/banshee-data/track.report/internal/render"
	"github.com/banshee-data/track.report/internal/security"
	"github.com/banshee-data/track.report/internal/timeutil"
	"github.com/banshee-data/track.report/internal/track"
	"github.com/banshee-data/track.report/internal/version"
)

func serveCmd(flags *rootFlags) *cobra.Command {
	var listen string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = &listen
			}
			if cmd.Flags().Changed("debug") {
				cfg.Debug = &debug
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

func serve(ctx context.Context, cfg *config.ServiceConfig) error {
	monitoring.SetDebug(cfg.GetDebug())
	log.Printf("trackd %s starting", version.Current())

	civil, err := timeutil.LoadZone(cfg.GetTimezone())
	if err != nil {
		return err
	}
	host, err := timeutil.LoadZone(cfg.GetHostTimezone())
	if err != nil {
		return err
	}

	tmpDir := cfg.GetTmpDir()
	if err := security.ValidateArtifactDir(tmpDir); err != nil {
		return fmt.Errorf("invalid tmp_dir: %w", err)
	}

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	thresholds := cfg.GetThresholds()
	store := db.NewTrackStore(database, thresholds.SmoothingWindow)
	clock := timeutil.RealClock{}

	srv := api.NewServer(api.Deps{
		Resolver:  query.NewResolver(clock, civil, host),
		Fetcher:   store,
		Enricher:  track.NewEnricher(detect.NewDetector(store, thresholds), detect.Counter{}),
		Forwarder: failover.New(cfg.GetBalance(), httputil.NewTimeoutClient(cfg.GetRelayTimeout())),
		Charts:    render.NewRenderer(fsutil.OSFileSystem{}, tmpDir, clock),
		Debug:     cfg.GetDebug(),
	})

	router := srv.Router()
	adminMux := http.NewServeMux()
	if err := database.AttachAdminRoutes(adminMux); err != nil {
		return err
	}
	router.PathPrefix("/debug/").Handler(adminMux)

	server := &http.Server{
		Addr:              cfg.GetListen(),
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
	return nil
}

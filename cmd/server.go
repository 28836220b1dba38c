package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/neurosphere/internal/audit"
	"github.com/ziadkadry99/neurosphere/internal/config"
	"github.com/ziadkadry99/neurosphere/internal/configstore"
	"github.com/ziadkadry99/neurosphere/internal/dashboard"
	"github.com/ziadkadry99/neurosphere/internal/db"
	"github.com/ziadkadry99/neurosphere/internal/feed"
	"github.com/ziadkadry99/neurosphere/internal/metrics"
	"github.com/ziadkadry99/neurosphere/internal/server"
	"github.com/ziadkadry99/neurosphere/internal/telemetry"
)

var (
	serverPort      int
	serverRetention time.Duration
	serverPoll      bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the dashboard HTTP server",
	Long: `Starts the neurosphere HTTP server: telemetry and pair statistics, the live
scene stream, configuration load/save, reload history and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = serverPort
		}

		if cfg.DataDir != "" {
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return fmt.Errorf("creating data dir: %w", err)
			}
		}

		// Open database.
		dbPath := cfg.DatabasePath()
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		history := audit.NewStore(database)
		if serverRetention > 0 {
			n, err := history.DeleteBefore(cmd.Context(), time.Now().Add(-serverRetention))
			if err != nil {
				return fmt.Errorf("pruning history: %w", err)
			}
			logger.Info("pruned history", zap.Int64("rows", n), zap.Duration("retention", serverRetention))
		}

		m := metrics.New()

		store, err := configstore.New(cfg.ConfigRootPath(),
			configstore.WithPatterns(cfg.ConfigPatterns...),
			configstore.WithRecorder(history),
			configstore.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("opening config root: %w", err)
		}

		f := feed.New(feed.Options{
			Path:         cfg.TelemetryPath(),
			Scheme:       telemetry.SchemeBasic,
			Device:       cfg.Scene.Device,
			Slice:        cfg.Scene.Slice,
			PollInterval: cfg.Poll(),
			Poll:         serverPoll,
			History:      history,
			Metrics:      m,
			Logger:       logger,
		})

		srv := server.New(server.Config{
			Port:     cfg.Port,
			AllowAll: cfg.AllowAllOrigins,
		}, m, logger)

		registerAllRoutes(srv, cfg, store, history, f, m)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("neurosphere server starting",
			zap.String("version", Version),
			zap.Int("port", cfg.Port),
			zap.String("database", dbPath),
			zap.String("telemetry", cfg.TelemetryPath()),
			zap.String("config_root", store.Root()),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return f.Run(gctx) })
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

// registerAllRoutes wires up all feature routes.
func registerAllRoutes(srv *server.Server, cfg *config.Config, store *configstore.Store, history *audit.Store, f *feed.Feed, m *metrics.Metrics) {
	r := srv.API()

	// Telemetry
	telemetry.RegisterRoutes(r, telemetryFiles(cfg))

	// Configuration documents
	configstore.RegisterRoutes(r, store, m)

	// Revision and reload history
	audit.RegisterRoutes(r, history)

	// Dashboard
	dash := dashboard.New(f, logger)
	dash.RegisterRoutes(r)
	dash.RegisterStream(srv.Router())
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides config)")
	serverCmd.Flags().DurationVar(&serverRetention, "history-retention", 0, "Delete history rows older than this at startup (0 keeps everything)")
	serverCmd.Flags().BoolVar(&serverPoll, "poll", false, "Poll the telemetry file instead of watching it")
	rootCmd.AddCommand(serverCmd)
}

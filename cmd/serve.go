package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/ksrcrypto/crypto-backend/database"
	"github.com/ksrcrypto/crypto-backend/handlers"
	"github.com/ksrcrypto/crypto-backend/jobs"
	"github.com/ksrcrypto/crypto-backend/services"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), cfg)
	},
}

func runServe(ctx context.Context, cfg *shared.UnifiedConfiguration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := shared.NewHTTPClientFactory(cfg.Service.HTTPRequestTimeout)
	defer factory.CloseIdleConnections()

	listingsService := services.NewListingsService(cfg.Service, factory)
	chartService := services.NewChartService(cfg.Chart.LoadDelay)
	sessions := services.NewSessionCache(cfg.Session.TTL, cfg.Session.MaxSessions)
	authService := services.NewMemoryAuthService(sessions)
	portfolioStore := openPortfolioStore(ctx, cfg.Database)
	portfolioService := services.NewPortfolioService(portfolioStore)
	defer database.Close()

	logrus.WithFields(logrus.Fields{
		"port":          cfg.Server.Port,
		"listings_url":  cfg.Service.BaseURL,
		"http_timeout":  cfg.Service.HTTPRequestTimeout,
		"session_ttl":   cfg.Session.TTL,
		"chart_delay":   cfg.Chart.LoadDelay,
		"database":      database.DB != nil,
		"fallback_only": cfg.Service.APIKey == "",
	}).Info("Services initialized")

	app := newServer(handlers.Handlers{
		Listings:    handlers.NewListingsHandler(listingsService),
		Chart:       handlers.NewChartHandler(chartService),
		Auth:        handlers.NewAuthHandler(authService),
		Portfolio:   handlers.NewPortfolioHandler(portfolioService),
		Routes:      handlers.NewRoutesHandler(authService),
		Metrics:     handlers.NewMetricsHandler(listingsService.HTTPMetrics(), listingsService.Performance(), sessions, listingsService.Metrics(), portfolioService.Metrics()),
		AuthService: authService,
	})

	cleanupJob := jobs.NewSessionCleanupJob(sessions)
	metricsJob := jobs.NewMetricsReportJob(listingsService.Metrics(), portfolioService.Metrics())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.Infof("Server starting on port %s", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	g.Go(func() error {
		return jobs.Every(gctx, "session_cleanup", cfg.Session.CleanupInterval, func() { cleanupJob.Run() })
	})
	g.Go(func() error {
		return jobs.Every(gctx, "metrics_report", cfg.Server.MetricsReportPeriod, metricsJob.Run)
	})

	if store, ok := portfolioStore.(*services.PostgresPortfolioStore); ok && cfg.Service.APIKey != "" {
		refreshJob := jobs.NewPortfolioRefreshJob(store, listingsService, cfg.Service.HTTPRequestTimeout*2)
		g.Go(func() error {
			return jobs.Every(gctx, "portfolio_refresh", cfg.Database.PriceRefreshInterval, func() {
				refreshJob.Run(gctx)
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logrus.Info("Server stopped")
	return nil
}

// openPortfolioStore returns the Postgres store when a database is
// configured and reachable, else the demonstration store
func openPortfolioStore(ctx context.Context, dbConfig shared.DatabaseConfig) services.PortfolioStore {
	if dbConfig.URL == "" {
		return services.MockPortfolioStore{}
	}
	if err := database.Connect(dbConfig); err != nil {
		logrus.WithError(err).Warn("Database unavailable, serving demonstration portfolios")
		return services.MockPortfolioStore{}
	}
	if err := database.Migrate(ctx); err != nil {
		logrus.WithError(err).Warn("Migration failed, serving demonstration portfolios")
		database.Close()
		return services.MockPortfolioStore{}
	}
	return services.NewPostgresPortfolioStore(database.DB)
}

func newServer(h handlers.Handlers) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               shared.DefaultServiceName,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	handlers.SetupRoutes(app, h)
	return app
}

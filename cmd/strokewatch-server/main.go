package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/strokewatch/strokewatch/internal/config"
	"github.com/strokewatch/strokewatch/internal/domain/dashboard"
	"github.com/strokewatch/strokewatch/internal/domain/patients"
	"github.com/strokewatch/strokewatch/internal/domain/riskops"
	"github.com/strokewatch/strokewatch/internal/platform/db"
	"github.com/strokewatch/strokewatch/internal/platform/middleware"
	"github.com/strokewatch/strokewatch/internal/platform/reporting"
	"github.com/strokewatch/strokewatch/internal/platform/sandbox"
	"github.com/strokewatch/strokewatch/internal/platform/telemetry"
	"github.com/strokewatch/strokewatch/internal/risk"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "strokewatch-server",
		Short: "Stroke-risk registry API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(recomputeCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the registry API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Write a forward migration that reverses the change instead.")
			return nil
		},
	})

	return cmd
}

func recomputeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute stored risk scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientArg, _ := cmd.Flags().GetString("patient")
			batchSize, _ := cmd.Flags().GetInt("batch-size")

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if batchSize <= 0 {
				batchSize = cfg.RiskBatchSize
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := riskops.NewRecordStore(patients.NewPatientRepo(pool))
			sweeper := risk.NewSweeper(store,
				risk.Thresholds{High: cfg.RiskSweepHigh, Medium: cfg.RiskSweepMedium},
				batchSize, logger)

			if patientArg != "" {
				rec, err := sweeper.RecomputeOne(ctx, patientArg)
				if err != nil {
					return err
				}
				fmt.Printf("%s: score %d (%s)\n", rec.Key, *rec.RiskScore, rec.RiskLevel)
				return nil
			}

			out := sweeper.Run(ctx)
			fmt.Print(sweepSummary(out))
			return nil
		},
	}
	cmd.Flags().String("patient", "", "Recompute a single patient by UUID or registry number")
	cmd.Flags().Int("batch-size", 0, "Rows fetched per page during the sweep (default RISK_BATCH_SIZE)")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load synthetic patients into the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			strokeRate, _ := cmd.Flags().GetFloat64("stroke-rate")
			rngSeed, _ := cmd.Flags().GetInt64("seed")
			reset, _ := cmd.Flags().GetBool("reset")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if count <= 0 {
				count = cfg.SeedCount
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			if reset {
				if _, err := pool.Exec(ctx, `TRUNCATE patient`); err != nil {
					return fmt.Errorf("reset registry: %w", err)
				}
				if _, err := pool.Exec(ctx, `ALTER SEQUENCE patient_registry_seq RESTART WITH 1`); err != nil {
					return fmt.Errorf("reset registry sequence: %w", err)
				}
				fmt.Println("Cleared existing registry data.")
			}

			svc := patients.NewService(patients.NewPatientRepo(pool),
				risk.Thresholds{High: cfg.RiskAdmitHigh, Medium: cfg.RiskAdmitMedium},
				risk.Thresholds{High: cfg.RiskImportHigh, Medium: cfg.RiskImportMedium})

			inputs := generateInputs(sandbox.NewDataGenerator(rngSeed), count, strokeRate)
			result, err := svc.BulkImport(ctx, inputs)
			if err != nil {
				return err
			}

			fmt.Printf("Created %d of %d patients.\n", result.CreatedCount, count)
			for _, e := range result.Errors {
				fmt.Println("  " + e)
			}
			return nil
		},
	}
	cmd.Flags().Int("count", 0, "Number of patients to generate (default SEED_COUNT)")
	cmd.Flags().Float64("stroke-rate", 0.05, "Probability of a positive stroke history")
	cmd.Flags().Int64("seed", 0, "RNG seed for reproducible cohorts (0 = time-based)")
	cmd.Flags().Bool("reset", false, "Truncate the patient table before seeding")
	return cmd
}

// generateInputs builds count synthetic import rows from gen.
func generateInputs(gen *sandbox.DataGenerator, count int, strokeRate float64) []patients.PatientInput {
	inputs := make([]patients.PatientInput, count)
	for i := range inputs {
		inputs[i] = gen.Input(strokeRate)
	}
	return inputs
}

// sweepSummary renders a sweep outcome for CLI output.
func sweepSummary(out risk.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total patients: %d\n", out.TotalPatients)
	fmt.Fprintf(&b, "Updated:        %d\n", out.UpdatedCount)
	fmt.Fprintf(&b, "Skipped:        %d\n", out.SkippedCount)
	fmt.Fprintf(&b, "Errors:         %d\n", out.ErrorCount)
	fmt.Fprintf(&b, "Success rate:   %.2f%%\n", out.SuccessRate)
	return b.String()
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Telemetry
	tp := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{
		ServiceName:    "strokewatch-server",
		ServiceVersion: version,
		Environment:    cfg.Env,
	})
	defer tp.Shutdown(context.Background())

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID", "If-None-Match"},
	}))
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeout) * time.Second))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.BulkBodyLimit))
	e.Use(middleware.Audit(logger))
	e.Use(tp.TracingMiddleware())
	e.Use(tp.MetricsMiddleware())

	// API group
	apiV1 := e.Group("/api/v1")

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// ETag and conditional request support on read endpoints. The NDJSON
	// export streams its body, so it skips response buffering.
	cacheCfg := middleware.DefaultCacheConfig()
	cacheCfg.ExcludePaths = []string{"/api/v1/sandbox/export/ndjson"}
	apiV1.Use(middleware.ETagMiddleware(cacheCfg))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	// -- Register Domain Handlers --

	// Patients domain
	patientRepo := patients.NewPatientRepo(pool)
	patientsSvc := patients.NewService(patientRepo,
		risk.Thresholds{High: cfg.RiskAdmitHigh, Medium: cfg.RiskAdmitMedium},
		risk.Thresholds{High: cfg.RiskImportHigh, Medium: cfg.RiskImportMedium})
	patients.NewHandler(patientsSvc).RegisterRoutes(apiV1)

	// Risk operations domain
	recordStore := riskops.NewRecordStore(patientRepo)
	sweeper := risk.NewSweeper(recordStore,
		risk.Thresholds{High: cfg.RiskSweepHigh, Medium: cfg.RiskSweepMedium},
		cfg.RiskBatchSize, logger)
	riskSvc := riskops.NewService(sweeper, riskops.NewStatsRepo(pool), tp.SweepMetrics())
	riskops.NewHandler(riskSvc).RegisterRoutes(apiV1)

	// Dashboard domain
	dashboardSvc := dashboard.NewService(dashboard.NewDashboardRepo(pool))
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(apiV1)

	// Sandbox data generator
	sandbox.NewSeedHandler().RegisterRoutes(apiV1)

	// Reporting framework
	reporting.NewHandler(pool).RegisterRoutes(apiV1)

	// Prometheus metrics, with pool and registry gauges refreshed per scrape
	healthMetrics := tp.HealthMetrics()
	promHandler := tp.PrometheusHandler()
	e.GET("/metrics", func(c echo.Context) error {
		stat := pool.Stat()
		healthMetrics.SetDBPoolActive(int64(stat.AcquiredConns()))
		healthMetrics.SetDBPoolIdle(int64(stat.IdleConns()))
		if total, err := patientRepo.Count(c.Request().Context()); err == nil {
			healthMetrics.SetPatientsTotal(int64(total))
		}
		return promHandler(c)
	})

	// DB health check endpoint
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/clinica/intranet-api/internal/config"
	"github.com/clinica/intranet-api/internal/database"
	"github.com/clinica/intranet-api/internal/handler/consultas"
	"github.com/clinica/intranet-api/internal/handler/health"
	promhandler "github.com/clinica/intranet-api/internal/handler/prometheus"
	userHandler "github.com/clinica/intranet-api/internal/handler/user"
	"github.com/clinica/intranet-api/internal/model"
	"github.com/clinica/intranet-api/internal/repository/sqlserver"
	"github.com/clinica/intranet-api/internal/router"
	patientService "github.com/clinica/intranet-api/internal/service/patient"
	userService "github.com/clinica/intranet-api/internal/service/user"
	"github.com/clinica/intranet-api/internal/worker"
	"github.com/clinica/intranet-api/pkg/logger"
	"github.com/clinica/intranet-api/pkg/metrics"
	"github.com/clinica/intranet-api/pkg/security"
)

const shutdownTimeout = 5 * time.Second

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "intranet-api",
		Short:         "Clinic intranet query API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(pingDBCmd(&configPath))
	rootCmd.AddCommand(seedUserCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration and installs the global logger.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func connect(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := database.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		m       *metrics.Metrics
		metricH *promhandler.Handler
	)
	if cfg.Monitoring.PrometheusEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		m = metrics.New(cfg.Monitoring.Namespace)
		if err := m.Register(registry); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		if metricH, err = promhandler.New(registry, cfg.Monitoring.Namespace); err != nil {
			return fmt.Errorf("failed to register request metrics: %w", err)
		}
	}

	exec := database.NewExecutor(db, m)
	base := sqlserver.NewBaseRepository(exec)

	patientRepo := sqlserver.NewPatientRepository(base)
	staffRepo := sqlserver.NewStaffRepository(base)
	userRepo := sqlserver.NewUserRepository(base)

	patientSvc := patientService.NewService(patientRepo, cfg.Cache.StatisticsTTL, m)
	userSvc := userService.NewService(userRepo, staffRepo, patientRepo, security.NewBcryptHasher(security.DefaultCost))

	if strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.NewRouter(
		router.Config{
			APIToken:       cfg.Auth.APIToken,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			CORSOrigins:    cfg.CORS.AllowOrigins,
			RateLimit:      cfg.RateLimit.Enabled,
			RateRPS:        cfg.RateLimit.RequestsPerSecond,
			RateBurst:      cfg.RateLimit.Burst,
			MetricsPath:    cfg.Monitoring.MetricsPath,
		},
		health.NewHandler(exec),
		consultas.NewHandler(patientSvc),
		userHandler.NewHandler(userSvc),
		metricH,
	)
	r.Setup()

	if cfg.Auth.APIToken == "" {
		log.Warn().Msg("API_TOKEN is empty, token check disabled")
	}

	go worker.NewPoolStatsWorker(exec, m, cfg.Database.StatsInterval).Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("database", cfg.Database.Name).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = shutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}

func pingDBCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ping-db",
		Short: "Check the database connection and print the server version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Database.ConnectTimeout+5*time.Second)
			defer cancel()

			db, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			exec := database.NewExecutor(db, nil)
			if err := exec.Ping(ctx); err != nil {
				return err
			}
			var versions []string
			if err := exec.Select(ctx, &versions, "SELECT @@VERSION", nil); err != nil {
				return err
			}
			version := ""
			if len(versions) > 0 {
				version = versions[0]
			}

			fmt.Fprintf(cmd.OutOrStdout(), "connected to %s on %s\n%s\n", cfg.Database.Name, cfg.Database.Host, version)
			return nil
		},
	}
}

func seedUserCmd(configPath *string) *cobra.Command {
	var (
		name     string
		email    string
		password string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create an intranet user unless one with the same name exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			req := model.CreateUserRequest{
				Name:     strings.TrimSpace(name),
				Password: password,
				Role:     model.Role(strings.ToUpper(role)),
			}
			if email != "" {
				req.Email = &email
			}
			if err := binding.Validator.ValidateStruct(&req); err != nil {
				return fmt.Errorf("invalid user: %w", err)
			}

			db, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			exec := database.NewExecutor(db, nil)
			base := sqlserver.NewBaseRepository(exec)
			svc := userService.NewService(sqlserver.NewUserRepository(base), nil, nil, security.NewBcryptHasher(security.DefaultCost))

			created, err := svc.EnsureUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "user %q created\n", req.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "user %q already exists\n", req.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "nome", "", "user name")
	cmd.Flags().StringVar(&email, "email", "", "user e-mail")
	cmd.Flags().StringVar(&password, "senha", "", "user password")
	cmd.Flags().StringVar(&role, "role", string(model.RoleMaster), "user role")
	_ = cmd.MarkFlagRequired("nome")
	_ = cmd.MarkFlagRequired("senha")
	return cmd
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/bunx"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/middleware"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/migrations"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/repository"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/server"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/validation"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/telemetry"
)

const schemaCacheSize = 16

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PMS API server",
	Long: `Checks the database schema, seeds the baseline roles and the configured
administrator, then serves the HTTP API until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateForServe(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Observability)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				log.Printf("WARNING: %v", err)
			}
		}()

		// Connect to database
		db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)
		log.Printf("Connected to %s database", bunx.DetectDatabaseType(cfg.DatabaseURL))

		dbMetrics, err := telemetry.NewDatabaseMetrics()
		if err != nil {
			return fmt.Errorf("failed to create database metrics: %w", err)
		}
		db.AddQueryHook(dbMetrics.QueryHook())

		if err := ensureSchema(ctx, db); err != nil {
			return err
		}

		// Initialize repositories
		userRepo := repository.NewBunUserRepository(db)
		roleRepo := repository.NewBunRoleRepository(db)

		report := iam.NewAdminSeeder(userRepo, roleRepo, cfg.Admin, iam.PasswordHashCost).Seed(ctx)
		if len(report.RolesCreated) > 0 {
			log.Printf("Seeded roles: %s", strings.Join(report.RolesCreated, ", "))
		}
		if report.AdminCreated {
			log.Printf("Seeded administrator %s", cfg.Admin.Email)
		}
		if len(report.Errors) > 0 {
			log.Printf("WARNING: seeding finished with %d error(s)", len(report.Errors))
		}

		codec, err := auth.NewTokenCodec(auth.TokenConfig{
			Secret: []byte(cfg.Auth.JWTSecret),
			TTL:    cfg.Auth.TokenTTL,
			Issuer: cfg.Auth.Issuer,
		})
		if err != nil {
			return fmt.Errorf("failed to create token codec: %w", err)
		}

		authMetrics, err := telemetry.NewAuthMetrics()
		if err != nil {
			return fmt.Errorf("failed to create auth metrics: %w", err)
		}
		serverMetrics, err := telemetry.NewServerMetrics()
		if err != nil {
			return fmt.Errorf("failed to create server metrics: %w", err)
		}

		resolver := iam.NewStoreResolver(userRepo)
		iamService, err := iam.NewIAMService(iam.IAMServiceDependencies{
			Users: userRepo,
			Roles: roleRepo,
		})
		if err != nil {
			return fmt.Errorf("create IAM service: %w", err)
		}

		policies, err := auth.NewPolicyRegistry()
		if err != nil {
			return fmt.Errorf("create policy registry: %w", err)
		}
		validator, err := validation.NewRequestValidator(schemaCacheSize)
		if err != nil {
			return fmt.Errorf("create request validator: %w", err)
		}

		corsOpts := server.CORSOptionsFor(cfg.CORS.AllowedOrigins)
		handler, err := server.NewH2CHandler(server.RouterOptions{
			Authenticator: iam.NewBearerAuthenticator(codec, resolver, iam.WithBearerMetrics(authMetrics)),
			Verifier: iam.NewCredentialVerifier(resolver, codec,
				iam.WithLoginRecorder(resolver),
				iam.WithVerifierMetrics(authMetrics),
			),
			Resolver:    resolver,
			IAMService:  iamService,
			Codec:       codec,
			Policies:    policies,
			Validator:   validator,
			Metrics:     serverMetrics,
			CORSOptions: &corsOpts,
			LoginLimit: &middleware.RateLimitConfig{
				RequestsPerSecond: cfg.Auth.LoginRatePerSecond,
				Burst:             cfg.Auth.LoginBurst,
			},
			VerboseAuth: cfg.Debug,
		})
		if err != nil {
			return fmt.Errorf("failed to build router: %w", err)
		}

		// Create HTTP server
		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Start server in goroutine
		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			log.Printf("Server URL: %s", cfg.ServerURL)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			// Graceful shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Server stopped")
			return nil
		}
	},
}

// ensureSchema refuses to start on an out-of-date schema unless --auto-migrate
// is set, in which case pending migrations are applied first.
func ensureSchema(ctx context.Context, db *bun.DB) error {
	if autoMigrate {
		group, err := migrations.Apply(ctx, db)
		if err != nil {
			return fmt.Errorf("auto-migrate failed: %w", err)
		}
		if !group.IsZero() {
			log.Printf("Applied migration group %d", group.ID)
		}
		return nil
	}

	pending, err := migrations.Pending(ctx, db)
	if err != nil {
		return fmt.Errorf("check migrations (run 'pmsapi db init' and 'pmsapi db migrate'): %w", err)
	}
	if len(pending) > 0 {
		return fmt.Errorf("%d pending migration(s), run 'pmsapi db migrate' or start with --auto-migrate", len(pending))
	}
	return nil
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/config"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/auth"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/database"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "hospital-emr",
		Short:         "Hospital EMR API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var inMemory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), inMemory)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "keep all data in process memory instead of PostgreSQL")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			log = logger.WithService(log, cfg.App)

			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			return database.Migrate(db, log)
		},
	}
}

// tokenCmd mints a bearer token for local testing. Identity is issued by an
// external provider in production.
func tokenCmd() *cobra.Command {
	var (
		role string
		name string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for a staff role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			tok, exp, err := auth.NewJWTManager(cfg.JWT).Issue(&domain.Claims{
				UserID: uuid.New(),
				Name:   name,
				Role:   domain.Role(role),
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintln(cmd.ErrOrStderr(), "expires", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "staff role")
	cmd.Flags().StringVar(&name, "name", "dev", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (0 uses the configured default)")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/paperifyhq/paperify/internal/clock"
	"github.com/paperifyhq/paperify/internal/config"
	"github.com/paperifyhq/paperify/internal/entitlement"
	"github.com/paperifyhq/paperify/internal/migration"
	"github.com/paperifyhq/paperify/internal/observability"
	"github.com/paperifyhq/paperify/internal/paymentlink"
	"github.com/paperifyhq/paperify/internal/plan"
	"github.com/paperifyhq/paperify/internal/redis"
	"github.com/paperifyhq/paperify/internal/referral"
	"github.com/paperifyhq/paperify/internal/scheduler"
	"github.com/paperifyhq/paperify/internal/server"
	"github.com/paperifyhq/paperify/internal/session"
	"github.com/paperifyhq/paperify/internal/subscription"
	"github.com/paperifyhq/paperify/internal/user"
	"github.com/paperifyhq/paperify/pkg/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "paperify",
		Short:   "Paperify CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newSchedulerCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and seed the superuser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the maintenance scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runMonolith()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(append(coreModules(), server.Module)...)
	app.Run()
}

func runScheduler() {
	app := fx.New(append(coreModules(), scheduler.Module)...)
	app.Run()
}

func runMonolith() {
	app := fx.New(append(coreModules(), server.Module, scheduler.Module)...)
	app.Run()
}

func coreModules() []fx.Option {
	return []fx.Option{
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		session.Module,
		plan.Module,
		user.Module,
		paymentlink.Module,
		subscription.Module,
		referral.Module,
		entitlement.Module,
	}
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}

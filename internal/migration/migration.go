package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/paperifyhq/paperify/internal/config"
	entitlementdomain "github.com/paperifyhq/paperify/internal/entitlement/domain"
	paymentlinkdomain "github.com/paperifyhq/paperify/internal/paymentlink/domain"
	referraldomain "github.com/paperifyhq/paperify/internal/referral/domain"
	subscriptiondomain "github.com/paperifyhq/paperify/internal/subscription/domain"
	userdomain "github.com/paperifyhq/paperify/internal/user/domain"
)

// Run brings the schema up to date. Postgres uses the embedded versioned
// migrations under an advisory lock so concurrent deploys serialize;
// sqlite auto-migrates, which is fine for a single-process dev database.
func Run(conn *gorm.DB, cfg config.Config) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	if cfg.Database.Driver == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := runVersioned(sqlDB); err != nil {
			return err
		}
	} else {
		if err := conn.AutoMigrate(
			&userdomain.User{},
			&paymentlinkdomain.PaymentLink{},
			&paymentlinkdomain.Payment{},
			&subscriptiondomain.Subscription{},
			&referraldomain.Profile{},
			&entitlementdomain.UsageCounter{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	return seedSuperuser(context.Background(), conn, cfg)
}

func runVersioned(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	unlock, err := acquireAdvisoryLock(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		_ = unlock(context.Background())
	}()

	latestVersion, err := LatestMigrationVersion()
	if err != nil {
		return err
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if _, err := ensureNotDirty(migrator); err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	currentVersion, err := ensureNotDirty(migrator)
	if err != nil {
		return err
	}
	if currentVersion != latestVersion {
		return fmt.Errorf("schema version mismatch after migrate: got %d want %d", currentVersion, latestVersion)
	}

	return nil
}

func ensureNotDirty(migrator *migrate.Migrate) (uint, error) {
	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database migrations are dirty at version %d", version)
	}
	return version, nil
}

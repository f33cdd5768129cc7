package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/paperifyhq/paperify/internal/config"
	userdomain "github.com/paperifyhq/paperify/internal/user/domain"
)

// seedSuperuser creates the admin account on first migrate. Idempotent:
// an existing row is left untouched, so a rotated initial password never
// overwrites a live credential.
func seedSuperuser(ctx context.Context, conn *gorm.DB, cfg config.Config) error {
	if cfg.Admin.SuperuserEmail == "" || cfg.Admin.InitialPassword == "" {
		return nil
	}

	var existing userdomain.User
	err := conn.WithContext(ctx).
		Where("email = ?", cfg.Admin.SuperuserEmail).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup superuser: %w", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return fmt.Errorf("create snowflake node: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.InitialPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash superuser password: %w", err)
	}

	u := userdomain.User{
		ID:           node.Generate(),
		Email:        cfg.Admin.SuperuserEmail,
		PasswordHash: string(hash),
		Name:         "Administrator",
		CreatedAt:    time.Now().UTC(),
	}
	if err := conn.WithContext(ctx).Create(&u).Error; err != nil {
		return fmt.Errorf("seed superuser: %w", err)
	}
	return nil
}

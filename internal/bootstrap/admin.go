// Package bootstrap seeds initial data on process start.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallwares/backoffice/internal/config"
	"github.com/smallwares/backoffice/internal/domain"
	pw "github.com/smallwares/backoffice/internal/password"
	"github.com/smallwares/backoffice/internal/repository"
)

// EnsureAdmin creates a default admin account if ADMIN_EMAIL and
// ADMIN_PASSWORD are configured and no such user exists yet. With the config
// absent it is a no-op, so fresh deployments start from the register endpoint.
func EnsureAdmin(lc fx.Lifecycle, cfg config.Config, users repository.UserRepository, node *snowflake.Node, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureAdmin(ctx, cfg, users, node, logger)
		},
	})
}

func ensureAdmin(ctx context.Context, cfg config.Config, users repository.UserRepository, node *snowflake.Node, logger *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	if _, err := users.GetByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("bootstrap lookup user: %w", err)
	}

	hashed, err := pw.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}

	created, err := users.Create(ctx, domain.User{
		ID:           node.Generate().Int64(),
		FirstName:    "Admin",
		LastName:     "User",
		Email:        cfg.AdminEmail,
		PasswordHash: hashed,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("bootstrap create user: %w", err)
	}

	logger.Info("admin user created", zap.Int64("user_id", created.ID))
	return nil
}

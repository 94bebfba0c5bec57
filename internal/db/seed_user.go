package db

import (
	"context"
	"log/slog"

	"github.com/geocoder89/habithub/internal/apperr"
	"github.com/geocoder89/habithub/internal/config"
	"github.com/geocoder89/habithub/internal/services"
)

// Registrar is the slice of the auth flow the seeder needs.
type Registrar interface {
	Register(ctx context.Context, in services.RegisterInput) (services.RegisterResult, error)
}

// EnsureSeedUser registers the configured seed account through the normal
// registration path. An existing account is left alone.
func EnsureSeedUser(ctx context.Context, r Registrar, cfg config.Config, log *slog.Logger) error {
	if cfg.SeedUserEmail == "" || cfg.SeedUserPassword == "" {
		return nil
	}

	name := cfg.SeedUserName
	if name == "" {
		name = "Seed User"
	}

	res, err := r.Register(ctx, services.RegisterInput{
		Name:     name,
		Email:    cfg.SeedUserEmail,
		Password: cfg.SeedUserPassword,
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return nil
		}
		return err
	}

	log.InfoContext(ctx, "seed user created", "user_id", res.User.ID)
	return nil
}

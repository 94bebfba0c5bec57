package db

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/geocoder89/habithub/internal/config"
	"github.com/geocoder89/habithub/internal/services"
	"github.com/stretchr/testify/assert"
)

type fakeRegistrar struct {
	calls int
	got   services.RegisterInput
	err   error
}

func (f *fakeRegistrar) Register(_ context.Context, in services.RegisterInput) (services.RegisterResult, error) {
	f.calls++
	f.got = in
	return services.RegisterResult{}, f.err
}

func TestEnsureSeedUser(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("disabled_without_credentials", func(t *testing.T) {
		r := &fakeRegistrar{}
		assert.NoError(t, EnsureSeedUser(ctx, r, config.Config{}, log))
		assert.Equal(t, 0, r.calls)
	})

	t.Run("registers", func(t *testing.T) {
		r := &fakeRegistrar{}
		cfg := config.Config{SeedUserEmail: "seed@x.com", SeedUserPassword: "secret1"}
		assert.NoError(t, EnsureSeedUser(ctx, r, cfg, log))
		assert.Equal(t, 1, r.calls)
		assert.Equal(t, "Seed User", r.got.Name)
	})

	t.Run("existing_is_fine", func(t *testing.T) {
		r := &fakeRegistrar{err: services.ErrEmailAlreadyExists}
		cfg := config.Config{SeedUserEmail: "seed@x.com", SeedUserPassword: "secret1"}
		assert.NoError(t, EnsureSeedUser(ctx, r, cfg, log))
	})

	t.Run("other_errors_surface", func(t *testing.T) {
		r := &fakeRegistrar{err: errors.New("db down")}
		cfg := config.Config{SeedUserEmail: "seed@x.com", SeedUserPassword: "secret1"}
		assert.Error(t, EnsureSeedUser(ctx, r, cfg, log))
	})
}

func TestRunGoose_UnknownCommand(t *testing.T) {
	err := runGoose(context.Background(), nil, "sideways")
	assert.ErrorContains(t, err, "unknown migrate command")
}

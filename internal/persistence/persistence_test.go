package persistence

import (
	"context"
	"io/fs"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
)

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/identity":  "pgx5://u:p@db:5432/identity",
		"postgresql://u:p@db/identity?x=1": "pgx5://u:p@db/identity?x=1",
		"pgx5://already":                   "pgx5://already",
		"host=db user=u dbname=identity":   "host=db user=u dbname=identity",
	}
	for in, want := range tests {
		assert.Equal(t, want, migrateURL(in), in)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"migrations/000001_create_accounts.up.sql",
		"migrations/000001_create_accounts.down.sql",
	}, names)

	up, err := fs.ReadFile(migrationsFS, "migrations/000001_create_accounts.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "accounts_email_key")
	assert.Contains(t, string(up), "accounts_api_key_key")
}

func TestRunMigrations_NoDSN(t *testing.T) {
	assert.NoError(t, RunMigrations("", zap.NewNop()))
}

func TestDisabledDependencies(t *testing.T) {
	ctx := context.Background()

	pg, err := NewPostgres(ctx, config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.Nil(t, pg.PoolHandle())
	assert.ErrorIs(t, pg.Ping(ctx), ErrNotConfigured)
	pg.Close()

	r := NewRedis(ctx, config.RedisConfig{}, zap.NewNop())
	assert.False(t, r.Enabled())
	assert.ErrorIs(t, r.Ping(ctx), ErrNotConfigured)
	r.Close()
}

func TestNewPostgres_InvalidDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{DSN: "postgres://%zz"}, zap.NewNop())
	require.Error(t, err)
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	r := NewRedis(ctx, config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	defer r.Close()
	require.True(t, r.Enabled())
	assert.NoError(t, r.Ping(ctx))

	mr.Close()
	assert.Error(t, r.Ping(ctx))
}

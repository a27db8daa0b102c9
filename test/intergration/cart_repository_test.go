//go:build integration

package intergration

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/distriar/catalog-sync/internal/cart/application"
	cartdom "github.com/distriar/catalog-sync/internal/cart/domain"
	cartredis "github.com/distriar/catalog-sync/internal/cart/infrastructure/redis"
	catalogdom "github.com/distriar/catalog-sync/internal/catalog/domain"
	"github.com/distriar/catalog-sync/internal/sync/infrastructure/redismirror"
)

func TestCartRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	env, err := Setup(ctx)
	require.NoError(t, err)
	defer env.Teardown(ctx)

	repo := cartredis.NewRepository(env.Client, "")

	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, cartapp.ErrCartNotFound, "fresh store has no cart")

	lines := []cartdom.Line{
		cartdom.NewSimpleLine(1, 2, nil),
		cartdom.NewSimpleLine(2, 1, &cartdom.AppliedPromo{ID: 7, Type: catalogdom.PromoPercent, Value: 10}),
	}
	require.NoError(t, repo.Save(ctx, lines))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, lines, loaded)

	// A sibling agent writing garbage at the shared key must read as absent.
	require.NoError(t, env.Client.Set(ctx, cartredis.DefaultCartKey, "{broken", 0).Err())
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, cartapp.ErrCartNotFound)

	require.NoError(t, repo.Delete(ctx))
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, cartapp.ErrCartNotFound)
}

func TestPromotionMirrorLoad(t *testing.T) {
	ctx := context.Background()
	env, err := Setup(ctx)
	require.NoError(t, err)
	defer env.Teardown(ctx)

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	mirror := redismirror.New(log, env.Client, "", "", "test-agent", catalogdom.ImageResolver{})

	promos, raw, err := mirror.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, promos, "absent mirror reads as empty")
	assert.Empty(t, raw)

	payload := `[{"id":1,"name":"Combo","type":"percent","value":15,"productIds":[1,2]}]`
	require.NoError(t, env.Client.Set(ctx, redismirror.DefaultMirrorKey, payload, 0).Err())

	promos, raw, err = mirror.Load(ctx)
	require.NoError(t, err)
	require.Len(t, promos, 1)
	assert.Equal(t, "Combo", promos[0].Name)
	assert.Equal(t, payload, raw)

	// Malformed mirror content is reported raw but yields no promotions.
	require.NoError(t, env.Client.Set(ctx, redismirror.DefaultMirrorKey, "not-json", 0).Err())
	promos, raw, err = mirror.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, promos)
	assert.Equal(t, "not-json", raw)
}

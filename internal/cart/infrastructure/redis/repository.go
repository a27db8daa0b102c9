package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/distriar/catalog-sync/internal/cart/application"
	cartdom "github.com/distriar/catalog-sync/internal/cart/domain"
)

const DefaultCartKey = "catalog_cart_v1"

// Repository stores the cart as a JSON blob at a single key. The key is
// shared with sibling agents of the same origin, so reads are parsed
// defensively: anything malformed counts as an absent cart.
type Repository struct {
	rdb *redis.Client
	key string
}

func NewRepository(rdb *redis.Client, key string) *Repository {
	if key == "" {
		key = DefaultCartKey
	}
	return &Repository{rdb: rdb, key: key}
}

func (r *Repository) Load(ctx context.Context) ([]cartdom.Line, error) {
	data, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, application.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []cartdom.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, application.ErrCartNotFound
	}
	return lines, nil
}

func (r *Repository) Save(ctx context.Context, lines []cartdom.Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

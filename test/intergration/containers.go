package intergration

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Env struct {
	Redis  *redis.RedisContainer
	Client *goredis.Client
	Cancel context.CancelFunc
}

func Setup(ctx context.Context) (*Env, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)

	redisC, err := redis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("Ready to accept connections")),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	uri, err := redisC.ConnectionString(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	opts, err := goredis.ParseURL(uri)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Env{
		Redis:  redisC,
		Client: goredis.NewClient(opts),
		Cancel: cancel,
	}, nil
}

func (e *Env) Teardown(ctx context.Context) {
	e.Cancel()
	_ = e.Client.Close()
	_ = e.Redis.Terminate(ctx)
}

package redis

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/saxenaaman628/ranker/config"
)

// NewClient connects to the configured Redis and verifies it with a PING.
func NewClient(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURI,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "connect to redis")
	}

	log.WithField("module", "redis").Infof("Redis connected: %s", pong)
	return rdb, nil
}

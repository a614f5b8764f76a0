// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/xmidt-org/keeper/reader"
)

const defaultKeyPrefix = "keeper:packets:"

var ErrRedisConfig = errors.New("invalid redis cache config")

// RedisConfig points the cache at a redis server.
type RedisConfig struct {
	Address  string `validate:"required"`
	Username string
	Password string
	DB       int `validate:"gte=0"`

	// KeyPrefix namespaces the cache keys.
	KeyPrefix string

	// TTL is the expiry set on every entry.
	TTL time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Redis is a cache shared between instances.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ reader.Cache = (*Redis)(nil)

// NewRedis creates the client. No connection is made until first use.
func NewRedis(config RedisConfig) (*Redis, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisConfig, err)
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaultKeyPrefix
	}
	if config.TTL <= 0 {
		config.TTL = defaultTTL
	}

	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:         config.Address,
			Username:     config.Username,
			Password:     config.Password,
			DB:           config.DB,
			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		}),
		prefix: config.KeyPrefix,
		ttl:    config.TTL,
	}, nil
}

func (r *Redis) key(k reader.CacheKey) string {
	return r.prefix + k.String()
}

func (r *Redis) Get(ctx context.Context, key reader.CacheKey) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *Redis) Put(ctx context.Context, key reader.CacheKey, value []byte) error {
	return r.client.Set(ctx, r.key(key), value, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, key reader.CacheKey) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

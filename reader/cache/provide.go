// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package cache holds the packet read caches.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xmidt-org/keeper/reader"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Cache types
const (
	NoneType  = "none"
	LRUType   = "lru"
	RedisType = "redis"
)

var ErrUnknownType = errors.New("unknown cache type")

// Config selects and configures the cache. An empty Type disables caching.
type Config struct {
	Type  string
	LRU   LRUConfig
	Redis RedisConfig
}

type ProvideIn struct {
	fx.In
	Config Config
	LC     fx.Lifecycle
	Logger *zap.Logger
}

// Provide makes the configured reader.Cache available.
func Provide() fx.Option {
	return fx.Provide(New)
}

// New builds the configured cache and ties its shutdown to the lifecycle.
func New(in ProvideIn) (reader.Cache, error) {
	switch strings.ToLower(in.Config.Type) {
	case "", NoneType:
		in.Logger.Info("packet cache disabled")
		return Nop{}, nil
	case LRUType:
		c, err := NewLRU(in.Config.LRU)
		if err != nil {
			return nil, err
		}
		in.LC.Append(fx.Hook{OnStop: c.Stop})
		in.Logger.Info("using lru packet cache", zap.Int("size", c.config.Size), zap.Duration("ttl", c.config.TTL))
		return c, nil
	case RedisType:
		c, err := NewRedis(in.Config.Redis)
		if err != nil {
			return nil, err
		}
		in.LC.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := c.Ping(ctx); err != nil {
					// reads still work without the cache
					in.Logger.Warn("redis packet cache not reachable", zap.Error(err))
				}
				return nil
			},
			OnStop: func(context.Context) error {
				return c.Close()
			},
		})
		in.Logger.Info("using redis packet cache", zap.String("address", in.Config.Redis.Address))
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, in.Config.Type)
	}
}

// Nop caches nothing.
type Nop struct{}

var _ reader.Cache = Nop{}

func (Nop) Get(context.Context, reader.CacheKey) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Put(context.Context, reader.CacheKey, []byte) error         { return nil }
func (Nop) Invalidate(context.Context, reader.CacheKey) error          { return nil }

// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/xmidt-org/keeper/reader"
)

const (
	defaultSize          = 1024
	defaultTTL           = time.Minute * 5
	defaultCheckInterval = time.Minute
)

// LRUConfig bounds the in process cache.
type LRUConfig struct {
	// Size is the maximum number of entries.
	Size int

	// TTL is how long an entry is served after it was stored.
	TTL time.Duration

	// CheckInterval is how often expired entries are purged.
	CheckInterval time.Duration
}

type envelope struct {
	creation time.Time
	value    []byte
}

// LRU is a size bounded in process cache whose entries expire.
type LRU struct {
	entries *lru.Cache
	config  LRUConfig
	now     func() time.Time
	stop    chan struct{}
	stopped sync.Once
}

var _ reader.Cache = (*LRU)(nil)

func validateLRUConfig(config LRUConfig) LRUConfig {
	if config.Size <= 0 {
		config.Size = defaultSize
	}
	if config.TTL <= 0 {
		config.TTL = defaultTTL
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaultCheckInterval
	}
	return config
}

// NewLRU creates the cache and starts its purge loop. Call Stop to end it.
func NewLRU(config LRUConfig) (*LRU, error) {
	config = validateLRUConfig(config)
	entries, err := lru.New(config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed creating lru cache: %w", err)
	}
	c := &LRU{
		entries: entries,
		config:  config,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	ticker := time.NewTicker(config.CheckInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.CleanUp()
			}
		}
	}()
	return c, nil
}

func (c *LRU) Get(_ context.Context, key reader.CacheKey) ([]byte, bool, error) {
	k := key.String()
	v, ok := c.entries.Get(k)
	if !ok {
		return nil, false, nil
	}
	e := v.(envelope)
	if c.expired(e) {
		c.entries.Remove(k)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *LRU) Put(_ context.Context, key reader.CacheKey, value []byte) error {
	c.entries.Add(key.String(), envelope{
		creation: c.now(),
		value:    append([]byte(nil), value...),
	})
	return nil
}

func (c *LRU) Invalidate(_ context.Context, key reader.CacheKey) error {
	c.entries.Remove(key.String())
	return nil
}

// Len is the number of entries held, expired or not.
func (c *LRU) Len() int {
	return c.entries.Len()
}

// CleanUp removes expired entries.
func (c *LRU) CleanUp() {
	for _, k := range c.entries.Keys() {
		if v, ok := c.entries.Peek(k); ok && c.expired(v.(envelope)) {
			c.entries.Remove(k)
		}
	}
}

// Stop ends the purge loop. It is safe to call more than once.
func (c *LRU) Stop(context.Context) error {
	c.stopped.Do(func() { close(c.stop) })
	return nil
}

func (c *LRU) expired(e envelope) bool {
	return !c.now().Before(e.creation.Add(c.config.TTL))
}

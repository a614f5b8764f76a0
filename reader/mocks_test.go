// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/xmidt-org/keeper/model"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Info() model.ProviderInfo {
	return m.Called().Get(0).(model.ProviderInfo)
}

func (m *mockProvider) ValidatePacket(ctx context.Context, id, source, process string) (bool, error) {
	args := m.Called(ctx, id, source, process)
	return args.Bool(0), args.Error(1)
}

func (m *mockProvider) GetAll(ctx context.Context, id, source, process string) (map[string]interface{}, error) {
	args := m.Called(ctx, id, source, process)
	v, _ := args.Get(0).(map[string]interface{})
	return v, args.Error(1)
}

func (m *mockProvider) GetField(ctx context.Context, id, field, source, process string) (string, error) {
	args := m.Called(ctx, id, field, source, process)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) GetFields(ctx context.Context, id string, fields []string, source, process string) (map[string]string, error) {
	args := m.Called(ctx, id, fields, source, process)
	v, _ := args.Get(0).(map[string]string)
	return v, args.Error(1)
}

func (m *mockProvider) GetDocument(ctx context.Context, id, documentName, source, process string) (model.Document, error) {
	args := m.Called(ctx, id, documentName, source, process)
	v, _ := args.Get(0).(model.Document)
	return v, args.Error(1)
}

func (m *mockProvider) GetBiometric(ctx context.Context, id, person string, modalities []model.BiometricType, source, process string) (model.BiometricRecord, error) {
	args := m.Called(ctx, id, person, modalities, source, process)
	v, _ := args.Get(0).(model.BiometricRecord)
	return v, args.Error(1)
}

func (m *mockProvider) GetMetaInfo(ctx context.Context, id, source, process string) (map[string]string, error) {
	args := m.Called(ctx, id, source, process)
	v, _ := args.Get(0).(map[string]string)
	return v, args.Error(1)
}

var errCacheDown = errors.New("cache down")

// mapCache is a Cache that can be made to fail.
type mapCache struct {
	lock    sync.Mutex
	entries map[string][]byte
	fail    bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key CacheKey) ([]byte, bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.fail {
		return nil, false, errCacheDown
	}
	v, ok := c.entries[key.String()]
	return v, ok, nil
}

func (c *mapCache) Put(_ context.Context, key CacheKey, value []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.fail {
		return errCacheDown
	}
	c.entries[key.String()] = value
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, key CacheKey) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.entries, key.String())
	return nil
}

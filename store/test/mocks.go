// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockAdapter is a testify mock of store.Adapter.
type MockAdapter struct {
	mock.Mock
}

func (s *MockAdapter) Name() string {
	return "MockAdapter"
}

func (s *MockAdapter) PutObject(ctx context.Context, account, id, name string, data io.Reader) (bool, error) {
	args := s.Called(ctx, account, id, name, data)
	return args.Bool(0), args.Error(1)
}

func (s *MockAdapter) GetObject(ctx context.Context, account, id, name string) (io.ReadCloser, error) {
	args := s.Called(ctx, account, id, name)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (s *MockAdapter) GetMetaData(ctx context.Context, account, id, name string) (map[string]string, error) {
	args := s.Called(ctx, account, id, name)
	meta, _ := args.Get(0).(map[string]string)
	return meta, args.Error(1)
}

func (s *MockAdapter) ListMetaData(ctx context.Context, account, id string) (map[string]map[string]string, error) {
	args := s.Called(ctx, account, id)
	metas, _ := args.Get(0).(map[string]map[string]string)
	return metas, args.Error(1)
}

func (s *MockAdapter) AddObjectMetaData(ctx context.Context, account, id, name string, meta map[string]string) (map[string]string, error) {
	args := s.Called(ctx, account, id, name, meta)
	stored, _ := args.Get(0).(map[string]string)
	return stored, args.Error(1)
}

// MockPinger is a MockAdapter that also supports health checks.
type MockPinger struct {
	MockAdapter
}

func (s *MockPinger) Ping(ctx context.Context) error {
	return s.Called(ctx).Error(0)
}

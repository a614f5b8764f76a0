// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockService is a testify mock of crypto.Service.
type MockService struct {
	mock.Mock
}

func (s *MockService) Encrypt(ctx context.Context, id string, plaintext []byte) ([]byte, error) {
	args := s.Called(ctx, id, plaintext)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func (s *MockService) Decrypt(ctx context.Context, id string, ciphertext []byte) ([]byte, error) {
	args := s.Called(ctx, id, ciphertext)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func (s *MockService) Sign(ctx context.Context, payload []byte) ([]byte, error) {
	args := s.Called(ctx, payload)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func (s *MockService) Verify(ctx context.Context, payload []byte) bool {
	return s.Called(ctx, payload).Bool(0)
}

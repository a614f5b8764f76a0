// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cassandra

import (
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/xmidt-org/keeper/store"
)

type mockDB struct {
	mock.Mock
}

func (s *mockDB) Put(account, id, name string, data []byte) error {
	args := s.Called(account, id, name, data)
	return args.Error(0)
}

func (s *mockDB) Get(account, id, name string) ([]byte, error) {
	args := s.Called(account, id, name)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (s *mockDB) GetMeta(account, id, name string) (map[string]string, error) {
	args := s.Called(account, id, name)
	meta, _ := args.Get(0).(map[string]string)
	return meta, args.Error(1)
}

func (s *mockDB) List(account, id string) (map[string]map[string]string, error) {
	args := s.Called(account, id)
	metas, _ := args.Get(0).(map[string]map[string]string)
	return metas, args.Error(1)
}

func (s *mockDB) UpdateMeta(account, id, name string, meta map[string]string) error {
	args := s.Called(account, id, name, meta)
	return args.Error(0)
}

func (s *mockDB) Close() {
	s.Called()
}

func (s *mockDB) Ping() error {
	args := s.Called()
	return args.Error(0)
}

type row struct {
	data []byte
	meta map[string]string
}

// tableDB mimics the packets table semantics.
type tableDB struct {
	lock sync.Mutex
	rows map[[3]string]*row
}

func newTableDB() *tableDB {
	return &tableDB{rows: map[[3]string]*row{}}
}

func (t *tableDB) Put(account, id, name string, data []byte) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	k := [3]string{account, id, name}
	if r, ok := t.rows[k]; ok {
		r.data = data
		return nil
	}
	t.rows[k] = &row{data: data}
	return nil
}

func (t *tableDB) Get(account, id, name string) ([]byte, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	r, ok := t.rows[[3]string{account, id, name}]
	if !ok {
		return nil, noDataResponse
	}
	return r.data, nil
}

func (t *tableDB) GetMeta(account, id, name string) (map[string]string, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	r, ok := t.rows[[3]string{account, id, name}]
	if !ok {
		return nil, noDataResponse
	}
	return store.MergeMetadata(r.meta, nil), nil
}

func (t *tableDB) List(account, id string) (map[string]map[string]string, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	result := map[string]map[string]string{}
	for k, r := range t.rows {
		if k[0] == account && k[1] == id {
			result[k[2]] = store.MergeMetadata(r.meta, nil)
		}
	}
	return result, nil
}

func (t *tableDB) UpdateMeta(account, id, name string, meta map[string]string) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	r, ok := t.rows[[3]string{account, id, name}]
	if !ok {
		return noDataResponse
	}
	r.meta = store.MergeMetadata(r.meta, meta)
	return nil
}

func (t *tableDB) Close()      {}
func (t *tableDB) Ping() error { return nil }

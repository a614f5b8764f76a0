// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cassandra

import (
	"errors"

	"github.com/gocql/gocql"
	"github.com/hailocab/go-hostpool"
	"go.uber.org/zap"
)

// dbStore is the row level DAO. It keeps gocql out of the adapter so the
// adapter can be tested with a mock.
type dbStore interface {
	Put(account, id, name string, data []byte) error
	Get(account, id, name string) ([]byte, error)
	GetMeta(account, id, name string) (map[string]string, error)
	List(account, id string) (map[string]map[string]string, error)
	UpdateMeta(account, id, name string, meta map[string]string) error
	Close()
	Ping() error
}

var (
	noDataResponse = errors.New("no data from query")
	serverClosed   = errors.New("server is closed")
)

type cassandraExecutor struct {
	session *gocql.Session
	logger  *zap.Logger
}

func connect(clusterConfig *gocql.ClusterConfig, logger *zap.Logger) (dbStore, error) {
	clusterConfig.PoolConfig.HostSelectionPolicy = gocql.HostPoolHostPolicy(hostpool.New(nil))
	session, err := clusterConfig.CreateSession()
	if err != nil {
		return nil, err
	}

	return &cassandraExecutor{session: session, logger: logger}, nil
}

// Put leaves the metadata column untouched so a rewrite keeps it.
func (s *cassandraExecutor) Put(account, id, name string, data []byte) error {
	return s.session.Query("INSERT INTO packets (account, id, name, data) VALUES (?,?,?,?)", account, id, name, data).Exec()
}

func (s *cassandraExecutor) Get(account, id, name string) ([]byte, error) {
	var data []byte
	err := s.session.Query("SELECT data FROM packets WHERE account = ? AND id = ? AND name = ?", account, id, name).Scan(&data)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, noDataResponse
	}
	return data, err
}

func (s *cassandraExecutor) GetMeta(account, id, name string) (map[string]string, error) {
	var meta map[string]string
	err := s.session.Query("SELECT metadata FROM packets WHERE account = ? AND id = ? AND name = ?", account, id, name).Scan(&meta)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, noDataResponse
	}
	if meta == nil {
		meta = map[string]string{}
	}
	return meta, err
}

func (s *cassandraExecutor) List(account, id string) (map[string]map[string]string, error) {
	result := map[string]map[string]string{}
	var (
		name string
		meta map[string]string
	)
	iter := s.session.Query("SELECT name, metadata FROM packets WHERE account = ? AND id = ?", account, id).Iter()
	for iter.Scan(&name, &meta) {
		if meta == nil {
			meta = map[string]string{}
		}
		result[name] = meta
		meta = nil
	}
	err := iter.Close()
	if err != nil {
		s.logger.Error("failed to close iter", zap.String("account", account), zap.String("id", id), zap.Error(err))
	}
	return result, err
}

// UpdateMeta merges into the stored map with a lightweight transaction so a
// missing row is reported instead of being created.
func (s *cassandraExecutor) UpdateMeta(account, id, name string, meta map[string]string) error {
	applied, err := s.session.Query("UPDATE packets SET metadata = metadata + ? WHERE account = ? AND id = ? AND name = ? IF EXISTS",
		meta, account, id, name).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return noDataResponse
	}
	return nil
}

func (s *cassandraExecutor) Close() {
	s.session.Close()
}

func (s *cassandraExecutor) Ping() error {
	if s.session.Closed() {
		return serverClosed
	}
	return nil
}

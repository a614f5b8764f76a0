// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"io"
)

// Operation names used in errors, logs and metrics.
const (
	PutOp          = "putObject"
	GetOp          = "getObject"
	GetMetaOp      = "getMetaData"
	ListMetaOp     = "listMetaData"
	AddMetaOp      = "addObjectMetaData"
	PingOp         = "ping"
	DefaultAccount = "PACKET_MANAGER_ACCOUNT"
)

// Adapter is a namespaced blob store with a per object string metadata map.
// Objects are addressed by (account, id, name).
type Adapter interface {
	// Name is the registry name of the implementation.
	Name() string

	// PutObject writes data. false with a nil error means the store declined the write.
	PutObject(ctx context.Context, account, id, name string, data io.Reader) (bool, error)

	// GetObject returns the object content. Callers must close it.
	GetObject(ctx context.Context, account, id, name string) (io.ReadCloser, error)

	// GetMetaData returns the metadata of a single object.
	GetMetaData(ctx context.Context, account, id, name string) (map[string]string, error)

	// ListMetaData returns the metadata of every object stored under id, keyed by object name.
	ListMetaData(ctx context.Context, account, id string) (map[string]map[string]string, error)

	// AddObjectMetaData merges meta into the object's metadata and returns the
	// metadata as persisted.
	AddObjectMetaData(ctx context.Context, account, id, name string, meta map[string]string) (map[string]string, error)
}

// Pinger is implemented by adapters that hold a connection worth health checking.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MergeMetadata returns a copy of current with update applied on top.
func MergeMetadata(current, update map[string]string) map[string]string {
	merged := make(map[string]string, len(current)+len(update))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range update {
		merged[k] = v
	}
	return merged
}

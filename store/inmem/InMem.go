// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package inmem

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/xmidt-org/keeper/store"
)

// Name is the registry name of this adapter.
const Name = "InMemAdapter"

type object struct {
	data []byte
	meta map[string]string
}

// InMem keeps objects in nested maps: account -> id -> name.
type InMem struct {
	data map[string]map[string]map[string]*object
	lock sync.RWMutex
}

var _ store.Adapter = (*InMem)(nil)

func NewInMem() *InMem {
	return &InMem{
		data: map[string]map[string]map[string]*object{},
	}
}

func (i *InMem) Name() string {
	return Name
}

func (i *InMem) PutObject(_ context.Context, account, id, name string, data io.Reader) (bool, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return false, store.Wrap(err, store.PutOp, account, id, name)
	}

	i.lock.Lock()
	defer i.lock.Unlock()
	if i.data[account] == nil {
		i.data[account] = map[string]map[string]*object{}
	}
	if i.data[account][id] == nil {
		i.data[account][id] = map[string]*object{}
	}
	// a rewrite keeps the metadata until it is replaced
	if o, ok := i.data[account][id][name]; ok {
		o.data = b
		return true, nil
	}
	i.data[account][id][name] = &object{data: b, meta: map[string]string{}}
	return true, nil
}

func (i *InMem) lookup(op, account, id, name string) (*object, error) {
	o, ok := i.data[account][id][name]
	if !ok {
		return nil, store.NotFound(op, account, id, name)
	}
	return o, nil
}

func (i *InMem) GetObject(_ context.Context, account, id, name string) (io.ReadCloser, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()
	o, err := i.lookup(store.GetOp, account, id, name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), o.data...))), nil
}

func (i *InMem) GetMetaData(_ context.Context, account, id, name string) (map[string]string, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()
	o, err := i.lookup(store.GetMetaOp, account, id, name)
	if err != nil {
		return nil, err
	}
	return store.MergeMetadata(o.meta, nil), nil
}

func (i *InMem) ListMetaData(_ context.Context, account, id string) (map[string]map[string]string, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()
	result := map[string]map[string]string{}
	for name, o := range i.data[account][id] {
		result[name] = store.MergeMetadata(o.meta, nil)
	}
	return result, nil
}

func (i *InMem) AddObjectMetaData(_ context.Context, account, id, name string, meta map[string]string) (map[string]string, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	o, err := i.lookup(store.AddMetaOp, account, id, name)
	if err != nil {
		return nil, err
	}
	o.meta = store.MergeMetadata(o.meta, meta)
	return store.MergeMetadata(o.meta, nil), nil
}

// Delete removes an object. It is used by tests that simulate tampering.
func (i *InMem) Delete(account, id, name string) {
	i.lock.Lock()
	defer i.lock.Unlock()
	objects := i.data[account][id]
	delete(objects, name)
	if len(objects) == 0 {
		delete(i.data[account], id)
	}
}

// Overwrite replaces an object's content without touching its metadata.
func (i *InMem) Overwrite(account, id, name string, data []byte) bool {
	i.lock.Lock()
	defer i.lock.Unlock()
	o, ok := i.data[account][id][name]
	if ok {
		o.data = append([]byte(nil), data...)
	}
	return ok
}

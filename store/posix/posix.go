// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package posix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	atomic_file "github.com/natefinch/atomic"
	"github.com/xmidt-org/keeper/store"
)

// Name is the registry name of this adapter.
const Name = "PosixAdapter"

const (
	metaSuffix = ".meta.json"
	dirMode    = 0o750
)

var errUnsafePath = errors.New("path segment escapes the storage root")

// Config configures the filesystem layout.
type Config struct {
	// Root is the base directory. Objects live at Root/account/id/name.
	Root string
}

// Posix stores each object as a file with a JSON metadata sidecar next to it.
// Writes go through a temp file and rename so readers never see partial content.
type Posix struct {
	root string
	lock sync.RWMutex
}

var _ store.Adapter = (*Posix)(nil)

func NewPosix(config Config) (*Posix, error) {
	if config.Root == "" {
		return nil, errors.New("posix adapter root is required")
	}
	if err := os.MkdirAll(config.Root, dirMode); err != nil {
		return nil, fmt.Errorf("failed creating posix root: %w", err)
	}
	return &Posix{root: config.Root}, nil
}

func (p *Posix) Name() string {
	return Name
}

func safe(segment string) error {
	if segment == "" || segment == "." || segment == ".." || strings.ContainsAny(segment, `/\`) {
		return fmt.Errorf("%w: %q", errUnsafePath, segment)
	}
	return nil
}

func (p *Posix) dir(account, id string) (string, error) {
	for _, s := range []string{account, id} {
		if err := safe(s); err != nil {
			return "", err
		}
	}
	return filepath.Join(p.root, account, id), nil
}

func (p *Posix) paths(account, id, name string) (string, string, error) {
	dir, err := p.dir(account, id)
	if err != nil {
		return "", "", err
	}
	if err := safe(name); err != nil {
		return "", "", err
	}
	if strings.HasSuffix(name, metaSuffix) {
		return "", "", fmt.Errorf("%w: %q", errUnsafePath, name)
	}
	object := filepath.Join(dir, name)
	return object, object + metaSuffix, nil
}

func (p *Posix) PutObject(_ context.Context, account, id, name string, data io.Reader) (bool, error) {
	object, _, err := p.paths(account, id, name)
	if err != nil {
		return false, store.Wrap(err, store.PutOp, account, id, name)
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if err := os.MkdirAll(filepath.Dir(object), dirMode); err != nil {
		return false, store.Wrap(err, store.PutOp, account, id, name)
	}
	if err := atomic_file.WriteFile(object, data); err != nil {
		return false, store.Wrap(err, store.PutOp, account, id, name)
	}
	return true, nil
}

func (p *Posix) GetObject(_ context.Context, account, id, name string) (io.ReadCloser, error) {
	object, _, err := p.paths(account, id, name)
	if err != nil {
		return nil, store.Wrap(err, store.GetOp, account, id, name)
	}

	p.lock.RLock()
	defer p.lock.RUnlock()
	b, err := os.ReadFile(object)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.NotFound(store.GetOp, account, id, name)
	}
	if err != nil {
		return nil, store.Wrap(err, store.GetOp, account, id, name)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// readMeta expects the object to exist. A missing sidecar is empty metadata.
func readMeta(op, object, meta, account, id, name string) (map[string]string, error) {
	if _, err := os.Stat(object); errors.Is(err, fs.ErrNotExist) {
		return nil, store.NotFound(op, account, id, name)
	}
	b, err := os.ReadFile(meta)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, store.Wrap(err, op, account, id, name)
	}
	result := map[string]string{}
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, store.Wrap(err, op, account, id, name)
	}
	return result, nil
}

func (p *Posix) GetMetaData(_ context.Context, account, id, name string) (map[string]string, error) {
	object, meta, err := p.paths(account, id, name)
	if err != nil {
		return nil, store.Wrap(err, store.GetMetaOp, account, id, name)
	}

	p.lock.RLock()
	defer p.lock.RUnlock()
	return readMeta(store.GetMetaOp, object, meta, account, id, name)
}

func (p *Posix) ListMetaData(_ context.Context, account, id string) (map[string]map[string]string, error) {
	dir, err := p.dir(account, id)
	if err != nil {
		return nil, store.Wrap(err, store.ListMetaOp, account, id, "")
	}

	p.lock.RLock()
	defer p.lock.RUnlock()
	result := map[string]map[string]string{}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return nil, store.Wrap(err, store.ListMetaOp, account, id, "")
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), metaSuffix) {
			continue
		}
		object := filepath.Join(dir, e.Name())
		meta, err := readMeta(store.ListMetaOp, object, object+metaSuffix, account, id, e.Name())
		if err != nil {
			return nil, err
		}
		result[e.Name()] = meta
	}
	return result, nil
}

func (p *Posix) AddObjectMetaData(_ context.Context, account, id, name string, meta map[string]string) (map[string]string, error) {
	object, sidecar, err := p.paths(account, id, name)
	if err != nil {
		return nil, store.Wrap(err, store.AddMetaOp, account, id, name)
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	current, err := readMeta(store.AddMetaOp, object, sidecar, account, id, name)
	if err != nil {
		return nil, err
	}
	merged := store.MergeMetadata(current, meta)
	b, err := json.Marshal(merged)
	if err != nil {
		return nil, store.Wrap(err, store.AddMetaOp, account, id, name)
	}
	if err := atomic_file.WriteFile(sidecar, bytes.NewReader(b)); err != nil {
		return nil, store.Wrap(err, store.AddMetaOp, account, id, name)
	}
	return merged, nil
}

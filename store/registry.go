// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xmidt-org/keeper/model"
)

// Factory builds an Adapter.
type Factory func() (Adapter, error)

// Registry maps adapter names to factories. Names are case-insensitive.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds a factory under name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.factories[normalize(name)] = f
}

// Names lists the registered adapter names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve builds the adapter registered under name.
func (r *Registry) Resolve(name string) (Adapter, error) {
	f, ok := r.factories[normalize(name)]
	if !ok {
		return nil, model.NewError(model.UnknownResourceCode,
			fmt.Sprintf("Unknown resource provided: object store adapter %q, expected one of %v", name, r.Names()),
			ErrUnknownAdapter)
	}
	return f()
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

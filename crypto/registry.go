// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"errors"
	"fmt"
	"sort"

	"github.com/xmidt-org/keeper/model"
)

// ErrUnknownService is returned when a configured crypto name matches no
// registered implementation.
var ErrUnknownService = errors.New("unknown crypto service")

// Factory builds a Service.
type Factory func() (Service, error)

// Registry maps implementation names to factories. Names are case-insensitive.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds a factory under name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.factories[normalize(name)] = f
}

// Names lists the registered implementation names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve builds the implementation registered under name. An unknown name is a
// configuration error.
func (r *Registry) Resolve(name string) (Service, error) {
	f, ok := r.factories[normalize(name)]
	if !ok {
		return nil, model.NewError(model.UnknownResourceCode,
			fmt.Sprintf("Unknown resource provided: crypto %q, expected one of %v", name, r.Names()),
			ErrUnknownService)
	}
	return f()
}

// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// CacheKey identifies a cached read. Name is the single named target of a
// read, such as a field, document or person. Attribute order is not
// significant.
type CacheKey struct {
	Operation  string
	ID         string
	Name       string
	Attributes []string
	Source     string
	Process    string
}

// String renders the key in a stable form usable by external caches. Every
// element is length prefixed so separators inside values cannot collide.
func (k CacheKey) String() string {
	attributes := append([]string(nil), k.Attributes...)
	sort.Strings(attributes)

	var b strings.Builder
	for _, s := range []string{k.Operation, k.ID, k.Name, k.Source, k.Process} {
		writeElement(&b, s)
	}
	b.WriteString(strconv.Itoa(len(attributes)))
	b.WriteByte('#')
	for _, s := range attributes {
		writeElement(&b, s)
	}
	return b.String()
}

func writeElement(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
	b.WriteByte('|')
}

// Cache holds JSON encoded read results.
type Cache interface {
	// Get returns the value under key. ok is false on a miss.
	Get(ctx context.Context, key CacheKey) (value []byte, ok bool, err error)
	Put(ctx context.Context, key CacheKey, value []byte) error
	Invalidate(ctx context.Context, key CacheKey) error
}

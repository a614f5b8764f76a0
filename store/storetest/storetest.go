// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package storetest holds the behavior every store.Adapter must share.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/keeper/model"
	"github.com/xmidt-org/keeper/store"
)

const (
	Account = "PACKET_MANAGER_ACCOUNT"
	ID      = "10001100020000120201231235959"
	Name    = ID + "_id"
	Other   = ID + "_evidence"
)

var (
	Data     = []byte("encrypted packet content")
	Metadata = map[string]string{
		model.IDKey:            ID,
		model.PacketNameKey:    "id",
		model.SourceKey:        "REGISTRATION_CLIENT",
		model.EncryptedHashKey: "aGFzaA==",
	}
)

// AdapterTest exercises the full adapter contract against s.
func AdapterTest(t *testing.T, s store.Adapter) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	t.Log("missing objects")
	_, err := s.GetObject(ctx, Account, ID, Name)
	assert.True(errors.Is(err, store.ErrObjectNotFound))
	code, _ := model.CodeOf(err)
	assert.Equal(model.PacketNotFoundCode, code)

	_, err = s.GetMetaData(ctx, Account, ID, Name)
	assert.True(errors.Is(err, store.ErrObjectNotFound))

	_, err = s.AddObjectMetaData(ctx, Account, ID, Name, Metadata)
	assert.True(errors.Is(err, store.ErrObjectNotFound))

	metas, err := s.ListMetaData(ctx, Account, ID)
	require.NoError(err)
	assert.Empty(metas)

	t.Log("put and get")
	ok, err := s.PutObject(ctx, Account, ID, Name, bytes.NewReader(Data))
	require.NoError(err)
	assert.True(ok)

	rc, err := s.GetObject(ctx, Account, ID, Name)
	require.NoError(err)
	got, err := io.ReadAll(rc)
	require.NoError(err)
	require.NoError(rc.Close())
	assert.Equal(Data, got)

	meta, err := s.GetMetaData(ctx, Account, ID, Name)
	require.NoError(err)
	assert.Empty(meta)

	t.Log("metadata")
	stored, err := s.AddObjectMetaData(ctx, Account, ID, Name, Metadata)
	require.NoError(err)
	assert.Equal(Metadata, stored)

	stored, err = s.AddObjectMetaData(ctx, Account, ID, Name, map[string]string{model.SignatureKey: "c2ln"})
	require.NoError(err)
	assert.Equal(store.MergeMetadata(Metadata, map[string]string{model.SignatureKey: "c2ln"}), stored)

	meta, err = s.GetMetaData(ctx, Account, ID, Name)
	require.NoError(err)
	assert.Equal(stored, meta)

	t.Log("listing")
	ok, err = s.PutObject(ctx, Account, ID, Other, bytes.NewReader([]byte("second")))
	require.NoError(err)
	assert.True(ok)

	metas, err = s.ListMetaData(ctx, Account, ID)
	require.NoError(err)
	assert.Len(metas, 2)
	assert.Equal(stored, metas[Name])
	assert.Empty(metas[Other])

	t.Log("accounts are isolated")
	_, err = s.GetObject(ctx, "OTHER_ACCOUNT", ID, Name)
	assert.True(errors.Is(err, store.ErrObjectNotFound))

	t.Log("last write wins")
	ok, err = s.PutObject(ctx, Account, ID, Name, bytes.NewReader([]byte("rewritten")))
	require.NoError(err)
	assert.True(ok)
	rc, err = s.GetObject(ctx, Account, ID, Name)
	require.NoError(err)
	got, err = io.ReadAll(rc)
	require.NoError(err)
	rc.Close()
	assert.Equal([]byte("rewritten"), got)
}

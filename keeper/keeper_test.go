// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package keeper

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/keeper/crypto"
	"github.com/xmidt-org/keeper/crypto/offline"
	cryptotest "github.com/xmidt-org/keeper/crypto/test"
	"github.com/xmidt-org/keeper/model"
	"github.com/xmidt-org/keeper/store"
	"github.com/xmidt-org/keeper/store/inmem"
	storetest "github.com/xmidt-org/keeper/store/test"
	"go.uber.org/zap"
)

const (
	testPacketID   = "10001100020000120201231235959"
	testPacketName = "id"
)

var testPlaintext = []byte(`{"identity":{"fullName":"Jane Doe","dateOfBirth":"1990/01/01"}}`)

func newOfflineCrypto(t *testing.T) *offline.Service {
	s, err := offline.New(offline.Config{
		MasterKey:       base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, 32)),
		SigningKey:      base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x17}, 32)),
		CenterIDLength:  5,
		MachineIDLength: 5,
	})
	require.NoError(t, err)
	return s
}

func newTestMeasures() Measures {
	return Measures{
		Operations:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: OperationCounter}, []string{OperationLabel, OutcomeLabel}),
		IntegrityFailures: prometheus.NewCounter(prometheus.CounterOpts{Name: IntegrityFailureCounter}),
		Duration:          prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: OperationDurationSeconds}, []string{OperationLabel}),
	}
}

func testPacket() model.Packet {
	return model.Packet{
		Info: model.PacketInfo{
			ID:              testPacketID,
			PacketName:      testPacketName,
			Source:          "REGISTRATION_CLIENT",
			Process:         "NEW",
			SchemaVersion:   "0.1",
			ProviderName:    "PacketReaderImpl",
			ProviderVersion: "v1.0",
			CreationDate:    "2020-12-31T23:59:59.000Z",
			Extra:           map[string]string{"operator": "110012"},
		},
		Data: testPlaintext,
	}
}

func newTestKeeper(t *testing.T) (*Keeper, *inmem.InMem, Measures) {
	a := inmem.NewInMem()
	m := newTestMeasures()
	return New(Config{}, a, newOfflineCrypto(t), m, zap.NewNop()), a, m
}

func TestPutGetRoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	k, a, m := newTestKeeper(t)
	ctx := context.Background()

	info, err := k.PutPacket(ctx, testPacket())
	require.NoError(err)
	assert.Equal(testPacketID, info.ID)
	assert.Equal(testPacketName, info.PacketName)
	assert.Equal("NEW", info.Process)
	assert.Equal("110012", info.Extra["operator"])
	assert.NotEmpty(info.Signature)
	assert.NotEmpty(info.EncryptedHash)

	rc, err := a.GetObject(ctx, store.DefaultAccount, testPacketID, ObjectName(testPacketID, testPacketName))
	require.NoError(err)
	encrypted, _ := io.ReadAll(rc)
	assert.NotContains(string(encrypted), "Jane Doe")
	assert.Equal(Hash(encrypted), info.EncryptedHash)

	packet, err := k.GetPacket(ctx, model.PacketInfo{ID: testPacketID, PacketName: testPacketName})
	require.NoError(err)
	assert.Equal(testPlaintext, packet.Data)
	assert.Equal(info, packet.Info)

	assert.Equal(1.0, testutil.ToFloat64(m.Operations.WithLabelValues(PutOperation, SuccessOutcome)))
	assert.Equal(1.0, testutil.ToFloat64(m.Operations.WithLabelValues(GetOperation, SuccessOutcome)))
}

func TestGetPacketIntegrity(t *testing.T) {
	tcs := []struct {
		Description string
		Tamper      func(t *testing.T, a *inmem.InMem, c crypto.Service)
	}{
		{
			Description: "stored bit flipped",
			Tamper: func(t *testing.T, a *inmem.InMem, _ crypto.Service) {
				// authenticated decryption would reject this too, so the hash has to be checked first
				name := ObjectName(testPacketID, testPacketName)
				rc, err := a.GetObject(context.Background(), store.DefaultAccount, testPacketID, name)
				require.NoError(t, err)
				encrypted, err := io.ReadAll(rc)
				require.NoError(t, err)
				require.NotEmpty(t, encrypted)
				encrypted[len(encrypted)-1] ^= 0x01
				require.True(t, a.Overwrite(store.DefaultAccount, testPacketID, name, encrypted))
			},
		},
		{
			Description: "encrypted bytes replaced",
			Tamper: func(t *testing.T, a *inmem.InMem, c crypto.Service) {
				// a fresh encryption of the same plaintext decrypts fine but hashes differently
				other, err := c.Encrypt(context.Background(), testPacketID, testPlaintext)
				require.NoError(t, err)
				require.True(t, a.Overwrite(store.DefaultAccount, testPacketID, ObjectName(testPacketID, testPacketName), other))
			},
		},
		{
			Description: "hash metadata altered",
			Tamper: func(t *testing.T, a *inmem.InMem, _ crypto.Service) {
				_, err := a.AddObjectMetaData(context.Background(), store.DefaultAccount, testPacketID,
					ObjectName(testPacketID, testPacketName), map[string]string{model.EncryptedHashKey: Hash([]byte("other"))})
				require.NoError(t, err)
			},
		},
		{
			Description: "signature metadata altered",
			Tamper: func(t *testing.T, a *inmem.InMem, _ crypto.Service) {
				_, err := a.AddObjectMetaData(context.Background(), store.DefaultAccount, testPacketID,
					ObjectName(testPacketID, testPacketName), map[string]string{model.SignatureKey: "c2lnbmF0dXJl"})
				require.NoError(t, err)
			},
		},
		{
			Description: "metadata missing",
			Tamper: func(t *testing.T, a *inmem.InMem, c crypto.Service) {
				name := ObjectName(testPacketID, testPacketName)
				rc, err := a.GetObject(context.Background(), store.DefaultAccount, testPacketID, name)
				require.NoError(t, err)
				encrypted, _ := io.ReadAll(rc)
				a.Delete(store.DefaultAccount, testPacketID, name)
				ok, err := a.PutObject(context.Background(), store.DefaultAccount, testPacketID, name, bytes.NewReader(encrypted))
				require.NoError(t, err)
				require.True(t, ok)
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			c := newOfflineCrypto(t)
			a := inmem.NewInMem()
			m := newTestMeasures()
			k := New(Config{}, a, c, m, zap.NewNop())
			_, err := k.PutPacket(context.Background(), testPacket())
			require.NoError(t, err)

			tc.Tamper(t, a, c)

			packet, err := k.GetPacket(context.Background(), model.PacketInfo{ID: testPacketID, PacketName: testPacketName})
			assert.Empty(packet.Data)
			assert.True(errors.Is(err, ErrIntegrity))
			code, _ := model.CodeOf(err)
			assert.Equal(model.IntegrityFailureCode, code)
			assert.Equal(1.0, testutil.ToFloat64(m.IntegrityFailures))
			assert.Equal(1.0, testutil.ToFloat64(m.Operations.WithLabelValues(GetOperation, IntegrityOutcome)))
		})
	}
}

func TestPutPacketFailures(t *testing.T) {
	var (
		name       = ObjectName(testPacketID, testPacketName)
		errStorage = errors.New("disk on fire")
	)

	tcs := []struct {
		Description     string
		Packet          model.Packet
		Setup           func(*storetest.MockAdapter, *cryptotest.MockService)
		ExpectedCode    string
		ExpectedErr     error
		ExpectedMessage string
	}{
		{
			Description:  "missing name",
			Packet:       model.Packet{Info: model.PacketInfo{ID: testPacketID}, Data: testPlaintext},
			Setup:        func(*storetest.MockAdapter, *cryptotest.MockService) {},
			ExpectedCode: model.KeeperPutFailureCode,
			ExpectedErr:  ErrMissingMetadata,
		},
		{
			Description: "encryption failure keeps its code",
			Packet:      testPacket(),
			Setup: func(_ *storetest.MockAdapter, c *cryptotest.MockService) {
				c.On("Encrypt", mock.Anything, testPacketID, testPlaintext).
					Return(nil, crypto.NewAPINotAccessibleError("", errors.New("refused")))
			},
			ExpectedCode: model.APINotAccessibleCode,
			ExpectedErr:  crypto.ErrAPINotAccessible,
		},
		{
			Description: "store declined",
			Packet:      testPacket(),
			Setup: func(a *storetest.MockAdapter, c *cryptotest.MockService) {
				c.On("Encrypt", mock.Anything, testPacketID, testPlaintext).Return([]byte("encrypted"), nil)
				a.On("PutObject", mock.Anything, store.DefaultAccount, testPacketID, name, mock.Anything).Return(false, nil)
			},
			ExpectedCode:    model.KeeperPutFailureCode,
			ExpectedErr:     ErrPutFailed,
			ExpectedMessage: putFailedMessage,
		},
		{
			Description: "unstructured store error",
			Packet:      testPacket(),
			Setup: func(a *storetest.MockAdapter, c *cryptotest.MockService) {
				c.On("Encrypt", mock.Anything, testPacketID, testPlaintext).Return([]byte("encrypted"), nil)
				a.On("PutObject", mock.Anything, store.DefaultAccount, testPacketID, name, mock.Anything).Return(false, errStorage)
			},
			ExpectedCode:    model.KeeperPutFailureCode,
			ExpectedErr:     errStorage,
			ExpectedMessage: persistFailedMessage + " : disk on fire",
		},
		{
			Description: "signing after store",
			Packet:      testPacket(),
			Setup: func(a *storetest.MockAdapter, c *cryptotest.MockService) {
				c.On("Encrypt", mock.Anything, testPacketID, testPlaintext).Return([]byte("encrypted"), nil)
				a.On("PutObject", mock.Anything, store.DefaultAccount, testPacketID, name, mock.Anything).Return(true, nil)
				c.On("Sign", mock.Anything, testPlaintext).Return(nil, crypto.NewSignatureError("", nil))
			},
			ExpectedCode: model.SignatureFailureCode,
			ExpectedErr:  crypto.ErrSignature,
		},
		{
			Description: "metadata after store",
			Packet:      testPacket(),
			Setup: func(a *storetest.MockAdapter, c *cryptotest.MockService) {
				c.On("Encrypt", mock.Anything, testPacketID, testPlaintext).Return([]byte("encrypted"), nil)
				a.On("PutObject", mock.Anything, store.DefaultAccount, testPacketID, name, mock.Anything).Return(true, nil)
				c.On("Sign", mock.Anything, testPlaintext).Return([]byte("signature"), nil)
				a.On("AddObjectMetaData", mock.Anything, store.DefaultAccount, testPacketID, name, mock.Anything).
					Return(nil, store.Wrap(errStorage, store.AddMetaOp, store.DefaultAccount, testPacketID, name))
			},
			ExpectedCode: model.ObjectStoreFailureCode,
			ExpectedErr:  errStorage,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			a := new(storetest.MockAdapter)
			c := new(cryptotest.MockService)
			tc.Setup(a, c)
			k := New(Config{}, a, c, Measures{}, nil)

			info, err := k.PutPacket(context.Background(), tc.Packet)
			assert.Empty(info)
			require.Error(t, err)
			assert.True(errors.Is(err, tc.ExpectedErr), err.Error())
			code, _ := model.CodeOf(err)
			assert.Equal(tc.ExpectedCode, code)
			if tc.ExpectedMessage != "" {
				assert.Equal(tc.ExpectedMessage, model.MessageOf(err))
			}
			a.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestPutPacketRecordsSignatureAndHash(t *testing.T) {
	assert := assert.New(t)
	name := ObjectName(testPacketID, testPacketName)
	a := new(storetest.MockAdapter)
	c := new(cryptotest.MockService)
	c.On("Encrypt", mock.Anything, testPacketID, testPlaintext).Return([]byte("encrypted"), nil)
	c.On("Sign", mock.Anything, testPlaintext).Return([]byte("signature"), nil)
	a.On("PutObject", mock.Anything, "CUSTOM", testPacketID, name, mock.Anything).Return(true, nil)
	a.On("AddObjectMetaData", mock.Anything, "CUSTOM", testPacketID, name, mock.MatchedBy(func(meta map[string]string) bool {
		return meta[model.SignatureKey] == base64.StdEncoding.EncodeToString([]byte("signature")) &&
			meta[model.EncryptedHashKey] == Hash([]byte("encrypted")) &&
			meta[model.SourceKey] == "REGISTRATION_CLIENT"
	})).Return(map[string]string{model.IDKey: testPacketID, model.PacketNameKey: testPacketName, "persisted": "true"}, nil)

	k := New(Config{Account: "CUSTOM"}, a, c, Measures{}, nil)
	info, err := k.PutPacket(context.Background(), testPacket())
	require.NoError(t, err)
	// the answer comes from the store, not the request
	assert.Equal(model.PacketInfo{ID: testPacketID, PacketName: testPacketName, Extra: map[string]string{"persisted": "true"}}, info)
	a.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestGetPacketFailures(t *testing.T) {
	name := ObjectName(testPacketID, testPacketName)
	tcs := []struct {
		Description     string
		Setup           func(*storetest.MockAdapter, *cryptotest.MockService)
		ExpectedCode    string
		ExpectedMessage string
	}{
		{
			Description: "not found keeps its code",
			Setup: func(a *storetest.MockAdapter, _ *cryptotest.MockService) {
				a.On("GetObject", mock.Anything, store.DefaultAccount, testPacketID, name).
					Return(nil, store.NotFound(store.GetOp, store.DefaultAccount, testPacketID, name))
			},
			ExpectedCode: model.PacketNotFoundCode,
		},
		{
			Description: "unstructured error gets the generic code",
			Setup: func(a *storetest.MockAdapter, _ *cryptotest.MockService) {
				a.On("GetObject", mock.Anything, store.DefaultAccount, testPacketID, name).
					Return(nil, errors.New("connection reset"))
			},
			ExpectedCode:    model.KeeperGetFailureCode,
			ExpectedMessage: getFailedMessage + " : connection reset",
		},
		{
			Description: "decryption failure keeps its code",
			Setup: func(a *storetest.MockAdapter, c *cryptotest.MockService) {
				a.On("GetObject", mock.Anything, store.DefaultAccount, testPacketID, name).
					Return(io.NopCloser(bytes.NewReader([]byte("encrypted"))), nil)
				a.On("GetMetaData", mock.Anything, store.DefaultAccount, testPacketID, name).
					Return(map[string]string{model.EncryptedHashKey: Hash([]byte("encrypted"))}, nil)
				c.On("Decrypt", mock.Anything, testPacketID, []byte("encrypted")).
					Return(nil, crypto.NewDecryptionError("key not found", nil))
			},
			ExpectedCode:    model.DecryptionFailureCode,
			ExpectedMessage: "key not found",
		},
		{
			Description: "metadata failure",
			Setup: func(a *storetest.MockAdapter, c *cryptotest.MockService) {
				a.On("GetObject", mock.Anything, store.DefaultAccount, testPacketID, name).
					Return(io.NopCloser(bytes.NewReader([]byte("encrypted"))), nil)
				a.On("GetMetaData", mock.Anything, store.DefaultAccount, testPacketID, name).
					Return(nil, store.Wrap(errors.New("timeout"), store.GetMetaOp, store.DefaultAccount, testPacketID, name))
			},
			ExpectedCode: model.ObjectStoreFailureCode,
		},
		{
			Description: "hash mismatch is never decrypted",
			Setup: func(a *storetest.MockAdapter, _ *cryptotest.MockService) {
				a.On("GetObject", mock.Anything, store.DefaultAccount, testPacketID, name).
					Return(io.NopCloser(bytes.NewReader([]byte("encrypted"))), nil)
				a.On("GetMetaData", mock.Anything, store.DefaultAccount, testPacketID, name).
					Return(map[string]string{model.EncryptedHashKey: Hash([]byte("tampered"))}, nil)
			},
			ExpectedCode:    model.IntegrityFailureCode,
			ExpectedMessage: "Packet integrity check failed for " + name,
		},
		{
			Description: "signing during verification",
			Setup: func(a *storetest.MockAdapter, c *cryptotest.MockService) {
				a.On("GetObject", mock.Anything, store.DefaultAccount, testPacketID, name).
					Return(io.NopCloser(bytes.NewReader([]byte("encrypted"))), nil)
				a.On("GetMetaData", mock.Anything, store.DefaultAccount, testPacketID, name).
					Return(map[string]string{model.EncryptedHashKey: Hash([]byte("encrypted"))}, nil)
				c.On("Decrypt", mock.Anything, testPacketID, []byte("encrypted")).Return(testPlaintext, nil)
				c.On("Sign", mock.Anything, testPlaintext).Return(nil, crypto.NewSignatureError("", nil))
			},
			ExpectedCode: model.SignatureFailureCode,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			a := new(storetest.MockAdapter)
			c := new(cryptotest.MockService)
			tc.Setup(a, c)
			k := New(Config{}, a, c, Measures{}, nil)

			packet, err := k.GetPacket(context.Background(), model.PacketInfo{ID: testPacketID, PacketName: testPacketName})
			assert.Empty(packet.Data)
			require.Error(t, err)
			code, _ := model.CodeOf(err)
			assert.Equal(tc.ExpectedCode, code)
			if tc.ExpectedMessage != "" {
				assert.Equal(tc.ExpectedMessage, model.MessageOf(err))
			}
			a.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestCheckSignatureEvaluatesBoth(t *testing.T) {
	assert := assert.New(t)
	c := new(cryptotest.MockService)
	c.On("Sign", mock.Anything, testPlaintext).Return([]byte("signature"), nil).Once()
	k := New(Config{}, new(storetest.MockAdapter), c, Measures{}, nil)

	packet := model.Packet{
		Info: model.PacketInfo{
			ID:            testPacketID,
			Signature:     base64.StdEncoding.EncodeToString([]byte("signature")),
			EncryptedHash: "bogus",
		},
		Data: testPlaintext,
	}
	ok, err := k.CheckSignature(context.Background(), packet, []byte("encrypted"))
	assert.NoError(err)
	assert.False(ok)
	c.AssertExpectations(t)

	packet.Info.EncryptedHash = Hash([]byte("encrypted"))
	c.On("Sign", mock.Anything, testPlaintext).Return([]byte("signature"), nil).Once()
	ok, err = k.CheckSignature(context.Background(), packet, []byte("encrypted"))
	assert.NoError(err)
	assert.True(ok)
}

func TestCheckIntegrity(t *testing.T) {
	assert := assert.New(t)
	k := New(Config{}, nil, nil, Measures{}, nil)
	encrypted := []byte("encrypted")

	assert.True(k.CheckIntegrity(model.PacketInfo{EncryptedHash: Hash(encrypted)}, encrypted))
	assert.False(k.CheckIntegrity(model.PacketInfo{EncryptedHash: Hash(encrypted)}, []byte("encrypteD")))
	assert.False(k.CheckIntegrity(model.PacketInfo{}, encrypted))
}

func TestGetManifest(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	k, _, _ := newTestKeeper(t)
	ctx := context.Background()

	manifest, err := k.GetManifest(ctx, testPacketID)
	require.NoError(err)
	assert.Empty(manifest.PacketInfos)

	for _, name := range []string{"id", "evidence", "optional"} {
		p := testPacket()
		p.Info.PacketName = name
		_, err := k.PutPacket(ctx, p)
		require.NoError(err)
	}

	manifest, err = k.GetManifest(ctx, testPacketID)
	require.NoError(err)
	var names []string
	for _, info := range manifest.PacketInfos {
		assert.Equal(testPacketID, info.ID)
		assert.NotEmpty(info.Signature)
		names = append(names, info.PacketName)
	}
	assert.ElementsMatch([]string{"id", "evidence", "optional"}, names)
}

func TestGetManifestFailure(t *testing.T) {
	a := new(storetest.MockAdapter)
	a.On("ListMetaData", mock.Anything, store.DefaultAccount, testPacketID).Return(nil, errors.New("unreachable"))
	k := New(Config{}, a, nil, Measures{}, nil)

	_, err := k.GetManifest(context.Background(), testPacketID)
	code, _ := model.CodeOf(err)
	assert.Equal(t, model.KeeperGetFailureCode, code)
}

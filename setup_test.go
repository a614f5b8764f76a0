// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/keeper/crypto/provider"
	"github.com/xmidt-org/keeper/keeper"
	"github.com/xmidt-org/keeper/reader"
	"github.com/xmidt-org/keeper/reader/cache"
	"github.com/xmidt-org/keeper/store/db"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) string {
	file := filepath.Join(t.TempDir(), "keeper.yaml")
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))
	return file
}

func TestSetupSampleConfig(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	v, logger, err := setup([]string{"--file", "keeper.yaml"})
	require.NoError(err)
	require.NotNil(logger)

	k, err := unmarshalKey[keeper.Config]("keeper")(v)
	require.NoError(err)
	assert.Equal("posix", k.AdapterName)
	assert.Equal("offline", k.CryptoName)

	iv, err := unmarshalKey[keeper.UserInputValidationConfig]("inputValidation")(v)
	require.NoError(err)
	assert.EqualValues(64<<20, iv.MaxBodyBytes)

	stores, err := unmarshalKey[db.Configs]("stores")(v)
	require.NoError(err)
	require.NotNil(stores.Posix)
	assert.Nil(stores.S3)
	assert.Nil(stores.Cassandra)

	cryptos, err := unmarshalKey[provider.Configs]("crypto")(v)
	require.NoError(err)
	require.NotNil(cryptos.Offline)
	assert.Equal(5, cryptos.Offline.CenterIDLength)
	assert.Nil(cryptos.Online)

	r, err := unmarshalKey[reader.Config]("reader")(v)
	require.NoError(err)
	assert.Equal("REGISTRATION_CLIENT,RESIDENT", r.Sources)

	c, err := unmarshalKey[cache.Config]("cache")(v)
	require.NoError(err)
	assert.Equal(cache.LRUType, c.Type)
	assert.Equal(5*time.Minute, c.LRU.TTL)

	s, err := unmarshalKey[ServerConfig]("servers.primary")(v)
	require.NoError(err)
	assert.Equal(":6600", s.Address)
	assert.Equal(2*time.Minute, s.IdleTimeout)
}

func TestSetupDebug(t *testing.T) {
	file := writeConfig(t, "logging:\n  level: error\n  encoding: json\n  outputPaths:\n    - stdout\n")
	_, logger, err := setup([]string{"-f", file, "--debug"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestSetupErrors(t *testing.T) {
	tcs := []struct {
		Description string
		Args        []string
		Expected    error
	}{
		{
			Description: "help",
			Args:        []string{"--help"},
			Expected:    pflag.ErrHelp,
		},
		{
			Description: "unknown flag",
			Args:        []string{"--unknown"},
		},
		{
			Description: "missing file",
			Args:        []string{"--file", filepath.Join(t.TempDir(), "missing.yaml")},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			_, _, err := setup(tc.Args)
			require.Error(t, err)
			if tc.Expected != nil {
				assert.True(t, errors.Is(err, tc.Expected))
			}
		})
	}
}

func TestSetupSelections(t *testing.T) {
	const logging = "logging:\n  level: info\n  encoding: json\n  outputPaths:\n    - stdout\n"
	tcs := []struct {
		Description string
		Config      string
		ExpectedErr error
	}{
		{
			Description: "nothing selected",
			Config:      logging,
		},
		{
			Description: "selections configured",
			Config:      logging + "keeper:\n  adapterName: POSIX\n  cryptoName: offline\nstores:\n  posix:\n    root: /tmp\ncrypto:\n  offline:\n    centerIDLength: 5\n",
		},
		{
			Description: "store section missing",
			Config:      logging + "keeper:\n  adapterName: s3\nstores:\n  posix:\n    root: /tmp\n",
			ExpectedErr: errMissingSection,
		},
		{
			Description: "crypto section missing",
			Config:      logging + "keeper:\n  cryptoName: online\ncrypto:\n  offline:\n    centerIDLength: 5\n",
			ExpectedErr: errMissingSection,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			_, _, err := setup([]string{"-f", writeConfig(t, tc.Config)})
			if tc.ExpectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.ExpectedErr), err)
		})
	}
}

func TestTracingConfig(t *testing.T) {
	v, _, err := setup([]string{"-f", "keeper.yaml"})
	require.NoError(t, err)
	c, err := tracingConfig(v)
	require.NoError(t, err)
	assert.Equal(t, applicationName, c.ApplicationName)
}

func TestUnmarshalKeyMissingSection(t *testing.T) {
	v, _, err := setup([]string{"-f", writeConfig(t, "logging:\n  level: info\n  encoding: json\n  outputPaths:\n    - stdout\n")})
	require.NoError(t, err)
	c, err := unmarshalKey[cache.Config]("cache")(v)
	require.NoError(t, err)
	assert.Empty(t, c.Type)
}

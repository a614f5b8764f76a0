// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/keeper/store"
	"github.com/xmidt-org/keeper/store/posix"
	"github.com/xmidt-org/keeper/store/storetest"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestSetupRegistry(t *testing.T) {
	tcs := []struct {
		Description   string
		Configs       Configs
		Name          string
		ExpectedName  string
		ExpectedNames []string
		ExpectedErr   error
	}{
		{
			Description:   "in memory is always registered",
			Name:          "InMemAdapter",
			ExpectedName:  "InMemAdapter",
			ExpectedNames: []string{"inmemadapter"},
		},
		{
			Description:   "posix configured",
			Configs:       Configs{Posix: &posix.Config{Root: t.TempDir()}},
			Name:          "posixadapter",
			ExpectedName:  posix.Name,
			ExpectedNames: []string{"inmemadapter", "posixadapter"},
		},
		{
			Description:   "unconfigured adapter",
			Name:          "S3Adapter",
			ExpectedNames: []string{"inmemadapter"},
			ExpectedErr:   store.ErrUnknownAdapter,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			r := SetupRegistry(SetupIn{
				Configs: tc.Configs,
				LC:      fxtest.NewLifecycle(t),
				Logger:  zap.NewNop(),
			})
			assert.Equal(tc.ExpectedNames, r.Names())

			a, err := r.Resolve(tc.Name)
			if tc.ExpectedErr != nil {
				assert.True(errors.Is(err, tc.ExpectedErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(tc.ExpectedName, a.Name())
			storetest.AdapterTest(t, a)
		})
	}
}

// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cassandra

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"emperror.dev/emperror"
	"github.com/gocql/gocql"
	"github.com/xmidt-org/keeper/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// Name is the registry name of this adapter.
	Name = "CassandraAdapter"

	defaultOpTimeout             = time.Duration(10) * time.Second
	defaultDatabase              = "keeper"
	defaultNumRetries            = 0
	defaultWaitTimeMult          = 1
	defaultMaxNumberConnsPerHost = 2
	defaultPingInterval          = 5 * time.Second
)

// Config configures the connection to a cassandra or yugabyte cluster holding
// the packets table.
type Config struct {
	// Hosts to  connect to. Must have at least one
	Hosts []string

	// Database aka Keyspace for cassandra
	Database string

	// OpTimeout
	OpTimeout time.Duration

	// SSLRootCert used for enabling tls to the cluster. SSLKey, and SSLCert must also be set.
	SSLRootCert string
	// SSLKey used for enabling tls to the cluster. SSLRootCert, and SSLCert must also be set.
	SSLKey string
	// SSLCert used for enabling tls to the cluster. SSLRootCert, and SSLRootCert must also be set.
	SSLCert string
	// If you want to verify the hostname and server cert (like a wildcard for cass cluster) then you should turn this on
	// This option is basically the inverse of InSecureSkipVerify
	// See InSecureSkipVerify in http://golang.org/pkg/crypto/tls/ for more info
	EnableHostVerification bool

	// Username to authenticate into the cluster. Password must also be provided.
	Username string
	// Password to authenticate into the cluster. Username must also be provided.
	Password string

	// NumRetries for connecting to the db
	NumRetries int

	// WaitTimeMult the amount of time to wait before retrying to connect to the db
	WaitTimeMult time.Duration

	// MaxConnsPerHost max number of connections per host
	MaxConnsPerHost int

	// PingInterval is how often the session is checked.
	PingInterval time.Duration
}

// Cassandra stores every packet object as a row of the packets table.
type Cassandra struct {
	client dbStore
	config Config
	logger *zap.Logger
}

var _ store.Adapter = (*Cassandra)(nil)

// NewCassandra connects and ties the session to the application lifecycle.
func NewCassandra(config Config, lc fx.Lifecycle, logger *zap.Logger) (*Cassandra, error) {
	client, err := CreateCassandraClient(config, logger)
	if err != nil {
		return nil, err
	}
	ticker := doEvery(client.config.PingInterval, func(_ time.Time) {
		err := client.Ping(context.Background())
		if err != nil {
			logger.Error("ping failed", zap.Error(err))
		}
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			ticker.Stop()
			client.Close()
			return nil
		},
	})
	return client, nil
}

func doEvery(d time.Duration, f func(time.Time)) *time.Ticker {
	ticker := time.NewTicker(d)
	go func() {
		for x := range ticker.C {
			f(x)
		}
	}()
	return ticker
}

func CreateCassandraClient(config Config, logger *zap.Logger) (*Cassandra, error) {
	if len(config.Hosts) == 0 {
		return nil, errors.New("number of hosts must be > 0")
	}

	validateConfig(&config)

	clusterConfig := gocql.NewCluster(config.Hosts...)
	clusterConfig.Consistency = gocql.LocalQuorum
	clusterConfig.Keyspace = config.Database
	clusterConfig.Timeout = config.OpTimeout
	clusterConfig.NumConns = config.MaxConnsPerHost
	// let retry package handle it
	clusterConfig.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 1}
	// setup ssl
	if config.SSLRootCert != "" && config.SSLCert != "" && config.SSLKey != "" {
		clusterConfig.SslOpts = &gocql.SslOptions{
			CertPath:               config.SSLCert,
			KeyPath:                config.SSLKey,
			CaPath:                 config.SSLRootCert,
			EnableHostVerification: config.EnableHostVerification,
		}
	}
	// setup authentication
	if config.Username != "" && config.Password != "" {
		clusterConfig.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}

	session, err := connect(clusterConfig, logger)

	// retry if it fails
	waitTime := 1 * time.Second
	for attempt := 0; attempt < config.NumRetries && err != nil; attempt++ {
		time.Sleep(waitTime)
		session, err = connect(clusterConfig, logger)
		waitTime = waitTime * config.WaitTimeMult
	}
	if err != nil {
		return nil, emperror.WrapWith(err, "Connecting to database failed", "hosts", config.Hosts)
	}

	return &Cassandra{
		client: session,
		config: config,
		logger: logger,
	}, nil
}

func (s *Cassandra) Name() string {
	return Name
}

func (s *Cassandra) handleError(err error, op, account, id, name string) error {
	if errors.Is(err, noDataResponse) {
		return store.NotFound(op, account, id, name)
	}
	return store.Wrap(emperror.WrapWith(err, "query failed", "account", account, "id", id), op, account, id, name)
}

func (s *Cassandra) PutObject(_ context.Context, account, id, name string, data io.Reader) (bool, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return false, store.Wrap(err, store.PutOp, account, id, name)
	}
	if err := s.client.Put(account, id, name, b); err != nil {
		return false, s.handleError(err, store.PutOp, account, id, name)
	}
	return true, nil
}

func (s *Cassandra) GetObject(_ context.Context, account, id, name string) (io.ReadCloser, error) {
	data, err := s.client.Get(account, id, name)
	if err != nil {
		return nil, s.handleError(err, store.GetOp, account, id, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Cassandra) GetMetaData(_ context.Context, account, id, name string) (map[string]string, error) {
	meta, err := s.client.GetMeta(account, id, name)
	if err != nil {
		return nil, s.handleError(err, store.GetMetaOp, account, id, name)
	}
	return meta, nil
}

func (s *Cassandra) ListMetaData(_ context.Context, account, id string) (map[string]map[string]string, error) {
	metas, err := s.client.List(account, id)
	if err != nil {
		return nil, s.handleError(err, store.ListMetaOp, account, id, "")
	}
	return metas, nil
}

func (s *Cassandra) AddObjectMetaData(_ context.Context, account, id, name string, meta map[string]string) (map[string]string, error) {
	if err := s.client.UpdateMeta(account, id, name, meta); err != nil {
		return nil, s.handleError(err, store.AddMetaOp, account, id, name)
	}
	stored, err := s.client.GetMeta(account, id, name)
	if err != nil {
		return nil, s.handleError(err, store.AddMetaOp, account, id, name)
	}
	return stored, nil
}

func (s *Cassandra) Close() {
	s.client.Close()
}

// Ping is for pinging the database to verify that the connection is still good.
func (s *Cassandra) Ping(context.Context) error {
	err := s.client.Ping()
	if err != nil {
		return emperror.WrapWith(err, "Pinging connection failed")
	}
	return nil
}

func validateConfig(config *Config) {
	zeroDuration := time.Duration(0) * time.Second

	if config.OpTimeout == zeroDuration {
		config.OpTimeout = defaultOpTimeout
	}

	if config.Database == "" {
		config.Database = defaultDatabase
	}
	if config.NumRetries < 0 {
		config.NumRetries = defaultNumRetries
	}
	if config.WaitTimeMult < 1 {
		config.WaitTimeMult = defaultWaitTimeMult
	}
	if config.MaxConnsPerHost <= 0 {
		config.MaxConnsPerHost = defaultMaxNumberConnsPerHost
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaultPingInterval
	}
}

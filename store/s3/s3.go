// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/xmidt-org/keeper/store"
)

// Name is the registry name of this adapter.
const Name = "S3Adapter"

const (
	keySeparator      = "/"
	defaultRegion     = "us-east-1"
	defaultMaxRetries = 3
)

// Config configures the S3 compatible object store.
type Config struct {
	// Endpoint overrides the service endpoint, i.e. for MinIO or Ceph.
	Endpoint string

	Region     string
	AccessKey  string
	SecretKey  string
	MaxRetries int

	// BucketPrefix is prepended to the account when naming buckets.
	BucketPrefix string

	// UsePathStyle addresses buckets as path segments instead of subdomains.
	UsePathStyle bool
}

// client captures the methods of interest from the S3 API. This
// should help mock API calls as well.
type client interface {
	PutObject(context.Context, *awss3.PutObjectInput, ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(context.Context, *awss3.GetObjectInput, ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	HeadObject(context.Context, *awss3.HeadObjectInput, ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	CopyObject(context.Context, *awss3.CopyObjectInput, ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error)
	ListObjectsV2(context.Context, *awss3.ListObjectsV2Input, ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	CreateBucket(context.Context, *awss3.CreateBucketInput, ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error)
}

// S3 stores each packet object under bucket(account) with key id/name.
// Metadata lives in the object's user metadata.
type S3 struct {
	c      client
	config Config

	// buckets already known to exist
	buckets sync.Map
}

var _ store.Adapter = (*S3)(nil)

// NewS3 builds the adapter from the aws default configuration chain, overridden by config.
func NewS3(ctx context.Context, config Config) (*S3, error) {
	validateConfig(&config)

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(config.Region),
		awscfg.WithRetryMaxAttempts(config.MaxRetries),
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")))
	}
	awsConfig, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration for region %s: %w", config.Region, err)
	}

	c := awss3.NewFromConfig(awsConfig, func(o *awss3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
	})
	return newS3(c, config), nil
}

func newS3(c client, config Config) *S3 {
	return &S3{c: c, config: config}
}

func validateConfig(config *Config) {
	if config.Region == "" {
		config.Region = defaultRegion
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaultMaxRetries
	}
}

func (s *S3) Name() string {
	return Name
}

// bucket maps an account to a valid bucket name.
func (s *S3) bucket(account string) string {
	b := strings.ToLower(s.config.BucketPrefix + account)
	return strings.ReplaceAll(b, "_", "-")
}

func objectKey(id, name string) string {
	return id + keySeparator + name
}

func isNotFound(err error) bool {
	var (
		noKey    *types.NoSuchKey
		notFound *types.NotFound
		noBucket *types.NoSuchBucket
	)
	return errors.As(err, &noKey) || errors.As(err, &notFound) || errors.As(err, &noBucket)
}

func (s *S3) handleError(err error, op, account, id, name string) error {
	if isNotFound(err) {
		return store.NotFound(op, account, id, name)
	}
	return store.Wrap(err, op, account, id, name)
}

func (s *S3) ensureBucket(ctx context.Context, bucket string) error {
	if _, ok := s.buckets.Load(bucket); ok {
		return nil
	}
	_, err := s.c.CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(bucket)})
	var (
		owned  *types.BucketAlreadyOwnedByYou
		exists *types.BucketAlreadyExists
	)
	if err != nil && !errors.As(err, &owned) && !errors.As(err, &exists) {
		return err
	}
	s.buckets.Store(bucket, struct{}{})
	return nil
}

// PutObject replaces the object content. Existing user metadata is carried over
// so a rewrite does not strip the packet's integrity fields.
func (s *S3) PutObject(ctx context.Context, account, id, name string, data io.Reader) (bool, error) {
	bucket := s.bucket(account)
	if err := s.ensureBucket(ctx, bucket); err != nil {
		return false, store.Wrap(err, store.PutOp, account, id, name)
	}

	body, err := io.ReadAll(data)
	if err != nil {
		return false, store.Wrap(err, store.PutOp, account, id, name)
	}

	var meta map[string]string
	head, err := s.c.HeadObject(ctx, &awss3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(objectKey(id, name))})
	switch {
	case err == nil:
		meta = head.Metadata
	case !isNotFound(err):
		return false, store.Wrap(err, store.PutOp, account, id, name)
	}

	_, err = s.c.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(objectKey(id, name)),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata:      meta,
	})
	if err != nil {
		return false, store.Wrap(err, store.PutOp, account, id, name)
	}
	return true, nil
}

func (s *S3) GetObject(ctx context.Context, account, id, name string) (io.ReadCloser, error) {
	out, err := s.c.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket(account)),
		Key:    aws.String(objectKey(id, name)),
	})
	if err != nil {
		return nil, s.handleError(err, store.GetOp, account, id, name)
	}
	return out.Body, nil
}

func (s *S3) GetMetaData(ctx context.Context, account, id, name string) (map[string]string, error) {
	return s.head(ctx, store.GetMetaOp, account, id, name)
}

func (s *S3) head(ctx context.Context, op, account, id, name string) (map[string]string, error) {
	out, err := s.c.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket(account)),
		Key:    aws.String(objectKey(id, name)),
	})
	if err != nil {
		return nil, s.handleError(err, op, account, id, name)
	}
	return normalizeMetadata(out.Metadata), nil
}

// ListMetaData pages through every key under id/ and heads each object.
func (s *S3) ListMetaData(ctx context.Context, account, id string) (map[string]map[string]string, error) {
	result := map[string]map[string]string{}
	prefix := id + keySeparator
	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket(account)),
		Prefix: aws.String(prefix),
	}
	for {
		out, err := s.c.ListObjectsV2(ctx, input)
		if err != nil {
			var noBucket *types.NoSuchBucket
			if errors.As(err, &noBucket) {
				return result, nil
			}
			return nil, store.Wrap(err, store.ListMetaOp, account, id, "")
		}
		for _, o := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(o.Key), prefix)
			if name == "" || strings.Contains(name, keySeparator) {
				continue
			}
			meta, err := s.head(ctx, store.ListMetaOp, account, id, name)
			if err != nil {
				return nil, err
			}
			result[name] = meta
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return result, nil
		}
		input.ContinuationToken = out.NextContinuationToken
	}
}

// AddObjectMetaData rewrites the object onto itself with the merged metadata.
func (s *S3) AddObjectMetaData(ctx context.Context, account, id, name string, meta map[string]string) (map[string]string, error) {
	current, err := s.head(ctx, store.AddMetaOp, account, id, name)
	if err != nil {
		return nil, err
	}
	merged := store.MergeMetadata(current, meta)

	bucket := s.bucket(account)
	key := objectKey(id, name)
	_, err = s.c.CopyObject(ctx, &awss3.CopyObjectInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(bucket + keySeparator + key),
		Metadata:          merged,
		MetadataDirective: types.MetadataDirectiveReplace,
	})
	if err != nil {
		return nil, s.handleError(err, store.AddMetaOp, account, id, name)
	}
	return s.head(ctx, store.AddMetaOp, account, id, name)
}

// S3 hands user metadata keys back in lower case, but some gateways
// canonicalize them like http headers.
func normalizeMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[strings.ToLower(k)] = v
	}
	return out
}

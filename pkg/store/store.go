// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

// Package store resolves Git LFS objects against the backing S3 bucket.
// The broker never touches object bytes; the only store operation it needs
// is a metadata probe answering "does {project}/{oid} exist, and how big".
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/Nullreff/git-lfs-s3/pkg/logger"
)

// Config holds the object store connection settings, loaded once at startup.
type Config struct {
	// Endpoint overrides the AWS default, for S3-compatible stores.
	Endpoint string
	Region   string
	Bucket   string

	AccessKeyID     string
	SecretAccessKey string

	// PathStyle addresses objects as endpoint/bucket/key. Required for most
	// non-AWS stores.
	PathStyle bool

	// RequestTimeout bounds each metadata probe. Zero selects 30 seconds.
	RequestTimeout time.Duration
}

// ObjectState is the store's current knowledge of one object. It is queried
// fresh on every request and never cached.
type ObjectState struct {
	Exists bool
	Size   int64
}

// Store is an S3 metadata client scoped to a single bucket. It holds only
// immutable configuration and is safe for concurrent use.
type Store struct {
	client *s3.Client
	bucket string
}

// New builds a Store from cfg. The S3 client reuses one pooled HTTP client
// for all requests.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("store: no bucket configured")
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	staticCreds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"", // session token (empty for permanent credentials)
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(staticCreds),
		awsconfig.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("store: load aws config: %w", err)
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = cfg.PathStyle
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Debug().
		Str("endpoint", cfg.Endpoint).
		Str("region", cfg.Region).
		Str("bucket", cfg.Bucket).
		Msg("Created S3 object store client")

	return &Store{
		client: s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.Bucket,
	}, nil
}

// Key returns the storage key for an object: "{project}/{oid}".
func (s *Store) Key(project, oid string) string {
	return project + "/" + oid
}

// Stat reports whether the object exists and its size. A missing object is a
// valid outcome, not an error; errors are reserved for store or network
// failures.
func (s *Store) Stat(ctx context.Context, project, oid string) (ObjectState, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(project, oid)),
	})
	if err != nil {
		if isNotFound(err) {
			return ObjectState{}, nil
		}
		return ObjectState{}, fmt.Errorf("store: head %s: %w", s.Key(project, oid), err)
	}

	state := ObjectState{Exists: true}
	if head.ContentLength != nil {
		state.Size = *head.ContentLength
	}
	return state, nil
}

// isNotFound unwraps the SDK's absent-object shapes. HeadObject reports a
// missing key as types.NotFound; some S3-compatible stores answer with a bare
// 404 error code instead.
func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

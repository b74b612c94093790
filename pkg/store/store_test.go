// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	t.Parallel()

	s := &Store{bucket: "test-bucket"}
	oid := "087a4597b239a1ab0e916956f187c7d404b3c3b8aaf3b1fb99027ec1d19cbb59"
	assert.Equal(t, "test-repo/"+oid, s.Key("test-repo", oid))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	require.True(t, isNotFound(&s3types.NotFound{}))
	require.True(t, isNotFound(fmt.Errorf("operation error S3: HeadObject: %w", &s3types.NotFound{})))
	require.True(t, isNotFound(&s3types.NoSuchKey{}))
	require.False(t, isNotFound(errors.New("connection refused")))
	require.False(t, isNotFound(nil))
}

// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package lfsapi

import (
	"testing"

	"github.com/Nullreff/git-lfs-s3/pkg/store"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		declared int64
		state    store.ObjectState
		want     Decision
	}{
		{
			name:     "present with matching size",
			declared: 123456,
			state:    store.ObjectState{Exists: true, Size: 123456},
			want:     DownloadReady,
		},
		{
			name:     "absent",
			declared: 54321,
			state:    store.ObjectState{},
			want:     UploadRequired,
		},
		{
			name:     "present with smaller stored size",
			declared: 123456,
			state:    store.ObjectState{Exists: true, Size: 123455},
			want:     UploadRequired,
		},
		{
			name:     "present with larger stored size",
			declared: 123456,
			state:    store.ObjectState{Exists: true, Size: 123457},
			want:     UploadRequired,
		},
		{
			name:     "zero declared size against empty object",
			declared: 0,
			state:    store.ObjectState{Exists: true, Size: 0},
			want:     DownloadReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Pure function: repeated evaluation never changes the answer.
			for range 3 {
				assert.Equal(t, tt.want, Decide(tt.declared, tt.state))
			}
		})
	}
}

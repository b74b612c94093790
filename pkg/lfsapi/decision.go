// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package lfsapi

import "github.com/Nullreff/git-lfs-s3/pkg/store"

// Decision is the outcome of comparing a client-declared object against the
// store's view of it.
type Decision int

const (
	// DownloadReady means the object is already present with the declared
	// size; the client gets a download grant and no verify step.
	DownloadReady Decision = iota

	// UploadRequired means the object is absent or its stored size differs
	// from the declared one; the client gets an upload grant plus a verify
	// callback.
	UploadRequired
)

func (d Decision) String() string {
	if d == DownloadReady {
		return "download_ready"
	}
	return "upload_required"
}

// Decide applies the per-object transition. It is a pure function of its
// inputs: concurrent requests for the same object never interact.
func Decide(declaredSize int64, state store.ObjectState) Decision {
	if state.Exists && state.Size == declaredSize {
		return DownloadReady
	}
	return UploadRequired
}

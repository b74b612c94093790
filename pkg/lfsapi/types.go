// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package lfsapi

// MediaType is the Git LFS JSON content type used on every API body.
const MediaType = "application/vnd.git-lfs+json"

// Operations accepted by the batch endpoint.
const (
	OperationDownload = "download"
	OperationUpload   = "upload"
)

// objectSpec identifies one client-declared object: a content hash and the
// size the client claims for it. The OID format is never validated here.
type objectSpec struct {
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

// batchRequest is the Git LFS batch API request body.
type batchRequest struct {
	Operation string       `json:"operation"`
	Transfers []string     `json:"transfers,omitempty"`
	Objects   []objectSpec `json:"objects"`
}

// batchAction is one grant inside a batch response.
type batchAction struct {
	HRef   string            `json:"href"`
	Header map[string]string `json:"header,omitempty"`
	// In seconds.
	ExpiresIn int64 `json:"expires_in,omitempty"`
}

// batchObjectError is a per-item failure. Batch responses are always HTTP
// 200; item failures are carried here instead.
type batchObjectError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type batchObject struct {
	OID     string                 `json:"oid"`
	Size    int64                  `json:"size"`
	Actions map[string]batchAction `json:"actions,omitempty"`
	Error   *batchObjectError      `json:"error,omitempty"`
}

type batchResponse struct {
	Transfer string        `json:"transfer,omitempty"`
	Objects  []batchObject `json:"objects"`
}

// legacyLink is a link in the legacy single-object API. The historical wire
// format uses "header" on upload links but "headers" on download links; both
// fields exist so each response renders its own spelling.
type legacyLink struct {
	HRef    string            `json:"href"`
	Header  map[string]string `json:"header,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Expires string            `json:"expires,omitempty"`
}

type legacyLinks struct {
	Self     *legacyLink `json:"self,omitempty"`
	Download *legacyLink `json:"download,omitempty"`
	Upload   *legacyLink `json:"upload,omitempty"`
	Verify   *legacyLink `json:"verify,omitempty"`
}

// legacyMeta is the body of legacy GET/POST object responses.
type legacyMeta struct {
	OID   string      `json:"oid,omitempty"`
	Size  int64       `json:"size,omitempty"`
	Links legacyLinks `json:"_links"`
}

// lfsError is the generic LFS error body.
type lfsError struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

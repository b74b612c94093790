// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

// Package signature mints presigned S3 URLs using AWS Signature Version 4:
// https://docs.aws.amazon.com/general/latest/gr/signature-version-4.html
//
// The signature binds the exact canonical byte sequence of the request, so
// query parameters are sorted before signing and must not be reordered
// afterwards. Payloads are presigned as UNSIGNED-PAYLOAD for both GET and
// PUT, matching how S3 accepts browser-style uploads against presigned URLs.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// Algorithm is the SigV4 algorithm identifier.
	Algorithm = "AWS4-HMAC-SHA256"

	// UnsignedPayload is the payload hash placeholder for presigned requests.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// MaxExpiry is the longest lifetime S3 accepts for a presigned URL.
	MaxExpiry = 7 * 24 * time.Hour

	// TokenMarker is the fixed marker query parameter appended when a grant
	// embeds broker authentication. Git LFS clients echo the full URL, so the
	// marker survives the round trip. See
	// https://github.com/github/git-lfs/issues/960
	TokenMarker = "token"

	iso8601BasicFormat = "20060102T150405Z"
	yyyymmddFormat     = "20060102"
	serviceS3          = "s3"
	terminator         = "aws4_request"
)

var (
	// ErrEmptyKey is returned before any crypto work when no object key is given.
	ErrEmptyKey = errors.New("signature: empty object key")

	// ErrBadMethod is returned for methods other than GET and PUT.
	ErrBadMethod = errors.New("signature: method must be GET or PUT")
)

// ExpiryError reports a presign TTL outside the accepted range. The TTL is
// never silently clamped.
type ExpiryError struct {
	Requested time.Duration
}

func (e *ExpiryError) Error() string {
	return fmt.Sprintf("signature: expiry %s outside (0, %s]", e.Requested, MaxExpiry)
}

// Config carries the immutable signing configuration, loaded once at startup.
type Config struct {
	// Endpoint is the object store base URL, e.g. "https://s3.amazonaws.com"
	// or a custom S3-compatible endpoint.
	Endpoint string
	Region   string
	Bucket   string

	AccessKeyID     string
	SecretAccessKey string

	// PathStyle addresses objects as endpoint/bucket/key instead of
	// bucket.endpoint/key. Required for most non-AWS stores.
	PathStyle bool
}

// Presigner signs time-boxed URLs granting one operation on one object key.
// It performs no I/O; a Presigner is a pure function of its configuration
// plus wall-clock time, and is safe for concurrent use.
type Presigner struct {
	cfg      Config
	endpoint *url.URL

	// now is replaceable in tests.
	now func() time.Time
}

// NewPresigner validates cfg and returns a ready Presigner.
func NewPresigner(cfg Config) (*Presigner, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://s3.amazonaws.com"
	}
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("signature: parse endpoint: %w", err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("signature: endpoint %q has no scheme or host", cfg.Endpoint)
	}
	if cfg.Bucket == "" {
		return nil, errors.New("signature: no bucket configured")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("signature: no credentials configured")
	}
	if cfg.Region == "" {
		return nil, errors.New("signature: no region configured")
	}
	return &Presigner{cfg: cfg, endpoint: endpoint, now: time.Now}, nil
}

// Presign builds a URL authorizing one method (GET or PUT) on objectKey for
// expiresIn. When embedToken is set, the fixed "token=1" marker is included
// in the signed query string.
func (p *Presigner) Presign(method, objectKey string, expiresIn time.Duration, embedToken bool) (*url.URL, error) {
	if objectKey == "" {
		return nil, ErrEmptyKey
	}
	if method != http.MethodGet && method != http.MethodPut {
		return nil, ErrBadMethod
	}
	if expiresIn <= 0 || expiresIn > MaxExpiry {
		return nil, &ExpiryError{Requested: expiresIn}
	}

	t := p.now().UTC()
	amzDate := t.Format(iso8601BasicFormat)
	dateStamp := t.Format(yyyymmddFormat)
	scope := strings.Join([]string{dateStamp, p.cfg.Region, serviceS3, terminator}, "/")

	host, path := p.addressObject(objectKey)

	// Query parameters signed into the URL. Keys are sorted lexicographically
	// when the canonical query string is rendered; the same rendering is used
	// in the final URL so the two never diverge.
	params := map[string]string{
		"X-Amz-Algorithm":     Algorithm,
		"X-Amz-Credential":    p.cfg.AccessKeyID + "/" + scope,
		"X-Amz-Date":          amzDate,
		"X-Amz-Expires":       strconv.FormatInt(int64(expiresIn.Seconds()), 10),
		"X-Amz-SignedHeaders": "host",
	}
	if embedToken {
		params[TokenMarker] = "1"
	}
	canonicalQuery := canonicalQueryString(params)

	canonicalRequest := strings.Join([]string{
		method,
		encodeCanonicalURI(path),
		canonicalQuery,
		"host:" + host + "\n",
		"host",
		UnsignedPayload,
	}, "\n")

	stringToSign := strings.Join([]string{
		Algorithm,
		amzDate,
		scope,
		hashSHA256(canonicalRequest),
	}, "\n")

	signingKey := deriveSigningKey(p.cfg.SecretAccessKey, dateStamp, p.cfg.Region)
	sig := hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))

	// RawPath pins the rendered path to the exact bytes that were signed.
	return &url.URL{
		Scheme:   p.endpoint.Scheme,
		Host:     host,
		Path:     path,
		RawPath:  encodeCanonicalURI(path),
		RawQuery: canonicalQuery + "&X-Amz-Signature=" + sig,
	}, nil
}

// addressObject resolves the host and path for an object key under the
// configured addressing style.
func (p *Presigner) addressObject(objectKey string) (host, path string) {
	if p.cfg.PathStyle {
		return p.endpoint.Host, "/" + p.cfg.Bucket + "/" + objectKey
	}
	return p.cfg.Bucket + "." + p.endpoint.Host, "/" + objectKey
}

// canonicalQueryString renders params sorted by key with AWS percent
// encoding. Single-valued parameters only; presigned URLs never repeat keys.
func canonicalQueryString(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, escapeQuery(k)+"="+escapeQuery(params[k]))
	}
	return strings.Join(parts, "&")
}

// deriveSigningKey chains the four SigV4 HMACs:
// HMAC(HMAC(HMAC(HMAC("AWS4"+secret, date), region), "s3"), "aws4_request")
func deriveSigningKey(secretKey, dateStamp, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(serviceS3))
	return hmacSHA256(kService, []byte(terminator))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func hashSHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth implements the stateless bearer tokens exchanged between the
// broker and the Git LFS client. A token is a base64-encoded JSON claim
// binding a project to an expiry timestamp, signed with HMAC-SHA256 under a
// shared secret. The broker can verify a later callback without keeping any
// record of issued tokens.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

const (
	// claim field names. signatureField is reserved: it is stripped before
	// recomputing the claim signature during verification.
	projectField   = "project"
	expiresField   = "expires_at"
	signatureField = "signature"

	// DefaultTTL bounds the window during which a leaked token is usable.
	DefaultTTL = 15 * time.Minute
)

// ErrNoSecret is returned by New when no signing secret is configured.
// This is a startup configuration error, never a per-request condition.
var ErrNoSecret = errors.New("auth: no token secret configured")

// Authenticator issues and verifies project-scoped bearer tokens.
// It holds only immutable configuration and is safe for concurrent use.
type Authenticator struct {
	secret []byte
	ttl    time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// New creates an Authenticator signing with secret. A ttl of zero selects
// DefaultTTL.
func New(secret string, ttl time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Authenticator{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the configured token lifetime.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// Issue builds a signed token for project expiring after the configured TTL.
func (a *Authenticator) Issue(project string) (string, error) {
	claim := map[string]any{
		projectField: project,
		expiresField: a.now().UTC().Add(a.ttl).Unix(),
	}

	sig, err := a.signClaim(claim)
	if err != nil {
		return "", err
	}
	claim[signatureField] = sig

	raw, err := json.Marshal(claim)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Verify checks token's integrity and scope. The returned error is always an
// *Error carrying one of the Code values; nil means the token grants access
// to expectedProject. Verification is idempotent.
func (a *Authenticator) Verify(token, expectedProject string) error {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return newError(CodeMalformed, "token is not valid base64")
	}

	var claim map[string]any
	if err := json.Unmarshal(raw, &claim); err != nil {
		return newError(CodeMalformed, "token is not valid JSON")
	}

	presented, ok := claim[signatureField].(string)
	if !ok {
		return newError(CodeBadSignature, "token carries no signature")
	}
	delete(claim, signatureField)

	expected, err := a.signClaim(claim)
	if err != nil {
		return newError(CodeMalformed, "claim cannot be canonicalized")
	}
	if !hmac.Equal([]byte(presented), []byte(expected)) {
		return newError(CodeBadSignature, "claim signature mismatch")
	}

	project, ok := claim[projectField].(string)
	if !ok || project != expectedProject {
		return newError(CodeProjectMismatch, "token was issued for a different project")
	}

	expires, ok := claim[expiresField].(float64)
	if !ok {
		return newError(CodeMalformed, "token carries no expiry")
	}
	if !a.now().UTC().Before(time.Unix(int64(expires), 0).UTC()) {
		return newError(CodeExpired, "token has expired")
	}

	return nil
}

// signClaim computes the hex HMAC-SHA256 signature over the canonical JSON
// form of claim. encoding/json sorts map keys, which makes the serialization
// canonical: the same claim always signs to the same bytes.
func (a *Authenticator) signClaim(claim map[string]any) (string, error) {
	payload, err := json.Marshal(claim)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, a.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

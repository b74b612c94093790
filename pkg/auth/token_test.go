// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAuthenticator(t *testing.T, ttl time.Duration) *Authenticator {
	t.Helper()
	a, err := New(testSecret, ttl)
	require.NoError(t, err)
	return a
}

func TestNew_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := New("", time.Minute)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestNew_DefaultTTL(t *testing.T) {
	t.Parallel()

	a, err := New(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, a.TTL())
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		project string
		ttl     time.Duration
	}{
		{name: "plain project", project: "test-repo", ttl: 15 * time.Minute},
		{name: "guid project", project: "10e3eeeb-f55c-4191-8966-17577093642e", ttl: time.Minute},
		{name: "project with slash", project: "group/repo", ttl: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newTestAuthenticator(t, tt.ttl)

			token, err := a.Issue(tt.project)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			assert.NoError(t, a.Verify(token, tt.project))
			// Verification is idempotent.
			assert.NoError(t, a.Verify(token, tt.project))
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, 10*time.Minute)
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return issued }

	token, err := a.Issue("test-repo")
	require.NoError(t, err)

	// Still valid one second before expiry.
	a.now = func() time.Time { return issued.Add(10*time.Minute - time.Second) }
	assert.NoError(t, a.Verify(token, "test-repo"))

	// Expiry is exclusive: at the boundary the token is already dead.
	a.now = func() time.Time { return issued.Add(10 * time.Minute) }
	assertAuthCode(t, a.Verify(token, "test-repo"), CodeExpired)

	a.now = func() time.Time { return issued.Add(time.Hour) }
	assertAuthCode(t, a.Verify(token, "test-repo"), CodeExpired)
}

func TestVerify_ProjectMismatch(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, time.Minute)
	token, err := a.Issue("project-a")
	require.NoError(t, err)

	assertAuthCode(t, a.Verify(token, "project-b"), CodeProjectMismatch)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, time.Minute)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "not base64", token: "!!!not-base64!!!"},
		{name: "not json", token: base64.StdEncoding.EncodeToString([]byte("not json"))},
		{name: "json scalar", token: base64.StdEncoding.EncodeToString([]byte(`"hello"`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assertAuthCode(t, a.Verify(tt.token, "test-repo"), CodeMalformed)
		})
	}
}

func TestVerify_TamperDetection(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, time.Minute)
	token, err := a.Issue("test-repo")
	require.NoError(t, err)

	mutate := func(t *testing.T, field string, value any) string {
		t.Helper()
		raw, err := base64.StdEncoding.DecodeString(token)
		require.NoError(t, err)
		var claim map[string]any
		require.NoError(t, json.Unmarshal(raw, &claim))
		if value == nil {
			delete(claim, field)
		} else {
			claim[field] = value
		}
		out, err := json.Marshal(claim)
		require.NoError(t, err)
		return base64.StdEncoding.EncodeToString(out)
	}

	t.Run("mutated project", func(t *testing.T) {
		tampered := mutate(t, "project", "other-repo")
		assertAuthCode(t, a.Verify(tampered, "other-repo"), CodeBadSignature)
	})

	t.Run("mutated expiry", func(t *testing.T) {
		tampered := mutate(t, "expires_at", time.Now().Add(24*time.Hour).Unix())
		assertAuthCode(t, a.Verify(tampered, "test-repo"), CodeBadSignature)
	})

	t.Run("stripped signature", func(t *testing.T) {
		tampered := mutate(t, "signature", nil)
		assertAuthCode(t, a.Verify(tampered, "test-repo"), CodeBadSignature)
	})

	t.Run("garbage signature", func(t *testing.T) {
		tampered := mutate(t, "signature", "deadbeef")
		assertAuthCode(t, a.Verify(tampered, "test-repo"), CodeBadSignature)
	})
}

func TestVerify_DifferentSecret(t *testing.T) {
	t.Parallel()

	a := newTestAuthenticator(t, time.Minute)
	token, err := a.Issue("test-repo")
	require.NoError(t, err)

	other, err := New("another-secret-entirely", time.Minute)
	require.NoError(t, err)
	assertAuthCode(t, other.Verify(token, "test-repo"), CodeBadSignature)
}

func TestTokenFromHeader(t *testing.T) {
	t.Parallel()

	token, err := TokenFromHeader("RemoteAuth abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	_, err = TokenFromHeader("")
	assertAuthCode(t, err, CodeMissing)

	_, err = TokenFromHeader("Basic dXNlcjpwYXNz")
	assertAuthCode(t, err, CodeMalformed)

	_, err = TokenFromHeader("RemoteAuth ")
	assertAuthCode(t, err, CodeMalformed)
}

func TestHeaderValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "RemoteAuth tok", HeaderValue("tok"))
}

func assertAuthCode(t *testing.T, err error, want Code) {
	t.Helper()
	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, want, authErr.Code)
}

// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import "strings"

const (
	// Scheme is the Authorization scheme carrying broker tokens.
	Scheme = "RemoteAuth"

	// Challenge is sent in WWW-Authenticate on every 401.
	Challenge = `RemoteAuth realm="Restricted Area"`
)

// HeaderValue renders token as an Authorization header value.
func HeaderValue(token string) string {
	return Scheme + " " + token
}

// TokenFromHeader extracts the bearer token from an Authorization header
// value. The returned error is an *Error with CodeMissing when no header was
// sent and CodeMalformed when the scheme is not RemoteAuth.
func TokenFromHeader(header string) (string, error) {
	if header == "" {
		return "", newError(CodeMissing, "no Authorization header")
	}
	token, ok := strings.CutPrefix(header, Scheme+" ")
	if !ok || token == "" {
		return "", newError(CodeMalformed, "Authorization scheme is not "+Scheme)
	}
	return token, nil
}

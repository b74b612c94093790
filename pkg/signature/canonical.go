// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import "strings"

// encodeCanonicalURI encodes a path for the SigV4 canonical URI. Each path
// segment is encoded separately, preserving slashes as path separators. This
// matches how AWS SDKs encode paths for signature calculation.
func encodeCanonicalURI(path string) string {
	if path == "" || path == "/" {
		return "/"
	}

	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	encoded := make([]string, len(segments))
	for i, segment := range segments {
		encoded[i] = escapeQuery(segment)
	}
	return "/" + strings.Join(encoded, "/")
}

const upperhex = "0123456789ABCDEF"

// escapeQuery percent-encodes a string per the SigV4 rules: unreserved
// characters (A-Z a-z 0-9 - _ . ~) stay literal, everything else becomes
// uppercase %XX. Notably this never emits '+' for spaces. The same rules
// apply to path segments and query components.
func escapeQuery(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}

// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// HeaderGrant is a presigned URL re-rendered for callers that prefer sending
// the authorization material as HTTP headers instead of query parameters.
// The signing parameters are stripped from the URL and folded into an
// Authorization header value of the shape the Git LFS client forwards
// verbatim to the object store.
type HeaderGrant struct {
	// URL is the grant href with the signing query parameters removed.
	URL *url.URL
	// Authorization is the reconstructed Authorization header value.
	Authorization string
	// Expires is the grant lifetime in seconds, as signed.
	Expires string
}

// signing parameters moved out of the query when rendering a HeaderGrant.
var headerParams = []string{
	"X-Amz-Algorithm",
	"X-Amz-Credential",
	"X-Amz-SignedHeaders",
	"X-Amz-Signature",
	"X-Amz-Expires",
}

// ToHeaderGrant converts a presigned URL into its header-auth form. The input
// URL is not modified.
func ToHeaderGrant(signed *url.URL) HeaderGrant {
	query := signed.Query()

	authorization := fmt.Sprintf("%s Credential=%s, SignedHeaders=%s, Signature=%s",
		query.Get("X-Amz-Algorithm"),
		query.Get("X-Amz-Credential"),
		query.Get("X-Amz-SignedHeaders"),
		query.Get("X-Amz-Signature"),
	)
	expires := query.Get("X-Amz-Expires")

	for _, p := range headerParams {
		query.Del(p)
	}

	stripped := *signed
	stripped.RawQuery = encodeSorted(query)

	return HeaderGrant{
		URL:           &stripped,
		Authorization: authorization,
		Expires:       expires,
	}
}

// encodeSorted renders query with the same percent encoding used when
// signing, keeping the remaining parameters byte-stable.
func encodeSorted(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, v := range query[k] {
			parts = append(parts, escapeQuery(k)+"="+escapeQuery(v))
		}
	}
	return strings.Join(parts, "&")
}

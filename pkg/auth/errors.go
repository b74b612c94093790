// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package auth

// Code classifies token verification failures.
type Code int

const (
	// CodeMissing means no token was presented at all.
	CodeMissing Code = iota + 1
	// CodeMalformed means the token could not be decoded or parsed.
	CodeMalformed
	// CodeBadSignature means the claim does not match its signature.
	CodeBadSignature
	// CodeProjectMismatch means the token was issued for another project.
	CodeProjectMismatch
	// CodeExpired means the token was valid but its expiry has passed.
	CodeExpired
)

func (c Code) String() string {
	switch c {
	case CodeMissing:
		return "Missing"
	case CodeMalformed:
		return "Malformed"
	case CodeBadSignature:
		return "BadSignature"
	case CodeProjectMismatch:
		return "ProjectMismatch"
	case CodeExpired:
		return "Expired"
	}
	return "Unknown"
}

// Error is a token verification failure. All codes render as HTTP 401; the
// Reason string is only surfaced to clients when verbose errors are enabled.
type Error struct {
	Code   Code
	Reason string
}

func (e *Error) Error() string {
	return "auth: " + e.Code.String() + ": " + e.Reason
}

func newError(code Code, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}

// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

// Package lfsapi serves the Git LFS broker API: given a project and one or
// more declared objects it answers with presigned object store grants, never
// touching the object bytes itself. Both the batch endpoint and the legacy
// single-object endpoints are supported.
package lfsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Nullreff/git-lfs-s3/pkg/auth"
	"github.com/Nullreff/git-lfs-s3/pkg/logger"
	"github.com/Nullreff/git-lfs-s3/pkg/signature"
	"github.com/Nullreff/git-lfs-s3/pkg/store"
)

// DefaultPresignTTL bounds how long issued grants stay valid.
const DefaultPresignTTL = 15 * time.Minute

const livenessBody = "Git LFS S3 is online."

// ObjectResolver is the slice of the object store the handlers need.
// *store.Store satisfies it; tests substitute a fake.
type ObjectResolver interface {
	Key(project, oid string) string
	Stat(ctx context.Context, project, oid string) (store.ObjectState, error)
}

// Config holds the request-independent server settings.
type Config struct {
	// PublicURL is the externally visible base URL of this broker
	// (scheme://host[:port]), used to build self and verify links.
	PublicURL string

	// ServerPath is the path template the broker is mounted under. It must
	// contain the ":project" placeholder, e.g. "/api/projects/:project/lfs".
	// The project identifier is extracted from the request path with it.
	ServerPath string

	// PresignTTL is the lifetime of issued grants. Zero selects
	// DefaultPresignTTL.
	PresignTTL time.Duration

	// VerboseErrors echoes auth failure reasons to clients. Debugging aid
	// for trusted operators; leaks signature internals, keep off in
	// production.
	VerboseErrors bool
}

// Server routes and serves the LFS broker API.
type Server struct {
	cfg      Config
	resolver ObjectResolver
	signer   *signature.Presigner
	tokens   *auth.Authenticator

	// pathPattern captures (project, remainder) from request paths.
	pathPattern *regexp.Regexp

	requestIDPrefix  string
	requestIDCounter atomic.Uint64
}

// NewServer wires the broker components together.
func NewServer(cfg Config, resolver ObjectResolver, signer *signature.Presigner, tokens *auth.Authenticator) (*Server, error) {
	if cfg.ServerPath == "" {
		cfg.ServerPath = "/:project/lfs"
	}
	if !strings.Contains(cfg.ServerPath, ":project") {
		return nil, fmt.Errorf("lfsapi: server path %q has no :project placeholder", cfg.ServerPath)
	}
	if cfg.PublicURL == "" {
		return nil, errors.New("lfsapi: no public URL configured")
	}
	cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/")
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = DefaultPresignTTL
	}

	pattern := "^" + strings.Replace(regexp.QuoteMeta(cfg.ServerPath), ":project", "([^/]+)", 1) + "(/.*)?$"

	return &Server{
		cfg:             cfg,
		resolver:        resolver,
		signer:          signer,
		tokens:          tokens,
		pathPattern:     regexp.MustCompile(pattern),
		requestIDPrefix: uuid.New().String()[0:8],
	}, nil
}

type requestIDKey struct{}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := s.requestIDPrefix + strconv.FormatUint(s.requestIDCounter.Add(1), 10)
	reqLogger := logger.Ctx(r.Context()).With().Str("request_id", requestID).Logger()
	ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
	ctx = logger.WithLogger(ctx, &reqLogger)
	r = r.WithContext(ctx)
	w.Header().Set("X-Request-Id", requestID)

	if r.URL.Path == "/" {
		if r.Method != http.MethodGet {
			s.writeError(ctx, w, "liveness", http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, livenessBody)
		observeRequest("liveness", http.StatusOK)
		return
	}

	m := s.pathPattern.FindStringSubmatch(r.URL.Path)
	if m == nil {
		s.writeError(ctx, w, "unmatched", http.StatusNotFound, "Not found")
		return
	}
	project, rest := m[1], m[2]

	if err := s.authenticate(r, project); err != nil {
		s.unauthorized(ctx, w, err)
		return
	}

	oid, isObjectPath := strings.CutPrefix(rest, "/objects/")
	switch {
	case r.Method == http.MethodGet && isObjectPath && oid != "" && oid != "batch" && !strings.Contains(oid, "/"):
		s.handleLegacyGet(ctx, w, project, oid)
	case r.Method == http.MethodPost && rest == "/objects":
		s.handleLegacyPost(ctx, w, r, project)
	case r.Method == http.MethodPost && rest == "/objects/batch":
		s.handleBatch(ctx, w, r, project)
	case r.Method == http.MethodPost && rest == "/verify":
		s.handleVerify(ctx, w, r, project)
	default:
		s.writeError(ctx, w, "unmatched", http.StatusNotFound, "Not found")
	}
}

// authenticate checks the RemoteAuth token against the project extracted
// from the request path.
func (s *Server) authenticate(r *http.Request, project string) error {
	token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return err
	}
	return s.tokens.Verify(token, project)
}

func (s *Server) unauthorized(ctx context.Context, w http.ResponseWriter, err error) {
	message := "Unauthorized"
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		metricAuthFailures.WithLabelValues(authErr.Code.String()).Inc()
		if s.cfg.VerboseErrors {
			message = authErr.Reason
		}
	}
	logger.Ctx(ctx).Debug().Err(err).Msg("rejected request")

	w.Header().Set("WWW-Authenticate", auth.Challenge)
	s.writeError(ctx, w, "auth", http.StatusUnauthorized, message)
}

// serverPath renders the mount path for a concrete project.
func (s *Server) serverPath(project string) string {
	return strings.Replace(s.cfg.ServerPath, ":project", project, 1)
}

func (s *Server) verifyURL(project string) string {
	return s.cfg.PublicURL + s.serverPath(project) + "/verify"
}

func (s *Server) objectURL(project, oid string) string {
	return s.cfg.PublicURL + s.serverPath(project) + "/objects/" + oid
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", MediaType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to encode response body")
	}
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, route string, status int, message string) {
	observeRequest(route, status)
	s.writeJSON(ctx, w, status, lfsError{
		Message:   message,
		RequestID: requestIDFrom(ctx),
	})
}

// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package lfsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/Nullreff/git-lfs-s3/pkg/auth"
	"github.com/Nullreff/git-lfs-s3/pkg/logger"
	"github.com/Nullreff/git-lfs-s3/pkg/signature"
)

// handleLegacyGet serves GET {serverPath}/objects/{oid}: object metadata
// plus a download link with the authorization material re-rendered as
// headers rather than query parameters.
func (s *Server) handleLegacyGet(ctx context.Context, w http.ResponseWriter, project, oid string) {
	state, err := s.resolver.Stat(ctx, project, oid)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("oid", oid).Msg("object store lookup failed")
		s.writeError(ctx, w, "legacy_get", http.StatusInternalServerError, "Storage backend unavailable")
		return
	}
	if !state.Exists {
		s.writeError(ctx, w, "legacy_get", http.StatusNotFound, "Object not found")
		return
	}

	signed, err := s.downloadGrant(project, oid)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("oid", oid).Msg("presigning failed")
		s.writeError(ctx, w, "legacy_get", http.StatusInternalServerError, "Failed to generate download link")
		return
	}
	grant := signature.ToHeaderGrant(signed)

	observeRequest("legacy_get", http.StatusOK)
	s.writeJSON(ctx, w, http.StatusOK, legacyMeta{
		OID:  oid,
		Size: state.Size,
		Links: legacyLinks{
			Self: &legacyLink{
				HRef: s.objectURL(project, oid),
			},
			Download: &legacyLink{
				HRef:    grant.URL.String(),
				Headers: map[string]string{"Authorization": grant.Authorization},
				Expires: grant.Expires,
			},
		},
	})
}

// handleLegacyPost serves POST {serverPath}/objects. The HTTP status itself
// carries the outcome: 200 when the object is already present (download
// link), 202 when an upload plus verify round trip is required.
func (s *Server) handleLegacyPost(ctx context.Context, w http.ResponseWriter, r *http.Request, project string) {
	var obj objectSpec
	if err := json.NewDecoder(r.Body).Decode(&obj); err != nil {
		s.writeError(ctx, w, "legacy_post", http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.resolver.Stat(ctx, project, obj.OID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("oid", obj.OID).Msg("object store lookup failed")
		s.writeError(ctx, w, "legacy_post", http.StatusInternalServerError, "Storage backend unavailable")
		return
	}

	switch Decide(obj.Size, state) {
	case DownloadReady:
		metricDecisions.WithLabelValues(DownloadReady.String()).Inc()
		signed, err := s.downloadGrant(project, obj.OID)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("oid", obj.OID).Msg("presigning failed")
			s.writeError(ctx, w, "legacy_post", http.StatusInternalServerError, "Failed to generate download link")
			return
		}
		observeRequest("legacy_post", http.StatusOK)
		s.writeJSON(ctx, w, http.StatusOK, legacyMeta{
			Links: legacyLinks{
				Download: &legacyLink{HRef: signed.String()},
			},
		})

	case UploadRequired:
		metricDecisions.WithLabelValues(UploadRequired.String()).Inc()
		grants, err := s.uploadGrants(project, obj.OID)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("oid", obj.OID).Msg("presigning failed")
			s.writeError(ctx, w, "legacy_post", http.StatusInternalServerError, "Failed to generate upload link")
			return
		}
		observeRequest("legacy_post", http.StatusAccepted)
		s.writeJSON(ctx, w, http.StatusAccepted, legacyMeta{
			Links: legacyLinks{
				Upload: &legacyLink{
					HRef:   grants.upload.String(),
					Header: map[string]string{"content-type": ""},
				},
				Verify: &legacyLink{
					HRef:   grants.verifyHref,
					Header: map[string]string{"Authorization": auth.HeaderValue(grants.verifyToken)},
				},
			},
		})
	}
}

// handleBatch serves POST {serverPath}/objects/batch. The response is HTTP
// 200 regardless of per-object outcomes; failures are encoded per item so
// one bad object never poisons its siblings.
func (s *Server) handleBatch(ctx context.Context, w http.ResponseWriter, r *http.Request, project string) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(ctx, w, "batch", http.StatusBadRequest, "Invalid request body")
		return
	}

	resp := batchResponse{
		Transfer: "basic",
		Objects:  make([]batchObject, 0, len(req.Objects)),
	}
	for _, obj := range req.Objects {
		resp.Objects = append(resp.Objects, s.batchObject(ctx, project, req.Operation, obj))
	}

	observeRequest("batch", http.StatusOK)
	s.writeJSON(ctx, w, http.StatusOK, resp)
}

// batchObject computes one item's outcome, isolated from its siblings.
func (s *Server) batchObject(ctx context.Context, project, operation string, obj objectSpec) batchObject {
	item := batchObject{OID: obj.OID, Size: obj.Size}

	if operation != OperationDownload && operation != OperationUpload {
		item.Error = &batchObjectError{
			Code:    http.StatusBadRequest,
			Message: "Unsupported operation",
		}
		return item
	}

	state, err := s.resolver.Stat(ctx, project, obj.OID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("oid", obj.OID).Msg("object store lookup failed")
		item.Error = &batchObjectError{
			Code:    http.StatusInternalServerError,
			Message: "Storage backend unavailable",
		}
		return item
	}

	decision := Decide(obj.Size, state)
	metricDecisions.WithLabelValues(decision.String()).Inc()

	if operation == OperationDownload {
		if decision != DownloadReady {
			item.Error = &batchObjectError{
				Code:    http.StatusNotFound,
				Message: "Object not found",
			}
			return item
		}
		signed, err := s.downloadGrant(project, obj.OID)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("oid", obj.OID).Msg("presigning failed")
			item.Error = &batchObjectError{
				Code:    http.StatusInternalServerError,
				Message: "Failed to generate download link",
			}
			return item
		}
		item.Actions = map[string]batchAction{
			OperationDownload: {
				HRef:      signed.String(),
				ExpiresIn: int64(s.cfg.PresignTTL.Seconds()),
			},
		}
		return item
	}

	// Upload requested but the object is already good: hand back a download
	// link instead of making the client re-send bytes.
	if decision == DownloadReady {
		signed, err := s.downloadGrant(project, obj.OID)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("oid", obj.OID).Msg("presigning failed")
			item.Error = &batchObjectError{
				Code:    http.StatusInternalServerError,
				Message: "Failed to generate download link",
			}
			return item
		}
		item.Actions = map[string]batchAction{
			OperationDownload: {
				HRef:      signed.String(),
				ExpiresIn: int64(s.cfg.PresignTTL.Seconds()),
			},
		}
		return item
	}

	grants, err := s.uploadGrants(project, obj.OID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("oid", obj.OID).Msg("presigning failed")
		item.Error = &batchObjectError{
			Code:    http.StatusInternalServerError,
			Message: "Failed to generate upload link",
		}
		return item
	}
	item.Actions = map[string]batchAction{
		OperationUpload: {
			HRef:      grants.upload.String(),
			Header:    map[string]string{"content-type": ""},
			ExpiresIn: int64(s.cfg.PresignTTL.Seconds()),
		},
		"verify": {
			HRef:      grants.verifyHref,
			Header:    map[string]string{"Authorization": auth.HeaderValue(grants.verifyToken)},
			ExpiresIn: int64(s.tokens.TTL().Seconds()),
		},
	}
	return item
}

// handleVerify serves POST {serverPath}/verify: the callback a client makes
// after uploading. It re-resolves the object fresh and answers with status
// only.
func (s *Server) handleVerify(ctx context.Context, w http.ResponseWriter, r *http.Request, project string) {
	var obj objectSpec
	if err := json.NewDecoder(r.Body).Decode(&obj); err != nil {
		s.writeError(ctx, w, "verify", http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.resolver.Stat(ctx, project, obj.OID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("oid", obj.OID).Msg("object store lookup failed")
		s.writeError(ctx, w, "verify", http.StatusInternalServerError, "Storage backend unavailable")
		return
	}

	if state.Exists && state.Size == obj.Size {
		observeRequest("verify", http.StatusOK)
		w.WriteHeader(http.StatusOK)
		return
	}
	observeRequest("verify", http.StatusNotFound)
	w.WriteHeader(http.StatusNotFound)
}

// uploadGrant bundles everything an UploadRequired outcome hands the client.
type uploadGrant struct {
	upload      *url.URL
	verifyHref  string
	verifyToken string
}

// downloadGrant presigns a GET for the object key, with the token marker
// embedded so the grant URL is self-contained.
func (s *Server) downloadGrant(project, oid string) (*url.URL, error) {
	signed, err := s.signer.Presign(http.MethodGet, s.resolver.Key(project, oid), s.cfg.PresignTTL, true)
	if err != nil {
		return nil, err
	}
	metricGrantCount.WithLabelValues(http.MethodGet).Inc()
	return signed, nil
}

// uploadGrants presigns a PUT for the object key and mints the verify
// callback token the client must echo back.
func (s *Server) uploadGrants(project, oid string) (uploadGrant, error) {
	signed, err := s.signer.Presign(http.MethodPut, s.resolver.Key(project, oid), s.cfg.PresignTTL, true)
	if err != nil {
		return uploadGrant{}, err
	}
	token, err := s.tokens.Issue(project)
	if err != nil {
		return uploadGrant{}, err
	}
	metricGrantCount.WithLabelValues(http.MethodPut).Inc()
	return uploadGrant{
		upload:      signed,
		verifyHref:  s.verifyURL(project),
		verifyToken: token,
	}, nil
}

// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package lfsapi

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricRequestCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lfs_requests_total",
		Help: "Number of LFS API requests by route and HTTP status",
	}, []string{"route", "status"})

	metricGrantCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lfs_grants_issued_total",
		Help: "Number of presigned access grants issued by HTTP method",
	}, []string{"method"})

	metricAuthFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lfs_auth_failures_total",
		Help: "Number of rejected requests by auth failure code",
	}, []string{"code"})

	metricDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lfs_upload_decisions_total",
		Help: "Number of per-object upload decisions by outcome",
	}, []string{"outcome"})
)

// RegisterMetrics registers the LFS API metrics with reg, typically the
// debug server registry.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		metricRequestCount,
		metricGrantCount,
		metricAuthFailures,
		metricDecisions,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func observeRequest(route string, status int) {
	metricRequestCount.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

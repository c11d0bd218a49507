// SPDX-License-Identifier: MIT

// Package metrics exposes the daemon's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilesDetected counts filesystem create events by classified kind.
	FilesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smarthomebot_files_detected_total",
		Help: "Upload files detected by kind (photo, video, other)",
	}, []string{"kind"})

	// Deliveries counts outbound gateway sends by kind and result.
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smarthomebot_deliveries_total",
		Help: "Outbound deliveries by kind and result",
	}, []string{"kind", "result"})

	// SnapshotFetches counts camera snapshot fetch attempts by result.
	SnapshotFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smarthomebot_snapshot_fetches_total",
		Help: "Camera snapshot fetch attempts by result",
	}, []string{"result"})

	// TranscodeFailures counts failed external transcoder invocations.
	TranscodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smarthomebot_transcode_failures_total",
		Help: "Failed video/voice transcode attempts",
	})

	// ScheduledJobs tracks the number of active periodic snapshot jobs.
	ScheduledJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smarthomebot_scheduled_jobs",
		Help: "Active periodic snapshot jobs",
	})
)

// RecordDelivery records one outbound send outcome.
func RecordDelivery(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Deliveries.WithLabelValues(kind, result).Inc()
}

// RecordSnapshotFetch records one snapshot fetch outcome.
func RecordSnapshotFetch(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	SnapshotFetches.WithLabelValues(result).Inc()
}

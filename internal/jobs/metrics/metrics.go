package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsCreated tracks created jobs
	JobsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geofetch_jobs_created_total",
			Help: "Total number of download jobs created",
		},
	)

	// JobsFinished tracks jobs reaching a terminal state
	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geofetch_jobs_finished_total",
			Help: "Total number of jobs reaching a terminal state",
		},
		[]string{"status"},
	)

	// ActiveJobs tracks jobs currently running
	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geofetch_active_jobs",
			Help: "Number of jobs currently executing",
		},
	)

	// LayersProcessed tracks per-layer outcomes per source
	LayersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geofetch_layers_processed_total",
			Help: "Total number of layer downloads resolved",
		},
		[]string{"source", "outcome"},
	)

	// DownloadAttempts tracks individual fetch attempts, including retries
	DownloadAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geofetch_download_attempts_total",
			Help: "Total number of layer fetch attempts",
		},
		[]string{"result"},
	)

	// DownloadDuration tracks how long a single layer takes end to end
	DownloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geofetch_download_duration_seconds",
			Help:    "Duration of a layer download including retries",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

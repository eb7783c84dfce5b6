package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtvision",
		Name:      "frames_processed_total",
		Help:      "Total number of video frames processed",
	}, []string{"job_id"})

	PersonsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtvision",
		Name:      "persons_detected_total",
		Help:      "Total number of person detections",
	}, []string{"job_id"})

	StrokesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtvision",
		Name:      "strokes_detected_total",
		Help:      "Total number of accepted stroke segments",
	}, []string{"stroke_type"})

	TargetLost = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtvision",
		Name:      "target_lost_total",
		Help:      "Frames on which the locked target could not be found",
	}, []string{"job_id"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "courtvision",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "courtvision",
		Name:      "job_duration_seconds",
		Help:      "End-to-end analysis job duration",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courtvision",
		Name:      "queue_depth",
		Help:      "Number of pending analysis tasks in queue",
	})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courtvision",
		Name:      "active_jobs",
		Help:      "Number of analysis jobs currently processing",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "courtvision",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courtvision",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)

// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Namespace prefixes every metric exported by the process.
const Namespace = "oscigo"

// Label value constants used for metric labels.
const (
	// LabelSuccess marks a successful operation.
	LabelSuccess = "success"
	// LabelError marks a failed operation.
	LabelError = "error"
)

// Histogram bucket configuration constants.
const (
	// BucketStart10us is the starting bucket for 10µs histograms (10µs to ~40ms range).
	BucketStart10us = 0.00001
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~4s range).
	BucketStart1ms = 0.001
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0
	// BucketStart16Samples is the starting bucket for batch size histograms.
	BucketStart16Samples = 16.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)

// ShutdownTimeout is the timeout for graceful shutdown operations.
const ShutdownTimeout = 5 * time.Second

// Package worker maps feature runs arriving as Kafka map jobs and publishes
// their results.
package worker

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/mapper"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
)

// MapJob asks for one feature run to be mapped against the worker's
// reference. Nil toggles fall back to the worker's configuration.
type MapJob struct {
	JobID                  string      `json:"job_id"`
	Feature                spectra.Run `json:"feature"`
	RemoveDuplicatesInScan *bool       `json:"remove_duplicates_in_scan,omitempty"`
	RemoveOutliers         *bool       `json:"remove_outliers,omitempty"`
}

// MapResult is published for every job whose feature kept a matched point.
type MapResult struct {
	JobID       string        `json:"job_id"`
	Fingerprint string        `json:"reference_fingerprint"`
	Cached      bool          `json:"cached"`
	MappedAt    time.Time     `json:"mapped_at"`
	Result      mapper.Result `json:"result"`
}

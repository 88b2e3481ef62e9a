package catalog

import (
	"sync/atomic"
	"time"
)

// Failure records one path that could not be decoded or parsed.
type Failure struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// Stats summarises an aggregation. Failures holds at most the configured
// number of examples; DecodeFailures and IndexFailures hold the full counts.
type Stats struct {
	RunID             string        `json:"run_id"`
	Runs              int64         `json:"runs"`
	Listed            int64         `json:"listed"`
	Skipped           int64         `json:"skipped"`
	Accepted          int64         `json:"accepted"`
	AcceptedBytes     int64         `json:"accepted_bytes"`
	DecodeFailures    int64         `json:"decode_failures"`
	IndexParsed       int64         `json:"index_parsed"`
	IndexFailures     int64         `json:"index_failures"`
	UnknownParameters int64         `json:"unknown_parameters"`
	Published         int64         `json:"published"`
	Duration          time.Duration `json:"duration"`
	Failures          []Failure     `json:"failures,omitempty"`
}

// counters are updated from the listing loop and from stream callbacks.
type counters struct {
	runs              atomic.Int64
	listed            atomic.Int64
	skipped           atomic.Int64
	accepted          atomic.Int64
	acceptedBytes     atomic.Int64
	decodeFailures    atomic.Int64
	indexParsed       atomic.Int64
	indexFailures     atomic.Int64
	unknownParameters atomic.Int64
	published         atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Runs:              c.runs.Load(),
		Listed:            c.listed.Load(),
		Skipped:           c.skipped.Load(),
		Accepted:          c.accepted.Load(),
		AcceptedBytes:     c.acceptedBytes.Load(),
		DecodeFailures:    c.decodeFailures.Load(),
		IndexParsed:       c.indexParsed.Load(),
		IndexFailures:     c.indexFailures.Load(),
		UnknownParameters: c.unknownParameters.Load(),
		Published:         c.published.Load(),
	}
}

func (c *counters) reset() {
	for _, v := range []*atomic.Int64{
		&c.runs, &c.listed, &c.skipped, &c.accepted, &c.acceptedBytes,
		&c.decodeFailures, &c.indexParsed, &c.indexFailures, &c.unknownParameters, &c.published,
	} {
		v.Store(0)
	}
}

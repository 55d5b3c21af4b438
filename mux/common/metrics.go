package common

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Engine metrics
// --------------------------------------------------------------------------

// Counters and histograms describing the mux engine. They are registered in
// the default VictoriaMetrics set and can be exposed with WriteMetrics.
var (
	// FramesRead counts frames successfully decoded from the wire
	FramesRead = metrics.NewCounter("dmux_frames_read_total")
	// FramesWritten counts frames successfully written to the wire
	FramesWritten = metrics.NewCounter("dmux_frames_written_total")
	// BytesRead counts raw bytes consumed from connections
	BytesRead = metrics.NewCounter("dmux_bytes_read_total")
	// BytesWritten counts raw frame bytes handed to connections
	BytesWritten = metrics.NewCounter("dmux_bytes_written_total")

	// DuplicateRequests counts connections failed due to a duplicate
	// outstanding request ID (protocol violation by the peer)
	DuplicateRequests = metrics.NewCounter("dmux_duplicate_request_ids_total")
	// UnexpectedResponses counts dropped response frames referencing an
	// ID that was not pending
	UnexpectedResponses = metrics.NewCounter("dmux_unexpected_response_ids_total")

	// RequestDuration tracks handler invocation latency on the server side
	RequestDuration = metrics.NewHistogram("dmux_request_duration_seconds")
)

// WriteMetrics writes all engine metrics in Prometheus text format.
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}

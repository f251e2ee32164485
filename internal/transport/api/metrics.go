package api

import (
	"fmt"
	"io"
	"sync/atomic"

	"lifechain.ai/internal/gateway"
	"lifechain.ai/internal/protocol"
)

type metrics struct {
	requests           [gateway.CommandSetCells + 1]atomic.Uint64
	gateRefusals       atomic.Uint64
	submitOK           atomic.Uint64
	submitFailed       atomic.Uint64
	validationFailures atomic.Uint64
	externalFailures   atomic.Uint64
}

func (m *metrics) request(cmd gateway.Command) {
	if int(cmd) < 0 || int(cmd) >= len(m.requests) {
		cmd = gateway.CommandUnknown
	}
	m.requests[cmd].Add(1)
}

func (m *metrics) submitted(resp *protocol.SubmitResponse) {
	if resp != nil && resp.Tx != nil {
		m.submitOK.Add(1)
		return
	}
	m.submitFailed.Add(1)
}

// WriteMetrics emits the counters in Prometheus text exposition format.
func (s *Server) WriteMetrics(w io.Writer) {
	m := &s.metrics
	fmt.Fprintf(w, "# HELP lifechain_requests_total Requests by command.\n")
	fmt.Fprintf(w, "# TYPE lifechain_requests_total counter\n")
	for _, c := range append([]gateway.Command{gateway.CommandUnknown}, gateway.Commands()...) {
		fmt.Fprintf(w, "lifechain_requests_total{command=%q} %d\n", c.String(), m.requests[c].Load())
	}

	fmt.Fprintf(w, "# HELP lifechain_step_refusals_total Step requests refused by the block gap gate.\n")
	fmt.Fprintf(w, "# TYPE lifechain_step_refusals_total counter\n")
	fmt.Fprintf(w, "lifechain_step_refusals_total %d\n", m.gateRefusals.Load())

	fmt.Fprintf(w, "# HELP lifechain_submissions_total Transactions submitted, by result.\n")
	fmt.Fprintf(w, "# TYPE lifechain_submissions_total counter\n")
	fmt.Fprintf(w, "lifechain_submissions_total{result=%q} %d\n", "ok", m.submitOK.Load())
	fmt.Fprintf(w, "lifechain_submissions_total{result=%q} %d\n", "failed", m.submitFailed.Load())

	fmt.Fprintf(w, "# HELP lifechain_validation_failures_total Rejected request payloads.\n")
	fmt.Fprintf(w, "# TYPE lifechain_validation_failures_total counter\n")
	fmt.Fprintf(w, "lifechain_validation_failures_total %d\n", m.validationFailures.Load())

	fmt.Fprintf(w, "# HELP lifechain_external_failures_total Failed chain reads.\n")
	fmt.Fprintf(w, "# TYPE lifechain_external_failures_total counter\n")
	fmt.Fprintf(w, "lifechain_external_failures_total %d\n", m.externalFailures.Load())

	fmt.Fprintf(w, "# HELP lifechain_gap_threshold_blocks Minimum blocks between steps.\n")
	fmt.Fprintf(w, "# TYPE lifechain_gap_threshold_blocks gauge\n")
	fmt.Fprintf(w, "lifechain_gap_threshold_blocks %d\n", s.gw.Gate().Gap)
}

package internaldefs

import (
	goPrereg "github.com/MrEthical07/goPrereg"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goPrereg.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram.
type HistogramDef struct {
	ID   goPrereg.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "prereg_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

var CounterDefs = []CounterDef{
	{ID: goPrereg.MetricFlowOpened, Name: "prereg_flow_opened_total", Help: "Registration flows opened."},
	{ID: goPrereg.MetricFlowClosed, Name: "prereg_flow_closed_total", Help: "Registration flows closed."},
	{ID: goPrereg.MetricFlowCompleted, Name: "prereg_flow_completed_total", Help: "Flows that reached the success step."},
	{ID: goPrereg.MetricSendCodeSuccess, Name: "prereg_send_code_success_total", Help: "Verification codes sent."},
	{ID: goPrereg.MetricSendCodeFailure, Name: "prereg_send_code_failure_total", Help: "Send-code requests that failed."},
	{ID: goPrereg.MetricVerifySuccess, Name: "prereg_verify_success_total", Help: "Codes accepted by the backend."},
	{ID: goPrereg.MetricVerifyFailure, Name: "prereg_verify_failure_total", Help: "Code verifications that failed."},
	{ID: goPrereg.MetricResendSuccess, Name: "prereg_resend_success_total", Help: "Codes resent."},
	{ID: goPrereg.MetricResendFailure, Name: "prereg_resend_failure_total", Help: "Resend requests that failed."},
	{ID: goPrereg.MetricResendSuppressed, Name: "prereg_resend_suppressed_total", Help: "Resend requests ignored during cooldown."},
	{ID: goPrereg.MetricInvalidInput, Name: "prereg_invalid_input_total", Help: "Submissions rejected by local validation."},
	{ID: goPrereg.MetricDispatchRateLimited, Name: "prereg_dispatch_rate_limited_total", Help: "Code dispatches denied by the per-email limit."},
	{ID: goPrereg.MetricLimiterUnavailable, Name: "prereg_limiter_unavailable_total", Help: "Dispatch limit checks skipped because Redis failed."},
	{ID: goPrereg.MetricStateViolation, Name: "prereg_state_violation_total", Help: "Commands ignored because the flow was in the wrong state."},
	{ID: goPrereg.MetricStaleResultDropped, Name: "prereg_stale_result_dropped_total", Help: "Backend results discarded because the flow was closed meanwhile."},
}

var HistogramDefs = []HistogramDef{
	{ID: goPrereg.MetricBackendLatency, Name: "prereg_backend_latency_seconds", Help: "Verification backend call latency."},
}

// HistogramBounds are the finite upper bounds of the latency buckets in
// seconds. The final bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundLabels renders every bucket bound, +Inf included.
var HistogramBoundLabels = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [goPrereg.HistBucketCount]uint64 {
	var out [goPrereg.HistBucketCount]uint64
	copy(out[:], raw)
	return out
}

func CumulativeBuckets(raw [goPrereg.HistBucketCount]uint64) [goPrereg.HistBucketCount]uint64 {
	var out [goPrereg.HistBucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}

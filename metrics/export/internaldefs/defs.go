package internaldefs

import (
	authkeep "github.com/authkeep/authkeep"
)

// CounterDef binds one engine counter to its exported name and help text.
type CounterDef struct {
	ID   authkeep.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its exported name and help text.
type HistogramDef struct {
	ID   authkeep.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authkeep.MetricLoginSuccess, Name: "authkeep_login_success_total", Help: "Successful login attempts."},
	{ID: authkeep.MetricLoginFailure, Name: "authkeep_login_failure_total", Help: "Failed login attempts."},
	{ID: authkeep.MetricRegisterSuccess, Name: "authkeep_register_success_total", Help: "Completed registrations."},
	{ID: authkeep.MetricRegisterDuplicate, Name: "authkeep_register_duplicate_total", Help: "Registrations rejected for an existing email."},
	{ID: authkeep.MetricRegisterFailure, Name: "authkeep_register_failure_total", Help: "Registrations rejected for other reasons."},
	{ID: authkeep.MetricRefreshSuccess, Name: "authkeep_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authkeep.MetricRefreshFailure, Name: "authkeep_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: authkeep.MetricRefreshReuseDetected, Name: "authkeep_refresh_reuse_detected_total", Help: "Refresh attempts with no live session entry."},
	{ID: authkeep.MetricAuthenticateSuccess, Name: "authkeep_authenticate_success_total", Help: "Access tokens accepted."},
	{ID: authkeep.MetricAuthenticateFailure, Name: "authkeep_authenticate_failure_total", Help: "Access tokens rejected."},
	{ID: authkeep.MetricSessionCreated, Name: "authkeep_session_created_total", Help: "Session entries created."},
	{ID: authkeep.MetricSessionEvicted, Name: "authkeep_session_evicted_total", Help: "Oldest session entries evicted by the per-user cap."},
	{ID: authkeep.MetricLogout, Name: "authkeep_logout_total", Help: "Single-session logout operations."},
	{ID: authkeep.MetricLogoutAll, Name: "authkeep_logout_all_total", Help: "Logout-all operations."},
}

// HistogramDefs lists every exported histogram in a stable order.
var HistogramDefs = []HistogramDef{
	{ID: authkeep.MetricAuthenticateLatency, Name: "authkeep_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bucket bounds rendered in Prometheus output.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are the bound labels usable in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed bucket
// count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form both
// exporters emit.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

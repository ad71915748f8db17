package internaldefs

import (
	"github.com/MrEthical07/kvauth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   kvauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   kvauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: kvauth.MetricRegisterSuccess, Name: "kvauth_register_success_total", Help: "Committed account registrations."},
	{ID: kvauth.MetricRegisterDuplicate, Name: "kvauth_register_duplicate_total", Help: "Registrations rejected for a taken username."},
	{ID: kvauth.MetricRegisterFailure, Name: "kvauth_register_failure_total", Help: "Registrations rejected by validation or storage."},
	{ID: kvauth.MetricLoginSuccess, Name: "kvauth_login_success_total", Help: "Successful login attempts."},
	{ID: kvauth.MetricLoginFailure, Name: "kvauth_login_failure_total", Help: "Failed login attempts."},
	{ID: kvauth.MetricSessionCreated, Name: "kvauth_session_created_total", Help: "Created sessions."},
	{ID: kvauth.MetricSessionRevoked, Name: "kvauth_session_revoked_total", Help: "Sessions revoked by a newer login."},
	{ID: kvauth.MetricLogout, Name: "kvauth_logout_total", Help: "Logout operations."},
	{ID: kvauth.MetricAccountUpdated, Name: "kvauth_account_updated_total", Help: "Committed account updates."},
	{ID: kvauth.MetricAccountDeleted, Name: "kvauth_account_deleted_total", Help: "Account delete operations."},
	{ID: kvauth.MetricPasswordRehashed, Name: "kvauth_password_rehashed_total", Help: "Password hashes upgraded on login."},
	{ID: kvauth.MetricAuthorizeFailure, Name: "kvauth_authorize_failure_total", Help: "Rejected session tokens."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: kvauth.MetricAuthorizeLatency, Name: "kvauth_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine latency buckets.
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

// HistogramBoundSuffix is HistogramBounds rendered safe for metric names.
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

// NormalizeBuckets copies raw into a fixed-size bucket array, zero-filling
// missing entries and ignoring extra ones.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

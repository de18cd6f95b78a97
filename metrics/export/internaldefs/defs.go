package internaldefs

import (
	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// CounterDef names one Engine counter.
type CounterDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// HistogramDef names one Engine latency histogram.
type HistogramDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "authclient_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goAuthClient.MetricInitializeAuthenticated, Name: "authclient_initialize_authenticated_total", Help: "Startups that restored a verified session."},
	{ID: goAuthClient.MetricInitializeAnonymous, Name: "authclient_initialize_anonymous_total", Help: "Startups that ended without a session."},
	{ID: goAuthClient.MetricInitializeDegraded, Name: "authclient_initialize_degraded_total", Help: "Startups that fell back to the cached profile."},
	{ID: goAuthClient.MetricLoginSuccess, Name: "authclient_login_success_total", Help: "Successful logins."},
	{ID: goAuthClient.MetricLoginFailure, Name: "authclient_login_failure_total", Help: "Failed logins."},
	{ID: goAuthClient.MetricRegisterSuccess, Name: "authclient_register_success_total", Help: "Successful registrations."},
	{ID: goAuthClient.MetricRegisterFailure, Name: "authclient_register_failure_total", Help: "Failed registrations."},
	{ID: goAuthClient.MetricValidationRejected, Name: "authclient_validation_rejected_total", Help: "Login or register calls stopped by client-side validation."},
	{ID: goAuthClient.MetricLogout, Name: "authclient_logout_total", Help: "Sessions ended locally."},
	{ID: goAuthClient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Successful token refreshes."},
	{ID: goAuthClient.MetricRefreshFailure, Name: "authclient_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: goAuthClient.MetricRefreshShared, Name: "authclient_refresh_shared_total", Help: "Refresh calls that joined an in-flight refresh."},
	{ID: goAuthClient.MetricSessionExpired, Name: "authclient_session_expired_total", Help: "Forced logouts after a 401."},
	{ID: goAuthClient.MetricStaleResultDiscarded, Name: "authclient_stale_result_discarded_total", Help: "Remote results ignored because a newer operation had started."},
	{ID: goAuthClient.MetricRequestOK, Name: "authclient_request_ok_total", Help: "Requests answered with a success envelope."},
	{ID: goAuthClient.MetricRequestRejected, Name: "authclient_request_rejected_total", Help: "Requests answered with success:false."},
	{ID: goAuthClient.MetricRequestUnauthorized, Name: "authclient_request_unauthorized_total", Help: "Requests answered with 401."},
	{ID: goAuthClient.MetricRequestForbidden, Name: "authclient_request_forbidden_total", Help: "Requests answered with 403."},
	{ID: goAuthClient.MetricRequestNotFound, Name: "authclient_request_not_found_total", Help: "Requests answered with 404."},
	{ID: goAuthClient.MetricRequestServerError, Name: "authclient_request_server_error_total", Help: "Requests answered with 5xx."},
	{ID: goAuthClient.MetricRequestStatusError, Name: "authclient_request_status_error_total", Help: "Requests answered with another non-2xx status."},
	{ID: goAuthClient.MetricRequestTransportError, Name: "authclient_request_transport_error_total", Help: "Requests that got no response."},
	{ID: goAuthClient.MetricRequestCanceled, Name: "authclient_request_canceled_total", Help: "Requests abandoned by their caller."},
	{ID: goAuthClient.MetricRequestInvalid, Name: "authclient_request_invalid_total", Help: "Requests that could not be encoded or whose payload could not be decoded."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthClient.MetricRequestLatency, Name: "authclient_request_latency_seconds", Help: "Auth service request latency."},
	{ID: goAuthClient.MetricRefreshLatency, Name: "authclient_refresh_latency_seconds", Help: "Token refresh round-trip latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for backends that
// export buckets as separate instruments.
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

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with
// zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

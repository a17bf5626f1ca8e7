package integration

import (
	"context"
	"errors"
)

// ---------------------------------------------------------------------------
// Provider Errors
// ---------------------------------------------------------------------------

var (
	// ErrNoCredential means no usable access token could be obtained for the call.
	ErrNoCredential = errors.New("integration: no usable credential")
	// ErrAuthRejected means the provider rejected the token (HTTP 401/403) before any retry.
	ErrAuthRejected = errors.New("integration: authorization rejected")
	// ErrAuthExhausted means the provider still rejected the call after the single allowed refresh.
	ErrAuthExhausted = errors.New("integration: authorization rejected after refresh")
	// ErrRefreshRejected means the provider reported the refresh credential invalid or revoked.
	ErrRefreshRejected = errors.New("integration: refresh credential rejected")
	ErrRateLimited     = errors.New("integration: provider rate limited")
	// ErrTransientTransport covers network failures and 5xx answers.
	ErrTransientTransport = errors.New("integration: transient transport failure")
	ErrMalformedResponse  = errors.New("integration: malformed provider response")
	ErrTimeout            = errors.New("integration: provider call timed out")
	// ErrPreconditionUnmet means a connection or property id is missing; results are negatively cached.
	ErrPreconditionUnmet = errors.New("integration: precondition unmet")
	ErrInternalFailure   = errors.New("integration: internal failure")
)

// FailureKind classifies a provider failure for logging, metrics and caching decisions.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureNoCredential      FailureKind = "no_credential"
	FailureAuthRejected      FailureKind = "auth_rejected"
	FailureAuthExhausted     FailureKind = "auth_exhausted"
	FailureRateLimited       FailureKind = "rate_limited"
	FailureTransient         FailureKind = "transient_transport"
	FailureMalformedResponse FailureKind = "malformed_response"
	FailureTimeout           FailureKind = "timeout"
	FailurePreconditionUnmet FailureKind = "precondition_unmet"
	FailureInternal          FailureKind = "internal_failure"
)

// String returns the string representation of the failure kind
func (k FailureKind) String() string {
	return string(k)
}

// Cacheable reports whether a result produced under this failure kind may be cached.
// Only "preconditions unmet" is stable enough to be cached.
func (k FailureKind) Cacheable() bool {
	return k == FailureNone || k == FailurePreconditionUnmet
}

// KindOf maps an error to its FailureKind. Order matters: the most specific
// classification wins when an error wraps several sentinels.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrPreconditionUnmet):
		return FailurePreconditionUnmet
	case errors.Is(err, ErrNoCredential):
		return FailureNoCredential
	case errors.Is(err, ErrAuthExhausted), errors.Is(err, ErrRefreshRejected):
		return FailureAuthExhausted
	case errors.Is(err, ErrAuthRejected):
		return FailureAuthRejected
	case errors.Is(err, ErrRateLimited):
		return FailureRateLimited
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, ErrTransientTransport):
		return FailureTransient
	case errors.Is(err, ErrMalformedResponse):
		return FailureMalformedResponse
	default:
		return FailureInternal
	}
}

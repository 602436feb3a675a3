package retry

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"syscall"
)

// Severity is the retry-relevant classification of a failure.
type Severity int

const (
	// SeverityRecoverable errors can be retried.
	SeverityRecoverable Severity = iota
	// SeverityTemporary errors should be retried after a delay.
	SeverityTemporary
	// SeverityPermanent errors must not be retried.
	SeverityPermanent
)

func (s Severity) String() string {
	switch s {
	case SeverityRecoverable:
		return "recoverable"
	case SeverityTemporary:
		return "temporary"
	case SeverityPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// httpStatusError is satisfied by errors carrying an upstream HTTP status,
// without coupling the classifier to a concrete error type.
type httpStatusError interface {
	HTTPStatusCode() int
}

// Classify maps an arbitrary failure to a Severity. It is pure and
// deterministic: the same error always yields the same severity.
//
// Unknown errors classify as recoverable, failing open toward retrying.
func Classify(err error) Severity {
	if err == nil {
		return SeverityRecoverable
	}

	// Transport-level failures: timeouts and refused/reset connections.
	if errors.Is(err, context.DeadlineExceeded) {
		return SeverityTemporary
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return SeverityTemporary
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return SeverityTemporary
	}

	// Upstream HTTP failures: retry server overload, give up on client errors.
	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.HTTPStatusCode() {
		case 429, 500, 502, 503, 504:
			return SeverityTemporary
		case 400, 401, 403, 404:
			return SeverityPermanent
		default:
			return SeverityRecoverable
		}
	}

	// Filesystem failures.
	if errors.Is(err, fs.ErrPermission) {
		return SeverityPermanent
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return SeverityRecoverable
	}

	// Resource exhaustion.
	if errors.Is(err, syscall.ENOMEM) {
		return SeverityTemporary
	}

	return SeverityRecoverable
}

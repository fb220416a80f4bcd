package scraper

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrTLS indicates a failed TLS handshake or certificate verification.
type ErrTLS struct {
	Err error
}

func (e ErrTLS) Error() string {
	return fmt.Errorf("tls: %w", e.Err).Error()
}

func (e ErrTLS) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus indicates the server answered with a 4xx or 5xx status.
type ErrHTTPStatus struct {
	Status int
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Sprintf("http status %d %s", e.Status, http.StatusText(e.Status))
}

// Retryable reports whether the status is worth another attempt.
func (e ErrHTTPStatus) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// ErrParse indicates the response body could not be parsed as a document.
type ErrParse struct {
	Err error
}

func (e ErrParse) Error() string {
	return fmt.Errorf("parse: %w", e.Err).Error()
}

func (e ErrParse) Unwrap() error {
	return e.Err
}

// ErrStructural indicates the first page held none of the expected item blocks.
type ErrStructural struct {
	URL string
}

func (e ErrStructural) Error() string {
	return fmt.Sprintf("structural: no item blocks found on first page %s", e.URL)
}

// ErrEmptyResult is recorded when a run finishes without a single record.
var ErrEmptyResult = errors.New("empty result: no records collected")

// classifyNetworkError maps a transport failure onto the network error taxonomy.
func classifyNetworkError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostnameErr) || errors.As(err, &recordErr) {
		return ErrTLS{Err: err}
	}

	return ErrConnection{Err: err}
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var tlsErr ErrTLS
	if errors.As(err, &tlsErr) {
		return "tls"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		switch {
		case status.Status == http.StatusForbidden:
			return "forbidden"
		case status.Status == http.StatusNotFound:
			return "not_found"
		case status.Status == http.StatusTooManyRequests:
			return "rate_limited"
		case status.Status >= http.StatusInternalServerError:
			return "server_error"
		default:
			return "client_error"
		}
	}
	var parseErr ErrParse
	if errors.As(err, &parseErr) {
		return "parse"
	}
	var structural ErrStructural
	if errors.As(err, &structural) {
		return "structural"
	}
	if errors.Is(err, ErrEmptyResult) {
		return "empty_result"
	}
	return "other"
}

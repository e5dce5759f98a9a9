// Package errs defines the failure taxonomy of a submission run.
//
// Every error that ends an invocation is an *Error carrying a Code. The code
// decides the process exit status and how the failure is reported.
package errs

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Code identifies which stage of the pipeline failed.
type Code string

const (
	// CodeNone indicates no error
	CodeNone Code = ""

	// CodeConfig indicates a missing or malformed option or config file
	CodeConfig Code = "CONFIG_ERROR"

	// CodeInput indicates the positional argument could not be loaded
	CodeInput Code = "INPUT_ERROR"

	// CodeAuth indicates the login was rejected or its response was malformed
	CodeAuth Code = "AUTH_ERROR"

	// CodeSubmit indicates the add-torrent call was rejected
	CodeSubmit Code = "SUBMIT_ERROR"

	// CodeConnect indicates a transport-level failure, timeouts included
	CodeConnect Code = "CONNECT_ERROR"
)

// Reason refines CodeConnect failures.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonTimeout            Reason = "timeout"
	ReasonDNS                Reason = "dns"
	ReasonConnectionRefused  Reason = "connection refused"
	ReasonNetworkUnreachable Reason = "network unreachable"
	ReasonTLS                Reason = "tls"
	ReasonProtocolMismatch   Reason = "protocol mismatch"
	ReasonUnknown            Reason = "unknown"
)

// Error is a classified pipeline failure.
type Error struct {
	Code    Code
	Reason  Reason
	Message string
	Err     error

	// Status and Body are set when the failure came from an HTTP response.
	Status int
	Body   string
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Reason != ReasonNone {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HasResponse reports whether the raw HTTP status and body are available.
func (e *Error) HasResponse() bool {
	return e.Status != 0
}

func newError(code Code, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// Config creates a CodeConfig error. The message should name the offending field or file.
func Config(err error, format string, args ...any) *Error {
	return newError(CodeConfig, err, format, args...)
}

// Input creates a CodeInput error.
func Input(err error, format string, args ...any) *Error {
	return newError(CodeInput, err, format, args...)
}

// Auth creates a CodeAuth error for a rejected login response.
func Auth(status int, body string, format string, args ...any) *Error {
	e := newError(CodeAuth, nil, format, args...)
	e.Status, e.Body = status, body
	return e
}

// Submit creates a CodeSubmit error for a rejected add-torrent response.
func Submit(status int, body string, format string, args ...any) *Error {
	e := newError(CodeSubmit, nil, format, args...)
	e.Status, e.Body = status, body
	return e
}

// Connect creates a CodeConnect error with an explicit reason.
func Connect(reason Reason, err error, format string, args ...any) *Error {
	e := newError(CodeConnect, err, format, args...)
	e.Reason = reason
	return e
}

// ClassifyTransport turns an error returned by the HTTP transport into a
// CodeConnect error. Errors that are already classified are returned as is.
func ClassifyTransport(op string, err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	return Connect(transportReason(err), err, "%s failed", op)
}

func transportReason(err error) Reason {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ReasonTimeout
		}
		return ReasonDNS
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return ReasonTimeout
		}
		if opErr.Op == "dial" {
			msg := opErr.Error()
			switch {
			case strings.Contains(msg, "connection refused"):
				return ReasonConnectionRefused
			case strings.Contains(msg, "no route to host"),
				strings.Contains(msg, "network is unreachable"):
				return ReasonNetworkUnreachable
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return ReasonTimeout
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ReasonTLS
	}

	return reasonByMessage(strings.ToLower(err.Error()))
}

// reasonByMessage is the fallback for errors that lost their concrete type.
func reasonByMessage(msg string) Reason {
	switch {
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return ReasonTimeout
	case strings.Contains(msg, "connection refused"):
		return ReasonConnectionRefused
	case strings.Contains(msg, "no such host"):
		return ReasonDNS
	case strings.Contains(msg, "malformed http response"),
		strings.Contains(msg, "first record does not look like a tls handshake"):
		return ReasonProtocolMismatch
	case strings.Contains(msg, "x509"),
		strings.Contains(msg, "certificate"):
		return ReasonTLS
	default:
		return ReasonUnknown
	}
}

// GetCode extracts the code from an error, CodeNone for nil or unclassified errors.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeNone
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case CodeConfig:
		return 2
	case CodeInput:
		return 3
	case CodeAuth:
		return 4
	case CodeSubmit:
		return 5
	case CodeConnect:
		return 6
	default:
		return 1
	}
}

package stream

import (
	"errors"
	"fmt"
)

// Kind classifies a decode or request failure. The retry wrapper dispatches
// on Kind alone, never on message matching.
type Kind int

const (
	// KindTransportIncomplete indicates short reads, truncated compressed
	// buffers, or size mismatches between declared and actual bytes.
	// Always retryable.
	KindTransportIncomplete Kind = iota

	// KindMetadataCorrupt indicates malformed or undecodable JSON for any
	// of the metadata line kinds. Retryable: from the client's vantage it
	// is indistinguishable from the server connection dying mid-stream.
	KindMetadataCorrupt

	// KindServerReported indicates an explicit error field in a chunk
	// header or an HTTP 5xx status. Retried like transport failures.
	KindServerReported

	// KindClientError indicates a malformed request (bad parameters,
	// an unsupported dtype at decode start, HTTP 4xx). Never retried;
	// surfaced before any network call where possible.
	KindClientError

	// KindFatal indicates anything else (contract violations, local I/O
	// failures). Aborts the operation without retry.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransportIncomplete:
		return "transport_incomplete"
	case KindMetadataCorrupt:
		return "metadata_corrupt"
	case KindServerReported:
		return "server_reported"
	case KindClientError:
		return "client_error"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified streaming-protocol error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the error kind is transient. Server-reported
// chunk errors are retried like transport failures; see the retry package
// for the policy note.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransportIncomplete, KindMetadataCorrupt, KindServerReported:
		return true
	default:
		return false
	}
}

// KindOf extracts the classification from an error chain.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// NewClientError builds a non-retryable request-validation error.
func NewClientError(format string, args ...any) *Error {
	return &Error{Kind: KindClientError, Msg: fmt.Sprintf(format, args...)}
}

// NewServerError builds a server-reported error (5xx or explicit error field).
func NewServerError(format string, args ...any) *Error {
	return &Error{Kind: KindServerReported, Msg: fmt.Sprintf(format, args...)}
}

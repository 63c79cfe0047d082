package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the terminal failure of a fetch.
// Every failure the remote service can signal maps to exactly one kind.
type ErrorKind string

const (
	KindNetworkUnavailable    ErrorKind = "network_unavailable"
	KindRemoteTimeout         ErrorKind = "remote_timeout"
	KindInvalidElements       ErrorKind = "invalid_elements"
	KindUnknownCenter         ErrorKind = "unknown_center"
	KindAmbiguousCenter       ErrorKind = "ambiguous_center"
	KindInvalidDate           ErrorKind = "invalid_date"
	KindOutOfEphemerisRange   ErrorKind = "out_of_ephemeris_range"
	KindInvalidStepSize       ErrorKind = "invalid_step_size"
	KindStepSizeRangeExceeded ErrorKind = "step_size_range_exceeded"
	KindInvalidQuantities     ErrorKind = "invalid_quantities"
	KindEmptyQuantities       ErrorKind = "empty_quantities"
	KindInvalidOverride       ErrorKind = "invalid_override"
	KindTransferUnavailable   ErrorKind = "transfer_unavailable"
	KindAuthenticationFailed  ErrorKind = "authentication_failed"
	KindArtifactNotFound      ErrorKind = "artifact_not_found"
)

// Error is the single failure outcome of a session or transfer.
// It is reported once and never retried.
type Error struct {
	Kind ErrorKind

	// State names the dialogue state where the failure was detected.
	State string

	// Level is the wait level for remote timeouts (1 = first prompt wait).
	Level int

	// Field distinguishes the start vs stop boundary for date errors.
	Field string

	// Value is the caller-supplied value the service rejected, if any.
	Value string

	// Detail carries the remote diagnostic text.
	Detail string
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	switch {
	case e.Kind == KindRemoteTimeout:
		msg = fmt.Sprintf("%s (level=%d, state=%s)", e.Kind, e.Level, e.State)
	case e.Field != "" && e.Value != "":
		msg = fmt.Sprintf("%s (field=%s, value=%q)", e.Kind, e.Field, e.Value)
	case e.Value != "":
		msg = fmt.Sprintf("%s (value=%q)", e.Kind, e.Value)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// KindOf extracts the error kind from err, or "" if err is not a domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

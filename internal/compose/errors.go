package compose

import (
	"errors"
	"fmt"
)

// Kind classifies composition failures for the caller.
type Kind string

const (
	// KindSourceUnreadable: the avatar clip is missing or undecodable.
	// Individual bad images never raise this; they fall back per slot.
	KindSourceUnreadable Kind = "source_unreadable"
	// KindUnsupportedAnchor: the PIP anchor name is outside the known set.
	KindUnsupportedAnchor Kind = "unsupported_anchor"
	// KindEncodingFailure: the output encoder rejected the parameters or the
	// write itself failed.
	KindEncodingFailure Kind = "encoding_failure"
	// KindEmptyInputs: the avatar clip has no positive duration, so no
	// timeline can exist.
	KindEmptyInputs Kind = "empty_inputs"
)

// Error is the typed failure returned by Compose.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compose: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("compose: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func failf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the failure kind from an error chain, or "" if the error
// did not come from this package.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

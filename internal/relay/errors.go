package relay

import (
	"errors"
	"fmt"
)

// Kind classifies why a relay call failed.
type Kind string

const (
	// KindAbort means the caller went away. Terminal, never retried.
	KindAbort Kind = "abort"
	// KindNetwork means the destination could not be reached.
	KindNetwork Kind = "network"
	// KindTimeout means an attempt ran past its time budget.
	KindTimeout Kind = "timeout"
	// KindBackendStatus means the destination answered with a non-2xx status.
	KindBackendStatus Kind = "backend_status"
	// KindParse means a 2xx body could not be decoded as JSON.
	KindParse Kind = "parse"
)

// Error is the failure type returned by Forward.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAbort:
		return "request aborted"
	case KindBackendStatus:
		return fmt.Sprintf("Backend responded with status: %d", e.Status)
	case KindTimeout:
		return fmt.Sprintf("timeout: %v", e.Err)
	case KindNetwork:
		return fmt.Sprintf("network error: %v", e.Err)
	case KindParse:
		return fmt.Sprintf("failed to parse response: %v", e.Err)
	}
	return fmt.Sprintf("relay error: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a relay error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind, true
	}
	return "", false
}

// IsAbort reports whether err is a caller-side abort.
func IsAbort(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindAbort
}

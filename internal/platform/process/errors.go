package process

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNotFound means the process does not exist or has exited
	ErrNotFound = errors.New("process not found")
	// ErrAccessDenied means the process exists but may not be inspected
	ErrAccessDenied = errors.New("process access denied")
	// ErrUnsupported means the backend cannot perform the operation on this platform
	ErrUnsupported = errors.New("operation not supported on this platform")
)

// ErrorKind classifies a probe failure
type ErrorKind int

const (
	KindNotFound ErrorKind = iota
	KindAccessDenied
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	}
	return "unexpected"
}

// ProbeError is the typed failure of a probe
type ProbeError struct {
	Kind ErrorKind
	Op   string
	PID  int
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s pid %d: %s: %v", e.Op, e.PID, e.Kind, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) match any NotFound probe error.
func (e *ProbeError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrAccessDenied:
		return e.Kind == KindAccessDenied
	}
	return false
}

// Classify maps a raw backend error onto an ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrProcessDone):
		return KindNotFound
	case errors.Is(err, ErrAccessDenied), errors.Is(err, os.ErrPermission):
		return KindAccessDenied
	}
	return KindUnexpected
}

func probeError(op string, pid int, err error) *ProbeError {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProbeError{Kind: Classify(err), Op: op, PID: pid, Err: err}
}

// IsNotFound reports whether err means the process is gone
func IsNotFound(err error) bool {
	return err != nil && Classify(err) == KindNotFound
}

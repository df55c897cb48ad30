//go:build unix && !linux

package process

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// signalBackend supports liveness and signals only; inspection fields come
// back as ErrUnsupported and show up in CollectionErrors.
type signalBackend struct{}

func newPlatformBackend() (Backend, error) {
	return signalBackend{}, nil
}

func (signalBackend) Alive(pid int) (bool, error) {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.ESRCH):
		return false, nil
	case errors.Is(err, unix.EPERM):
		return true, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return false, err
}

func (signalBackend) Name(int) (string, error)           { return "", ErrUnsupported }
func (signalBackend) ExecutablePath(int) (string, error) { return "", ErrUnsupported }
func (signalBackend) ParentPID(int) (int, error)         { return 0, ErrUnsupported }
func (signalBackend) MemoryBytes(int) (uint64, error)    { return 0, ErrUnsupported }
func (signalBackend) StartTime(int) (time.Time, error)   { return time.Time{}, ErrUnsupported }
func (signalBackend) Responding(int) (bool, error)       { return true, nil }
func (signalBackend) PIDs() ([]int, error)               { return nil, ErrUnsupported }

func (signalBackend) RequestClose(pid int) error { return sendSignal(pid, unix.SIGTERM) }
func (signalBackend) Kill(pid int) error         { return sendSignal(pid, unix.SIGKILL) }

func sendSignal(pid int, sig unix.Signal) error {
	err := unix.Kill(pid, sig)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, unix.EPERM), errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return err
}

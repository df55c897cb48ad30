//go:build linux

package process

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// linuxBackend reads /proc through prometheus/procfs
type linuxBackend struct {
	fs procfs.FS
}

func newPlatformBackend() (Backend, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	return &linuxBackend{fs: fs}, nil
}

func (b *linuxBackend) stat(pid int) (procfs.ProcStat, error) {
	p, err := b.fs.Proc(pid)
	if err != nil {
		return procfs.ProcStat{}, mapErr(err)
	}
	st, err := p.Stat()
	if err != nil {
		return procfs.ProcStat{}, mapErr(err)
	}
	return st, nil
}

func (b *linuxBackend) Alive(pid int) (bool, error) {
	st, err := b.stat(pid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	// Zombies have exited; only the parent's reap is pending.
	return st.State != "Z" && st.State != "X", nil
}

func (b *linuxBackend) Name(pid int) (string, error) {
	st, err := b.stat(pid)
	if err != nil {
		return "", err
	}
	return st.Comm, nil
}

func (b *linuxBackend) ExecutablePath(pid int) (string, error) {
	p, err := b.fs.Proc(pid)
	if err != nil {
		return "", mapErr(err)
	}
	exe, err := p.Executable()
	if err != nil {
		return "", mapErr(err)
	}
	return exe, nil
}

func (b *linuxBackend) ParentPID(pid int) (int, error) {
	st, err := b.stat(pid)
	if err != nil {
		return 0, err
	}
	return st.PPID, nil
}

func (b *linuxBackend) MemoryBytes(pid int) (uint64, error) {
	st, err := b.stat(pid)
	if err != nil {
		return 0, err
	}
	return uint64(st.ResidentMemory()), nil
}

func (b *linuxBackend) StartTime(pid int) (time.Time, error) {
	st, err := b.stat(pid)
	if err != nil {
		return time.Time{}, err
	}
	secs, err := st.StartTime()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, int64(secs*float64(time.Second))), nil
}

func (b *linuxBackend) Responding(pid int) (bool, error) {
	st, err := b.stat(pid)
	if err != nil {
		return false, err
	}
	switch st.State {
	case "T", "t", "Z", "X":
		return false, nil
	}
	return true, nil
}

func (b *linuxBackend) PIDs() ([]int, error) {
	procs, err := b.fs.AllProcs()
	if err != nil {
		return nil, err
	}
	pids := make([]int, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.PID)
	}
	return pids, nil
}

func (b *linuxBackend) RequestClose(pid int) error {
	return signal(pid, unix.SIGTERM)
}

func (b *linuxBackend) Kill(pid int) error {
	return signal(pid, unix.SIGKILL)
}

func signal(pid int, sig unix.Signal) error {
	if err := unix.Kill(pid, sig); err != nil {
		return mapErr(err)
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, unix.ESRCH), errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, unix.EPERM), errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return err
}

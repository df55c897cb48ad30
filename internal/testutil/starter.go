package testutil

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
)

// StartCall records one FakeStarter.Start invocation
type StartCall struct {
	Path string
	Args []string
	Dir  string
	PID  int
}

// FakeStarter spawns fake processes and, when Windows is set, opens a
// window for each.
type FakeStarter struct {
	Backend *FakeBackend
	Windows *FakeWindows
	// Template supplies behaviour flags copied onto every spawned process.
	Template FakeProcess
	// TitleFor picks the window title; defaults to the executable base name.
	TitleFor func(path string, args []string) string
	// NoWindow suppresses window creation.
	NoWindow bool
	// HandOffTo, when set, opens the window on that already running pid
	// and makes the started process exit at once.
	HandOffTo int
	// Gate, when set, holds every Start until it is closed.
	Gate chan struct{}
	Err  error

	mu      sync.Mutex
	calls   []StartCall
	waiting int
}

func (s *FakeStarter) Start(ctx context.Context, path string, args []string, dir string) (int, error) {
	if s.Gate != nil {
		s.mu.Lock()
		s.waiting++
		s.mu.Unlock()
		select {
		case <-s.Gate:
		case <-ctx.Done():
		}
		s.mu.Lock()
		s.waiting--
		s.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
	if s.Err != nil {
		return 0, s.Err
	}
	p := s.Template
	p.PID = 0
	p.Path = path
	p.Name = filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	pid := s.Backend.Spawn(p)

	if s.Windows != nil && !s.NoWindow {
		title := p.Name
		if s.TitleFor != nil {
			title = s.TitleFor(path, args)
		}
		owner := pid
		if s.HandOffTo != 0 {
			owner = s.HandOffTo
		}
		s.Windows.Open(owner, title)
	}
	if s.HandOffTo != 0 {
		s.Backend.Exit(pid)
	}

	s.mu.Lock()
	s.calls = append(s.calls, StartCall{Path: path, Args: append([]string(nil), args...), Dir: dir, PID: pid})
	s.mu.Unlock()
	return pid, nil
}

// Calls returns the recorded invocations
func (s *FakeStarter) Calls() []StartCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StartCall(nil), s.calls...)
}

// Waiting reports how many Start calls are held at the gate
func (s *FakeStarter) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}

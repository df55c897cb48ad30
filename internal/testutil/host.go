package testutil

import (
	"context"
	"sync"
)

// FakeHost is an in-memory embedded-browser host
type FakeHost struct {
	mu       sync.Mutex
	sessions map[string]string
	focused  []string

	Unavailable bool
	OpenErr     error
}

// NewFakeHost creates an available host with no sessions
func NewFakeHost() *FakeHost {
	return &FakeHost{sessions: make(map[string]string)}
}

func (h *FakeHost) Available() bool { return !h.Unavailable }

func (h *FakeHost) Open(_ context.Context, sessionID, url, _ string) error {
	if h.OpenErr != nil {
		return h.OpenErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[sessionID] = url
	return nil
}

func (h *FakeHost) Focus(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[sessionID]; !ok {
		return false
	}
	h.focused = append(h.focused, sessionID)
	return true
}

func (h *FakeHost) Close(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[sessionID]; !ok {
		return false
	}
	delete(h.sessions, sessionID)
	return true
}

func (h *FakeHost) IsOpen(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[sessionID]
	return ok
}

// Drop simulates the user closing a session from the shell UI
func (h *FakeHost) Drop(sessionID string) {
	h.mu.Lock()
	delete(h.sessions, sessionID)
	h.mu.Unlock()
}

// Focused returns the sessions focused so far
func (h *FakeHost) Focused() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.focused...)
}

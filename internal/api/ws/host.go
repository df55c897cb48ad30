package ws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

var _ launcher.Host = (*Hub)(nil)

var (
	ErrNoShell     = errors.New("no shell connected")
	ErrOpenTimeout = errors.New("shell did not confirm the session")
)

// ShellError is returned when the shell refuses to open a session
type ShellError struct {
	SessionID string
	Message   string
}

func (e *ShellError) Error() string {
	return fmt.Sprintf("shell refused session %s: %s", e.SessionID, e.Message)
}

// Available reports whether a shell is connected to host sessions
func (h *Hub) Available() bool {
	return h.ClientCount() > 0
}

// Open asks the shell to show url in an embedded view and waits for it to
// confirm.
func (h *Hub) Open(ctx context.Context, sessionID, url, title string) error {
	if !h.Available() {
		return ErrNoShell
	}

	ch := make(chan error, 1)
	h.mu.Lock()
	h.pending[sessionID] = ch
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.pending, sessionID)
		h.mu.Unlock()
	}()

	h.Broadcast(types.WSMessage{Type: TypeWebViewOpen, SessionID: sessionID, URL: url, Title: title})

	timer := time.NewTimer(h.openTimeout)
	defer timer.Stop()
	select {
	case err := <-ch:
		if err != nil {
			return err
		}
	case <-timer.C:
		return ErrOpenTimeout
	case <-ctx.Done():
		return ctx.Err()
	}

	h.mu.Lock()
	h.sessions[sessionID] = url
	h.mu.Unlock()
	h.log.Info("Session opened", zap.String("session_id", sessionID), zap.String("url", url))
	return nil
}

func (h *Hub) Focus(sessionID string) bool {
	if !h.IsOpen(sessionID) {
		return false
	}
	h.Broadcast(types.WSMessage{Type: TypeWebViewFocus, SessionID: sessionID})
	return true
}

func (h *Hub) Close(sessionID string) bool {
	h.mu.Lock()
	_, ok := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	if !ok {
		return false
	}
	h.Broadcast(types.WSMessage{Type: TypeWebViewClose, SessionID: sessionID})
	return true
}

func (h *Hub) IsOpen(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[sessionID]
	return ok
}

// Sessions returns the number of open embedded sessions
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) resolve(sessionID string, err error) {
	h.mu.Lock()
	ch, ok := h.pending[sessionID]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- err:
	default:
	}
}

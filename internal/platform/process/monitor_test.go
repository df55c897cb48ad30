package process_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/testutil"
)

func newMonitor(b *testutil.FakeBackend, opts ...process.Option) *process.Monitor {
	opts = append([]process.Option{process.WithPollInterval(time.Millisecond)}, opts...)
	return process.NewMonitor(b, opts...)
}

func TestIsProcessAliveForMissingProcess(t *testing.T) {
	m := newMonitor(testutil.NewFakeBackend())

	for _, pid := range []int{-1, 0, 1, 999999} {
		assert.NotPanics(t, func() {
			assert.False(t, m.IsProcessAlive(pid))
		})
	}
}

func TestIsProcessAliveCountsAccessDeniedAsAlive(t *testing.T) {
	b := testutil.NewFakeBackend()
	pid := b.Spawn(testutil.FakeProcess{Name: "lsass.exe", Denied: true})

	assert.True(t, newMonitor(b).IsProcessAlive(pid))
}

func TestBackendPanicIsContained(t *testing.T) {
	b := testutil.NewFakeBackend()
	pid := b.Spawn(testutil.FakeProcess{Name: "app"})
	b.PanicOn = "Alive"

	m := newMonitor(b)
	assert.NotPanics(t, func() {
		assert.False(t, m.IsProcessAlive(pid))
		_, err := m.GetProcessInfo(pid)
		var pe *process.ProbeError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, process.KindUnexpected, pe.Kind)
	})
}

func TestGetProcessInfoTypedErrors(t *testing.T) {
	b := testutil.NewFakeBackend()
	denied := b.Spawn(testutil.FakeProcess{Name: "svc", Denied: true})
	m := newMonitor(b)

	_, err := m.GetProcessInfo(424242)
	assert.ErrorIs(t, err, process.ErrNotFound)

	_, err = m.GetProcessInfo(denied)
	assert.ErrorIs(t, err, process.ErrAccessDenied)
}

func TestGetProcessInfoCollectsFieldsIndependently(t *testing.T) {
	b := testutil.NewFakeBackend()
	pid := b.Spawn(testutil.FakeProcess{Name: "notepad.exe", Path: `C:\Windows\notepad.exe`, MemoryMB: 12, Parent: 4})
	b.PanicOn = "ExecutablePath"

	info, err := newMonitor(b).GetProcessInfo(pid)
	require.NoError(t, err)
	assert.Equal(t, "notepad.exe", info.Name)
	assert.Equal(t, 4, info.ParentPID)
	assert.InDelta(t, 12, info.MemoryMB, 0.01)
	assert.Empty(t, info.ExecutablePath)
	require.Len(t, info.CollectionErrors, 1)
	assert.Contains(t, info.CollectionErrors[0], "executable_path")
}

func TestGetProcessInfoUsesWindow(t *testing.T) {
	b := testutil.NewFakeBackend()
	w := testutil.NewFakeWindows(b)
	pid := b.Spawn(testutil.FakeProcess{Name: "calc"})
	h := w.Open(pid, "Calculator")
	w.SetHung(h, true)

	m := newMonitor(b, process.WithWindows(w))
	info, err := m.GetProcessInfo(pid)
	require.NoError(t, err)
	assert.True(t, info.HasWindow)
	assert.Equal(t, "Calculator", info.MainWindowTitle)
	assert.False(t, info.IsResponding)
	assert.False(t, m.IsProcessResponding(pid))
}

func TestIsProcessRespondingStopped(t *testing.T) {
	b := testutil.NewFakeBackend()
	pid := b.Spawn(testutil.FakeProcess{Name: "vim", Stopped: true})
	m := newMonitor(b)

	assert.False(t, m.IsProcessResponding(pid))
	b.Update(pid, func(p *testutil.FakeProcess) { p.Stopped = false })
	assert.True(t, m.IsProcessResponding(pid))
	assert.False(t, m.IsProcessResponding(pid+1))
}

func TestGetMemoryUsageMB(t *testing.T) {
	b := testutil.NewFakeBackend()
	pid := b.Spawn(testutil.FakeProcess{Name: "chrome", MemoryMB: 256})
	m := newMonitor(b)

	assert.InDelta(t, 256, m.GetMemoryUsageMB(pid), 0.01)
	assert.Zero(t, m.GetMemoryUsageMB(pid+100))
}

func TestCloseGracefullyOnExitedProcessSendsNothing(t *testing.T) {
	b := testutil.NewFakeBackend()
	pid := b.Spawn(testutil.FakeProcess{Name: "gone"})
	b.Exit(pid)

	m := newMonitor(b)
	assert.True(t, m.CloseProcessGracefully(context.Background(), pid, 50*time.Millisecond))
	assert.Zero(t, b.CloseRequests(pid))
	assert.True(t, m.KillProcess(context.Background(), pid, 50*time.Millisecond))
	assert.Zero(t, b.Kills(pid))
}

func TestCloseGracefullyPrefersWindow(t *testing.T) {
	b := testutil.NewFakeBackend()
	w := testutil.NewFakeWindows(b)
	pid := b.Spawn(testutil.FakeProcess{Name: "word"})
	h := w.Open(pid, "Document1 - Word")

	m := newMonitor(b, process.WithWindows(w))
	assert.True(t, m.CloseProcessGracefully(context.Background(), pid, 50*time.Millisecond))
	assert.Equal(t, 1, w.Count("close", h))
	assert.False(t, b.IsAlive(pid))
}

func TestCloseGracefullyTimesOut(t *testing.T) {
	b := testutil.NewFakeBackend()
	pid := b.Spawn(testutil.FakeProcess{Name: "stubborn", IgnoreClose: true})

	m := newMonitor(b)
	start := time.Now()
	assert.False(t, m.CloseProcessGracefully(context.Background(), pid, 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.True(t, b.IsAlive(pid))
}

func TestTerminateEscalatesOnlyWhenGracefulFails(t *testing.T) {
	b := testutil.NewFakeBackend()
	polite := b.Spawn(testutil.FakeProcess{Name: "polite"})
	stubborn := b.Spawn(testutil.FakeProcess{Name: "stubborn", IgnoreClose: true})
	m := newMonitor(b)

	assert.True(t, m.TerminateProcess(context.Background(), polite, 30*time.Millisecond, 30*time.Millisecond))
	assert.Zero(t, b.Kills(polite))

	assert.True(t, m.TerminateProcess(context.Background(), stubborn, 30*time.Millisecond, 30*time.Millisecond))
	assert.Equal(t, 1, b.CloseRequests(stubborn))
	assert.Equal(t, 1, b.Kills(stubborn))
	assert.False(t, m.IsProcessAlive(stubborn))
}

func TestKillThatDoesNotTakeReportsFalse(t *testing.T) {
	b := testutil.NewFakeBackend()
	pid := b.Spawn(testutil.FakeProcess{Name: "zombie-maker", IgnoreClose: true, IgnoreKill: true})

	m := newMonitor(b)
	assert.False(t, m.TerminateProcess(context.Background(), pid, 10*time.Millisecond, 10*time.Millisecond))
	assert.Equal(t, 1, b.Kills(pid))
}

func TestWaitHonoursContext(t *testing.T) {
	b := testutil.NewFakeBackend()
	pid := b.Spawn(testutil.FakeProcess{Name: "stubborn", IgnoreClose: true})
	m := newMonitor(b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, m.CloseProcessGracefully(ctx, pid, time.Minute))
	assert.Less(t, time.Since(start), time.Second)
}

func TestProbeErrorKinds(t *testing.T) {
	assert.Equal(t, process.KindNotFound, process.Classify(process.ErrNotFound))
	assert.Equal(t, process.KindAccessDenied, process.Classify(process.ErrAccessDenied))
	assert.Equal(t, process.KindUnexpected, process.Classify(errors.New("disk on fire")))
	assert.True(t, process.IsNotFound(&process.ProbeError{Kind: process.KindNotFound, Err: errors.New("x")}))
}
